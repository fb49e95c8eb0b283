package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"campus/internal/apperr"
	"campus/internal/attendance"
	"campus/internal/auth"
	"campus/internal/directory"
)

type markItem struct {
	StudentID string `json:"studentId"`
	SubjectID string `json:"subjectId"`
	BranchID  string `json:"branchId"`
	Semester  int    `json:"semester"`
	Date      string `json:"date"`
	Status    string `json:"status"`
	Remarks   string `json:"remarks"`
}

type markRequest struct {
	AttendanceData []markItem `json:"attendanceData"`
}

// MarkAttendance applies a batch of marks for the acting faculty.
func (h *Handler) MarkAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Validation("attendance data is required"))
		return
	}

	inputs := make([]attendance.MarkInput, 0, len(req.AttendanceData))
	for _, item := range req.AttendanceData {
		in := attendance.MarkInput{
			StudentID: item.StudentID,
			SubjectID: item.SubjectID,
			BranchID:  item.BranchID,
			Semester:  item.Semester,
			Status:    attendance.Status(item.Status),
			Remarks:   item.Remarks,
		}
		if item.Date != "" {
			if d, err := parseDate(item.Date); err == nil {
				in.Date = d
			}
		}
		inputs = append(inputs, in)
	}

	res, err := h.att.Mark(c.Request.Context(), auth.FromContext(c).Subject, inputs)
	if err != nil {
		if len(res.Failed) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "failed to mark attendance",
				"errors": res.Failed,
			})
			return
		}
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"marked":  res.Marked,
		"errors":  res.Failed,
		"message": fmt.Sprintf("attendance marked successfully for %d student(s)", len(res.Marked)),
	})
}

// AttendanceBySubject lists marks for one subject.
func (h *Handler) AttendanceBySubject(c *gin.Context) {
	date, ok := queryDate(c, "date")
	if !ok {
		return
	}
	recs, err := h.att.BySubject(c.Request.Context(), c.Query("subjectId"), queryInt(c, "semester"), date)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, attachRefs(gin.H{"attendance": recs}, h.attendanceRefs(c, recs)))
}

func studentFilter(c *gin.Context) (attendance.Filter, bool) {
	from, ok := queryDate(c, "startDate")
	if !ok {
		return attendance.Filter{}, false
	}
	to, ok := queryDate(c, "endDate")
	if !ok {
		return attendance.Filter{}, false
	}
	return attendance.Filter{
		SubjectID: c.Query("subjectId"),
		Semester:  queryInt(c, "semester"),
		From:      from,
		To:        to,
	}, true
}

// MyAttendance returns the acting student's records with per-subject and
// overall rollups.
func (h *Handler) MyAttendance(c *gin.Context) {
	f, ok := studentFilter(c)
	if !ok {
		return
	}
	recs, perSubject, overall, err := h.att.StudentSummary(c.Request.Context(), auth.FromContext(c).Subject, f)
	if err != nil {
		respondErr(c, err)
		return
	}
	body := gin.H{
		"attendance":        recs,
		"subjectWiseStats":  perSubject,
		"overallStatistics": overall,
	}
	c.JSON(http.StatusOK, attachRefs(body, h.attendanceRefs(c, recs)))
}

// StudentAttendance returns one student's records with the rollup.
func (h *Handler) StudentAttendance(c *gin.Context) {
	f, ok := studentFilter(c)
	if !ok {
		return
	}
	recs, st, err := h.att.ByStudent(c.Request.Context(), c.Param("studentId"), f)
	if err != nil {
		respondErr(c, err)
		return
	}
	body := gin.H{"attendance": recs, "statistics": st}
	c.JSON(http.StatusOK, attachRefs(body, h.attendanceRefs(c, recs)))
}

// AttendanceReport is the unrestricted administrative query.
func (h *Handler) AttendanceReport(c *gin.Context) {
	f, ok := studentFilter(c)
	if !ok {
		return
	}
	f.BranchID = c.Query("branchId")
	recs, err := h.att.Report(c.Request.Context(), f)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, attachRefs(gin.H{"attendance": recs}, h.attendanceRefs(c, recs)))
}

// DeleteAttendance removes one record.
func (h *Handler) DeleteAttendance(c *gin.Context) {
	if err := h.att.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "attendance deleted successfully"})
}

func (h *Handler) attendanceRefs(c *gin.Context, recs []attendance.Record) gin.H {
	if !h.dir.Enabled() || len(recs) == 0 {
		return nil
	}
	ids := map[string][]string{
		directory.KindStudent: {},
		directory.KindFaculty: {},
		directory.KindSubject: {},
		directory.KindBranch:  {},
	}
	for _, r := range recs {
		ids[directory.KindStudent] = append(ids[directory.KindStudent], r.StudentID)
		ids[directory.KindFaculty] = append(ids[directory.KindFaculty], r.FacultyID)
		ids[directory.KindSubject] = append(ids[directory.KindSubject], r.SubjectID)
		ids[directory.KindBranch] = append(ids[directory.KindBranch], r.BranchID)
	}
	return h.refs(c, ids)
}
