package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus/internal/apperr"
	"campus/internal/auth"
	"campus/internal/directory"
	"campus/internal/feedback"
)

type submitFeedbackRequest struct {
	CampaignID         string `json:"campaignId"`
	FacultyID          string `json:"facultyId"`
	SubjectID          string `json:"subjectId"`
	BranchID           string `json:"branchId"`
	Semester           int    `json:"semester"`
	TeachingQuality    int    `json:"teachingQuality"`
	KnowledgeOfSubject int    `json:"knowledgeOfSubject"`
	Communication      int    `json:"communication"`
	Punctuality        int    `json:"punctuality"`
	OverallRating      int    `json:"overallRating"`
	Strengths          string `json:"strengths"`
	Improvements       string `json:"improvements"`
	AdditionalComments string `json:"additionalComments"`
	IsAnonymous        bool   `json:"isAnonymous"`
}

// SubmitFeedback stores a rating for the acting student.
func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req submitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Validation("invalid request body"))
		return
	}
	sub, err := h.fb.Submit(c.Request.Context(), auth.FromContext(c).Subject, feedback.SubmitInput{
		CampaignID:         req.CampaignID,
		FacultyID:          req.FacultyID,
		SubjectID:          req.SubjectID,
		BranchID:           req.BranchID,
		Semester:           req.Semester,
		TeachingQuality:    req.TeachingQuality,
		KnowledgeOfSubject: req.KnowledgeOfSubject,
		Communication:      req.Communication,
		Punctuality:        req.Punctuality,
		OverallRating:      req.OverallRating,
		Strengths:          req.Strengths,
		Improvements:       req.Improvements,
		AdditionalComments: req.AdditionalComments,
		IsAnonymous:        req.IsAnonymous,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"feedback": sub,
		"message":  "feedback submitted successfully",
	})
}

// MyFeedback lists the acting student's own submissions.
func (h *Handler) MyFeedback(c *gin.Context) {
	subs, err := h.fb.MyFeedback(c.Request.Context(),
		auth.FromContext(c).Subject, queryInt(c, "semester"), c.Query("subjectId"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, attachRefs(gin.H{"feedback": subs}, h.feedbackRefs(c, subs)))
}

// FacultyFeedback returns the feedback addressed to the acting faculty member.
// Anonymous submissions are redacted unless includeAnonymous=true is passed by
// an admin caller.
func (h *Handler) FacultyFeedback(c *gin.Context) {
	claims := auth.FromContext(c)
	includeAnonymous := c.Query("includeAnonymous") == "true" && claims.Role == auth.RoleAdmin
	f := feedback.Filter{
		SubjectID: c.Query("subjectId"),
		Semester:  queryInt(c, "semester"),
	}
	view, err := h.fb.ForFaculty(c.Request.Context(), claims.Subject, f, includeAnonymous)
	if err != nil {
		respondErr(c, err)
		return
	}
	body := gin.H{
		"feedback":       view.Feedback,
		"totalFeedback":  view.TotalFeedback,
		"averageRatings": view.AverageRatings,
	}
	c.JSON(http.StatusOK, attachRefs(body, h.feedbackRefs(c, view.Feedback)))
}

// AllFeedback is the unrestricted administrative listing.
func (h *Handler) AllFeedback(c *gin.Context) {
	subs, err := h.fb.All(c.Request.Context(), feedback.Filter{
		FacultyID: c.Query("facultyId"),
		SubjectID: c.Query("subjectId"),
		BranchID:  c.Query("branchId"),
		Semester:  queryInt(c, "semester"),
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, attachRefs(gin.H{"feedback": subs}, h.feedbackRefs(c, subs)))
}

// FeedbackSummary aggregates one faculty member's ratings.
func (h *Handler) FeedbackSummary(c *gin.Context) {
	sum, err := h.fb.SummaryForFaculty(c.Request.Context(), c.Param("facultyId"), queryInt(c, "semester"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": sum})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateFeedbackStatus moves a submission through its review states.
func (h *Handler) UpdateFeedbackStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Validation("invalid request body"))
		return
	}
	sub, err := h.fb.UpdateStatus(c.Request.Context(), c.Param("id"), feedback.Status(req.Status))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": sub, "message": "feedback status updated successfully"})
}

// DeleteFeedback removes one submission.
func (h *Handler) DeleteFeedback(c *gin.Context) {
	if err := h.fb.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "feedback deleted successfully"})
}

func (h *Handler) feedbackRefs(c *gin.Context, subs []feedback.Submission) gin.H {
	if !h.dir.Enabled() || len(subs) == 0 {
		return nil
	}
	ids := map[string][]string{}
	for _, sub := range subs {
		if sub.StudentID != nil {
			ids[directory.KindStudent] = append(ids[directory.KindStudent], *sub.StudentID)
		}
		ids[directory.KindFaculty] = append(ids[directory.KindFaculty], sub.FacultyID)
		ids[directory.KindSubject] = append(ids[directory.KindSubject], sub.SubjectID)
		ids[directory.KindBranch] = append(ids[directory.KindBranch], sub.BranchID)
	}
	return h.refs(c, ids)
}
