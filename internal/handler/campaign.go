package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campus/internal/apperr"
	"campus/internal/auth"
	"campus/internal/campaign"
	"campus/internal/directory"
)

type createCampaignRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	FacultyID      string `json:"facultyId"`
	SubjectID      string `json:"subjectId"`
	BranchID       string `json:"branchId"`
	Semester       int    `json:"semester"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	AllowAnonymous *bool  `json:"allowAnonymous"`
}

// CreateCampaign registers a new feedback window.
func (h *Handler) CreateCampaign(c *gin.Context) {
	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Validation("invalid request body"))
		return
	}
	in := campaign.CreateInput{
		Title:          req.Title,
		Description:    req.Description,
		FacultyID:      req.FacultyID,
		SubjectID:      req.SubjectID,
		BranchID:       req.BranchID,
		Semester:       req.Semester,
		AllowAnonymous: req.AllowAnonymous,
	}
	var ok bool
	if in.StartDate, ok = bodyDate(c, "startDate", req.StartDate); !ok {
		return
	}
	if in.EndDate, ok = bodyDate(c, "endDate", req.EndDate); !ok {
		return
	}

	cmp, err := h.camp.Create(c.Request.Context(), auth.FromContext(c).Subject, in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, attachRefs(gin.H{"campaign": cmp}, h.campaignRefs(c, []campaign.Campaign{cmp})))
}

// ListCampaigns is the administrative listing, newest first.
func (h *Handler) ListCampaigns(c *gin.Context) {
	f := campaign.ListFilter{
		BranchID:  c.Query("branchId"),
		Semester:  queryInt(c, "semester"),
		FacultyID: c.Query("facultyId"),
	}
	if v := c.Query("isActive"); v != "" {
		active := v == "true"
		f.IsActive = &active
	}
	camps, err := h.camp.List(c.Request.Context(), f)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, attachRefs(gin.H{"campaigns": camps}, h.campaignRefs(c, camps)))
}

type updateCampaignRequest struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	FacultyID      *string `json:"facultyId"`
	SubjectID      *string `json:"subjectId"`
	BranchID       *string `json:"branchId"`
	Semester       *int    `json:"semester"`
	StartDate      *string `json:"startDate"`
	EndDate        *string `json:"endDate"`
	IsActive       *bool   `json:"isActive"`
	AllowAnonymous *bool   `json:"allowAnonymous"`
}

// UpdateCampaign applies a partial update.
func (h *Handler) UpdateCampaign(c *gin.Context) {
	var req updateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Validation("invalid request body"))
		return
	}
	in := campaign.UpdateInput{
		Title:          req.Title,
		Description:    req.Description,
		FacultyID:      req.FacultyID,
		SubjectID:      req.SubjectID,
		BranchID:       req.BranchID,
		Semester:       req.Semester,
		IsActive:       req.IsActive,
		AllowAnonymous: req.AllowAnonymous,
	}
	if req.StartDate != nil {
		d, ok := bodyDate(c, "startDate", *req.StartDate)
		if !ok {
			return
		}
		in.StartDate = &d
	}
	if req.EndDate != nil {
		d, ok := bodyDate(c, "endDate", *req.EndDate)
		if !ok {
			return
		}
		in.EndDate = &d
	}

	cmp, err := h.camp.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaign": cmp})
}

// ToggleCampaign flips the active flag.
func (h *Handler) ToggleCampaign(c *gin.Context) {
	cmp, err := h.camp.ToggleActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	msg := "campaign deactivated successfully"
	if cmp.IsActive {
		msg = "campaign activated successfully"
	}
	c.JSON(http.StatusOK, gin.H{"campaign": cmp, "message": msg})
}

// AvailableCampaigns lists the windows currently open to the acting student.
func (h *Handler) AvailableCampaigns(c *gin.Context) {
	avail, err := h.camp.AvailableFor(c.Request.Context(),
		auth.FromContext(c).Subject, c.Query("branchId"), queryInt(c, "semester"))
	if err != nil {
		respondErr(c, err)
		return
	}
	camps := make([]campaign.Campaign, len(avail))
	for i, a := range avail {
		camps[i] = a.Campaign
	}
	c.JSON(http.StatusOK, attachRefs(gin.H{"campaigns": avail}, h.campaignRefs(c, camps)))
}

// DeleteCampaign removes one campaign.
func (h *Handler) DeleteCampaign(c *gin.Context) {
	if err := h.camp.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "campaign deleted successfully"})
}

func bodyDate(c *gin.Context, name, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	t, err := parseDate(value)
	if err != nil {
		respondErr(c, apperr.Validation("invalid "+name,
			apperr.FieldError{Field: name, Message: "must be YYYY-MM-DD or RFC3339"}))
		return time.Time{}, false
	}
	return t, true
}

func (h *Handler) campaignRefs(c *gin.Context, camps []campaign.Campaign) gin.H {
	if !h.dir.Enabled() || len(camps) == 0 {
		return nil
	}
	ids := map[string][]string{}
	for _, cmp := range camps {
		ids[directory.KindFaculty] = append(ids[directory.KindFaculty], cmp.FacultyID)
		ids[directory.KindSubject] = append(ids[directory.KindSubject], cmp.SubjectID)
		ids[directory.KindBranch] = append(ids[directory.KindBranch], cmp.BranchID)
	}
	return h.refs(c, ids)
}
