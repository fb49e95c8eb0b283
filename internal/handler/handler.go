// Package handler exposes the core over HTTP. It binds requests, delegates to
// the services, translates the error taxonomy to status codes, and performs
// the read-side directory enrichment. It holds no business rules.
package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"campus/internal/apperr"
	"campus/internal/attendance"
	"campus/internal/campaign"
	"campus/internal/directory"
	"campus/internal/feedback"
)

// Handler carries the service dependencies for all routes.
type Handler struct {
	att  *attendance.Service
	camp *campaign.Service
	fb   *feedback.Service
	dir  *directory.Client
}

// New creates a handler. dir may be nil when no directory is configured.
func New(att *attendance.Service, camp *campaign.Service, fb *feedback.Service, dir *directory.Client) *Handler {
	return &Handler{att: att, camp: camp, fb: fb, dir: dir}
}

// respondErr is the single taxonomy-to-status translator. Internal causes are
// logged server-side and never leak to the caller.
func respondErr(c *gin.Context, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		e = apperr.Internal(err)
	}
	switch e.Kind {
	case apperr.KindValidation:
		body := gin.H{"error": e.Message}
		if len(e.Fields) > 0 {
			body["fields"] = e.Fields
		}
		c.JSON(http.StatusBadRequest, body)
	case apperr.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": e.Message})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": e.Message})
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, e)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// parseDate accepts a calendar day or a full RFC3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func queryDate(c *gin.Context, name string) (time.Time, bool) {
	v := c.Query(name)
	if v == "" {
		return time.Time{}, true
	}
	t, err := parseDate(v)
	if err != nil {
		respondErr(c, apperr.Validation("invalid "+name,
			apperr.FieldError{Field: name, Message: "must be YYYY-MM-DD or RFC3339"}))
		return time.Time{}, false
	}
	return t, true
}

func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

// refs resolves directory display references for the ids gathered from a
// response. Enrichment is best-effort and read-side only.
func (h *Handler) refs(c *gin.Context, ids map[string][]string) gin.H {
	if !h.dir.Enabled() {
		return nil
	}
	out := gin.H{}
	for kind, kindIDs := range ids {
		if resolved := h.dir.Lookup(c.Request.Context(), kind, kindIDs); len(resolved) > 0 {
			out[kind] = resolved
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func attachRefs(body gin.H, refs gin.H) gin.H {
	if refs != nil {
		body["refs"] = refs
	}
	return body
}
