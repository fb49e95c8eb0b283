// Package metrics provides prometheus instruments for the domain operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the domain-level instruments. All record methods are safe on
// a nil receiver so tests can pass nil instead of registering collectors.
type Metrics struct {
	MarksApplied       prometheus.Counter
	MarkFailures       prometheus.Counter
	MarkBatchDuration  prometheus.Histogram
	CampaignsCreated   prometheus.Counter
	CampaignConflicts  prometheus.Counter
	FeedbackSubmitted  prometheus.Counter
	FeedbackConflicts  prometheus.Counter
	DirectoryCacheHits prometheus.Counter
	DirectoryCacheMiss prometheus.Counter
}

// New registers and returns the instruments on the default registry.
func New() *Metrics {
	return &Metrics{
		MarksApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campus_attendance_marks_applied_total",
			Help: "Attendance marks inserted or overwritten",
		}),
		MarkFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campus_attendance_mark_failures_total",
			Help: "Attendance batch items that failed validation or storage",
		}),
		MarkBatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "campus_attendance_mark_batch_duration_seconds",
			Help:    "Duration of attendance mark batches",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		CampaignsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campus_feedback_campaigns_created_total",
			Help: "Feedback campaigns created",
		}),
		CampaignConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campus_feedback_campaign_conflicts_total",
			Help: "Campaign creations rejected by the active-conflict check",
		}),
		FeedbackSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campus_feedback_submitted_total",
			Help: "Feedback submissions accepted",
		}),
		FeedbackConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campus_feedback_conflicts_total",
			Help: "Feedback submissions rejected as duplicates",
		}),
		DirectoryCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campus_directory_cache_hits_total",
			Help: "Directory reference lookups served from cache",
		}),
		DirectoryCacheMiss: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campus_directory_cache_misses_total",
			Help: "Directory reference lookups that went to the directory service",
		}),
	}
}

func (m *Metrics) AddMarksApplied(n int) {
	if m == nil || n == 0 {
		return
	}
	m.MarksApplied.Add(float64(n))
}

func (m *Metrics) AddMarkFailures(n int) {
	if m == nil || n == 0 {
		return
	}
	m.MarkFailures.Add(float64(n))
}

func (m *Metrics) ObserveMarkBatch(start time.Time) {
	if m == nil {
		return
	}
	m.MarkBatchDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncCampaignsCreated() {
	if m == nil {
		return
	}
	m.CampaignsCreated.Inc()
}

func (m *Metrics) IncCampaignConflicts() {
	if m == nil {
		return
	}
	m.CampaignConflicts.Inc()
}

func (m *Metrics) IncFeedbackSubmitted() {
	if m == nil {
		return
	}
	m.FeedbackSubmitted.Inc()
}

func (m *Metrics) IncFeedbackConflicts() {
	if m == nil {
		return
	}
	m.FeedbackConflicts.Inc()
}

func (m *Metrics) IncDirectoryCacheHit() {
	if m == nil {
		return
	}
	m.DirectoryCacheHits.Inc()
}

func (m *Metrics) IncDirectoryCacheMiss() {
	if m == nil {
		return
	}
	m.DirectoryCacheMiss.Inc()
}
