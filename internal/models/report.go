package models

import (
	"fmt"
	"time"
)

// ReportStatus is the lifecycle state of a citizen report.
type ReportStatus string

const (
	ReportStatusPending      ReportStatus = "pending"
	ReportStatusAutoApproved ReportStatus = "auto_approved"
	ReportStatusAutoRejected ReportStatus = "auto_rejected"
	ReportStatusManualReview ReportStatus = "manual_review"
	ReportStatusApproved     ReportStatus = "approved"
	ReportStatusRejected     ReportStatus = "rejected"
	ReportStatusClosed       ReportStatus = "closed"
)

// Valid reports whether s is a known report status.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusPending, ReportStatusAutoApproved, ReportStatusAutoRejected,
		ReportStatusManualReview, ReportStatusApproved, ReportStatusRejected,
		ReportStatusClosed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s ReportStatus) Terminal() bool {
	return s == ReportStatusClosed
}

// CanTransitionTo is the single source of truth for report state changes.
// Auto-review verdicts only apply to pending reports; manual review may
// re-verdict any non-terminal report; closed is reached only through
// ticket closure cascading back.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	switch next {
	case ReportStatusPending:
		return false
	case ReportStatusAutoApproved, ReportStatusAutoRejected:
		return s == ReportStatusPending
	case ReportStatusApproved, ReportStatusRejected, ReportStatusManualReview:
		return true
	case ReportStatusClosed:
		return true
	}
	return false
}

// Transition validates the move from s to next.
func (s ReportStatus) Transition(next ReportStatus) error {
	if !s.CanTransitionTo(next) {
		return fmt.Errorf("%w: report status %q cannot transition to %q", ErrValidation, s, next)
	}
	return nil
}

// ReviewType distinguishes engine verdicts from operator verdicts.
type ReviewType string

const (
	ReviewTypeAuto   ReviewType = "auto"
	ReviewTypeManual ReviewType = "manual"
)

// ReviewResult is a verdict, automatic or manual.
type ReviewResult string

const (
	ReviewResultApproved   ReviewResult = "approved"
	ReviewResultRejected   ReviewResult = "rejected"
	ReviewResultNeedReview ReviewResult = "need_review"
)

// Valid reports whether r is a known verdict.
func (r ReviewResult) Valid() bool {
	switch r {
	case ReviewResultApproved, ReviewResultRejected, ReviewResultNeedReview:
		return true
	}
	return false
}

// Report is a citizen-submitted road incident.
type Report struct {
	ID                   int64        `json:"id"`
	UserID               int64        `json:"user_id"`
	EventType            string       `json:"event_type,omitempty"` // user-declared, free text
	Location             string       `json:"location,omitempty"`
	Description          string       `json:"description,omitempty"`
	ContactPhone         string       `json:"contact_phone,omitempty"`
	Status               ReportStatus `json:"status"`
	AutoReviewResult     ReviewResult `json:"auto_review_result,omitempty"`
	AutoReviewConfidence *float64     `json:"auto_review_confidence,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`

	Images []*ReportImage `json:"images,omitempty"`
}

// SetAutoReview records the engine verdict on the report. Result and
// confidence are set together, never one without the other.
func (r *Report) SetAutoReview(result ReviewResult, confidence float64) {
	r.AutoReviewResult = result
	r.AutoReviewConfidence = &confidence
}

// ReportImage is one uploaded photo of a report, display-ordered.
type ReportImage struct {
	ID         int64     `json:"id"`
	ReportID   int64     `json:"report_id"`
	ImagePath  string    `json:"image_path"`
	ImageOrder int       `json:"image_order"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecognitionResult is one model invocation's output for one image.
// Immutable once created; append-only per report.
type RecognitionResult struct {
	ID             int64     `json:"id"`
	ReportID       int64     `json:"report_id"`
	ImagePath      string    `json:"image_path"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	EventType      string    `json:"event_type_detected,omitempty"`
	Confidence     float64   `json:"confidence"`
	StructuredData string    `json:"structured_data,omitempty"` // JSON blob
	CreatedAt      time.Time `json:"created_at"`
}

// ReviewRecord is one verdict event in a report's audit trail.
// Append-only; the report's current status derives from the most recent
// applicable record.
type ReviewRecord struct {
	ID         int64        `json:"id"`
	ReportID   int64        `json:"report_id"`
	ReviewerID int64        `json:"reviewer_id"`
	ReviewType ReviewType   `json:"review_type"`
	Result     ReviewResult `json:"review_result"`
	Comment    string       `json:"review_comment,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}
