package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportStatus_Valid(t *testing.T) {
	for _, s := range []ReportStatus{
		ReportStatusPending, ReportStatusAutoApproved, ReportStatusAutoRejected,
		ReportStatusManualReview, ReportStatusApproved, ReportStatusRejected,
		ReportStatusClosed,
	} {
		assert.True(t, s.Valid(), "status %s", s)
	}
	assert.False(t, ReportStatus("bogus").Valid())
	assert.False(t, ReportStatus("").Valid())
}

func TestReportStatus_AutoVerdictsOnlyFromPending(t *testing.T) {
	assert.True(t, ReportStatusPending.CanTransitionTo(ReportStatusAutoApproved))
	assert.True(t, ReportStatusPending.CanTransitionTo(ReportStatusAutoRejected))

	for _, from := range []ReportStatus{
		ReportStatusAutoApproved, ReportStatusManualReview,
		ReportStatusApproved, ReportStatusRejected,
	} {
		assert.False(t, from.CanTransitionTo(ReportStatusAutoApproved), "from %s", from)
		assert.False(t, from.CanTransitionTo(ReportStatusAutoRejected), "from %s", from)
	}
}

func TestReportStatus_ManualVerdictsFromAnyNonTerminal(t *testing.T) {
	for _, from := range []ReportStatus{
		ReportStatusPending, ReportStatusAutoApproved, ReportStatusAutoRejected,
		ReportStatusManualReview, ReportStatusApproved, ReportStatusRejected,
	} {
		assert.True(t, from.CanTransitionTo(ReportStatusApproved), "from %s", from)
		assert.True(t, from.CanTransitionTo(ReportStatusRejected), "from %s", from)
		assert.True(t, from.CanTransitionTo(ReportStatusManualReview), "from %s", from)
	}
}

func TestReportStatus_ClosedIsTerminal(t *testing.T) {
	assert.True(t, ReportStatusClosed.Terminal())

	for _, next := range []ReportStatus{
		ReportStatusPending, ReportStatusAutoApproved, ReportStatusManualReview,
		ReportStatusApproved, ReportStatusRejected, ReportStatusClosed,
	} {
		assert.False(t, ReportStatusClosed.CanTransitionTo(next), "to %s", next)
	}
}

func TestReportStatus_NeverBackToPending(t *testing.T) {
	for _, from := range []ReportStatus{
		ReportStatusAutoApproved, ReportStatusAutoRejected, ReportStatusManualReview,
		ReportStatusApproved, ReportStatusRejected,
	} {
		assert.False(t, from.CanTransitionTo(ReportStatusPending), "from %s", from)
	}
}

func TestReportStatus_TransitionError(t *testing.T) {
	err := ReportStatusApproved.Transition(ReportStatusAutoApproved)
	assert.ErrorIs(t, err, ErrValidation)

	assert.NoError(t, ReportStatusPending.Transition(ReportStatusManualReview))
}

func TestReport_SetAutoReview(t *testing.T) {
	var report Report
	assert.Nil(t, report.AutoReviewConfidence)

	report.SetAutoReview(ReviewResultApproved, 0.7)

	assert.Equal(t, ReviewResultApproved, report.AutoReviewResult)
	if assert.NotNil(t, report.AutoReviewConfidence) {
		assert.Equal(t, 0.7, *report.AutoReviewConfidence)
	}
}
