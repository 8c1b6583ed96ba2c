package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketStatus_AnyPairIsLegal(t *testing.T) {
	statuses := []TicketStatus{
		TicketStatusPending, TicketStatusAssigned, TicketStatusProcessing,
		TicketStatusResolved, TicketStatusClosed,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			assert.NoError(t, from.Transition(to), "%s to %s", from, to)
		}
	}
}

func TestTicketStatus_RejectsUnknown(t *testing.T) {
	err := TicketStatusPending.Transition(TicketStatus("archived"))
	assert.ErrorIs(t, err, ErrValidation)

	assert.False(t, TicketStatus("").Valid())
}

func TestTicketPriority_Valid(t *testing.T) {
	for _, p := range []TicketPriority{
		TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent,
	} {
		assert.True(t, p.Valid(), "priority %s", p)
	}
	assert.False(t, TicketPriority("critical").Valid())
}
