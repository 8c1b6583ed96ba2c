// Package ticket implements the dispatch ticket lifecycle: listing,
// detail aggregation, and audited mutations.
package ticket

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/qinyuan/traffix/internal/models"
	"github.com/qinyuan/traffix/internal/repository"
	"github.com/qinyuan/traffix/pkg/database"
	"go.uber.org/zap"
)

// UpdateInput carries one ticket mutation. Nil fields are left
// untouched; at least one field, or a comment, must be supplied. A
// comment-only call is a legal mutation: it appends an audit record
// without changing the ticket.
type UpdateInput struct {
	Status     *models.TicketStatus
	Priority   *models.TicketPriority
	AssignedTo *int64
	Comment    string
}

func (in UpdateInput) empty() bool {
	return in.Status == nil && in.Priority == nil && in.AssignedTo == nil && in.Comment == ""
}

// Detail is a ticket with everything attached to it: the originating
// report, its images, the recognition evidence, and both audit trails.
type Detail struct {
	Ticket             *models.Ticket              `json:"ticket"`
	Report             *models.Report              `json:"report,omitempty"`
	RecognitionResults []*models.RecognitionResult `json:"recognition_results,omitempty"`
	ReviewRecords      []*models.ReviewRecord      `json:"review_records,omitempty"`
	TicketRecords      []*models.TicketRecord      `json:"ticket_records,omitempty"`
}

// Service drives the ticket lifecycle.
type Service struct {
	db          *database.DB
	tickets     *repository.TicketRepository
	reports     *repository.ReportRepository
	recognition *repository.RecognitionRepository
	reviews     *repository.ReviewRepository
	logger      *zap.Logger
}

// NewService creates a ticket service
func NewService(
	db *database.DB,
	tickets *repository.TicketRepository,
	reports *repository.ReportRepository,
	recognitionRepo *repository.RecognitionRepository,
	reviews *repository.ReviewRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:          db,
		tickets:     tickets,
		reports:     reports,
		recognition: recognitionRepo,
		reviews:     reviews,
		logger:      logger,
	}
}

// List retrieves tickets, optionally filtered by status
func (s *Service) List(statusFilter string) ([]*models.Ticket, error) {
	status := models.TicketStatus(statusFilter)
	if statusFilter != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: invalid ticket status filter %q", models.ErrValidation, statusFilter)
	}
	return s.tickets.List(status)
}

// Get retrieves a bare ticket
func (s *Service) Get(ticketID int64) (*models.Ticket, error) {
	ticket, err := s.tickets.GetByID(nil, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, fmt.Errorf("%w: ticket %d", models.ErrNotFound, ticketID)
	}
	return ticket, nil
}

// GetDetail aggregates a ticket with its report and audit trails
func (s *Service) GetDetail(ticketID int64) (*Detail, error) {
	ticket, err := s.Get(ticketID)
	if err != nil {
		return nil, err
	}

	detail := &Detail{Ticket: ticket}

	report, err := s.reports.GetByID(nil, ticket.ReportID)
	if err != nil {
		return nil, err
	}
	if report != nil {
		images, err := s.reports.ListImages(report.ID)
		if err != nil {
			return nil, err
		}
		report.Images = images
		detail.Report = report

		if detail.RecognitionResults, err = s.recognition.ListByReport(report.ID); err != nil {
			return nil, err
		}
		if detail.ReviewRecords, err = s.reviews.ListByReport(report.ID); err != nil {
			return nil, err
		}
	}

	if detail.TicketRecords, err = s.tickets.ListRecords(ticketID); err != nil {
		return nil, err
	}

	return detail, nil
}

// Update applies one audited mutation to a ticket. Validation is all
// or nothing: any invalid field rejects the whole call with no write.
// Exactly one audit record is appended per successful call. Closing a
// ticket cascades to its report.
func (s *Service) Update(operatorID, ticketID int64, in UpdateInput) (*models.Ticket, error) {
	if in.empty() {
		return nil, fmt.Errorf("%w: no fields to update", models.ErrValidation)
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid ticket status %q", models.ErrValidation, *in.Status)
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return nil, fmt.Errorf("%w: invalid ticket priority %q", models.ErrValidation, *in.Priority)
	}

	var ticket *models.Ticket
	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		var err error
		ticket, err = s.tickets.GetByID(tx, ticketID)
		if err != nil {
			return err
		}
		if ticket == nil {
			return fmt.Errorf("%w: ticket %d", models.ErrNotFound, ticketID)
		}

		oldStatus := ticket.Status
		var actions []string

		if in.Status != nil {
			if err := ticket.Status.Transition(*in.Status); err != nil {
				return err
			}
			ticket.Status = *in.Status
			actions = append(actions, "status_change")
		}
		if in.Priority != nil {
			ticket.Priority = *in.Priority
			actions = append(actions, "priority_change")
		}
		if in.AssignedTo != nil {
			ticket.AssignedTo = in.AssignedTo
			actions = append(actions, "assign")
		}
		if len(actions) == 0 {
			actions = append(actions, "comment")
		}

		if err := s.tickets.Update(tx, ticket); err != nil {
			return err
		}

		record := &models.TicketRecord{
			TicketID:   ticket.ID,
			OperatorID: operatorID,
			Action:     strings.Join(actions, ","),
			OldStatus:  string(oldStatus),
			NewStatus:  string(ticket.Status),
			Comment:    in.Comment,
		}
		if err := s.tickets.CreateRecord(tx, record); err != nil {
			return err
		}

		// Closing the ticket ends the report's lifecycle too.
		if ticket.Status == models.TicketStatusClosed && oldStatus != models.TicketStatusClosed {
			return s.closeReport(tx, ticket.ReportID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Ticket updated",
		zap.Int64("ticket_id", ticketID),
		zap.Int64("operator_id", operatorID),
		zap.String("status", string(ticket.Status)))

	return ticket, nil
}

func (s *Service) closeReport(tx *sql.Tx, reportID int64) error {
	report, err := s.reports.GetByID(tx, reportID)
	if err != nil {
		return err
	}
	if report == nil || report.Status == models.ReportStatusClosed {
		return nil
	}
	if err := report.Status.Transition(models.ReportStatusClosed); err != nil {
		return err
	}
	return s.reports.UpdateStatus(tx, reportID, models.ReportStatusClosed)
}
