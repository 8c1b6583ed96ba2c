package repository

import (
	"database/sql"
	"fmt"

	"github.com/qinyuan/traffix/internal/models"
	"go.uber.org/zap"
)

// TicketRepository handles ticket and ticket-record database operations
type TicketRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *sql.DB, logger *zap.Logger) *TicketRepository {
	return &TicketRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new ticket
func (r *TicketRepository) Create(tx *sql.Tx, ticket *models.Ticket) error {
	query := `
		INSERT INTO tickets (report_id, ticket_no, event_type, location, description, status, priority, assigned_to)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var result sql.Result
	var err error

	args := []interface{}{
		ticket.ReportID,
		ticket.TicketNo,
		nullable(ticket.EventType),
		nullable(ticket.Location),
		nullable(ticket.Description),
		ticket.Status,
		ticket.Priority,
		ticket.AssignedTo,
	}

	if tx != nil {
		result, err = tx.Exec(query, args...)
	} else {
		result, err = r.db.Exec(query, args...)
	}

	if err != nil {
		r.logger.Error("Failed to create ticket",
			zap.Int64("report_id", ticket.ReportID),
			zap.String("ticket_no", ticket.TicketNo),
			zap.Error(err))
		return fmt.Errorf("failed to create ticket: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	ticket.ID = id
	return nil
}

const ticketColumns = `
	id, report_id, ticket_no, event_type, location, description,
	status, priority, assigned_to, created_at, updated_at
`

// GetByID retrieves a ticket by ID, or nil when absent
func (r *TicketRepository) GetByID(tx *sql.Tx, id int64) (*models.Ticket, error) {
	return r.getOne(tx, "id = ?", id)
}

// GetByReportID retrieves the ticket bound to a report, or nil when the
// report has none. At most one exists per report.
func (r *TicketRepository) GetByReportID(tx *sql.Tx, reportID int64) (*models.Ticket, error) {
	return r.getOne(tx, "report_id = ?", reportID)
}

func (r *TicketRepository) getOne(tx *sql.Tx, where string, arg interface{}) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ` + where

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRow(query, arg)
	} else {
		row = r.db.QueryRow(query, arg)
	}

	ticket, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get ticket", zap.Error(err))
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	return ticket, nil
}

// List retrieves tickets, newest first, optionally filtered by status
func (r *TicketRepository) List(status models.TicketStatus) ([]*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets`
	var args []interface{}

	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to list tickets", zap.Error(err))
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	return tickets, rows.Err()
}

// Update persists a ticket's mutable fields
func (r *TicketRepository) Update(tx *sql.Tx, ticket *models.Ticket) error {
	query := `
		UPDATE tickets
		SET status = ?, priority = ?, assigned_to = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	var err error
	if tx != nil {
		_, err = tx.Exec(query, ticket.Status, ticket.Priority, ticket.AssignedTo, ticket.ID)
	} else {
		_, err = r.db.Exec(query, ticket.Status, ticket.Priority, ticket.AssignedTo, ticket.ID)
	}

	if err != nil {
		r.logger.Error("Failed to update ticket", zap.Int64("id", ticket.ID), zap.Error(err))
		return fmt.Errorf("failed to update ticket: %w", err)
	}

	return nil
}

// CreateRecord appends one audit entry to a ticket's trail
func (r *TicketRepository) CreateRecord(tx *sql.Tx, record *models.TicketRecord) error {
	query := `
		INSERT INTO ticket_records (ticket_id, operator_id, action, old_status, new_status, comment)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var result sql.Result
	var err error

	args := []interface{}{
		record.TicketID,
		record.OperatorID,
		record.Action,
		nullable(record.OldStatus),
		nullable(record.NewStatus),
		nullable(record.Comment),
	}

	if tx != nil {
		result, err = tx.Exec(query, args...)
	} else {
		result, err = r.db.Exec(query, args...)
	}

	if err != nil {
		r.logger.Error("Failed to create ticket record", zap.Int64("ticket_id", record.TicketID), zap.Error(err))
		return fmt.Errorf("failed to create ticket record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// ListRecords retrieves a ticket's audit trail, oldest first
func (r *TicketRepository) ListRecords(ticketID int64) ([]*models.TicketRecord, error) {
	query := `
		SELECT id, ticket_id, operator_id, action, old_status, new_status, comment, created_at
		FROM ticket_records
		WHERE ticket_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(query, ticketID)
	if err != nil {
		r.logger.Error("Failed to list ticket records", zap.Int64("ticket_id", ticketID), zap.Error(err))
		return nil, fmt.Errorf("failed to list ticket records: %w", err)
	}
	defer rows.Close()

	var records []*models.TicketRecord
	for rows.Next() {
		var rec models.TicketRecord
		var oldStatus, newStatus, comment sql.NullString

		err := rows.Scan(
			&rec.ID,
			&rec.TicketID,
			&rec.OperatorID,
			&rec.Action,
			&oldStatus,
			&newStatus,
			&comment,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket record: %w", err)
		}

		rec.OldStatus = oldStatus.String
		rec.NewStatus = newStatus.String
		rec.Comment = comment.String
		records = append(records, &rec)
	}

	return records, rows.Err()
}

func scanTicket(row rowScanner) (*models.Ticket, error) {
	var ticket models.Ticket
	var eventType, location, description sql.NullString
	var assignedTo sql.NullInt64

	err := row.Scan(
		&ticket.ID,
		&ticket.ReportID,
		&ticket.TicketNo,
		&eventType,
		&location,
		&description,
		&ticket.Status,
		&ticket.Priority,
		&assignedTo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ticket.EventType = eventType.String
	ticket.Location = location.String
	ticket.Description = description.String
	if assignedTo.Valid {
		ticket.AssignedTo = &assignedTo.Int64
	}

	return &ticket, nil
}
