package repository

import (
	"database/sql"
	"fmt"

	"github.com/qinyuan/traffix/internal/models"
	"go.uber.org/zap"
)

// ReviewRepository handles the append-only review audit trail
type ReviewRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *sql.DB, logger *zap.Logger) *ReviewRepository {
	return &ReviewRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends one review record
func (r *ReviewRepository) Create(tx *sql.Tx, record *models.ReviewRecord) error {
	query := `
		INSERT INTO review_records (report_id, reviewer_id, review_type, review_result, review_comment)
		VALUES (?, ?, ?, ?, ?)
	`

	var result sql.Result
	var err error

	if tx != nil {
		result, err = tx.Exec(query, record.ReportID, record.ReviewerID, record.ReviewType, record.Result, nullable(record.Comment))
	} else {
		result, err = r.db.Exec(query, record.ReportID, record.ReviewerID, record.ReviewType, record.Result, nullable(record.Comment))
	}

	if err != nil {
		r.logger.Error("Failed to create review record", zap.Int64("report_id", record.ReportID), zap.Error(err))
		return fmt.Errorf("failed to create review record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// ListByReport retrieves a report's review trail, oldest first
func (r *ReviewRepository) ListByReport(reportID int64) ([]*models.ReviewRecord, error) {
	query := `
		SELECT id, report_id, reviewer_id, review_type, review_result, review_comment, created_at
		FROM review_records
		WHERE report_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(query, reportID)
	if err != nil {
		r.logger.Error("Failed to list review records", zap.Int64("report_id", reportID), zap.Error(err))
		return nil, fmt.Errorf("failed to list review records: %w", err)
	}
	defer rows.Close()

	var records []*models.ReviewRecord
	for rows.Next() {
		var rec models.ReviewRecord
		var comment sql.NullString

		err := rows.Scan(
			&rec.ID,
			&rec.ReportID,
			&rec.ReviewerID,
			&rec.ReviewType,
			&rec.Result,
			&comment,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review record: %w", err)
		}

		rec.Comment = comment.String
		records = append(records, &rec)
	}

	return records, rows.Err()
}
