package repository

import (
	"database/sql"
	"fmt"

	"github.com/qinyuan/traffix/internal/models"
	"go.uber.org/zap"
)

// RecognitionRepository handles recognition result database operations.
// Results are append-only; there are no update or delete paths.
type RecognitionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecognitionRepository creates a new recognition repository
func NewRecognitionRepository(db *sql.DB, logger *zap.Logger) *RecognitionRepository {
	return &RecognitionRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends one recognition result
func (r *RecognitionRepository) Create(tx *sql.Tx, result *models.RecognitionResult) error {
	query := `
		INSERT INTO recognition_results (report_id, image_path, question, answer, event_type, confidence, structured_data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var res sql.Result
	var err error

	args := []interface{}{
		result.ReportID,
		result.ImagePath,
		result.Question,
		result.Answer,
		nullable(result.EventType),
		result.Confidence,
		nullable(result.StructuredData),
	}

	if tx != nil {
		res, err = tx.Exec(query, args...)
	} else {
		res, err = r.db.Exec(query, args...)
	}

	if err != nil {
		r.logger.Error("Failed to create recognition result", zap.Int64("report_id", result.ReportID), zap.Error(err))
		return fmt.Errorf("failed to create recognition result: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	result.ID = id
	return nil
}

// ListByReport retrieves a report's recognition results, oldest first
func (r *RecognitionRepository) ListByReport(reportID int64) ([]*models.RecognitionResult, error) {
	query := `
		SELECT id, report_id, image_path, question, answer, event_type, confidence, structured_data, created_at
		FROM recognition_results
		WHERE report_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(query, reportID)
	if err != nil {
		r.logger.Error("Failed to list recognition results", zap.Int64("report_id", reportID), zap.Error(err))
		return nil, fmt.Errorf("failed to list recognition results: %w", err)
	}
	defer rows.Close()

	var results []*models.RecognitionResult
	for rows.Next() {
		var res models.RecognitionResult
		var question, answer, eventType, structured sql.NullString
		var confidence sql.NullFloat64

		err := rows.Scan(
			&res.ID,
			&res.ReportID,
			&res.ImagePath,
			&question,
			&answer,
			&eventType,
			&confidence,
			&structured,
			&res.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recognition result: %w", err)
		}

		res.Question = question.String
		res.Answer = answer.String
		res.EventType = eventType.String
		res.Confidence = confidence.Float64
		res.StructuredData = structured.String
		results = append(results, &res)
	}

	return results, rows.Err()
}
