package repository

import (
	"database/sql"
	"fmt"

	"github.com/qinyuan/traffix/internal/models"
	"go.uber.org/zap"
)

// ReportRepository handles report and report-image database operations
type ReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sql.DB, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new report
func (r *ReportRepository) Create(tx *sql.Tx, report *models.Report) error {
	query := `
		INSERT INTO reports (user_id, event_type, location, description, contact_phone, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var result sql.Result
	var err error

	if tx != nil {
		result, err = tx.Exec(query,
			report.UserID,
			nullable(report.EventType),
			nullable(report.Location),
			nullable(report.Description),
			nullable(report.ContactPhone),
			report.Status,
		)
	} else {
		result, err = r.db.Exec(query,
			report.UserID,
			nullable(report.EventType),
			nullable(report.Location),
			nullable(report.Description),
			nullable(report.ContactPhone),
			report.Status,
		)
	}

	if err != nil {
		r.logger.Error("Failed to create report", zap.Int64("user_id", report.UserID), zap.Error(err))
		return fmt.Errorf("failed to create report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	report.ID = id
	return nil
}

// AddImage appends one image row to a report
func (r *ReportRepository) AddImage(tx *sql.Tx, image *models.ReportImage) error {
	query := `
		INSERT INTO report_images (report_id, image_path, image_order)
		VALUES (?, ?, ?)
	`

	var result sql.Result
	var err error

	if tx != nil {
		result, err = tx.Exec(query, image.ReportID, image.ImagePath, image.ImageOrder)
	} else {
		result, err = r.db.Exec(query, image.ReportID, image.ImagePath, image.ImageOrder)
	}

	if err != nil {
		r.logger.Error("Failed to add report image", zap.Int64("report_id", image.ReportID), zap.Error(err))
		return fmt.Errorf("failed to add report image: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	image.ID = id
	return nil
}

const reportColumns = `
	id, user_id, event_type, location, description, contact_phone, status,
	auto_review_result, auto_review_confidence, created_at, updated_at
`

// GetByID retrieves a report by ID, or nil when absent
func (r *ReportRepository) GetByID(tx *sql.Tx, id int64) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = ?`

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRow(query, id)
	} else {
		row = r.db.QueryRow(query, id)
	}

	report, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get report", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return report, nil
}

// ListByUser retrieves a user's reports, newest first, with images
func (r *ReportRepository) ListByUser(userID int64) ([]*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE user_id = ? ORDER BY created_at DESC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		r.logger.Error("Failed to list reports", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, report := range reports {
		images, err := r.ListImages(report.ID)
		if err != nil {
			return nil, err
		}
		report.Images = images
	}

	return reports, nil
}

// ListImages retrieves a report's images in display order
func (r *ReportRepository) ListImages(reportID int64) ([]*models.ReportImage, error) {
	query := `
		SELECT id, report_id, image_path, image_order, created_at
		FROM report_images
		WHERE report_id = ?
		ORDER BY image_order ASC
	`

	rows, err := r.db.Query(query, reportID)
	if err != nil {
		r.logger.Error("Failed to list report images", zap.Int64("report_id", reportID), zap.Error(err))
		return nil, fmt.Errorf("failed to list report images: %w", err)
	}
	defer rows.Close()

	var images []*models.ReportImage
	for rows.Next() {
		var img models.ReportImage
		if err := rows.Scan(&img.ID, &img.ReportID, &img.ImagePath, &img.ImageOrder, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report image: %w", err)
		}
		images = append(images, &img)
	}

	return images, rows.Err()
}

// UpdateStatus moves a report to a new status
func (r *ReportRepository) UpdateStatus(tx *sql.Tx, id int64, status models.ReportStatus) error {
	query := `UPDATE reports SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	var err error
	if tx != nil {
		_, err = tx.Exec(query, status, id)
	} else {
		_, err = r.db.Exec(query, status, id)
	}

	if err != nil {
		r.logger.Error("Failed to update report status",
			zap.Int64("id", id),
			zap.String("status", string(status)),
			zap.Error(err))
		return fmt.Errorf("failed to update report status: %w", err)
	}

	return nil
}

// SetAutoReview records the engine verdict and new status in one write.
// Result and confidence are persisted together, keeping the invariant
// that one is set exactly when the other is.
func (r *ReportRepository) SetAutoReview(tx *sql.Tx, id int64, status models.ReportStatus, result models.ReviewResult, confidence float64) error {
	query := `
		UPDATE reports
		SET status = ?, auto_review_result = ?, auto_review_confidence = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	var err error
	if tx != nil {
		_, err = tx.Exec(query, status, result, confidence, id)
	} else {
		_, err = r.db.Exec(query, status, result, confidence, id)
	}

	if err != nil {
		r.logger.Error("Failed to set auto review", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to set auto review: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	var report models.Report
	var eventType, location, description, contactPhone, autoResult sql.NullString
	var confidence sql.NullFloat64

	err := row.Scan(
		&report.ID,
		&report.UserID,
		&eventType,
		&location,
		&description,
		&contactPhone,
		&report.Status,
		&autoResult,
		&confidence,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	report.EventType = eventType.String
	report.Location = location.String
	report.Description = description.String
	report.ContactPhone = contactPhone.String
	report.AutoReviewResult = models.ReviewResult(autoResult.String)
	if confidence.Valid {
		report.AutoReviewConfidence = &confidence.Float64
	}

	return &report, nil
}

// nullable converts empty strings to NULL
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
