// Package report implements the report intake pipeline: image upload,
// model recognition, the automatic verdict, and manual review.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/qinyuan/traffix/internal/models"
	"github.com/qinyuan/traffix/internal/recognition"
	"github.com/qinyuan/traffix/internal/repository"
	"github.com/qinyuan/traffix/internal/review"
	"github.com/qinyuan/traffix/internal/storage"
	"github.com/qinyuan/traffix/pkg/database"
	"github.com/qinyuan/traffix/pkg/utils"
	"go.uber.org/zap"
)

// ImageUpload is one raw uploaded file.
type ImageUpload struct {
	Filename string
	Content  []byte
}

// SubmitInput carries a citizen's report submission.
type SubmitInput struct {
	UserID       int64
	EventType    string
	Location     string
	Description  string
	ContactPhone string
	Images       []ImageUpload
}

// Service drives the report lifecycle.
type Service struct {
	db          *database.DB
	reports     *repository.ReportRepository
	recognition *repository.RecognitionRepository
	reviews     *repository.ReviewRepository
	tickets     *repository.TicketRepository
	recognizer  *recognition.Recognizer
	engine      *review.Engine
	store       *storage.ImageStore
	logger      *zap.Logger
}

// NewService creates a report service
func NewService(
	db *database.DB,
	reports *repository.ReportRepository,
	recognitionRepo *repository.RecognitionRepository,
	reviews *repository.ReviewRepository,
	tickets *repository.TicketRepository,
	recognizer *recognition.Recognizer,
	engine *review.Engine,
	store *storage.ImageStore,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:          db,
		reports:     reports,
		recognition: recognitionRepo,
		reviews:     reviews,
		tickets:     tickets,
		recognizer:  recognizer,
		engine:      engine,
		store:       store,
		logger:      logger,
	}
}

// Submit runs the full intake pipeline. The report is persisted as
// pending before the model is called, so a crashed or failed
// recognition never loses the submission; the model call itself runs
// outside any transaction.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.Report, error) {
	if len(in.Images) == 0 {
		return nil, fmt.Errorf("%w: at least one image is required", models.ErrValidation)
	}
	if in.ContactPhone != "" {
		if err := utils.ValidatePhone(in.ContactPhone); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
		}
	}

	paths := make([]string, 0, len(in.Images))
	for _, img := range in.Images {
		path, err := s.store.Save(img.Filename, img.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
		}
		paths = append(paths, path)
	}

	report := &models.Report{
		UserID:       in.UserID,
		EventType:    utils.SanitizeString(in.EventType),
		Location:     utils.SanitizeString(in.Location),
		Description:  utils.SanitizeString(in.Description),
		ContactPhone: in.ContactPhone,
		Status:       models.ReportStatusPending,
	}

	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		if err := s.reports.Create(tx, report); err != nil {
			return err
		}
		for i, path := range paths {
			img := &models.ReportImage{
				ReportID:   report.ID,
				ImagePath:  path,
				ImageOrder: i,
			}
			if err := s.reports.AddImage(tx, img); err != nil {
				return err
			}
			report.Images = append(report.Images, img)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Report submitted",
		zap.Int64("report_id", report.ID),
		zap.Int64("user_id", in.UserID),
		zap.Int("images", len(paths)))

	// Recognition runs on the first image. Further images are kept as
	// evidence for the human reviewer.
	dataURI := storage.EncodeDataURI(in.Images[0].Filename, in.Images[0].Content)
	result, recErr := s.recognizer.Recognize(ctx, dataURI, "")
	if recErr != nil {
		// A failed model call is absorbed: the report survives and
		// routes to a human. No verdict or result row is written.
		s.logger.Warn("Recognition failed, routing to manual review",
			zap.Int64("report_id", report.ID),
			zap.Error(recErr))

		err := s.db.WithTransaction(func(tx *sql.Tx) error {
			if err := report.Status.Transition(models.ReportStatusManualReview); err != nil {
				return err
			}
			return s.reports.UpdateStatus(tx, report.ID, models.ReportStatusManualReview)
		})
		if err != nil {
			return nil, err
		}
		report.Status = models.ReportStatusManualReview
		return report, nil
	}

	decision := s.engine.Decide(review.Input{
		DeclaredTypes: splitDeclared(report.EventType),
		DetectedType:  result.Signal.EventType,
		Confidence:    result.Signal.Confidence,
	})

	next := statusForVerdict(decision.Verdict)

	err = s.db.WithTransaction(func(tx *sql.Tx) error {
		rec := &models.RecognitionResult{
			ReportID:       report.ID,
			ImagePath:      paths[0],
			Question:       result.Question,
			Answer:         result.Answer,
			EventType:      result.Signal.EventType,
			Confidence:     result.Signal.Confidence,
			StructuredData: result.StructuredJSON(),
		}
		if err := s.recognition.Create(tx, rec); err != nil {
			return err
		}

		if err := report.Status.Transition(next); err != nil {
			return err
		}
		if err := s.reports.SetAutoReview(tx, report.ID, next, decision.Verdict, decision.Confidence); err != nil {
			return err
		}

		record := &models.ReviewRecord{
			ReportID:   report.ID,
			ReviewerID: in.UserID,
			ReviewType: models.ReviewTypeAuto,
			Result:     decision.Verdict,
			Comment:    decision.Rationale,
		}
		if err := s.reviews.Create(tx, record); err != nil {
			return err
		}

		if decision.Verdict == models.ReviewResultApproved {
			if err := s.createTicket(tx, report, &result.Signal, in.UserID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.Status = next
	report.SetAutoReview(decision.Verdict, decision.Confidence)

	s.logger.Info("Auto review completed",
		zap.Int64("report_id", report.ID),
		zap.String("verdict", string(decision.Verdict)),
		zap.Float64("confidence", decision.Confidence))

	return report, nil
}

// ManualReview applies an operator verdict to a report. Approving a
// report that already has a ticket is idempotent with respect to the
// ticket; the review trail still gains a record. A need_review verdict
// keeps the report in the review queue, recorded as an explicit
// decision.
func (s *Service) ManualReview(reviewerID, reportID int64, result models.ReviewResult, comment string) (*models.Report, error) {
	if !result.Valid() {
		return nil, fmt.Errorf("%w: invalid review result %q", models.ErrValidation, result)
	}

	var next models.ReportStatus
	switch result {
	case models.ReviewResultApproved:
		next = models.ReportStatusApproved
	case models.ReviewResultRejected:
		next = models.ReportStatusRejected
	default:
		next = models.ReportStatusManualReview
	}

	var report *models.Report
	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		var err error
		report, err = s.reports.GetByID(tx, reportID)
		if err != nil {
			return err
		}
		if report == nil {
			return fmt.Errorf("%w: report %d", models.ErrNotFound, reportID)
		}

		if err := report.Status.Transition(next); err != nil {
			return err
		}
		if err := s.reports.UpdateStatus(tx, reportID, next); err != nil {
			return err
		}
		report.Status = next

		if result == models.ReviewResultApproved {
			existing, err := s.tickets.GetByReportID(tx, reportID)
			if err != nil {
				return err
			}
			if existing == nil {
				if err := s.createTicket(tx, report, nil, reviewerID); err != nil {
					return err
				}
			}
		}

		record := &models.ReviewRecord{
			ReportID:   reportID,
			ReviewerID: reviewerID,
			ReviewType: models.ReviewTypeManual,
			Result:     result,
			Comment:    comment,
		}
		return s.reviews.Create(tx, record)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Manual review completed",
		zap.Int64("report_id", reportID),
		zap.Int64("reviewer_id", reviewerID),
		zap.String("result", string(result)))

	return report, nil
}

// ListByUser retrieves a user's own reports, newest first
func (s *Service) ListByUser(userID int64) ([]*models.Report, error) {
	return s.reports.ListByUser(userID)
}

// createTicket seeds a ticket from the report. User-entered fields win;
// the detected signal only fills blanks.
func (s *Service) createTicket(tx *sql.Tx, report *models.Report, signal *recognition.Signal, actorID int64) error {
	eventType := report.EventType
	location := report.Location
	description := report.Description
	if signal != nil {
		if eventType == "" {
			eventType = signal.EventType
		}
		if location == "" {
			location = signal.Location
		}
		if description == "" {
			description = signal.Description
		}
	}

	ticket := &models.Ticket{
		ReportID:    report.ID,
		TicketNo:    utils.GenerateTicketNo(report.ID),
		EventType:   eventType,
		Location:    location,
		Description: description,
		Status:      models.TicketStatusPending,
		Priority:    models.TicketPriorityMedium,
	}
	if err := s.tickets.Create(tx, ticket); err != nil {
		return err
	}

	record := &models.TicketRecord{
		TicketID:   ticket.ID,
		OperatorID: actorID,
		Action:     "create",
		NewStatus:  string(ticket.Status),
		Comment:    fmt.Sprintf("ticket created from report %d", report.ID),
	}
	if err := s.tickets.CreateRecord(tx, record); err != nil {
		return err
	}

	s.logger.Info("Ticket created",
		zap.Int64("report_id", report.ID),
		zap.String("ticket_no", ticket.TicketNo))
	return nil
}

// splitDeclared splits a free-text declared event type on common
// separators. Empty input means nothing was declared.
func splitDeclared(declared string) []string {
	if declared == "" {
		return nil
	}
	parts := strings.FieldsFunc(declared, func(r rune) bool {
		return r == ',' || r == '，' || r == '、' || r == ';' || r == '；'
	})
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func statusForVerdict(v models.ReviewResult) models.ReportStatus {
	switch v {
	case models.ReviewResultApproved:
		return models.ReportStatusAutoApproved
	case models.ReviewResultRejected:
		return models.ReportStatusAutoRejected
	default:
		return models.ReportStatusManualReview
	}
}
