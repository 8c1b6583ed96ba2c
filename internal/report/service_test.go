package report

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qinyuan/traffix/internal/models"
	"github.com/qinyuan/traffix/internal/recognition"
	"github.com/qinyuan/traffix/internal/repository"
	"github.com/qinyuan/traffix/internal/review"
	"github.com/qinyuan/traffix/internal/storage"
	"github.com/qinyuan/traffix/pkg/database"
)

// fakeProvider returns a canned answer or error without touching the
// network.
type fakeProvider struct {
	answer string
	err    error
}

func (f *fakeProvider) Invoke(ctx context.Context, prompt, imageDataURI string) (string, error) {
	return f.answer, f.err
}

type fixture struct {
	service  *Service
	provider *fakeProvider
	reports  *repository.ReportRepository
	reviews  *repository.ReviewRepository
	tickets  *repository.TicketRepository
	recogs   *repository.RecognitionRepository
	userID   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.RunMigrations("../../migrations"))

	store, err := storage.NewImageStore(t.TempDir(), 1<<20, logger)
	require.NoError(t, err)

	users := repository.NewUserRepository(db.DB, logger)
	reports := repository.NewReportRepository(db.DB, logger)
	recogs := repository.NewRecognitionRepository(db.DB, logger)
	reviews := repository.NewReviewRepository(db.DB, logger)
	tickets := repository.NewTicketRepository(db.DB, logger)

	fake := &fakeProvider{answer: "图中公路上有抛洒物"}
	recognizer := recognition.NewRecognizer(fake, logger)
	engine := review.NewEngine(0.6)

	user := &models.User{Username: "citizen", Phone: "13800138000", PasswordHash: "h", Role: models.RolePublic}
	require.NoError(t, users.Create(nil, user))

	return &fixture{
		service:  NewService(db, reports, recogs, reviews, tickets, recognizer, engine, store, logger),
		provider: fake,
		reports:  reports,
		reviews:  reviews,
		tickets:  tickets,
		recogs:   recogs,
		userID:   user.ID,
	}
}

func submitInput(f *fixture, eventType string) SubmitInput {
	return SubmitInput{
		UserID:    f.userID,
		EventType: eventType,
		Location:  "K10+200",
		Images:    []ImageUpload{{Filename: "photo.jpg", Content: []byte("jpeg")}},
	}
}

func TestSubmit_RequiresImage(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Submit(context.Background(), SubmitInput{UserID: f.userID})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSubmit_RejectsBadPhone(t *testing.T) {
	f := newFixture(t)

	in := submitInput(f, "")
	in.ContactPhone = "not-a-phone"
	_, err := f.service.Submit(context.Background(), in)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSubmit_AutoApproves(t *testing.T) {
	f := newFixture(t)
	f.provider.answer = "图中公路上有抛洒物。位置：右侧车道"

	report, err := f.service.Submit(context.Background(), submitInput(f, "debris"))
	require.NoError(t, err)

	assert.Equal(t, models.ReportStatusAutoApproved, report.Status)
	assert.Equal(t, models.ReviewResultApproved, report.AutoReviewResult)
	require.NotNil(t, report.AutoReviewConfidence)
	assert.Equal(t, recognition.ConfidenceKeywordMatch, *report.AutoReviewConfidence)

	// One recognition result, one auto review record.
	results, err := f.recogs.ListByReport(report.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "debris", results[0].EventType)

	records, err := f.reviews.ListByReport(report.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.ReviewTypeAuto, records[0].ReviewType)
	assert.Equal(t, models.ReviewResultApproved, records[0].Result)
	assert.Equal(t, f.userID, records[0].ReviewerID)

	// Approval spawned exactly one ticket seeded from the report, with
	// the user-entered location winning over the detected one.
	ticket, err := f.tickets.GetByReportID(nil, report.ID)
	require.NoError(t, err)
	require.NotNil(t, ticket)
	assert.Equal(t, "debris", ticket.EventType)
	assert.Equal(t, "K10+200", ticket.Location)
	assert.Equal(t, models.TicketStatusPending, ticket.Status)
	assert.Equal(t, models.TicketPriorityMedium, ticket.Priority)
	assert.NotEmpty(t, ticket.TicketNo)

	trail, err := f.tickets.ListRecords(ticket.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "create", trail[0].Action)
}

func TestSubmit_SignalFillsBlankTicketFields(t *testing.T) {
	f := newFixture(t)
	f.provider.answer = "有抛洒物。位置：左侧应急车道"

	in := SubmitInput{
		UserID: f.userID,
		Images: []ImageUpload{{Filename: "photo.jpg", Content: []byte("jpeg")}},
	}
	report, err := f.service.Submit(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusAutoApproved, report.Status)

	ticket, err := f.tickets.GetByReportID(nil, report.ID)
	require.NoError(t, err)
	require.NotNil(t, ticket)
	assert.Equal(t, "debris", ticket.EventType)
	assert.Equal(t, "左侧应急车道", ticket.Location)
}

func TestSubmit_MismatchRoutesToManualReview(t *testing.T) {
	f := newFixture(t)
	f.provider.answer = "图中公路上有抛洒物"

	report, err := f.service.Submit(context.Background(), submitInput(f, "accident"))
	require.NoError(t, err)

	assert.Equal(t, models.ReportStatusManualReview, report.Status)
	assert.Equal(t, models.ReviewResultNeedReview, report.AutoReviewResult)

	ticket, err := f.tickets.GetByReportID(nil, report.ID)
	require.NoError(t, err)
	assert.Nil(t, ticket)
}

func TestSubmit_NegatedAnswerRoutesToManualReview(t *testing.T) {
	f := newFixture(t)
	f.provider.answer = "图中未发现抛洒物"

	report, err := f.service.Submit(context.Background(), submitInput(f, ""))
	require.NoError(t, err)

	assert.Equal(t, models.ReportStatusManualReview, report.Status)
	require.NotNil(t, report.AutoReviewConfidence)
	assert.Equal(t, recognition.ConfidenceNegated, *report.AutoReviewConfidence)
}

func TestSubmit_RecognitionFailureIsAbsorbed(t *testing.T) {
	f := newFixture(t)
	f.provider.err = errors.New("backend unreachable")

	report, err := f.service.Submit(context.Background(), submitInput(f, "debris"))
	require.NoError(t, err)

	// The submission survives and routes to a human, with no verdict
	// and no recognition evidence recorded.
	assert.Equal(t, models.ReportStatusManualReview, report.Status)
	assert.Nil(t, report.AutoReviewConfidence)

	results, err := f.recogs.ListByReport(report.ID)
	require.NoError(t, err)
	assert.Empty(t, results)

	records, err := f.reviews.ListByReport(report.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestManualReview_Approves(t *testing.T) {
	f := newFixture(t)
	f.provider.answer = "图中未发现抛洒物"

	report, err := f.service.Submit(context.Background(), submitInput(f, ""))
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusManualReview, report.Status)

	reviewed, err := f.service.ManualReview(f.userID, report.ID, models.ReviewResultApproved, "confirmed on site")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusApproved, reviewed.Status)

	ticket, err := f.tickets.GetByReportID(nil, report.ID)
	require.NoError(t, err)
	require.NotNil(t, ticket)
	assert.Equal(t, "K10+200", ticket.Location)

	records, err := f.reviews.ListByReport(report.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.ReviewTypeManual, records[1].ReviewType)
	assert.Equal(t, "confirmed on site", records[1].Comment)
}

func TestManualReview_ApproveIsTicketIdempotent(t *testing.T) {
	f := newFixture(t)
	f.provider.answer = "图中公路上有抛洒物"

	report, err := f.service.Submit(context.Background(), submitInput(f, "debris"))
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusAutoApproved, report.Status)

	first, err := f.tickets.GetByReportID(nil, report.ID)
	require.NoError(t, err)
	require.NotNil(t, first)

	_, err = f.service.ManualReview(f.userID, report.ID, models.ReviewResultApproved, "")
	require.NoError(t, err)

	again, err := f.tickets.GetByReportID(nil, report.ID)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.TicketNo, again.TicketNo)
}

func TestManualReview_Rejects(t *testing.T) {
	f := newFixture(t)
	f.provider.answer = "图中未发现抛洒物"

	report, err := f.service.Submit(context.Background(), submitInput(f, ""))
	require.NoError(t, err)

	reviewed, err := f.service.ManualReview(f.userID, report.ID, models.ReviewResultRejected, "no incident visible")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusRejected, reviewed.Status)

	ticket, err := f.tickets.GetByReportID(nil, report.ID)
	require.NoError(t, err)
	assert.Nil(t, ticket)
}

func TestManualReview_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ManualReview(f.userID, 1, models.ReviewResult("bogus"), "")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.service.ManualReview(f.userID, 1, models.ReviewResult(""), "")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.service.ManualReview(f.userID, 9999, models.ReviewResultApproved, "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestManualReview_NeedReviewKeepsReportInQueue(t *testing.T) {
	f := newFixture(t)
	f.provider.answer = "图中公路上有抛洒物"

	report, err := f.service.Submit(context.Background(), submitInput(f, "debris"))
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusAutoApproved, report.Status)

	reviewed, err := f.service.ManualReview(f.userID, report.ID, models.ReviewResultNeedReview, "second look")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusManualReview, reviewed.Status)

	records, err := f.reviews.ListByReport(report.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.ReviewTypeManual, records[1].ReviewType)
	assert.Equal(t, models.ReviewResultNeedReview, records[1].Result)
	assert.Equal(t, "second look", records[1].Comment)

	// Sending a report back to the queue never spawns a ticket trail
	// change; the one created on auto approval stays as it was.
	ticket, err := f.tickets.GetByReportID(nil, report.ID)
	require.NoError(t, err)
	require.NotNil(t, ticket)
	trail, err := f.tickets.ListRecords(ticket.ID)
	require.NoError(t, err)
	assert.Len(t, trail, 1)
}

func TestListByUser_ReturnsOwnReportsWithImages(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Submit(context.Background(), submitInput(f, "debris"))
	require.NoError(t, err)

	reports, err := f.service.ListByUser(f.userID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Len(t, reports[0].Images, 1)
}
