package ticket

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qinyuan/traffix/internal/models"
	"github.com/qinyuan/traffix/internal/repository"
	"github.com/qinyuan/traffix/pkg/database"
	"github.com/qinyuan/traffix/pkg/utils"
)

type fixture struct {
	service *Service
	reports *repository.ReportRepository
	tickets *repository.TicketRepository
	userID  int64
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

	users := repository.NewUserRepository(db.DB, logger)
	reports := repository.NewReportRepository(db.DB, logger)
	recogs := repository.NewRecognitionRepository(db.DB, logger)
	reviews := repository.NewReviewRepository(db.DB, logger)
	tickets := repository.NewTicketRepository(db.DB, logger)

	admin := &models.User{Username: "operator", Phone: "13800138000", PasswordHash: "h", Role: models.RoleAdmin}
	require.NoError(t, users.Create(nil, admin))

	return &fixture{
		service: NewService(db, tickets, reports, recogs, reviews, logger),
		reports: reports,
		tickets: tickets,
		userID:  admin.ID,
	}
}

func (f *fixture) seedTicket(t *testing.T) *models.Ticket {
	t.Helper()

	report := &models.Report{
		UserID:    f.userID,
		EventType: "debris",
		Status:    models.ReportStatusAutoApproved,
	}
	require.NoError(t, f.reports.Create(nil, report))

	ticket := &models.Ticket{
		ReportID:  report.ID,
		TicketNo:  utils.GenerateTicketNo(report.ID),
		EventType: "debris",
		Status:    models.TicketStatusPending,
		Priority:  models.TicketPriorityMedium,
	}
	require.NoError(t, f.tickets.Create(nil, ticket))
	return ticket
}

func ticketStatus(s models.TicketStatus) *models.TicketStatus       { return &s }
func ticketPriority(p models.TicketPriority) *models.TicketPriority { return &p }

func TestUpdate_RejectsEmptyInput(t *testing.T) {
	f := newFixture(t)
	ticket := f.seedTicket(t)

	_, err := f.service.Update(f.userID, ticket.ID, UpdateInput{})
	assert.ErrorIs(t, err, models.ErrValidation)

	// No audit record for the failed call.
	records, err := f.tickets.ListRecords(ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUpdate_CommentOnlyAppendsRecord(t *testing.T) {
	f := newFixture(t)
	ticket := f.seedTicket(t)

	updated, err := f.service.Update(f.userID, ticket.ID, UpdateInput{Comment: "inspected, awaiting parts"})
	require.NoError(t, err)

	// The ticket itself is untouched.
	assert.Equal(t, models.TicketStatusPending, updated.Status)
	assert.Equal(t, models.TicketPriorityMedium, updated.Priority)
	assert.Nil(t, updated.AssignedTo)

	records, err := f.tickets.ListRecords(ticket.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "comment", records[0].Action)
	assert.Equal(t, string(models.TicketStatusPending), records[0].OldStatus)
	assert.Equal(t, string(models.TicketStatusPending), records[0].NewStatus)
	assert.Equal(t, "inspected, awaiting parts", records[0].Comment)
}

func TestUpdate_InvalidEnumWritesNothing(t *testing.T) {
	f := newFixture(t)
	ticket := f.seedTicket(t)

	_, err := f.service.Update(f.userID, ticket.ID, UpdateInput{
		Status:   ticketStatus("archived"),
		Priority: ticketPriority(models.TicketPriorityHigh),
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.service.Update(f.userID, ticket.ID, UpdateInput{
		Priority: ticketPriority("critical"),
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	// The valid priority in the first call must not have been applied.
	got, err := f.service.Get(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusPending, got.Status)
	assert.Equal(t, models.TicketPriorityMedium, got.Priority)

	records, err := f.tickets.ListRecords(ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUpdate_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Update(f.userID, 9999, UpdateInput{
		Priority: ticketPriority(models.TicketPriorityHigh),
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdate_AppendsOneRecordPerCall(t *testing.T) {
	f := newFixture(t)
	ticket := f.seedTicket(t)

	updated, err := f.service.Update(f.userID, ticket.ID, UpdateInput{
		Status:     ticketStatus(models.TicketStatusAssigned),
		Priority:   ticketPriority(models.TicketPriorityHigh),
		AssignedTo: &f.userID,
		Comment:    "dispatching crew",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusAssigned, updated.Status)
	assert.Equal(t, models.TicketPriorityHigh, updated.Priority)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, f.userID, *updated.AssignedTo)

	records, err := f.tickets.ListRecords(ticket.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "status_change,priority_change,assign", records[0].Action)
	assert.Equal(t, string(models.TicketStatusPending), records[0].OldStatus)
	assert.Equal(t, string(models.TicketStatusAssigned), records[0].NewStatus)
	assert.Equal(t, "dispatching crew", records[0].Comment)
	assert.Equal(t, f.userID, records[0].OperatorID)
}

func TestUpdate_RecordsUnchangedStatusOnPriorityOnlyCall(t *testing.T) {
	f := newFixture(t)
	ticket := f.seedTicket(t)

	_, err := f.service.Update(f.userID, ticket.ID, UpdateInput{
		Priority: ticketPriority(models.TicketPriorityUrgent),
	})
	require.NoError(t, err)

	records, err := f.tickets.ListRecords(ticket.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "priority_change", records[0].Action)
	assert.Equal(t, string(models.TicketStatusPending), records[0].OldStatus)
	assert.Equal(t, string(models.TicketStatusPending), records[0].NewStatus)
}

func TestUpdate_StatusMayJumpFreely(t *testing.T) {
	f := newFixture(t)
	ticket := f.seedTicket(t)

	// Straight from pending to resolved, skipping assigned and
	// processing.
	updated, err := f.service.Update(f.userID, ticket.ID, UpdateInput{
		Status: ticketStatus(models.TicketStatusResolved),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusResolved, updated.Status)
}

func TestUpdate_CloseCascadesToReport(t *testing.T) {
	f := newFixture(t)
	ticket := f.seedTicket(t)

	_, err := f.service.Update(f.userID, ticket.ID, UpdateInput{
		Status: ticketStatus(models.TicketStatusClosed),
	})
	require.NoError(t, err)

	report, err := f.reports.GetByID(nil, ticket.ReportID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusClosed, report.Status)

	// Re-closing is legal for the ticket and a no-op for the report.
	_, err = f.service.Update(f.userID, ticket.ID, UpdateInput{
		Status:  ticketStatus(models.TicketStatusClosed),
		Comment: "double close",
	})
	require.NoError(t, err)

	records, err := f.tickets.ListRecords(ticket.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestList_FiltersByStatus(t *testing.T) {
	f := newFixture(t)
	first := f.seedTicket(t)
	f.seedTicket(t)

	_, err := f.service.Update(f.userID, first.ID, UpdateInput{
		Status: ticketStatus(models.TicketStatusProcessing),
	})
	require.NoError(t, err)

	all, err := f.service.List("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	processing, err := f.service.List("processing")
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, first.ID, processing[0].ID)

	_, err = f.service.List("bogus")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestGetDetail_AggregatesEverything(t *testing.T) {
	f := newFixture(t)
	ticket := f.seedTicket(t)

	require.NoError(t, f.reports.AddImage(nil, &models.ReportImage{
		ReportID:  ticket.ReportID,
		ImagePath: "img.jpg",
	}))

	_, err := f.service.Update(f.userID, ticket.ID, UpdateInput{
		Status: ticketStatus(models.TicketStatusAssigned),
	})
	require.NoError(t, err)

	detail, err := f.service.GetDetail(ticket.ID)
	require.NoError(t, err)

	assert.Equal(t, ticket.ID, detail.Ticket.ID)
	require.NotNil(t, detail.Report)
	assert.Equal(t, ticket.ReportID, detail.Report.ID)
	assert.Len(t, detail.Report.Images, 1)
	assert.Len(t, detail.TicketRecords, 1)
}

func TestGetDetail_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetDetail(9999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
