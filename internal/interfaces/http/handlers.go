package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qinyuan/traffix/internal/auth"
	"github.com/qinyuan/traffix/internal/models"
	"github.com/qinyuan/traffix/internal/recognition"
	"github.com/qinyuan/traffix/internal/report"
	"github.com/qinyuan/traffix/internal/storage"
	"github.com/qinyuan/traffix/internal/ticket"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	authService   *auth.Service
	reportService *report.Service
	ticketService *ticket.Service
	recognizer    *recognition.Recognizer
	uploadDir     string
	logger        *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	authService *auth.Service,
	reportService *report.Service,
	ticketService *ticket.Service,
	recognizer *recognition.Recognizer,
	uploadDir string,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		authService:   authService,
		reportService: reportService,
		ticketService: ticketService,
		recognizer:    recognizer,
		uploadDir:     uploadDir,
		logger:        logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func fail(c *gin.Context, err error) {
	c.JSON(errorStatus(err), Response{Success: false, Error: err.Error()})
}

// errorStatus maps service errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrRecognition):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	ok(c, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// RegisterRequest is the registration payload
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
	RealName string `json:"real_name"`
}

// Register handles POST /api/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	user, err := h.authService.Register(auth.RegisterInput{
		Username: req.Username,
		Phone:    req.Phone,
		Password: req.Password,
		RealName: req.RealName,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, user)
}

// LoginRequest is the login payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	user, token, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"token": token, "user": user})
}

// CurrentUser handles GET /api/auth/me
func (h *Handlers) CurrentUser(c *gin.Context) {
	user, err := h.authService.GetUser(auth.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, user)
}

// SubmitReport handles POST /api/reports (multipart form)
func (h *Handlers) SubmitReport(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid multipart form"})
		return
	}

	images, err := readUploads(form.File["images"])
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	rep, err := h.reportService.Submit(c.Request.Context(), report.SubmitInput{
		UserID:       auth.UserID(c),
		EventType:    c.PostForm("event_type"),
		Location:     c.PostForm("location"),
		Description:  c.PostForm("description"),
		ContactPhone: c.PostForm("contact_phone"),
		Images:       images,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rep)
}

// MyReports handles GET /api/reports/my
func (h *Handlers) MyReports(c *gin.Context) {
	reports, err := h.reportService.ListByUser(auth.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, reports)
}

// Recognize handles POST /api/recognize: ad-hoc recognition of one
// uploaded image, nothing persisted.
func (h *Handlers) Recognize(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "image file is required"})
		return
	}

	images, err := readUploads([]*multipart.FileHeader{fileHeader})
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	question := c.PostForm("question")
	if preset, found := recognition.PresetQuestions[c.PostForm("category")]; question == "" && found {
		question = preset
	}

	dataURI := storage.EncodeDataURI(images[0].Filename, images[0].Content)
	result, err := h.recognizer.Recognize(c.Request.Context(), dataURI, question)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{
		"question": result.Question,
		"answer":   result.Answer,
		"signal":   result.Signal,
	})
}

// ListTickets handles GET /api/admin/tickets
func (h *Handlers) ListTickets(c *gin.Context) {
	tickets, err := h.ticketService.List(c.Query("status"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, tickets)
}

// TicketDetail handles GET /api/admin/tickets/:id
func (h *Handlers) TicketDetail(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		fail(c, err)
		return
	}

	detail, err := h.ticketService.GetDetail(id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, detail)
}

// UpdateTicketRequest is the ticket mutation payload
type UpdateTicketRequest struct {
	Status     *string `json:"status"`
	Priority   *string `json:"priority"`
	AssignedTo *int64  `json:"assigned_to"`
	Comment    string  `json:"comment"`
}

// UpdateTicket handles POST /api/admin/tickets/:id/update
func (h *Handlers) UpdateTicket(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		fail(c, err)
		return
	}

	var req UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	in := ticket.UpdateInput{
		AssignedTo: req.AssignedTo,
		Comment:    req.Comment,
	}
	if req.Status != nil {
		status := models.TicketStatus(*req.Status)
		in.Status = &status
	}
	if req.Priority != nil {
		priority := models.TicketPriority(*req.Priority)
		in.Priority = &priority
	}

	updated, err := h.ticketService.Update(auth.UserID(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, updated)
}

// ReviewReportRequest is the manual review payload
type ReviewReportRequest struct {
	Result  string `json:"result" binding:"required"`
	Comment string `json:"comment"`
}

// ReviewReport handles POST /api/admin/reports/:id/review
func (h *Handlers) ReviewReport(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		fail(c, err)
		return
	}

	var req ReviewReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	rep, err := h.reportService.ManualReview(auth.UserID(c), id, models.ReviewResult(req.Result), req.Comment)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rep)
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.ErrValidation
	}
	return id, nil
}

func readUploads(headers []*multipart.FileHeader) ([]report.ImageUpload, error) {
	var uploads []report.ImageUpload
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, report.ImageUpload{
			Filename: header.Filename,
			Content:  content,
		})
	}
	return uploads, nil
}
