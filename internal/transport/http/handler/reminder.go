package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dealerops/compliance-tracker/internal/domain"
	"github.com/dealerops/compliance-tracker/internal/usecase"
	"github.com/gin-gonic/gin"
)

type ReminderHandler struct {
	uc     *usecase.ReminderUsecase
	logger *slog.Logger
}

func NewReminderHandler(uc *usecase.ReminderUsecase, logger *slog.Logger) *ReminderHandler {
	return &ReminderHandler{uc: uc, logger: logger.With("component", "reminder_handler")}
}

type createReminderRequest struct {
	ChecklistID    *string    `json:"checklist_id"`
	IdempotencyKey string     `json:"idempotency_key" binding:"required,max=256"`
	Recipient      string     `json:"recipient"       binding:"required,max=256"`
	Subject        string     `json:"subject"         binding:"required,max=512"`
	Body           string     `json:"body"`
	RemindAt       time.Time  `json:"remind_at"       binding:"required"`
	DueAt          *time.Time `json:"due_at"`
	EscalateAt     *time.Time `json:"escalate_at"`
	Channels       []string   `json:"channels"        binding:"omitempty,dive,oneof=email sms push in_app"`
	AutoEscalate   bool       `json:"auto_escalate"`
	EscalateToUser *string    `json:"escalate_to_user"`
	EscalateToRole *string    `json:"escalate_to_role"`
}

type reminderResponse struct {
	ID              string                `json:"id"`
	ChecklistID     *string               `json:"checklist_id,omitempty"`
	Recipient       string                `json:"recipient"`
	Subject         string                `json:"subject"`
	RemindAt        time.Time             `json:"remind_at"`
	DueAt           *time.Time            `json:"due_at,omitempty"`
	EscalateAt      *time.Time            `json:"escalate_at,omitempty"`
	Status          domain.ReminderStatus `json:"status"`
	Channels        []domain.Channel      `json:"channels"`
	AutoEscalate    bool                  `json:"auto_escalate"`
	SentCount       int                   `json:"sent_count"`
	LastTriggeredAt *time.Time            `json:"last_triggered_at,omitempty"`
	LastSentAt      *time.Time            `json:"last_sent_at,omitempty"`
	LastEscalatedAt *time.Time            `json:"last_escalated_at,omitempty"`
	LastError       *string               `json:"last_error,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

func toReminderResponse(r *domain.Reminder) reminderResponse {
	return reminderResponse{
		ID:              r.ID,
		ChecklistID:     r.ChecklistID,
		Recipient:       r.Recipient,
		Subject:         r.Subject,
		RemindAt:        r.RemindAt,
		DueAt:           r.DueAt,
		EscalateAt:      r.EscalateAt,
		Status:          r.Status,
		Channels:        r.Channels,
		AutoEscalate:    r.AutoEscalate,
		SentCount:       r.SentCount,
		LastTriggeredAt: r.LastTriggeredAt,
		LastSentAt:      r.LastSentAt,
		LastEscalatedAt: r.LastEscalatedAt,
		LastError:       r.LastError,
		CreatedAt:       r.CreatedAt,
	}
}

func (h *ReminderHandler) Create(ctx *gin.Context) {
	var req createReminderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channels := make([]domain.Channel, len(req.Channels))
	for i, c := range req.Channels {
		channels[i] = domain.Channel(c)
	}

	rem, err := h.uc.CreateReminder(ctx.Request.Context(), usecase.CreateReminderInput{
		ChecklistID:    req.ChecklistID,
		IdempotencyKey: req.IdempotencyKey,
		Recipient:      req.Recipient,
		Subject:        req.Subject,
		Body:           req.Body,
		RemindAt:       req.RemindAt,
		DueAt:          req.DueAt,
		EscalateAt:     req.EscalateAt,
		Channels:       channels,
		AutoEscalate:   req.AutoEscalate,
		EscalateToUser: req.EscalateToUser,
		EscalateToRole: req.EscalateToRole,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDueBeforeRemind),
			errors.Is(err, domain.ErrEscalateNotAfter),
			errors.Is(err, domain.ErrInvalidChannel):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrDuplicateReminder):
			ctx.JSON(http.StatusConflict, gin.H{"error": errDuplicateReminder})
		default:
			h.logger.Error("create reminder", "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusCreated, toReminderResponse(rem))
}

func (h *ReminderHandler) List(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))

	result, err := h.uc.ListReminders(ctx.Request.Context(), usecase.ListRemindersInput{
		Status:      domain.ReminderStatus(ctx.Query("status")),
		ChecklistID: ctx.Query("checklist_id"),
		Cursor:      ctx.Query("cursor"),
		Limit:       limit,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCursor):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidCursor})
			return
		case errors.Is(err, domain.ErrInvalidStatus):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidStatus})
			return
		}
		h.logger.Error("list reminders", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]reminderResponse, len(result.Reminders))
	for i, r := range result.Reminders {
		items[i] = toReminderResponse(r)
	}
	ctx.JSON(http.StatusOK, gin.H{
		"reminders":   items,
		"next_cursor": result.NextCursor,
	})
}

func (h *ReminderHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	rem, err := h.uc.GetReminder(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrReminderNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errReminderNotFound})
			return
		}
		h.logger.Error("get reminder", "reminder_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.JSON(http.StatusOK, toReminderResponse(rem))
}

func (h *ReminderHandler) Cancel(ctx *gin.Context) {
	id := ctx.Param("id")

	err := h.uc.CancelReminder(ctx.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrReminderNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errReminderNotFound})
		case errors.Is(err, domain.ErrInvalidTransition):
			ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Error("cancel reminder", "reminder_id", id, "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.Status(http.StatusNoContent)
}
