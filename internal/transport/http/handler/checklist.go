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

type ChecklistHandler struct {
	uc     *usecase.ChecklistUsecase
	logger *slog.Logger
}

func NewChecklistHandler(uc *usecase.ChecklistUsecase, logger *slog.Logger) *ChecklistHandler {
	return &ChecklistHandler{uc: uc, logger: logger.With("component", "checklist_handler")}
}

type createChecklistRequest struct {
	BranchID      string  `json:"branch_id"      binding:"required,max=64"`
	Name          string  `json:"name"           binding:"required,max=256"`
	Category      string  `json:"category"       binding:"omitempty,max=128"`
	AssignedTo    *string `json:"assigned_to"`
	Frequency     string  `json:"frequency"      binding:"required,oneof=daily weekly monthly quarterly yearly custom"`
	IntervalCount int     `json:"interval_count" binding:"omitempty,min=1,max=1000"`
	CustomUnit    string  `json:"custom_unit"    binding:"omitempty,oneof=hours days weeks months years"`
	CustomValue   int     `json:"custom_value"   binding:"omitempty,min=1,max=10000"`
	StartDate     string  `json:"start_date"     binding:"omitempty,datetime=2006-01-02"`
	DueTime       string  `json:"due_time"       binding:"omitempty,datetime=15:04"`
}

type checklistResponse struct {
	ID              string     `json:"id"`
	BranchID        string     `json:"branch_id"`
	Name            string     `json:"name"`
	Category        string     `json:"category,omitempty"`
	AssignedTo      *string    `json:"assigned_to,omitempty"`
	Frequency       string     `json:"frequency"`
	IntervalCount   int        `json:"interval_count"`
	CustomUnit      string     `json:"custom_unit,omitempty"`
	CustomValue     int        `json:"custom_value,omitempty"`
	StartDate       *string    `json:"start_date,omitempty"`
	DueTime         string     `json:"due_time,omitempty"`
	NextDueAt       *time.Time `json:"next_due_at,omitempty"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
	Paused          bool       `json:"paused"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toChecklistResponse(c *domain.Checklist) checklistResponse {
	resp := checklistResponse{
		ID:              c.ID,
		BranchID:        c.BranchID,
		Name:            c.Name,
		Category:        c.Category,
		AssignedTo:      c.AssignedTo,
		Frequency:       string(c.Recurrence.Frequency),
		IntervalCount:   c.Recurrence.IntervalCount,
		CustomUnit:      string(c.Recurrence.CustomUnit),
		CustomValue:     c.Recurrence.CustomValue,
		DueTime:         c.Recurrence.DueTime,
		NextDueAt:       c.NextDueAt,
		LastCompletedAt: c.LastCompletedAt,
		Paused:          c.Paused,
		CreatedAt:       c.CreatedAt,
	}
	if c.Recurrence.StartDate != nil {
		s := c.Recurrence.StartDate.Format("2006-01-02")
		resp.StartDate = &s
	}
	return resp
}

func (h *ChecklistHandler) Create(ctx *gin.Context) {
	var req createChecklistRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule := domain.RecurrenceRule{
		Frequency:     domain.Frequency(req.Frequency),
		IntervalCount: req.IntervalCount,
		CustomUnit:    domain.IntervalUnit(req.CustomUnit),
		CustomValue:   req.CustomValue,
		DueTime:       req.DueTime,
	}
	if req.StartDate != "" {
		d, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
			return
		}
		rule.StartDate = &d
	}

	c, err := h.uc.CreateChecklist(ctx.Request.Context(), usecase.CreateChecklistInput{
		BranchID:   req.BranchID,
		Name:       req.Name,
		Category:   req.Category,
		AssignedTo: req.AssignedTo,
		Recurrence: rule,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidFrequency):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrChecklistNameConflict):
			ctx.JSON(http.StatusConflict, gin.H{"error": errChecklistNameConflict})
		default:
			h.logger.Error("create checklist", "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusCreated, toChecklistResponse(c))
}

func (h *ChecklistHandler) List(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))

	result, err := h.uc.ListChecklists(ctx.Request.Context(), usecase.ListChecklistsInput{
		BranchID: ctx.Query("branch_id"),
		Cursor:   ctx.Query("cursor"),
		Limit:    limit,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCursor) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidCursor})
			return
		}
		h.logger.Error("list checklists", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]checklistResponse, len(result.Checklists))
	for i, c := range result.Checklists {
		items[i] = toChecklistResponse(c)
	}
	ctx.JSON(http.StatusOK, gin.H{
		"checklists":  items,
		"next_cursor": result.NextCursor,
	})
}

func (h *ChecklistHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	c, err := h.uc.GetChecklist(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrChecklistNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errChecklistNotFound})
			return
		}
		h.logger.Error("get checklist", "checklist_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.JSON(http.StatusOK, toChecklistResponse(c))
}

func (h *ChecklistHandler) Pause(ctx *gin.Context) {
	id := ctx.Param("id")

	err := h.uc.PauseChecklist(ctx.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrChecklistNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errChecklistNotFound})
		case errors.Is(err, domain.ErrChecklistAlreadyPaused):
			ctx.JSON(http.StatusConflict, gin.H{"error": errChecklistPaused})
		default:
			h.logger.Error("pause checklist", "checklist_id", id, "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *ChecklistHandler) Resume(ctx *gin.Context) {
	id := ctx.Param("id")

	err := h.uc.ResumeChecklist(ctx.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrChecklistNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errChecklistNotFound})
		case errors.Is(err, domain.ErrChecklistNotPaused):
			ctx.JSON(http.StatusConflict, gin.H{"error": errChecklistNotPaused})
		default:
			h.logger.Error("resume checklist", "checklist_id", id, "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *ChecklistHandler) Complete(ctx *gin.Context) {
	id := ctx.Param("id")

	c, err := h.uc.CompleteChecklist(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrChecklistNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errChecklistNotFound})
			return
		}
		h.logger.Error("complete checklist", "checklist_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.JSON(http.StatusOK, toChecklistResponse(c))
}

func (h *ChecklistHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	err := h.uc.DeleteChecklist(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrChecklistNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errChecklistNotFound})
			return
		}
		h.logger.Error("delete checklist", "checklist_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.Status(http.StatusNoContent)
}
