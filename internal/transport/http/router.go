package httptransport

import (
	"log/slog"

	"github.com/dealerops/compliance-tracker/internal/repository"
	"github.com/dealerops/compliance-tracker/internal/transport/http/handler"
	"github.com/dealerops/compliance-tracker/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(
	logger *slog.Logger,
	checklistHandler *handler.ChecklistHandler,
	reminderHandler *handler.ReminderHandler,
	userRepo repository.UserRepository,
	hmacKey []byte,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	authMW := middleware.Auth(hmacKey)
	ensureUser := middleware.EnsureUser(userRepo, logger)

	checklists := r.Group("/checklists", authMW, ensureUser)
	checklists.POST("", checklistHandler.Create)
	checklists.GET("", checklistHandler.List)
	checklists.GET("/:id", checklistHandler.GetByID)
	checklists.POST("/:id/pause", checklistHandler.Pause)
	checklists.POST("/:id/resume", checklistHandler.Resume)
	checklists.POST("/:id/complete", checklistHandler.Complete)
	checklists.DELETE("/:id", checklistHandler.Delete)

	reminders := r.Group("/reminders", authMW, ensureUser)
	reminders.POST("", reminderHandler.Create)
	reminders.GET("", reminderHandler.List)
	reminders.GET("/:id", reminderHandler.GetByID)
	reminders.DELETE("/:id", reminderHandler.Cancel)

	return r
}
