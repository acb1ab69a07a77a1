package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"project/backend/config"
	"project/backend/controllers"
	"project/backend/event"
	"project/backend/middleware"
	"project/backend/services"
	"project/backend/storage"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, events *event.EventPublisher) {
	store := storage.NewStore(db)
	sessionSvc := services.NewSessionService(store, events)
	slotSvc := services.NewSlotService(store, events)

	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(cfg)

	// Test session routes
	sessionController := controllers.NewSessionController(sessionSvc)
	sessions := app.Group("/api/test-sessions", authMiddleware)
	sessions.Post("/start", sessionController.StartSession)
	sessions.Get("/active", sessionController.GetActiveSession)
	sessions.Get("/last-session", sessionController.GetLastSession)
	sessions.Get("/:sessionId/questions", sessionController.GetSessionQuestions)
	sessions.Post("/:sessionId/submit-mcq", sessionController.SubmitMcqAnswers)
	sessions.Post("/:sessionId/finalize", adminMiddleware, sessionController.FinalizeSession)
	sessions.Get("/:sessionId", adminMiddleware, sessionController.GetSession)
	sessions.Get("/", adminMiddleware, sessionController.ListSessions)

	// Speaking slot routes
	slotController := controllers.NewSlotController(slotSvc)
	slots := app.Group("/api/speaking-slots", authMiddleware)
	slots.Get("/available", slotController.ListAvailable)
	slots.Post("/:slotId/book", slotController.BookSlot)
	slots.Post("/:slotId/cancel", slotController.CancelBooking)
	slots.Post("/:slotId/result", adminMiddleware, slotController.SubmitResult)
	slots.Get("/teacher/:teacherId", adminMiddleware, slotController.ListForTeacher)
}
