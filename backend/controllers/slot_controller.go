package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"project/backend/models"
	"project/backend/services"
	"project/backend/storage"
	"project/backend/utils"
)

type SlotController struct {
	Svc *services.SlotService
}

func NewSlotController(svc *services.SlotService) *SlotController {
	return &SlotController{Svc: svc}
}

// GET /api/speaking-slots/available?teacherId=&startDate=&endDate=
func (sc *SlotController) ListAvailable(c *fiber.Ctx) error {
	filter := storage.SlotFilter{TeacherID: c.Query("teacherId")}

	if v := c.Query("startDate"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return utils.BadRequest(c, "startDate must be formatted as YYYY-MM-DD")
		}
		filter.StartDate = &t
	}
	if v := c.Query("endDate"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return utils.BadRequest(c, "endDate must be formatted as YYYY-MM-DD")
		}
		filter.EndDate = &t
	}

	slots, err := sc.Svc.ListAvailable(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "", fiber.Map{
		"slots": slotViews(slots),
	})
}

// POST /api/speaking-slots/:slotId/book
func (sc *SlotController) BookSlot(c *fiber.Ctx) error {
	var input struct {
		SessionID string `json:"sessionId"`
		StudentID string `json:"studentId"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.SessionID == "" || input.StudentID == "" {
		return utils.BadRequest(c, "sessionId and studentId are required")
	}

	slot, err := sc.Svc.Book(c.UserContext(), c.Params("slotId"), input.SessionID, input.StudentID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Speaking slot booked", fiber.Map{
		"slot": slot,
	})
}

// POST /api/speaking-slots/:slotId/cancel
func (sc *SlotController) CancelBooking(c *fiber.Ctx) error {
	var input struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.SessionID == "" {
		return utils.BadRequest(c, "sessionId is required")
	}

	if err := sc.Svc.Cancel(c.UserContext(), c.Params("slotId"), input.SessionID); err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Booking cancelled", nil)
}

// POST /api/speaking-slots/:slotId/result
func (sc *SlotController) SubmitResult(c *fiber.Ctx) error {
	var input struct {
		SessionID string `json:"sessionId"`
		services.SpeakingResultInput
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.SessionID == "" {
		return utils.BadRequest(c, "sessionId is required")
	}

	err := sc.Svc.SubmitResult(c.UserContext(), c.Params("slotId"), input.SessionID, input.SpeakingResultInput)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Speaking result submitted", nil)
}

// GET /api/speaking-slots/teacher/:teacherId
func (sc *SlotController) ListForTeacher(c *fiber.Ctx) error {
	slots, err := sc.Svc.ForTeacher(c.UserContext(), c.Params("teacherId"))
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "", fiber.Map{
		"slots": slots,
	})
}

func slotViews(slots []models.SpeakingSlot) []fiber.Map {
	views := make([]fiber.Map, 0, len(slots))
	for _, s := range slots {
		view := fiber.Map{
			"slotId":    s.ID,
			"teacherId": s.TeacherID,
			"slotDate":  s.SlotDate.Format("2006-01-02"),
			"startTime": s.StartTime,
			"endTime":   s.EndTime,
		}
		if s.Teacher != nil {
			view["teacherName"] = s.Teacher.FirstName + " " + s.Teacher.LastName
			view["teacherEmail"] = s.Teacher.Email
		}
		views = append(views, view)
	}
	return views
}
