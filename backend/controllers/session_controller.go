package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"project/backend/services"
	"project/backend/storage"
	"project/backend/utils"
)

type SessionController struct {
	Svc *services.SessionService
}

func NewSessionController(svc *services.SessionService) *SessionController {
	return &SessionController{Svc: svc}
}

// POST /api/test-sessions/start
func (sc *SessionController) StartSession(c *fiber.Ctx) error {
	var input struct {
		StudentID string `json:"studentId"`
		TestID    string `json:"testId"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.StudentID == "" || input.TestID == "" {
		return utils.BadRequest(c, "studentId and testId are required")
	}

	session, err := sc.Svc.Start(c.UserContext(), input.StudentID, input.TestID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, "Test session started", fiber.Map{
		"session": session,
	})
}

// GET /api/test-sessions/:sessionId/questions
func (sc *SessionController) GetSessionQuestions(c *fiber.Ctx) error {
	data, err := sc.Svc.Questions(c.UserContext(), c.Params("sessionId"))
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "", fiber.Map{
		"sessionId": data.SessionID,
		"test":      data.Test,
	})
}

// POST /api/test-sessions/:sessionId/submit-mcq
func (sc *SessionController) SubmitMcqAnswers(c *fiber.Ctx) error {
	var input struct {
		Answers map[string]string `json:"answers"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Answers == nil {
		return utils.BadRequest(c, "answers object is required")
	}

	result, err := sc.Svc.SubmitMcq(c.UserContext(), c.Params("sessionId"), input.Answers)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "MCQ submitted successfully", fiber.Map{
		"results": result,
	})
}

// POST /api/test-sessions/:sessionId/finalize
func (sc *SessionController) FinalizeSession(c *fiber.Ctx) error {
	var input services.FinalizeInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	session, err := sc.Svc.Finalize(c.UserContext(), c.Params("sessionId"), input)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Test session finalized", fiber.Map{
		"session": session,
	})
}

// GET /api/test-sessions/:sessionId
func (sc *SessionController) GetSession(c *fiber.Ctx) error {
	session, slots, err := sc.Svc.Get(c.UserContext(), c.Params("sessionId"))
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "", fiber.Map{
		"session":       session,
		"speakingSlots": slots,
	})
}

// GET /api/test-sessions?status=&testType=&page=&limit=
func (sc *SessionController) ListSessions(c *fiber.Ctx) error {
	filter := storage.SessionFilter{
		Status:   c.Query("status"),
		TestType: c.Query("testType"),
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 20),
	}

	result, err := sc.Svc.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "", fiber.Map{
		"data":       result.Data,
		"total":      result.Total,
		"page":       result.Page,
		"limit":      result.Limit,
		"totalPages": result.TotalPages,
	})
}

// GET /api/test-sessions/active?studentId=xxx
func (sc *SessionController) GetActiveSession(c *fiber.Ctx) error {
	studentID := c.Query("studentId")
	if studentID == "" {
		return utils.BadRequest(c, "studentId query parameter is required")
	}

	session, err := sc.Svc.Active(c.UserContext(), studentID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "", fiber.Map{
		"session": session,
	})
}

// GET /api/test-sessions/last-session?studentId=xxx&testId=yyy
func (sc *SessionController) GetLastSession(c *fiber.Ctx) error {
	studentID := c.Query("studentId")
	testID := c.Query("testId")
	if studentID == "" {
		return utils.BadRequest(c, "studentId query parameter is required")
	}
	if testID == "" {
		return utils.BadRequest(c, "testId query parameter is required")
	}

	session, err := sc.Svc.Last(c.UserContext(), studentID, testID)
	if err != nil {
		return respondError(c, err)
	}
	if session == nil {
		// отсутствие прошлой сессии - не ошибка
		return utils.NotFound(c, "No previous session found")
	}
	return utils.Success(c, fiber.StatusOK, "", fiber.Map{
		"session": session,
	})
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
