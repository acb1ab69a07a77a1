package services

import (
	"context"
	"errors"
	"time"

	"project/backend/event"
	"project/backend/models"
	"project/backend/storage"
)

type SessionService struct {
	Store  storage.Store
	Events *event.EventPublisher
}

func NewSessionService(store storage.Store, events *event.EventPublisher) *SessionService {
	return &SessionService{Store: store, Events: events}
}

type StartedSession struct {
	SessionID       string               `json:"sessionId"`
	TestID          string               `json:"testId"`
	Status          models.SessionStatus `json:"status"`
	StartedAt       time.Time            `json:"startedAt"`
	DurationMinutes int                  `json:"durationMinutes"`
}

type QuestionView struct {
	ID           string            `json:"id"`
	QuestionText string            `json:"questionText"`
	QuestionType string            `json:"questionType"`
	Options      models.StringList `json:"options"`
	OrderNumber  int               `json:"orderNumber"`
}

type SessionQuestions struct {
	SessionID string           `json:"sessionId"`
	Test      SessionTestView  `json:"test"`
}

type SessionTestView struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	TestType        string         `json:"testType"`
	DurationMinutes int            `json:"durationMinutes"`
	TotalQuestions  int            `json:"totalQuestions"`
	Questions       []QuestionView `json:"questions"`
}

type McqResult struct {
	SessionID      string               `json:"sessionId"`
	ScorePercent   float64              `json:"scorePercent"`
	TotalPoints    int                  `json:"totalPoints"`
	EarnedPoints   int                  `json:"earnedPoints"`
	SuggestedLevel models.Level         `json:"suggestedLevel"`
	Status         models.SessionStatus `json:"status"`
}

type FinalizeInput struct {
	FinalLevelID   *string `json:"finalLevelId"`
	Recommendation *string `json:"recommendation"`
	Passed         *bool   `json:"passed"`
}

type SessionList struct {
	Data       []models.TestSession `json:"data"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"totalPages"`
}

// Start создаёт новую сессию размещения. Проверки идут в порядке:
// студент, тест, незавершённая сессия, пересдача. Частичный уникальный
// индекс в хранилище страхует проверку незавершённой сессии от гонки
// двойного клика: проигравший Create получает тот же конфликт.
func (svc *SessionService) Start(ctx context.Context, studentID, testID string) (*StartedSession, error) {
	if studentID == "" || testID == "" {
		return nil, NewValidationError("studentId and testId are required")
	}

	if _, err := svc.Store.GetStudent(ctx, studentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewNotFoundError("student not found")
		}
		return nil, err
	}

	test, err := svc.Store.GetTest(ctx, testID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewNotFoundError("test not found or inactive")
		}
		return nil, err
	}
	if !test.IsActive {
		return nil, NewNotFoundError("test not found or inactive")
	}

	if _, err = svc.Store.FindActiveSession(ctx, studentID); err == nil {
		return nil, NewConflictError(CodeDuplicateActiveSession,
			"you already have an active placement test, please complete it first")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	if _, err = svc.Store.FindFinishedSession(ctx, studentID, testID); err == nil {
		return nil, NewConflictError(CodeAlreadyTaken,
			"you have already taken this test and cannot retake it")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	sess := &models.TestSession{
		StudentID: studentID,
		TestID:    testID,
		Status:    models.SessionInProgress,
		StartedAt: time.Now().UTC(),
	}
	if err = svc.Store.CreateSession(ctx, sess); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, NewConflictError(CodeDuplicateActiveSession,
				"you already have an active placement test, please complete it first")
		}
		return nil, err
	}

	if svc.Events != nil {
		svc.Events.Publish("placement.session.started", map[string]interface{}{
			"sessionId": sess.ID,
			"studentId": studentID,
			"testId":    testID,
		})
	}

	return &StartedSession{
		SessionID:       sess.ID,
		TestID:          sess.TestID,
		Status:          sess.Status,
		StartedAt:       sess.StartedAt,
		DurationMinutes: test.DurationMinutes,
	}, nil
}

// Questions отдаёт вопросы сессии в порядке orderNumber.
// Правильные ответы не покидают сервер: клиент сдачи теста не доверен.
func (svc *SessionService) Questions(ctx context.Context, sessionID string) (*SessionQuestions, error) {
	sess, err := svc.Store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewNotFoundError("test session not found")
		}
		return nil, err
	}

	test, err := svc.Store.GetTestWithQuestions(ctx, sess.TestID)
	if err != nil {
		return nil, err
	}

	view := SessionTestView{
		ID:              test.ID,
		Name:            test.Name,
		TestType:        test.TestType,
		DurationMinutes: test.DurationMinutes,
		TotalQuestions:  test.TotalQuestions,
		Questions:       make([]QuestionView, 0, len(test.Questions)),
	}
	for _, q := range test.Questions {
		view.Questions = append(view.Questions, QuestionView{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			QuestionType: q.QuestionType,
			Options:      q.Options,
			OrderNumber:  q.OrderNumber,
		})
	}

	return &SessionQuestions{SessionID: sess.ID, Test: view}, nil
}

// SubmitMcq оценивает ответы и закрывает MCQ-часть. Статус меняется
// условным UPDATE из IN_PROGRESS, поэтому повторная сдача невозможна
// даже при одновременных запросах.
func (svc *SessionService) SubmitMcq(ctx context.Context, sessionID string, answers map[string]string) (*McqResult, error) {
	if answers == nil {
		return nil, NewValidationError("answers object is required")
	}

	sess, err := svc.Store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewNotFoundError("test session not found")
		}
		return nil, err
	}
	if sess.Status != models.SessionInProgress {
		return nil, NewStateError("MCQ part already submitted or session not in progress")
	}

	test, err := svc.Store.GetTestWithQuestions(ctx, sess.TestID)
	if err != nil {
		return nil, err
	}

	rec := GradeMcq(test.Questions, answers)

	ok, err := svc.Store.SaveMcqAnswers(ctx, sessionID, rec, rec.ScorePercent, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewStateError("MCQ part already submitted or session not in progress")
	}

	if svc.Events != nil {
		svc.Events.Publish("placement.session.mcq_completed", map[string]interface{}{
			"sessionId":    sessionID,
			"scorePercent": rec.ScorePercent,
		})
	}

	return &McqResult{
		SessionID:      sessionID,
		ScorePercent:   rec.ScorePercent,
		TotalPoints:    rec.TotalPoints,
		EarnedPoints:   rec.EarnedPoints,
		SuggestedLevel: models.MapScoreToLevel(rec.ScorePercent),
		Status:         models.SessionMcqCompleted,
	}, nil
}

// Finalize записывает итоговое решение. Допускается из
// SPEAKING_COMPLETED, а для письменных тестов - из MCQ_COMPLETED.
func (svc *SessionService) Finalize(ctx context.Context, sessionID string, in FinalizeInput) (*models.TestSession, error) {
	if _, err := svc.Store.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewNotFoundError("test session not found")
		}
		return nil, err
	}

	decision := &models.FinalDecision{
		FinalLevelID:   in.FinalLevelID,
		Recommendation: in.Recommendation,
		Passed:         in.Passed,
		FinalizedAt:    time.Now().UTC(),
	}

	from := []models.SessionStatus{models.SessionSpeakingCompleted, models.SessionMcqCompleted}
	ok, err := svc.Store.SaveFinalDecision(ctx, sessionID, decision, from)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewStateError("session cannot be finalized from its current status")
	}

	if svc.Events != nil {
		svc.Events.Publish("placement.session.finalized", map[string]interface{}{"sessionId": sessionID})
	}

	return svc.Store.GetSession(ctx, sessionID)
}

// Active возвращает незавершённую сессию студента; её отсутствие -
// различимая NotFoundError, чтобы клиент показал "нет активного теста"
func (svc *SessionService) Active(ctx context.Context, studentID string) (*models.TestSession, error) {
	sess, err := svc.Store.FindActiveSession(ctx, studentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewNotFoundError("no active test session found for this student")
		}
		return nil, err
	}
	return sess, nil
}

// Last возвращает (nil, nil), когда сессий не было: это ожидаемый
// ответ, а не ошибка.
func (svc *SessionService) Last(ctx context.Context, studentID, testID string) (*models.TestSession, error) {
	sess, err := svc.Store.LastSession(ctx, studentID, testID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

func (svc *SessionService) Get(ctx context.Context, sessionID string) (*models.TestSession, []models.SpeakingSlot, error) {
	sess, err := svc.Store.GetSessionDetail(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, NewNotFoundError("test session not found")
		}
		return nil, nil, err
	}
	slots, err := svc.Store.ListSlotsBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return sess, slots, nil
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func (svc *SessionService) List(ctx context.Context, f storage.SessionFilter) (*SessionList, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}

	sessions, total, err := svc.Store.ListSessions(ctx, f)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(f.Limit) - 1) / int64(f.Limit))
	return &SessionList{
		Data:       sessions,
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: totalPages,
	}, nil
}
