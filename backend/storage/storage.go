package storage

import (
	"context"
	"errors"
	"time"

	"project/backend/models"
)

// ErrNotFound и ErrDuplicate возвращаются вместо драйверных ошибок,
// чтобы сервисы не зависели от конкретного хранилища.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type SessionFilter struct {
	Status   string
	TestType string
	Page     int
	Limit    int
}

type SlotFilter struct {
	TeacherID string
	StartDate *time.Time
	EndDate   *time.Time
}

// Store - граница хранилища для менеджеров сессий и слотов.
// Методы Claim/Release/Complete и Save* выполняют одиночный условный
// UPDATE и сообщают, была ли затронута строка: никаких read-then-write.
type Store interface {
	// Transaction выполняет fn над Store, привязанным к одной транзакции
	Transaction(ctx context.Context, fn func(Store) error) error

	GetStudent(ctx context.Context, id string) (*models.Student, error)
	SetStudentLevel(ctx context.Context, id string, level models.Level) error
	GetTeacher(ctx context.Context, id string) (*models.Teacher, error)

	GetTest(ctx context.Context, id string) (*models.Test, error)
	GetTestWithQuestions(ctx context.Context, id string) (*models.Test, error)

	CreateSession(ctx context.Context, s *models.TestSession) error
	GetSession(ctx context.Context, id string) (*models.TestSession, error)
	GetSessionDetail(ctx context.Context, id string) (*models.TestSession, error)
	FindActiveSession(ctx context.Context, studentID string) (*models.TestSession, error)
	FindFinishedSession(ctx context.Context, studentID, testID string) (*models.TestSession, error)
	LastSession(ctx context.Context, studentID, testID string) (*models.TestSession, error)
	ListSessions(ctx context.Context, f SessionFilter) ([]models.TestSession, int64, error)

	// UpdateSessionStatus переводит сессию to только из одного из статусов from
	UpdateSessionStatus(ctx context.Context, id string, from []models.SessionStatus, to models.SessionStatus) (bool, error)
	SaveMcqAnswers(ctx context.Context, id string, rec *models.AnswerRecord, score float64, completedAt time.Time) (bool, error)
	SaveFinalDecision(ctx context.Context, id string, d *models.FinalDecision, from []models.SessionStatus) (bool, error)

	GetSlot(ctx context.Context, id string) (*models.SpeakingSlot, error)
	ListAvailableSlots(ctx context.Context, f SlotFilter) ([]models.SpeakingSlot, error)
	ListSlotsByTeacher(ctx context.Context, teacherID string) ([]models.SpeakingSlot, error)
	ListSlotsBySession(ctx context.Context, sessionID string) ([]models.SpeakingSlot, error)

	ClaimSlot(ctx context.Context, id, studentID, sessionID string) (bool, error)
	ReleaseSlot(ctx context.Context, id, sessionID string) (bool, error)
	CompleteSlot(ctx context.Context, id, sessionID string, res *models.SpeakingResult) (bool, error)
}
