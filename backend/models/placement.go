package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionInProgress        SessionStatus = "IN_PROGRESS"
	SessionMcqCompleted      SessionStatus = "MCQ_COMPLETED"
	SessionSpeakingScheduled SessionStatus = "SPEAKING_SCHEDULED"
	SessionSpeakingCompleted SessionStatus = "SPEAKING_COMPLETED"
	SessionFinalResults      SessionStatus = "FINAL_RESULTS"
	SessionCompleted         SessionStatus = "COMPLETED"
	SessionAbandoned         SessionStatus = "ABANDONED"
)

// ActiveStatuses - сессия ещё идёт, новую начинать нельзя.
// FinishedStatuses - тест уже сдан, пересдача запрещена.
var (
	ActiveStatuses   = []SessionStatus{SessionInProgress, SessionMcqCompleted, SessionSpeakingScheduled}
	FinishedStatuses = []SessionStatus{SessionSpeakingCompleted, SessionFinalResults, SessionCompleted}
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "AVAILABLE"
	SlotBooked    SlotStatus = "BOOKED"
	SlotCompleted SlotStatus = "COMPLETED"
	SlotCancelled SlotStatus = "CANCELLED"
)

type Student struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `gorm:"unique;not null" json:"email"`
	CurrentLevel *Level `gorm:"size:2" json:"currentLevel"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Teacher struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `gorm:"unique;not null" json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Test struct {
	ID              string `gorm:"primaryKey;size:36" json:"id"`
	Name            string `gorm:"not null" json:"name"`
	TestType        string `gorm:"size:20;not null" json:"testType"` // PLACEMENT, WRITTEN
	DurationMinutes int    `json:"durationMinutes"`
	TotalQuestions  int    `json:"totalQuestions"`
	IsActive        bool   `gorm:"default:true" json:"isActive"`
	Questions       []TestQuestion `json:"questions,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type TestQuestion struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	TestID        string     `gorm:"size:36;index;not null" json:"testId"`
	QuestionText  string     `gorm:"type:text;not null" json:"questionText"`
	QuestionType  string     `gorm:"size:30" json:"questionType"`
	Options       StringList `gorm:"type:jsonb" json:"options"`
	CorrectAnswer string     `gorm:"not null" json:"-"` // никогда не отдаётся клиенту
	Points        int        `gorm:"default:1" json:"points"`
	OrderNumber   int        `json:"orderNumber"`
}

type TestSession struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	StudentID     string         `gorm:"size:36;index;not null" json:"studentId"`
	Student       *Student       `json:"student,omitempty"`
	TestID        string         `gorm:"size:36;index;not null" json:"testId"`
	Test          *Test          `json:"test,omitempty"`
	Status        SessionStatus  `gorm:"size:30;index;not null" json:"status"`
	Score         float64        `json:"score"`
	Answers       *AnswerRecord  `gorm:"type:jsonb" json:"answers,omitempty"`
	FinalDecision *FinalDecision `gorm:"type:jsonb" json:"finalDecision,omitempty"`
	StartedAt     time.Time      `json:"startedAt"`
	CompletedAt   *time.Time     `json:"completedAt"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

type SpeakingSlot struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	TeacherID string          `gorm:"size:36;index;not null" json:"teacherId"`
	Teacher   *Teacher        `json:"teacher,omitempty"`
	SlotDate  time.Time       `gorm:"index" json:"slotDate"`
	StartTime string          `gorm:"size:8" json:"startTime"` // HH:MM:SS
	EndTime   string          `gorm:"size:8" json:"endTime"`
	Status    SlotStatus      `gorm:"size:20;index;not null;default:'AVAILABLE'" json:"status"`
	StudentID *string         `gorm:"size:36" json:"studentId"` // nil пока слот свободен
	Student   *Student        `json:"student,omitempty"`
	SessionID *string         `gorm:"size:36" json:"sessionId"`
	Session   *TestSession    `gorm:"foreignKey:SessionID" json:"session,omitempty"`
	Result    *SpeakingResult `gorm:"type:jsonb" json:"result,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (s *Student) BeforeCreate(*gorm.DB) error      { return ensureID(&s.ID) }
func (t *Teacher) BeforeCreate(*gorm.DB) error      { return ensureID(&t.ID) }
func (t *Test) BeforeCreate(*gorm.DB) error         { return ensureID(&t.ID) }
func (q *TestQuestion) BeforeCreate(*gorm.DB) error { return ensureID(&q.ID) }
func (s *TestSession) BeforeCreate(*gorm.DB) error  { return ensureID(&s.ID) }
func (s *SpeakingSlot) BeforeCreate(*gorm.DB) error { return ensureID(&s.ID) }

func ensureID(id *string) error {
	if *id == "" {
		*id = uuid.NewString()
	}
	return nil
}
