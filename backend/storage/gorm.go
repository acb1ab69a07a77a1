package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"project/backend/models"
)

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// Migrate создаёт таблицы и частичный уникальный индекс, который
// гарантирует не более одной незавершённой сессии на студента
// даже при гонке двух одновременных стартов.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Student{},
		&models.Teacher{},
		&models.Test{},
		&models.TestQuestion{},
		&models.TestSession{},
		&models.SpeakingSlot{},
	)
	if err != nil {
		return err
	}
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_session_per_student
		 ON test_sessions (student_id)
		 WHERE status IN ('IN_PROGRESS', 'MCQ_COMPLETED', 'SPEAKING_SCHEDULED')`,
	).Error
}

func (s *gormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *gormStore) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	var st models.Student
	if err := s.conn(ctx).First(&st, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &st, nil
}

func (s *gormStore) SetStudentLevel(ctx context.Context, id string, level models.Level) error {
	return s.conn(ctx).Model(&models.Student{}).
		Where("id = ?", id).
		Update("current_level", level).Error
}

func (s *gormStore) GetTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	var t models.Teacher
	if err := s.conn(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &t, nil
}

func (s *gormStore) GetTest(ctx context.Context, id string) (*models.Test, error) {
	var t models.Test
	if err := s.conn(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &t, nil
}

func (s *gormStore) GetTestWithQuestions(ctx context.Context, id string) (*models.Test, error) {
	var t models.Test
	err := s.conn(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_number ASC")
		}).
		First(&t, "id = ?", id).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &t, nil
}

func (s *gormStore) CreateSession(ctx context.Context, sess *models.TestSession) error {
	if err := s.conn(ctx).Create(sess).Error; err != nil {
		// не каждый драйвер транслирует нарушение уникальности
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(err.Error(), "UNIQUE constraint") ||
			strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *gormStore) GetSession(ctx context.Context, id string) (*models.TestSession, error) {
	var sess models.TestSession
	if err := s.conn(ctx).First(&sess, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &sess, nil
}

func (s *gormStore) GetSessionDetail(ctx context.Context, id string) (*models.TestSession, error) {
	var sess models.TestSession
	err := s.conn(ctx).
		Preload("Student").
		Preload("Test").
		First(&sess, "id = ?", id).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &sess, nil
}

func (s *gormStore) FindActiveSession(ctx context.Context, studentID string) (*models.TestSession, error) {
	var sess models.TestSession
	err := s.conn(ctx).
		Preload("Test").
		Where("student_id = ? AND status IN ?", studentID, models.ActiveStatuses).
		Order("created_at DESC").
		First(&sess).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &sess, nil
}

func (s *gormStore) FindFinishedSession(ctx context.Context, studentID, testID string) (*models.TestSession, error) {
	var sess models.TestSession
	err := s.conn(ctx).
		Where("student_id = ? AND test_id = ? AND status IN ?", studentID, testID, models.FinishedStatuses).
		First(&sess).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &sess, nil
}

func (s *gormStore) LastSession(ctx context.Context, studentID, testID string) (*models.TestSession, error) {
	var sess models.TestSession
	err := s.conn(ctx).
		Preload("Test").
		Where("student_id = ? AND test_id = ?", studentID, testID).
		Order("created_at DESC").
		First(&sess).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &sess, nil
}

func (s *gormStore) ListSessions(ctx context.Context, f SessionFilter) ([]models.TestSession, int64, error) {
	query := s.conn(ctx).Model(&models.TestSession{})
	if f.Status != "" {
		query = query.Where("test_sessions.status = ?", f.Status)
	}
	if f.TestType != "" {
		query = query.
			Joins("JOIN tests ON tests.id = test_sessions.test_id").
			Where("tests.test_type = ?", f.TestType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []models.TestSession
	err := query.
		Preload("Student").
		Preload("Test").
		Order("test_sessions.created_at DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&sessions).Error
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

func (s *gormStore) UpdateSessionStatus(ctx context.Context, id string, from []models.SessionStatus, to models.SessionStatus) (bool, error) {
	res := s.conn(ctx).Model(&models.TestSession{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (s *gormStore) SaveMcqAnswers(ctx context.Context, id string, rec *models.AnswerRecord, score float64, completedAt time.Time) (bool, error) {
	res := s.conn(ctx).Model(&models.TestSession{}).
		Where("id = ? AND status = ?", id, models.SessionInProgress).
		Updates(map[string]interface{}{
			"status":       models.SessionMcqCompleted,
			"score":        score,
			"answers":      *rec,
			"completed_at": completedAt,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *gormStore) SaveFinalDecision(ctx context.Context, id string, d *models.FinalDecision, from []models.SessionStatus) (bool, error) {
	res := s.conn(ctx).Model(&models.TestSession{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":         models.SessionFinalResults,
			"final_decision": *d,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *gormStore) GetSlot(ctx context.Context, id string) (*models.SpeakingSlot, error) {
	var slot models.SpeakingSlot
	if err := s.conn(ctx).Preload("Teacher").First(&slot, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &slot, nil
}

func (s *gormStore) ListAvailableSlots(ctx context.Context, f SlotFilter) ([]models.SpeakingSlot, error) {
	query := s.conn(ctx).
		Preload("Teacher").
		Where("status = ?", models.SlotAvailable)
	if f.TeacherID != "" {
		query = query.Where("teacher_id = ?", f.TeacherID)
	}
	if f.StartDate != nil {
		query = query.Where("slot_date >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		query = query.Where("slot_date <= ?", *f.EndDate)
	}

	var slots []models.SpeakingSlot
	err := query.Order("slot_date ASC, start_time ASC").Find(&slots).Error
	return slots, err
}

func (s *gormStore) ListSlotsByTeacher(ctx context.Context, teacherID string) ([]models.SpeakingSlot, error) {
	var slots []models.SpeakingSlot
	err := s.conn(ctx).
		Preload("Student").
		Preload("Session").
		Where("teacher_id = ?", teacherID).
		Order("slot_date ASC, start_time ASC").
		Find(&slots).Error
	return slots, err
}

func (s *gormStore) ListSlotsBySession(ctx context.Context, sessionID string) ([]models.SpeakingSlot, error) {
	var slots []models.SpeakingSlot
	err := s.conn(ctx).
		Preload("Teacher").
		Where("session_id = ?", sessionID).
		Order("slot_date ASC").
		Find(&slots).Error
	return slots, err
}

// ClaimSlot занимает свободный слот одним условным UPDATE.
// При гонке N бронирований строку затронет ровно одно из них.
func (s *gormStore) ClaimSlot(ctx context.Context, id, studentID, sessionID string) (bool, error) {
	res := s.conn(ctx).Model(&models.SpeakingSlot{}).
		Where("id = ? AND status = ?", id, models.SlotAvailable).
		Updates(map[string]interface{}{
			"status":     models.SlotBooked,
			"student_id": studentID,
			"session_id": sessionID,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *gormStore) ReleaseSlot(ctx context.Context, id, sessionID string) (bool, error) {
	res := s.conn(ctx).Model(&models.SpeakingSlot{}).
		Where("id = ? AND session_id = ? AND status = ?", id, sessionID, models.SlotBooked).
		Updates(map[string]interface{}{
			"status":     models.SlotAvailable,
			"student_id": nil,
			"session_id": nil,
			"result":     nil,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *gormStore) CompleteSlot(ctx context.Context, id, sessionID string, result *models.SpeakingResult) (bool, error) {
	res := s.conn(ctx).Model(&models.SpeakingSlot{}).
		Where("id = ? AND session_id = ? AND status = ?", id, sessionID, models.SlotBooked).
		Updates(map[string]interface{}{
			"status": models.SlotCompleted,
			"result": *result,
		})
	return res.RowsAffected > 0, res.Error
}
