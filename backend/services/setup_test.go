package services

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"project/backend/models"
	"project/backend/storage"
)

// newTestStore поднимает sqlite в памяти: те же условные UPDATE и тот
// же частичный индекс, что и на postgres, но без внешней базы.
func newTestStore(t *testing.T) (storage.Store, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// одно соединение, иначе каждая связь пула увидит свою :memory:
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, storage.Migrate(db))
	return storage.NewStore(db), db
}

func seedStudent(t *testing.T, db *gorm.DB, email string) *models.Student {
	t.Helper()
	st := &models.Student{FirstName: "Aisha", LastName: "Karimova", Email: email}
	require.NoError(t, db.Create(st).Error)
	return st
}

func seedTeacher(t *testing.T, db *gorm.DB, email string) *models.Teacher {
	t.Helper()
	tc := &models.Teacher{FirstName: "Elena", LastName: "Petrova", Email: email}
	require.NoError(t, db.Create(tc).Error)
	return tc
}

func seedPlacementTest(t *testing.T, db *gorm.DB) *models.Test {
	t.Helper()
	test := &models.Test{
		Name:            "English Placement",
		TestType:        "PLACEMENT",
		DurationMinutes: 30,
		TotalQuestions:  2,
		IsActive:        true,
	}
	require.NoError(t, db.Create(test).Error)

	questions := []models.TestQuestion{
		{
			ID:            "q1",
			TestID:        test.ID,
			QuestionText:  "I ___ a student.",
			QuestionType:  "MCQ",
			Options:       models.StringList{"am", "is", "are"},
			CorrectAnswer: "am",
			Points:        1,
			OrderNumber:   1,
		},
		{
			ID:            "q2",
			TestID:        test.ID,
			QuestionText:  "She ___ from Spain.",
			QuestionType:  "MCQ",
			Options:       models.StringList{"am", "is", "are"},
			CorrectAnswer: "is",
			Points:        1,
			OrderNumber:   2,
		},
	}
	require.NoError(t, db.Create(&questions).Error)
	return test
}

func seedSession(t *testing.T, db *gorm.DB, studentID, testID string, status models.SessionStatus) *models.TestSession {
	t.Helper()
	sess := &models.TestSession{
		StudentID: studentID,
		TestID:    testID,
		Status:    status,
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(sess).Error)
	return sess
}

func seedSlot(t *testing.T, db *gorm.DB, teacherID string, date time.Time) *models.SpeakingSlot {
	t.Helper()
	slot := &models.SpeakingSlot{
		TeacherID: teacherID,
		SlotDate:  date,
		StartTime: "10:00:00",
		EndTime:   "10:30:00",
		Status:    models.SlotAvailable,
	}
	require.NoError(t, db.Create(slot).Error)
	return slot
}
