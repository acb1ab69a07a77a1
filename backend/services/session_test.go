package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project/backend/models"
	"project/backend/storage"
)

func TestStartSession(t *testing.T) {
	store, db := newTestStore(t)
	svc := NewSessionService(store, nil)
	ctx := context.Background()

	student := seedStudent(t, db, "aisha@example.com")
	test := seedPlacementTest(t, db)

	started, err := svc.Start(ctx, student.ID, test.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, started.SessionID)
	assert.Equal(t, models.SessionInProgress, started.Status)
	assert.Equal(t, 30, started.DurationMinutes)
	assert.False(t, started.StartedAt.IsZero())
}

func TestStartSessionUnknownStudent(t *testing.T) {
	store, db := newTestStore(t)
	svc := NewSessionService(store, nil)

	test := seedPlacementTest(t, db)

	_, err := svc.Start(context.Background(), "missing", test.ID)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestStartSessionUnknownOrInactiveTest(t *testing.T) {
	store, db := newTestStore(t)
	svc := NewSessionService(store, nil)
	ctx := context.Background()

	student := seedStudent(t, db, "aisha@example.com")

	_, err := svc.Start(ctx, student.ID, "missing")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)

	inactive := &models.Test{Name: "Old Placement", TestType: "PLACEMENT", IsActive: false}
	require.NoError(t, db.Create(inactive).Error)
	// gorm default:true перекрывает false при Create, выключаем явно
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	_, err = svc.Start(ctx, student.ID, inactive.ID)
	require.ErrorAs(t, err, &nf)
}

func TestStartSessionDuplicateActive(t *testing.T) {
	store, db := newTestStore(t)
	svc := NewSessionService(store, nil)
	ctx := context.Background()

	student := seedStudent(t, db, "aisha@example.com")
	test := seedPlacementTest(t, db)

	_, err := svc.Start(ctx, student.ID, test.ID)
	require.NoError(t, err)

	_, err = svc.Start(ctx, student.ID, test.ID)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, CodeDuplicateActiveSession, conflict.Code)
}

func TestStartSessionConcurrentDoubleClick(t *testing.T) {
	store, db := newTestStore(t)
	svc := NewSessionService(store, nil)
	ctx := context.Background()

	student := seedStudent(t, db, "aisha@example.com")
	test := seedPlacementTest(t, db)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Start(ctx, student.ID, test.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, CodeDuplicateActiveSession, conflict.Code)
	}
	assert.Equal(t, 1, succeeded, "ровно один старт должен пройти")

	var count int64
	require.NoError(t, db.Model(&models.TestSession{}).
		Where("student_id = ?", student.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStartSessionAlreadyTaken(t *testing.T) {
	store, db := newTestStore(t)
	svc := NewSessionService(store, nil)
	ctx := context.Background()

	student := seedStudent(t, db, "aisha@example.com")
	test := seedPlacementTest(t, db)
	seedSession(t, db, student.ID, test.ID, models.SessionFinalResults)

	_, err := svc.Start(ctx, student.ID, test.ID)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, CodeAlreadyTaken, conflict.Code)
}

func TestSessionQuestionsHideCorrectAnswers(t *testing.T) {
	store, db := newTestStore(t)
	svc := NewSessionService(store, nil)
	ctx := context.Background()

	student := seedStudent(t, db, "aisha@example.com")
	test := seedPlacementTest(t, db)
	sess := seedSession(t, db, student.ID, test.ID, models.SessionInProgress)

	got, err := svc.Questions(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Test.Questions, 2)
	assert.Equal(t, "q1", got.Test.Questions[0].ID)
	assert.Equal(t, "q2", got.Test.Questions[1].ID)
	assert.Equal(t, 1, got.Test.Questions[0].OrderNumber)
	// QuestionView вообще не содержит поля correctAnswer
	assert.Equal(t, models.StringList{"am", "is", "are"}, got.Test.Questions[0].Options)
}

func TestSubmitMcq(t *testing.T) {
	store, db := newTestStore(t)
	svc := NewSessionService(store, nil)
	ctx := context.Background()

	student := seedStudent(t, db, "aisha@example.com")
	test := seedPlacementTest(t, db)

	started, err := svc.Start(ctx, student.ID, test.ID)
	require.NoError(t, err)

	res, err := svc.SubmitMcq(ctx, started.SessionID, map[string]string{"q1": "am", "q2": "was"})
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.ScorePercent)
	assert.Equal(t, models.LevelB1, res.SuggestedLevel)
	assert.Equal(t, models.SessionMcqCompleted, res.Status)

	sess, err := store.GetSession(ctx, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionMcqCompleted, sess.Status)
	assert.Equal(t, 50.0, sess.Score)
	require.NotNil(t, sess.Answers)
	assert.Equal(t, 50.0, sess.Answers.ScorePercent)
	require.NotNil(t, sess.CompletedAt)
}

func TestSubmitMcqTwice(t *testing.T) {
	store, db := newTestStore(t)
	svc := NewSessionService(store, nil)
	ctx := context.Background()

	student := seedStudent(t, db, "aisha@example.com")
	test := seedPlacementTest(t, db)

	started, err := svc.Start(ctx, student.ID, test.ID)
	require.NoError(t, err)

	_, err = svc.SubmitMcq(ctx, started.SessionID, map[string]string{"q1": "am"})
	require.NoError(t, err)

	_, err = svc.SubmitMcq(ctx, started.SessionID, map[string]string{"q1": "am", "q2": "is"})
	var state *StateError
	require.ErrorAs(t, err, &state)
}

func TestSubmitMcqRequiresAnswers(t *testing.T) {
	store, _ := newTestStore(t)
	svc := NewSessionService(store, nil)

	_, err := svc.SubmitMcq(context.Background(), "any", nil)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestFinalizeSession(t *testing.T) {
	store, db := newTestStore(t)
	svc := NewSessionService(store, nil)
	ctx := context.Background()

	student := seedStudent(t, db, "aisha@example.com")
	test := seedPlacementTest(t, db)
	sess := seedSession(t, db, student.ID, test.ID, models.SessionSpeakingCompleted)

	level := "B1"
	passed := true
	got, err := svc.Finalize(ctx, sess.ID, FinalizeInput{FinalLevelID: &level, Passed: &passed})
	require.NoError(t, err)
	assert.Equal(t, models.SessionFinalResults, got.Status)
	require.NotNil(t, got.FinalDecision)
	require.NotNil(t, got.FinalDecision.FinalLevelID)
	assert.Equal(t, "B1", *got.FinalDecision.FinalLevelID)
	assert.False(t, got.FinalDecision.FinalizedAt.IsZero())
}

func TestFinalizeWrittenTestFromMcqCompleted(t *testing.T) {
	store, db := newTestStore(t)
	svc := NewSessionService(store, nil)
	ctx := context.Background()

	student := seedStudent(t, db, "aisha@example.com")
	test := seedPlacementTest(t, db)
	sess := seedSession(t, db, student.ID, test.ID, models.SessionMcqCompleted)

	got, err := svc.Finalize(ctx, sess.ID, FinalizeInput{})
	require.NoError(t, err)
	assert.Equal(t, models.SessionFinalResults, got.Status)
}

func TestFinalizeRejectsInProgress(t *testing.T) {
	store, db := newTestStore(t)
	svc := NewSessionService(store, nil)
	ctx := context.Background()

	student := seedStudent(t, db, "aisha@example.com")
	test := seedPlacementTest(t, db)
	sess := seedSession(t, db, student.ID, test.ID, models.SessionInProgress)

	_, err := svc.Finalize(ctx, sess.ID, FinalizeInput{})
	var state *StateError
	require.ErrorAs(t, err, &state)
}

func TestActiveSession(t *testing.T) {
	store, db := newTestStore(t)
	svc := NewSessionService(store, nil)
	ctx := context.Background()

	student := seedStudent(t, db, "aisha@example.com")
	test := seedPlacementTest(t, db)

	_, err := svc.Active(ctx, student.ID)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)

	seeded := seedSession(t, db, student.ID, test.ID, models.SessionMcqCompleted)

	got, err := svc.Active(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, got.ID)
}

func TestLastSessionAbsentIsNotAnError(t *testing.T) {
	store, db := newTestStore(t)
	svc := NewSessionService(store, nil)
	ctx := context.Background()

	student := seedStudent(t, db, "aisha@example.com")
	test := seedPlacementTest(t, db)

	got, err := svc.Last(ctx, student.ID, test.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	seeded := seedSession(t, db, student.ID, test.ID, models.SessionFinalResults)

	got, err = svc.Last(ctx, student.ID, test.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, seeded.ID, got.ID)
}

func TestListSessionsPagination(t *testing.T) {
	store, db := newTestStore(t)
	svc := NewSessionService(store, nil)
	ctx := context.Background()

	test := seedPlacementTest(t, db)
	for i := 0; i < 23; i++ {
		student := seedStudent(t, db, fmt.Sprintf("student%d@example.com", i))
		seedSession(t, db, student.ID, test.ID, models.SessionFinalResults)
	}

	list, err := svc.List(ctx, storage.SessionFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 23, list.Total)
	assert.Equal(t, 3, list.TotalPages)
	assert.Len(t, list.Data, 10)

	list, err = svc.List(ctx, storage.SessionFilter{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list.Data, 3)
}

func TestListSessionsFilters(t *testing.T) {
	store, db := newTestStore(t)
	svc := NewSessionService(store, nil)
	ctx := context.Background()

	test := seedPlacementTest(t, db)
	written := &models.Test{Name: "Written Exam", TestType: "WRITTEN", IsActive: true}
	require.NoError(t, db.Create(written).Error)

	a := seedStudent(t, db, "a@example.com")
	b := seedStudent(t, db, "b@example.com")
	seedSession(t, db, a.ID, test.ID, models.SessionFinalResults)
	seedSession(t, db, b.ID, written.ID, models.SessionMcqCompleted)

	list, err := svc.List(ctx, storage.SessionFilter{Status: string(models.SessionMcqCompleted)})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, b.ID, list.Data[0].StudentID)

	list, err = svc.List(ctx, storage.SessionFilter{TestType: "PLACEMENT"})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, a.ID, list.Data[0].StudentID)

	// предзагруженные связи для админской таблицы
	require.NotNil(t, list.Data[0].Student)
	require.NotNil(t, list.Data[0].Test)
}
