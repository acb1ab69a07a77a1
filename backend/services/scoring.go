package services

import (
	"math"
	"strings"
	"time"

	"project/backend/models"
)

// GradeMcq оценивает ответы по банку вопросов теста.
// Ответ засчитывается при точном совпадении строк после обрезки
// пробелов, с учётом регистра. Пропущенный вопрос даёт 0 баллов.
func GradeMcq(questions []models.TestQuestion, answers map[string]string) *models.AnswerRecord {
	rec := &models.AnswerRecord{
		Type:        "MCQ",
		SubmittedAt: time.Now().UTC(),
		Answers:     make(map[string]models.AnswerDetail, len(questions)),
	}

	for _, q := range questions {
		rec.TotalPoints += q.Points

		var given *string
		if a, ok := answers[q.ID]; ok {
			given = &a
		}
		correct := given != nil && strings.TrimSpace(*given) == strings.TrimSpace(q.CorrectAnswer)
		earned := 0
		if correct {
			earned = q.Points
		}
		rec.EarnedPoints += earned

		rec.Answers[q.ID] = models.AnswerDetail{
			Given:   given,
			Correct: q.CorrectAnswer,
			Points:  q.Points,
			Earned:  earned,
		}
	}

	if rec.TotalPoints > 0 {
		rec.ScorePercent = round2(float64(rec.EarnedPoints) / float64(rec.TotalPoints) * 100)
	}
	return rec
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
