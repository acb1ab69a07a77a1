package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Типизированные JSON-колонки вместо одного "растущего" документа:
// разбор ответов и финальное решение хранятся отдельно.

type StringList []string

// AnswerRecord - разбор MCQ-части по вопросам, пишется один раз при сдаче
type AnswerRecord struct {
	Type         string                  `json:"type"` // MCQ
	SubmittedAt  time.Time               `json:"submittedAt"`
	TotalPoints  int                     `json:"totalPoints"`
	EarnedPoints int                     `json:"earnedPoints"`
	ScorePercent float64                 `json:"scorePercent"`
	Answers      map[string]AnswerDetail `json:"answers"`
}

type AnswerDetail struct {
	Given   *string `json:"given"` // nil - вопрос пропущен
	Correct string  `json:"correct"`
	Points  int     `json:"points"`
	Earned  int     `json:"earned"`
}

// FinalDecision - итоговое решение, добавляется только при finalize
type FinalDecision struct {
	FinalLevelID   *string   `json:"finalLevelId"`
	Recommendation *string   `json:"recommendation"`
	Passed         *bool     `json:"passed"`
	FinalizedAt    time.Time `json:"finalizedAt"`
}

// SpeakingResult - результат устной части, пишется только при submit-result
type SpeakingResult struct {
	McqLevel       Level  `json:"mcqLevel"`
	SpeakingLevel  Level  `json:"speakingLevel"`
	FinalLevel     Level  `json:"finalLevel"`
	SuggestedLevel Level  `json:"suggestedLevel"`
	OverrideReason string `json:"overrideReason,omitempty"`
	Feedback       string `json:"feedback,omitempty"`
}

func (l StringList) Value() (driver.Value, error)     { return jsonValue(l) }
func (l *StringList) Scan(src interface{}) error      { return jsonScan(src, l) }
func (r AnswerRecord) Value() (driver.Value, error)   { return jsonValue(r) }
func (r *AnswerRecord) Scan(src interface{}) error    { return jsonScan(src, r) }
func (d FinalDecision) Value() (driver.Value, error)  { return jsonValue(d) }
func (d *FinalDecision) Scan(src interface{}) error   { return jsonScan(src, d) }
func (r SpeakingResult) Value() (driver.Value, error) { return jsonValue(r) }
func (r *SpeakingResult) Scan(src interface{}) error  { return jsonScan(src, r) }

func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(src, dst interface{}) error {
	if src == nil {
		return nil
	}
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, dst)
	case string:
		return json.Unmarshal([]byte(data), dst)
	default:
		return errors.New("unsupported json column type")
	}
}
