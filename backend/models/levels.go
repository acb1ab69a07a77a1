package models

import "fmt"

// Level - уровень CEFR, порядковая шкала от A1 до C2
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

var levelRank = map[Level]int{
	LevelA1: 1,
	LevelA2: 2,
	LevelB1: 3,
	LevelB2: 4,
	LevelC1: 5,
	LevelC2: 6,
}

func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

func (l Level) Rank() int {
	return levelRank[l]
}

// Less сравнивает уровни по порядку шкалы, не по строкам
func (l Level) Less(other Level) bool {
	return levelRank[l] < levelRank[other]
}

func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.Valid() {
		return "", fmt.Errorf("invalid level %q: must be A1, A2, B1, B2, C1 or C2", s)
	}
	return l, nil
}

// Пороговая таблица для перевода процента в уровень.
// Шкала монотонная и покрывает весь диапазон [0, 100].
var levelThresholds = []struct {
	below float64
	level Level
}{
	{20, LevelA1},
	{40, LevelA2},
	{55, LevelB1},
	{70, LevelB2},
	{85, LevelC1},
}

func MapScoreToLevel(scorePercent float64) Level {
	for _, t := range levelThresholds {
		if scorePercent < t.below {
			return t.level
		}
	}
	return LevelC2
}

// SuggestFinalLevel возвращает меньший из двух уровней
func SuggestFinalLevel(a, b Level) Level {
	if b.Less(a) {
		return b
	}
	return a
}
