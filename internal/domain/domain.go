package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// QuestionType is the closed set of supported question kinds.
type QuestionType string

const (
	QuestionTypeBoolean  QuestionType = "boolean"
	QuestionTypeInput    QuestionType = "input"
	QuestionTypeCheckbox QuestionType = "checkbox"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeBoolean, QuestionTypeInput, QuestionTypeCheckbox:
		return true
	}
	return false
}

// Quiz is a titled, ordered list of questions. A quiz owns its questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Question belongs to exactly one quiz. For boolean and input questions only
// CorrectAnswers[0] is authoritative.
type Question struct {
	ID             string       `json:"id"`
	Text           string       `json:"text"`
	Type           QuestionType `json:"type"`
	Options        []string     `json:"options"`
	CorrectAnswers []string     `json:"correctAnswers"`
}

// QuizDraft is a validated authoring payload that has not been persisted yet.
type QuizDraft struct {
	Title     string
	Questions []QuestionDraft
}

type QuestionDraft struct {
	Text           string
	Type           QuestionType
	Options        []string
	CorrectAnswers []string
}

// QuizSummary is the listing projection of a quiz.
type QuizSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	QuestionCount int       `json:"questionCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (q Quiz) Summary() QuizSummary {
	return QuizSummary{
		ID:            q.ID,
		Title:         q.Title,
		QuestionCount: len(q.Questions),
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

// SortSummaries orders summaries newest first. Ties on creation time are broken by ID
// descending, which keeps time-ordered UUIDv7 ids in creation order.
func SortSummaries(s []QuizSummary) {
	sort.SliceStable(s, func(i, j int) bool {
		if !s[i].CreatedAt.Equal(s[j].CreatedAt) {
			return s[i].CreatedAt.After(s[j].CreatedAt)
		}
		return s[i].ID > s[j].ID
	})
}

// AnswerValue holds either a single string (boolean, input) or a list of strings (checkbox).
type AnswerValue struct {
	Single string
	Multi  []string
	IsList bool
}

func SingleAnswer(s string) AnswerValue {
	return AnswerValue{Single: s}
}

func MultiAnswer(v ...string) AnswerValue {
	if v == nil {
		v = []string{}
	}
	return AnswerValue{Multi: v, IsList: true}
}

// EmptyAnswer returns the type-appropriate empty value: "" or an empty list for checkbox.
func EmptyAnswer(t QuestionType) AnswerValue {
	if t == QuestionTypeCheckbox {
		return MultiAnswer()
	}
	return SingleAnswer("")
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v.IsList {
		if v.Multi == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Multi)
	}
	return json.Marshal(v.Single)
}

func (v *AnswerValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var m []string
		if err := json.Unmarshal(b, &m); err != nil {
			return fmt.Errorf("answer: %w", err)
		}
		*v = MultiAnswer(m...)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("answer must be a string or a list of strings: %w", err)
	}
	*v = SingleAnswer(s)
	return nil
}

// Answer is a quiz taker's response to one question. It is never persisted.
type Answer struct {
	QuestionID string      `json:"questionId"`
	Answer     AnswerValue `json:"answer"`
}

type QuestionResult struct {
	QuestionID string `json:"questionId"`
	IsCorrect  bool   `json:"isCorrect"`
}

// GradingResult is the outcome of grading one attempt. Answers are kept for review.
type GradingResult struct {
	TotalQuestions int              `json:"totalQuestions"`
	CorrectCount   int              `json:"correctCount"`
	ScorePercent   int              `json:"scorePercent"`
	PerQuestion    []QuestionResult `json:"perQuestion"`
	Answers        []Answer         `json:"answers"`
}

// QuizStats aggregates graded attempts of a quiz.
type QuizStats struct {
	QuizID       string  `json:"quizId"`
	Attempts     int64   `json:"attempts"`
	AverageScore float64 `json:"averageScore"`
	BestScore    int64   `json:"bestScore"`
}
