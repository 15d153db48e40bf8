package grading

import (
	"fmt"

	"github.com/victornm/quizzer/internal/domain"
)

// Attempt is the state of one person taking a quiz: the answer given to each question, the
// question currently shown, and the result once submitted. An Attempt is not safe for
// concurrent use.
type Attempt struct {
	g       *Grader
	quiz    domain.Quiz
	answers map[string]domain.AnswerValue
	current int
	result  *domain.GradingResult
}

// NewAttempt starts an attempt on quiz with every answer set to its type's empty value.
func (g *Grader) NewAttempt(quiz domain.Quiz) *Attempt {
	a := &Attempt{g: g, quiz: quiz}
	a.reset()
	return a
}

func (a *Attempt) reset() {
	a.answers = make(map[string]domain.AnswerValue, len(a.quiz.Questions))
	for _, q := range a.quiz.Questions {
		a.answers[q.ID] = domain.EmptyAnswer(q.Type)
	}
	a.current = 0
	a.result = nil
}

func (a *Attempt) Quiz() domain.Quiz {
	return a.quiz
}

// Index returns the position of the current question.
func (a *Attempt) Index() int {
	return a.current
}

// Current returns the question being shown, or false when the quiz has no questions.
func (a *Attempt) Current() (domain.Question, bool) {
	if a.current < 0 || a.current >= len(a.quiz.Questions) {
		return domain.Question{}, false
	}
	return a.quiz.Questions[a.current], true
}

// Next moves to the following question. It reports false on the last question.
func (a *Attempt) Next() bool {
	if a.current >= len(a.quiz.Questions)-1 {
		return false
	}
	a.current++
	return true
}

// Previous moves to the preceding question. It reports false on the first question.
func (a *Attempt) Previous() bool {
	if a.current <= 0 {
		return false
	}
	a.current--
	return true
}

// Answer records v as the answer to the question with the given id.
func (a *Attempt) Answer(questionID string, v domain.AnswerValue) error {
	if _, ok := a.answers[questionID]; !ok {
		return fmt.Errorf("attempt: unknown question %q", questionID)
	}
	a.answers[questionID] = v
	return nil
}

// AnswerOf returns the answer currently recorded for a question.
func (a *Attempt) AnswerOf(questionID string) domain.AnswerValue {
	return a.answers[questionID]
}

// Answers returns the recorded answers in question order.
func (a *Attempt) Answers() []domain.Answer {
	out := make([]domain.Answer, 0, len(a.quiz.Questions))
	for _, q := range a.quiz.Questions {
		out = append(out, domain.Answer{QuestionID: q.ID, Answer: a.answers[q.ID]})
	}
	return out
}

// Submit grades the recorded answers and keeps the result for review.
func (a *Attempt) Submit() domain.GradingResult {
	res := a.g.Grade(a.quiz, a.Answers())
	a.result = &res
	return res
}

// Result returns the last submitted result, if any.
func (a *Attempt) Result() (domain.GradingResult, bool) {
	if a.result == nil {
		return domain.GradingResult{}, false
	}
	return *a.result, true
}

// Retake clears every answer to its type's empty value and returns to the first question.
func (a *Attempt) Retake() {
	a.reset()
}
