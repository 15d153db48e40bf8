// Package grading scores quiz attempts against their answer keys.
//
// Grading is a pure function of the quiz and the submitted answers: it never fails, and
// malformed submissions (missing answers, wrong answer shapes, empty answer keys) are graded
// as incorrect.
package grading

import (
	"github.com/shopspring/decimal"

	"github.com/victornm/quizzer/internal/domain"
)

var hundred = decimal.NewFromInt(100)

type Option func(*config)

type config struct {
	strictSets bool
}

// WithStrictSets makes checkbox questions compare deduplicated sets, so a submission that
// repeats one correct value is no longer accepted in place of two distinct values.
func WithStrictSets() Option {
	return func(c *config) { c.strictSets = true }
}

// Grader grades attempts. The zero value uses length-plus-containment for checkbox questions.
type Grader struct {
	c config
}

func New(opts ...Option) *Grader {
	g := &Grader{}
	for _, opt := range opts {
		opt(&g.c)
	}
	return g
}

// Grade scores answers against quiz. Answers are matched to questions by question id; an
// unanswered question is incorrect and answers for unknown ids are ignored. When the same id
// is answered more than once, the last answer wins.
func (g *Grader) Grade(quiz domain.Quiz, answers []domain.Answer) domain.GradingResult {
	byID := make(map[string]domain.AnswerValue, len(answers))
	for _, a := range answers {
		byID[a.QuestionID] = a.Answer
	}

	res := domain.GradingResult{
		TotalQuestions: len(quiz.Questions),
		PerQuestion:    make([]domain.QuestionResult, 0, len(quiz.Questions)),
		Answers:        make([]domain.Answer, 0, len(quiz.Questions)),
	}

	for _, q := range quiz.Questions {
		v, ok := byID[q.ID]
		if !ok {
			v = domain.EmptyAnswer(q.Type)
		}

		correct := ok && g.isCorrect(q, v)
		if correct {
			res.CorrectCount++
		}

		res.PerQuestion = append(res.PerQuestion, domain.QuestionResult{QuestionID: q.ID, IsCorrect: correct})
		res.Answers = append(res.Answers, domain.Answer{QuestionID: q.ID, Answer: v})
	}

	res.ScorePercent = ScorePercent(res.CorrectCount, res.TotalQuestions)
	return res
}

// Grade scores answers with the default Grader.
func Grade(quiz domain.Quiz, answers []domain.Answer) domain.GradingResult {
	return New().Grade(quiz, answers)
}

// IsCorrect reports whether v answers q correctly.
func (g *Grader) IsCorrect(q domain.Question, v domain.AnswerValue) bool {
	return g.isCorrect(q, v)
}

func (g *Grader) isCorrect(q domain.Question, v domain.AnswerValue) bool {
	switch q.Type {
	case domain.QuestionTypeBoolean, domain.QuestionTypeInput:
		if v.IsList || len(q.CorrectAnswers) == 0 {
			return false
		}
		return v.Single == q.CorrectAnswers[0]

	case domain.QuestionTypeCheckbox:
		if !v.IsList || len(q.CorrectAnswers) == 0 {
			return false
		}
		if g.c.strictSets {
			return setsEqual(v.Multi, q.CorrectAnswers)
		}
		return len(v.Multi) == len(q.CorrectAnswers) && containsAll(q.CorrectAnswers, v.Multi)

	default:
		return false
	}
}

// ScorePercent returns correct/total as a percentage rounded half up, or 0 when total is 0.
func ScorePercent(correct, total int) int {
	if total <= 0 {
		return 0
	}

	p := decimal.NewFromInt(int64(correct)).
		Mul(hundred).
		DivRound(decimal.NewFromInt(int64(total)), 8).
		Round(0)

	return int(p.IntPart())
}

func containsAll(set, values []string) bool {
	s := toSet(set)
	for _, v := range values {
		if _, ok := s[v]; !ok {
			return false
		}
	}
	return true
}

func setsEqual(a, b []string) bool {
	sa, sb := toSet(a), toSet(b)
	if len(sa) != len(sb) {
		return false
	}
	for k := range sa {
		if _, ok := sb[k]; !ok {
			return false
		}
	}
	return true
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}
