package cli_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizzer/internal/cli"
	"github.com/victornm/quizzer/internal/domain"
	"github.com/victornm/quizzer/internal/grading"
)

func TestApp_Take(t *testing.T) {
	tests := map[string]struct {
		input     string
		gradeErr  error
		wantOut   []string
		notWant   []string
		wantGrade int
	}{
		"answer everything and submit": {
			input: "answer Yes\nnext\nanswer Lima, Quito\nsubmit\nquit\n",
			wantOut: []string{
				"Capitals (2 questions)",
				"[1/2] (boolean) Is Paris the capital of France?",
				"[2/2] (checkbox) Pick capitals",
				"Your answer: Lima, Quito",
				"Score: 100% (2 of 2 correct)",
			},
			notWant:   []string{"expected:"},
			wantGrade: 1,
		},
		"wrong answers show the expected values": {
			input: "answer No\nsubmit\nquit\n",
			wantOut: []string{
				"Score: 0% (0 of 2 correct)",
				"1. Is Paris the capital of France? [wrong]",
				"   your answer: No",
				"   expected:    Yes",
				"   your answer: (none)",
				"   expected:    Lima, Quito",
			},
			wantGrade: 1,
		},
		"options are enforced": {
			input:   "answer Maybe\nnext\nanswer Lima,Paris\nquit\n",
			wantOut: []string{`"Maybe" is not an option, choose from: Yes, No`, `"Paris" is not an option`},
		},
		"navigation stops at both ends": {
			input:   "prev\nnext\nnext\nquit\n",
			wantOut: []string{"This is the first question.", "This is the last question."},
		},
		"retake clears answers": {
			input:     "answer Yes\nsubmit\nretake\nsubmit\nquit\n",
			wantOut:   []string{"Score: 50% (1 of 2 correct)", "Answers cleared.", "Score: 0% (0 of 2 correct)"},
			wantGrade: 2,
		},
		"local result when the server is unreachable": {
			input:     "answer Yes\nsubmit\n",
			gradeErr:  fmt.Errorf("connection refused"),
			wantOut:   []string{"could not record the attempt", "Score: 50% (1 of 2 correct)"},
			wantGrade: 1,
		},
		"unknown command prints help": {
			input:   "jump\n",
			wantOut: []string{`Unknown command "jump"`, "Commands: next, prev"},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			api := &fakeAPI{quiz: capitals(), gradeErr: tt.gradeErr}
			var out bytes.Buffer
			app := cli.New(cli.Config{API: api, In: strings.NewReader(tt.input), Out: &out})

			require.NoError(t, app.Take(context.Background(), "quiz"))

			for _, w := range tt.wantOut {
				assert.Contains(t, out.String(), w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, out.String(), w)
			}
			assert.Equal(t, tt.wantGrade, api.grades)
		})
	}
}

func TestApp_Take_UnknownQuiz(t *testing.T) {
	api := &fakeAPI{}
	app := cli.New(cli.Config{API: api, In: strings.NewReader(""), Out: &bytes.Buffer{}})

	require.Error(t, app.Take(context.Background(), "nope"))
}

func TestApp_List(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	api := &fakeAPI{list: []domain.QuizSummary{
		{ID: "b", Title: "Rivers", QuestionCount: 4, CreatedAt: at},
		{ID: "a", Title: "Capitals", QuestionCount: 2, CreatedAt: at},
	}}

	var out bytes.Buffer
	app := cli.New(cli.Config{API: api, Out: &out})
	require.NoError(t, app.List(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "TITLE")
	assert.Contains(t, lines[1], "Rivers")
	assert.Contains(t, lines[2], "Capitals")
}

func TestApp_List_Empty(t *testing.T) {
	var out bytes.Buffer
	app := cli.New(cli.Config{API: &fakeAPI{}, Out: &out})

	require.NoError(t, app.List(context.Background()))
	assert.Equal(t, "No quizzes yet.\n", out.String())
}

type fakeAPI struct {
	quiz     *domain.Quiz
	list     []domain.QuizSummary
	gradeErr error
	grades   int
}

func (f *fakeAPI) ListQuizzes(context.Context) ([]domain.QuizSummary, error) {
	return f.list, nil
}

func (f *fakeAPI) GetQuiz(_ context.Context, id string) (*domain.Quiz, error) {
	if f.quiz == nil || f.quiz.ID != id {
		return nil, fmt.Errorf("quiz %s not found", id)
	}
	return f.quiz, nil
}

func (f *fakeAPI) Grade(_ context.Context, _ string, answers []domain.Answer) (*domain.GradingResult, error) {
	f.grades++
	if f.gradeErr != nil {
		return nil, f.gradeErr
	}
	res := grading.Grade(*f.quiz, answers)
	return &res, nil
}

func capitals() *domain.Quiz {
	return &domain.Quiz{
		ID:    "quiz",
		Title: "Capitals",
		Questions: []domain.Question{
			{ID: "q1", Text: "Is Paris the capital of France?", Type: domain.QuestionTypeBoolean, Options: []string{"Yes", "No"}, CorrectAnswers: []string{"Yes"}},
			{ID: "q2", Text: "Pick capitals", Type: domain.QuestionTypeCheckbox, Options: []string{"Lima", "Quito", "Sydney"}, CorrectAnswers: []string{"Lima", "Quito"}},
		},
	}
}
