// Package cli is the terminal front end: it lists quizzes and walks a person through taking one.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/victornm/quizzer/internal/domain"
	"github.com/victornm/quizzer/internal/grading"
)

type API interface {
	ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error)
	GetQuiz(ctx context.Context, id string) (*domain.Quiz, error)
	Grade(ctx context.Context, id string, answers []domain.Answer) (*domain.GradingResult, error)
}

type Config struct {
	API    API
	Grader *grading.Grader
	In     io.Reader
	Out    io.Writer
}

type App struct {
	api    API
	grader *grading.Grader
	in     *bufio.Scanner
	out    io.Writer
}

func New(c Config) *App {
	a := &App{
		api:    c.API,
		grader: c.Grader,
		in:     bufio.NewScanner(c.In),
		out:    c.Out,
	}
	if a.grader == nil {
		a.grader = grading.New()
	}
	return a
}

// List prints every quiz, newest first.
func (a *App) List(ctx context.Context) error {
	quizzes, err := a.api.ListQuizzes(ctx)
	if err != nil {
		return fmt.Errorf("list quizzes: %w", err)
	}

	if len(quizzes) == 0 {
		fmt.Fprintln(a.out, "No quizzes yet.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tQUESTIONS\tCREATED")
	for _, q := range quizzes {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", q.ID, q.Title, q.QuestionCount, q.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

// Take runs the interactive take-quiz loop until the person quits or input ends.
func (a *App) Take(ctx context.Context, id string) error {
	q, err := a.api.GetQuiz(ctx, id)
	if err != nil {
		return fmt.Errorf("get quiz: %w", err)
	}

	at := a.grader.NewAttempt(*q)
	fmt.Fprintf(a.out, "%s (%d questions)\n", q.Title, len(q.Questions))
	fmt.Fprintln(a.out, helpText)
	a.show(at)

	for a.in.Scan() {
		cmd, arg, _ := strings.Cut(a.in.Text(), " ")

		switch strings.ToLower(strings.TrimSpace(cmd)) {
		case "":
			continue
		case "next", "n":
			if !at.Next() {
				fmt.Fprintln(a.out, "This is the last question.")
			}
		case "prev", "p":
			if !at.Previous() {
				fmt.Fprintln(a.out, "This is the first question.")
			}
		case "answer", "a":
			if err := a.answer(at, arg); err != nil {
				fmt.Fprintln(a.out, err)
				continue
			}
		case "submit", "s":
			a.submit(ctx, at)
			continue
		case "retake", "r":
			at.Retake()
			fmt.Fprintln(a.out, "Answers cleared.")
		case "quit", "q":
			return nil
		case "help", "h", "?":
			fmt.Fprintln(a.out, helpText)
			continue
		default:
			fmt.Fprintf(a.out, "Unknown command %q.\n%s\n", cmd, helpText)
			continue
		}

		a.show(at)
	}

	return a.in.Err()
}

const helpText = "Commands: next, prev, answer <value>[,<value>...], submit, retake, quit"

func (a *App) show(at *grading.Attempt) {
	q, ok := at.Current()
	if !ok {
		fmt.Fprintln(a.out, "This quiz has no questions.")
		return
	}

	fmt.Fprintf(a.out, "\n[%d/%d] (%s) %s\n", at.Index()+1, len(at.Quiz().Questions), q.Type, q.Text)
	for _, o := range q.Options {
		fmt.Fprintf(a.out, "  - %s\n", o)
	}
	fmt.Fprintf(a.out, "Your answer: %s\n", formatAnswer(at.AnswerOf(q.ID)))
}

func (a *App) answer(at *grading.Attempt, arg string) error {
	q, ok := at.Current()
	if !ok {
		return fmt.Errorf("nothing to answer")
	}

	v, err := parseAnswer(q, arg)
	if err != nil {
		return err
	}

	return at.Answer(q.ID, v)
}

// parseAnswer reads a checkbox answer as a comma separated list. Boolean and checkbox values
// must be among the question's options; input answers are taken verbatim.
func parseAnswer(q domain.Question, arg string) (domain.AnswerValue, error) {
	switch q.Type {
	case domain.QuestionTypeCheckbox:
		vals := make([]string, 0)
		for _, v := range strings.Split(arg, ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if len(q.Options) > 0 && !slices.Contains(q.Options, v) {
				return domain.AnswerValue{}, fmt.Errorf("%q is not an option, choose from: %s", v, strings.Join(q.Options, ", "))
			}
			vals = append(vals, v)
		}
		return domain.MultiAnswer(vals...), nil

	case domain.QuestionTypeBoolean:
		v := strings.TrimSpace(arg)
		if len(q.Options) > 0 && !slices.Contains(q.Options, v) {
			return domain.AnswerValue{}, fmt.Errorf("%q is not an option, choose from: %s", v, strings.Join(q.Options, ", "))
		}
		return domain.SingleAnswer(v), nil

	default:
		return domain.SingleAnswer(arg), nil
	}
}

// submit grades locally for the review and records the attempt on the server. The server's
// result is shown when it is reachable.
func (a *App) submit(ctx context.Context, at *grading.Attempt) {
	res := at.Submit()

	remote, err := a.api.Grade(ctx, at.Quiz().ID, at.Answers())
	if err != nil {
		slog.WarnContext(ctx, "cli: record attempt failed", "quiz_id", at.Quiz().ID, "error", err)
		fmt.Fprintln(a.out, "(could not record the attempt on the server, showing local result)")
	} else {
		res = *remote
	}

	a.review(at.Quiz(), res)
	fmt.Fprintln(a.out, "Type retake to try again or quit to leave.")
}

func (a *App) review(q domain.Quiz, res domain.GradingResult) {
	fmt.Fprintf(a.out, "\nScore: %d%% (%d of %d correct)\n", res.ScorePercent, res.CorrectCount, res.TotalQuestions)

	correct := make(map[string]bool, len(res.PerQuestion))
	for _, pq := range res.PerQuestion {
		correct[pq.QuestionID] = pq.IsCorrect
	}
	given := make(map[string]domain.AnswerValue, len(res.Answers))
	for _, ans := range res.Answers {
		given[ans.QuestionID] = ans.Answer
	}

	for i, qs := range q.Questions {
		mark := "wrong"
		if correct[qs.ID] {
			mark = "correct"
		}
		fmt.Fprintf(a.out, "%d. %s [%s]\n", i+1, qs.Text, mark)
		fmt.Fprintf(a.out, "   your answer: %s\n", formatAnswer(given[qs.ID]))
		if !correct[qs.ID] {
			fmt.Fprintf(a.out, "   expected:    %s\n", expected(qs))
		}
	}
}

func expected(q domain.Question) string {
	if len(q.CorrectAnswers) == 0 {
		return "(none)"
	}
	if q.Type == domain.QuestionTypeCheckbox {
		return strings.Join(q.CorrectAnswers, ", ")
	}
	return q.CorrectAnswers[0]
}

func formatAnswer(v domain.AnswerValue) string {
	if v.IsList {
		if len(v.Multi) == 0 {
			return "(none)"
		}
		return strings.Join(v.Multi, ", ")
	}
	if v.Single == "" {
		return "(none)"
	}
	return v.Single
}
