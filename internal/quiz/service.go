package quiz

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/quizzer/internal/domain"
	"github.com/victornm/quizzer/internal/errors"
	"github.com/victornm/quizzer/internal/event"
	"github.com/victornm/quizzer/internal/grading"
	"github.com/victornm/quizzer/internal/validation"
)

// Store persists quizzes. Get and Delete return an error wrapping errors.ErrNotFound for
// unknown ids.
type Store interface {
	Create(ctx context.Context, q *domain.Quiz) error
	List(ctx context.Context) ([]domain.QuizSummary, error)
	Get(ctx context.Context, id string) (*domain.Quiz, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type Cache interface {
	Get(ctx context.Context, id string) (*domain.Quiz, bool, error)
	Set(ctx context.Context, q *domain.Quiz) error
	Delete(ctx context.Context, id string) error
}

type StatsReader interface {
	Get(ctx context.Context, quizID string) (*domain.QuizStats, error)
}

type Config struct {
	Store     Store
	Cache     Cache
	Stats     StatsReader
	EventBus  *event.Bus
	Validator *validation.Validator
	Grader    *grading.Grader
	Now       func() time.Time
}

type Service struct {
	store     Store
	cache     Cache
	stats     StatsReader
	eb        *event.Bus
	validator *validation.Validator
	grader    *grading.Grader
	now       func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		store:     c.Store,
		cache:     c.Cache,
		stats:     c.Stats,
		eb:        c.EventBus,
		validator: c.Validator,
		grader:    c.Grader,
		now:       c.Now,
	}

	if s.validator == nil {
		s.validator = validation.New()
	}
	if s.grader == nil {
		s.grader = grading.New()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}

	return s
}

// Create validates a create-quiz payload and stores the quiz with all of its questions.
func (s *Service) Create(ctx context.Context, body []byte) (*domain.Quiz, error) {
	draft, err := s.validator.ValidateCreateQuiz(body)
	if err != nil {
		return nil, err
	}

	q, err := s.newQuiz(draft)
	if err != nil {
		return nil, s.persistenceError(ctx, "Error creating quiz", err)
	}

	if err := s.store.Create(ctx, q); err != nil {
		return nil, s.persistenceError(ctx, "Error creating quiz", err)
	}

	slog.InfoContext(ctx, "quiz: created", "quiz_id", q.ID, "questions", len(q.Questions))
	s.eb.Publish(ctx, domain.EventQuizCreated{Quiz: q.Summary()})

	return q, nil
}

func (s *Service) newQuiz(d domain.QuizDraft) (*domain.Quiz, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate quiz ID: %w", err)
	}

	now := s.now()
	q := &domain.Quiz{
		ID:        id.String(),
		Title:     d.Title,
		Questions: make([]domain.Question, 0, len(d.Questions)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, qd := range d.Questions {
		qid, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate question ID: %w", err)
		}

		q.Questions = append(q.Questions, domain.Question{
			ID:             qid.String(),
			Text:           qd.Text,
			Type:           qd.Type,
			Options:        qd.Options,
			CorrectAnswers: qd.CorrectAnswers,
		})
	}

	return q, nil
}

// List returns the summaries of all quizzes, newest first.
func (s *Service) List(ctx context.Context) ([]domain.QuizSummary, error) {
	res, err := s.store.List(ctx)
	if err != nil {
		return nil, s.persistenceError(ctx, "Problem with getting quizzes list", err)
	}

	if res == nil {
		res = []domain.QuizSummary{}
	}
	domain.SortSummaries(res)

	return res, nil
}

// Get returns a quiz with its questions in authoring order.
func (s *Service) Get(ctx context.Context, id string) (*domain.Quiz, error) {
	if s.cache != nil {
		q, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "quiz: read cache failed", "quiz_id", id, "error", err)
		}
		if ok {
			return q, nil
		}
	}

	q, err := s.store.Get(ctx, id)
	if stderrors.Is(err, errors.ErrNotFound) {
		return nil, notFound(id, err)
	}
	if err != nil {
		return nil, s.persistenceError(ctx, "Problem with getting quiz", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, q); err != nil {
			slog.ErrorContext(ctx, "quiz: write cache failed", "quiz_id", id, "error", err)
		}
	}

	return q, nil
}

// Delete removes a quiz and all of its questions.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	if stderrors.Is(err, errors.ErrNotFound) {
		return notFound(id, err)
	}
	if err != nil {
		return s.persistenceError(ctx, "Problem with deleting quiz", err)
	}

	// The quiz.deleted subscriber evicts again if this call fails.
	if s.cache != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			slog.ErrorContext(ctx, "quiz: evict cache failed", "quiz_id", id, "error", err)
		}
	}

	slog.InfoContext(ctx, "quiz: deleted", "quiz_id", id)
	s.eb.Publish(ctx, domain.EventQuizDeleted{QuizID: id})

	return nil
}

// Grade scores an attempt on the quiz with the given id.
func (s *Service) Grade(ctx context.Context, id string, answers []domain.Answer) (*domain.GradingResult, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	res := s.grader.Grade(*q, answers)
	s.eb.Publish(ctx, domain.EventQuizGraded{QuizID: id, Result: res})

	return &res, nil
}

// Stats returns the attempt statistics of an existing quiz.
func (s *Service) Stats(ctx context.Context, id string) (*domain.QuizStats, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	if s.stats == nil {
		return &domain.QuizStats{QuizID: id}, nil
	}

	st, err := s.stats.Get(ctx, id)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("get stats: %w", err))
	}

	return st, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (*Service) persistenceError(ctx context.Context, msg string, err error) error {
	slog.ErrorContext(ctx, "quiz: "+msg, "error", err)
	return errors.New(errors.CodePersistence, errors.WithMessagef("%s", msg), errors.WithCause(err))
}

func notFound(id string, err error) error {
	return errors.New(errors.CodeNotFound,
		errors.WithMessagef("Quiz with ID %s not found", id),
		errors.WithCause(err),
	)
}
