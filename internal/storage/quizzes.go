package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/victornm/quizzer/internal/domain"
	"github.com/victornm/quizzer/internal/errors"
)

// SQLStore keeps quizzes in any database/sql backend that understands $N placeholders.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create inserts the quiz and all of its questions atomically. Ids and timestamps must
// already be set.
func (s *SQLStore) Create(ctx context.Context, q *domain.Quiz) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback())
		}
	}()

	const (
		insQuizStmt     = `INSERT INTO quizzes (id, title, created_at, updated_at) VALUES ($1, $2, $3, $4);`
		insQuestionStmt = `INSERT INTO questions (id, quiz_id, position, text, type, options_json, correct_answers_json) VALUES ($1, $2, $3, $4, $5, $6, $7);`
	)

	_, err = tx.ExecContext(ctx, insQuizStmt, q.ID, q.Title, q.CreatedAt.UnixNano(), q.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}

	for i, qs := range q.Questions {
		var opts, correct []byte
		if opts, err = marshalList(qs.Options); err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		if correct, err = marshalList(qs.CorrectAnswers); err != nil {
			return fmt.Errorf("encode correct answers: %w", err)
		}

		_, err = tx.ExecContext(ctx, insQuestionStmt, qs.ID, q.ID, i, qs.Text, string(qs.Type), string(opts), string(correct))
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
	}

	return tx.Commit()
}

// List returns every quiz summary, newest first.
func (s *SQLStore) List(ctx context.Context) ([]domain.QuizSummary, error) {
	const stmt = `
		SELECT q.id, q.title, q.created_at, q.updated_at, COUNT(qs.id)
		FROM quizzes q
		LEFT JOIN questions qs ON qs.quiz_id = q.id
		GROUP BY q.id, q.title, q.created_at, q.updated_at
		ORDER BY q.created_at DESC, q.id DESC;`

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.QuizSummary, 0)
	for rows.Next() {
		var (
			sum                  domain.QuizSummary
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &createdAt, &updatedAt, &sum.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		sum.CreatedAt = fromNanos(createdAt)
		sum.UpdatedAt = fromNanos(updatedAt)
		out = append(out, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quizzes: %w", err)
	}

	return out, nil
}

// Get returns the quiz with its questions in authoring order, or an error wrapping
// errors.ErrNotFound.
func (s *SQLStore) Get(ctx context.Context, id string) (*domain.Quiz, error) {
	const (
		selQuizStmt      = `SELECT id, title, created_at, updated_at FROM quizzes WHERE id = $1;`
		selQuestionsStmt = `SELECT id, text, type, options_json, correct_answers_json FROM questions WHERE quiz_id = $1 ORDER BY position ASC;`
	)

	var (
		q                    domain.Quiz
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, selQuizStmt, id).Scan(&q.ID, &q.Title, &createdAt, &updatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("quiz %s: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select quiz: %w", err)
	}
	q.CreatedAt = fromNanos(createdAt)
	q.UpdatedAt = fromNanos(updatedAt)

	rows, err := s.db.QueryContext(ctx, selQuestionsStmt, id)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	q.Questions = make([]domain.Question, 0)
	for rows.Next() {
		var (
			qs            domain.Question
			typ           string
			opts, correct string
		)
		if err := rows.Scan(&qs.ID, &qs.Text, &typ, &opts, &correct); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		qs.Type = domain.QuestionType(typ)
		if qs.Options, err = unmarshalList(opts); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
		if qs.CorrectAnswers, err = unmarshalList(correct); err != nil {
			return nil, fmt.Errorf("decode correct answers: %w", err)
		}
		q.Questions = append(q.Questions, qs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	return &q, nil
}

// Delete removes the quiz and all of its questions, or returns an error wrapping
// errors.ErrNotFound when no such quiz exists.
func (s *SQLStore) Delete(ctx context.Context, id string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback())
		}
	}()

	const (
		delQuestionsStmt = `DELETE FROM questions WHERE quiz_id = $1;`
		delQuizStmt      = `DELETE FROM quizzes WHERE id = $1;`
	)

	// Questions are removed explicitly too: the cascade only fires where foreign keys are enforced.
	if _, err = tx.ExecContext(ctx, delQuestionsStmt, id); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}

	res, err := tx.ExecContext(ctx, delQuizStmt, id)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("quiz %s: %w", id, errors.ErrNotFound)
	}

	return tx.Commit()
}

func marshalList(v []string) ([]byte, error) {
	if v == nil {
		v = []string{}
	}
	return json.Marshal(v)
}

func unmarshalList(s string) ([]string, error) {
	out := make([]string, 0)
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
