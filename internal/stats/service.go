package stats

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/victornm/quizzer/internal/domain"
	"github.com/victornm/quizzer/internal/event"
)

const (
	fieldAttempts = "attempts"
	fieldScoreSum = "score_sum"
	fieldBest     = "best"
)

// recordScript adds one attempt and keeps the best score as a running max.
var recordScript = redis.NewScript(`
redis.call('HINCRBY', KEYS[1], 'attempts', 1)
redis.call('HINCRBY', KEYS[1], 'score_sum', ARGV[1])
local best = redis.call('HGET', KEYS[1], 'best')
if (not best) or tonumber(ARGV[1]) > tonumber(best) then
	redis.call('HSET', KEYS[1], 'best', ARGV[1])
end
return 1
`)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

type Service struct {
	redis  redis.UniversalClient
	prefix string
}

func NewService(c Config) *Service {
	s := &Service{
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	event.On(c.EventBus, func(ctx context.Context, e domain.EventQuizGraded) error {
		return s.Record(ctx, e.QuizID, e.Result.ScorePercent)
	})
	event.On(c.EventBus, func(ctx context.Context, e domain.EventQuizDeleted) error {
		return s.Reset(ctx, e.QuizID)
	})

	return s
}

// Get returns the aggregated statistics of a quiz. A quiz that was never graded has zero stats.
func (s *Service) Get(ctx context.Context, quizID string) (*domain.QuizStats, error) {
	res, err := s.redis.HGetAll(ctx, s.getStatsKey(quizID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	st := &domain.QuizStats{QuizID: quizID}
	if len(res) == 0 {
		return st, nil
	}

	attempts, err := parseInt(res, fieldAttempts)
	if err != nil {
		return nil, err
	}
	sum, err := parseInt(res, fieldScoreSum)
	if err != nil {
		return nil, err
	}
	best, err := parseInt(res, fieldBest)
	if err != nil {
		return nil, err
	}

	st.Attempts = attempts
	st.BestScore = best
	if attempts > 0 {
		st.AverageScore = decimal.NewFromInt(sum).
			DivRound(decimal.NewFromInt(attempts), 2).
			InexactFloat64()
	}

	return st, nil
}

// Record adds one graded attempt with the given score percentage.
func (s *Service) Record(ctx context.Context, quizID string, score int) error {
	// TODO: retry on error
	if err := recordScript.Run(ctx, s.redis, []string{s.getStatsKey(quizID)}, score).Err(); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}

	return nil
}

// Reset drops every statistic of a quiz.
func (s *Service) Reset(ctx context.Context, quizID string) error {
	if err := s.redis.Del(ctx, s.getStatsKey(quizID)).Err(); err != nil {
		return fmt.Errorf("reset stats: %w", err)
	}

	return nil
}

func (s *Service) getStatsKey(quizID string) string {
	return fmt.Sprintf("%s:quiz:%s:stats", s.prefix, quizID)
}

func parseInt(m map[string]string, field string) (int64, error) {
	v, ok := m[field]
	if !ok {
		return 0, nil
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}

	return n, nil
}
