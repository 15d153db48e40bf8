package stats_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizzer/internal/domain"
	"github.com/victornm/quizzer/internal/event"
	"github.com/victornm/quizzer/internal/stats"
)

func TestService_Record(t *testing.T) {
	tests := map[string]struct {
		scores []int
		want   domain.QuizStats
	}{
		"never graded": {
			scores: nil,
			want:   domain.QuizStats{QuizID: "q1"},
		},
		"single attempt": {
			scores: []int{67},
			want:   domain.QuizStats{QuizID: "q1", Attempts: 1, AverageScore: 67, BestScore: 67},
		},
		"average is rounded to two places": {
			scores: []int{100, 0, 0},
			want:   domain.QuizStats{QuizID: "q1", Attempts: 3, AverageScore: 33.33, BestScore: 100},
		},
		"best score is kept after a worse attempt": {
			scores: []int{50, 100, 20},
			want:   domain.QuizStats{QuizID: "q1", Attempts: 3, AverageScore: 56.67, BestScore: 100},
		},
		"zero scores still count as attempts": {
			scores: []int{0, 0},
			want:   domain.QuizStats{QuizID: "q1", Attempts: 2, AverageScore: 0, BestScore: 0},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, _ := makeService(t, event.NewBus())
			ctx := context.Background()

			for _, sc := range tt.scores {
				require.NoError(t, s.Record(ctx, "q1", sc))
			}

			got, err := s.Get(ctx, "q1")
			require.NoError(t, err)
			assert.Equal(t, &tt.want, got)
		})
	}
}

func TestService_SubscribesToLifecycleEvents(t *testing.T) {
	eb := event.NewBus()
	s, mr := makeService(t, eb)
	ctx := context.Background()

	eb.Publish(ctx, domain.EventQuizGraded{QuizID: "q1", Result: domain.GradingResult{ScorePercent: 80}})
	eb.Stop()

	got, err := s.Get(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, &domain.QuizStats{QuizID: "q1", Attempts: 1, AverageScore: 80, BestScore: 80}, got)
	assert.True(t, mr.Exists("test:quiz:q1:stats"))

	eb.Publish(ctx, domain.EventQuizDeleted{QuizID: "q1"})
	eb.Stop()

	assert.False(t, mr.Exists("test:quiz:q1:stats"))
	got, err = s.Get(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, &domain.QuizStats{QuizID: "q1"}, got)
}

func TestService_Get_CorruptHash(t *testing.T) {
	s, mr := makeService(t, event.NewBus())
	mr.HSet("test:quiz:q1:stats", "attempts", "many")

	_, err := s.Get(context.Background(), "q1")
	require.Error(t, err)
}

func makeService(t *testing.T, eb *event.Bus) (*stats.Service, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return stats.NewService(stats.Config{
		EventBus: eb,
		Redis:    rdb,
		Prefix:   "test",
	}), mr
}
