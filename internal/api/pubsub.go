package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/quizzer/internal/domain"
)

const maxConcurrent = 100

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	QuizGraded struct {
		QuizID         string `json:"quizId"`
		TotalQuestions int    `json:"totalQuestions"`
		CorrectCount   int    `json:"correctCount"`
		ScorePercent   int    `json:"scorePercent"`
	}

	QuizDeleted struct {
		QuizID string `json:"quizId"`
	}
)

// PublishQuizCreated announces a new quiz on the quiz list channel.
func (a *API) PublishQuizCreated(ctx context.Context, e domain.EventQuizCreated) error {
	return a.fanOut(ctx, e.Name(), e.Quiz, a.listChannel())
}

// PublishQuizDeleted announces the deletion to list watchers and to anyone watching the quiz.
func (a *API) PublishQuizDeleted(ctx context.Context, e domain.EventQuizDeleted) error {
	return a.fanOut(ctx, e.Name(), QuizDeleted{QuizID: e.QuizID}, a.listChannel(), a.quizChannel(e.QuizID))
}

// PublishQuizGraded announces an attempt's score without the submitted answers.
func (a *API) PublishQuizGraded(ctx context.Context, e domain.EventQuizGraded) error {
	data := QuizGraded{
		QuizID:         e.QuizID,
		TotalQuestions: e.Result.TotalQuestions,
		CorrectCount:   e.Result.CorrectCount,
		ScorePercent:   e.Result.ScorePercent,
	}

	return a.fanOut(ctx, e.Name(), data, a.quizChannel(e.QuizID))
}

func (a *API) fanOut(ctx context.Context, event string, data any, channels ...string) error {
	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, ch := range channels {
		eg.Go(func() error {
			return a.publishNotification(ctx, ch, event, data)
		})
	}

	return eg.Wait()
}

func (a *API) publishNotification(ctx context.Context, channel, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, channel, b).Err()
}

func (a *API) listChannel() string {
	return fmt.Sprintf("%s:quizzes", a.prefix)
}

func (a *API) quizChannel(id string) string {
	return fmt.Sprintf("%s:quiz:%s", a.prefix, id)
}
