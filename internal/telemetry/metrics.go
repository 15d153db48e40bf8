package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/victornm/quizzer/internal/domain"
	"github.com/victornm/quizzer/internal/event"
)

const namespace = "quizzer"

// Metrics holds the application collectors. They are fed from lifecycle events so that the
// services stay unaware of instrumentation.
type Metrics struct {
	QuizzesCreated prometheus.Counter
	QuizzesDeleted prometheus.Counter
	QuizzesGraded  prometheus.Counter
	Scores         prometheus.Histogram

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		QuizzesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quizzes_created_total",
			Help:      "Number of quizzes created.",
		}),
		QuizzesDeleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quizzes_deleted_total",
			Help:      "Number of quizzes deleted.",
		}),
		QuizzesGraded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quizzes_graded_total",
			Help:      "Number of graded attempts.",
		}),
		Scores: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_score_percent",
			Help:      "Distribution of attempt scores in percent.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Subscribe feeds the quiz counters from the event bus.
func (m *Metrics) Subscribe(eb *event.Bus) {
	event.On(eb, func(context.Context, domain.EventQuizCreated) error {
		m.QuizzesCreated.Inc()
		return nil
	})
	event.On(eb, func(context.Context, domain.EventQuizDeleted) error {
		m.QuizzesDeleted.Inc()
		return nil
	})
	event.On(eb, func(_ context.Context, e domain.EventQuizGraded) error {
		m.QuizzesGraded.Inc()
		m.Scores.Observe(float64(e.Result.ScorePercent))
		return nil
	})
}
