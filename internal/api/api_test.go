package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizzer/internal/api"
	"github.com/victornm/quizzer/internal/cache"
	"github.com/victornm/quizzer/internal/domain"
	"github.com/victornm/quizzer/internal/event"
	"github.com/victornm/quizzer/internal/quiz"
	"github.com/victornm/quizzer/internal/stats"
	"github.com/victornm/quizzer/internal/storage"
)

const capitalsBody = `{
	"title": "Capitals",
	"questions": [
		{"text": "Is Paris the capital of France?", "type": "boolean", "options": ["Yes", "No"], "correctAnswers": ["Yes"]},
		{"text": "Capital of Peru?", "type": "input", "correctAnswers": ["Lima"]},
		{"text": "Pick capitals", "type": "checkbox", "options": ["Lima", "Quito", "Sydney"], "correctAnswers": ["Lima", "Quito"]}
	]
}`

type errorBody struct {
	Code       int      `json:"code"`
	Message    string   `json:"message"`
	Violations []string `json:"violations"`
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestAPI_CreateQuiz(t *testing.T) {
	tests := map[string]struct {
		body          string
		wantStatus    int
		wantViolation string
	}{
		"valid quiz": {
			body:       capitalsBody,
			wantStatus: http.StatusCreated,
		},
		"title too short": {
			body:          `{"title":"ab","questions":[{"text":"Why?","type":"input","correctAnswers":["x"]}]}`,
			wantStatus:    http.StatusBadRequest,
			wantViolation: "title: Quiz title must be at least 3 characters long",
		},
		"no questions": {
			body:          `{"title":"Capitals","questions":[]}`,
			wantStatus:    http.StatusBadRequest,
			wantViolation: "questions: Quiz must contain at least 1 question",
		},
		"unknown field in a question": {
			body:          `{"title":"Capitals","questions":[{"text":"Why?","type":"input","points":3}]}`,
			wantStatus:    http.StatusBadRequest,
			wantViolation: "property points should not exist",
		},
		"unknown question type": {
			body:          `{"title":"Capitals","questions":[{"text":"Why?","type":"essay"}]}`,
			wantStatus:    http.StatusBadRequest,
			wantViolation: "questions[0].type: Question type must be one of: boolean, input, checkbox",
		},
		"empty body": {
			body:          ``,
			wantStatus:    http.StatusBadRequest,
			wantViolation: "request body is required",
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := makeHarness(t)
			w := h.do(http.MethodPost, "/quizzes", tt.body)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantViolation == "" {
				var q domain.Quiz
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
				assert.NotEmpty(t, q.ID)
				assert.Len(t, q.Questions, 3)
				return
			}

			var e errorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
			assert.Equal(t, 3, e.Code)
			assert.Contains(t, e.Violations, tt.wantViolation)
		})
	}
}

func TestAPI_QuizLifecycle(t *testing.T) {
	h := makeHarness(t)

	w := h.do(http.MethodPost, "/quizzes", capitalsBody)
	require.Equal(t, http.StatusCreated, w.Code)
	var created domain.Quiz
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = h.do(http.MethodGet, "/quizzes", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.QuizSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, 3, list[0].QuestionCount)

	w = h.do(http.MethodGet, "/quizzes/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.Quiz
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, created, got)

	grade := `{"answers":[
		{"questionId":"` + got.Questions[0].ID + `","answer":"Yes"},
		{"questionId":"` + got.Questions[1].ID + `","answer":"Quito"},
		{"questionId":"` + got.Questions[2].ID + `","answer":["Quito","Lima"]}
	]}`
	w = h.do(http.MethodPost, "/quizzes/"+created.ID+"/grade", grade)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res domain.GradingResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 3, res.TotalQuestions)
	assert.Equal(t, 2, res.CorrectCount)
	assert.Equal(t, 67, res.ScorePercent)
	assert.Equal(t, []domain.QuestionResult{
		{QuestionID: got.Questions[0].ID, IsCorrect: true},
		{QuestionID: got.Questions[1].ID, IsCorrect: false},
		{QuestionID: got.Questions[2].ID, IsCorrect: true},
	}, res.PerQuestion)

	h.eb.Stop()

	w = h.do(http.MethodGet, "/quizzes/"+created.ID+"/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var st domain.QuizStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, domain.QuizStats{QuizID: created.ID, Attempts: 1, AverageScore: 67, BestScore: 67}, st)

	w = h.do(http.MethodDelete, "/quizzes/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Quiz successfully deleted"}`, w.Body.String())

	h.eb.Stop()

	w = h.do(http.MethodGet, "/quizzes/"+created.ID, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	var e errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, "Quiz with ID "+created.ID+" not found", e.Message)

	w = h.do(http.MethodDelete, "/quizzes/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodGet, "/quizzes/"+created.ID+"/stats", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_GradeQuiz_BadPayload(t *testing.T) {
	tests := map[string]struct {
		body          string
		wantViolation string
	}{
		"missing answers": {
			body:          `{}`,
			wantViolation: "answers: failed on required",
		},
		"missing question id": {
			body:          `{"answers":[{"answer":"Yes"}]}`,
			wantViolation: "answers[0].questionId: failed on required",
		},
		"answer is neither a string nor a list": {
			body: `{"answers":[{"questionId":"x","answer":42}]}`,
		},
		"malformed JSON": {
			body: `{"answers":`,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := makeHarness(t)
			w := h.do(http.MethodPost, "/quizzes", capitalsBody)
			require.Equal(t, http.StatusCreated, w.Code)
			var created domain.Quiz
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

			w = h.do(http.MethodPost, "/quizzes/"+created.ID+"/grade", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			var e errorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
			assert.Equal(t, "invalid grade payload", e.Message)
			if tt.wantViolation != "" {
				assert.Contains(t, e.Violations, tt.wantViolation)
			}
		})
	}
}

func TestAPI_GradeQuiz_UnknownQuiz(t *testing.T) {
	h := makeHarness(t)

	w := h.do(http.MethodPost, "/quizzes/nope/grade", `{"answers":[]}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_Health(t *testing.T) {
	h := makeHarness(t)

	w := h.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAPI_PublishesNotifications(t *testing.T) {
	h := makeHarness(t)
	ctx := context.Background()

	sub := h.rdb.Subscribe(ctx, "test:quizzes")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	w := h.do(http.MethodPost, "/quizzes", capitalsBody)
	require.Equal(t, http.StatusCreated, w.Code)
	var created domain.Quiz
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	h.eb.Stop()

	select {
	case msg := <-sub.Channel():
		var n struct {
			Event string             `json:"event"`
			Data  domain.QuizSummary `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &n))
		assert.Equal(t, domain.EventNameQuizCreated, n.Event)
		assert.Equal(t, created.ID, n.Data.ID)
		assert.Equal(t, 3, n.Data.QuestionCount)
	case <-time.After(2 * time.Second):
		t.Fatal("no notification received")
	}
}

type harness struct {
	t   *testing.T
	e   *gin.Engine
	eb  *event.Bus
	mr  *miniredis.Miniredis
	rdb *redis.Client
}

func makeHarness(t *testing.T) *harness {
	t.Helper()

	ctx := context.Background()
	st, err := storage.Open(ctx, storage.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	eb := event.NewBus()
	qc := cache.NewQuizCache(cache.Config{EventBus: eb, Redis: rdb, Prefix: "test", TTL: time.Minute})
	ss := stats.NewService(stats.Config{EventBus: eb, Redis: rdb, Prefix: "test"})
	qs := quiz.NewService(quiz.Config{Store: st, Cache: qc, Stats: ss, EventBus: eb})

	e := gin.New()
	api.New(api.Config{
		Router:       e,
		EventBus:     eb,
		Quiz:         qs,
		Redis:        rdb,
		PubsubPrefix: "test",
	})

	return &harness{t: t, e: e, eb: eb, mr: mr, rdb: rdb}
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	h.t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	h.e.ServeHTTP(w, req)
	return w
}
