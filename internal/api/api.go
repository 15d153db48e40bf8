package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/quizzer/internal/domain"
	"github.com/victornm/quizzer/internal/errors"
	"github.com/victornm/quizzer/internal/event"
)

type QuizService interface {
	Create(ctx context.Context, body []byte) (*domain.Quiz, error)
	List(ctx context.Context) ([]domain.QuizSummary, error)
	Get(ctx context.Context, id string) (*domain.Quiz, error)
	Delete(ctx context.Context, id string) error
	Grade(ctx context.Context, id string, answers []domain.Answer) (*domain.GradingResult, error)
	Stats(ctx context.Context, id string) (*domain.QuizStats, error)
	Ping(ctx context.Context) error
}

type Config struct {
	Router       gin.IRouter
	EventBus     *event.Bus
	Quiz         QuizService
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	qs QuizService

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		qs:     c.Quiz,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	// HTTP APIs
	c.Router.GET("/healthz", a.Health)

	g := c.Router.Group("/quizzes")
	g.POST("", a.CreateQuiz)
	g.GET("", a.ListQuizzes)
	g.GET("/:id", a.GetQuiz)
	g.DELETE("/:id", a.DeleteQuiz)
	g.POST("/:id/grade", a.GradeQuiz)
	g.GET("/:id/stats", a.GetStats)

	// Register event handlers
	if a.redis != nil {
		event.On(c.EventBus, a.PublishQuizCreated)
		event.On(c.EventBus, a.PublishQuizDeleted)
		event.On(c.EventBus, a.PublishQuizGraded)
	}

	return a
}

func (a *API) CreateQuiz(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		a.writeError(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("read body: %v", err)))
		return
	}

	q, err := a.qs.Create(c.Request.Context(), body)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, q)
}

func (a *API) ListQuizzes(c *gin.Context) {
	res, err := a.qs.List(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (a *API) GetQuiz(c *gin.Context) {
	q, err := a.qs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, q)
}

func (a *API) DeleteQuiz(c *gin.Context) {
	if err := a.qs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Quiz successfully deleted"})
}

type (
	GradeRequest struct {
		Answers []AnswerRequest `json:"answers" binding:"required,dive"`
	}

	AnswerRequest struct {
		QuestionID string             `json:"questionId" binding:"required"`
		Answer     domain.AnswerValue `json:"answer"`
	}
)

func (a *API) GradeQuiz(c *gin.Context) {
	var req GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, bindError(err))
		return
	}

	answers := make([]domain.Answer, 0, len(req.Answers))
	for _, ans := range req.Answers {
		answers = append(answers, domain.Answer{QuestionID: ans.QuestionID, Answer: ans.Answer})
	}

	res, err := a.qs.Grade(c.Request.Context(), c.Param("id"), answers)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (a *API) GetStats(c *gin.Context) {
	st, err := a.qs.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, st)
}

func (a *API) Health(c *gin.Context) {
	if err := a.qs.Ping(c.Request.Context()); err != nil {
		slog.ErrorContext(c.Request.Context(), "api: health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (*API) writeError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.HTTPStatusCode() >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "api: request failed", "path", c.FullPath(), "error", err)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}

func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid grade payload"),
			errors.WithViolations(err.Error()),
			errors.WithCause(err),
		)
	}

	violations := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		violations = append(violations, fmt.Sprintf("%s: failed on %s", bindPath(fe), fe.Tag()))
	}

	return errors.New(errors.CodeInvalidArgument,
		errors.WithMessagef("invalid grade payload"),
		errors.WithViolations(violations...),
	)
}

// bindPath turns "GradeRequest.Answers[0].QuestionID" into "answers[0].questionId".
func bindPath(fe validator.FieldError) string {
	_, rest, _ := strings.Cut(fe.Namespace(), ".")
	rest = strings.Replace(rest, "Answers", "answers", 1)
	return strings.Replace(rest, "QuestionID", "questionId", 1)
}
