// Package client talks to the quiz HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/victornm/quizzer/internal/domain"
	"github.com/victornm/quizzer/internal/errors"
)

type Client struct {
	base string
	http *http.Client
}

func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: hc,
	}
}

func (c *Client) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	var out []domain.QuizSummary
	if err := c.do(ctx, http.MethodGet, "/quizzes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetQuiz(ctx context.Context, id string) (*domain.Quiz, error) {
	var out domain.Quiz
	if err := c.do(ctx, http.MethodGet, "/quizzes/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateQuiz sends an authoring payload as is; validation happens on the server.
func (c *Client) CreateQuiz(ctx context.Context, payload []byte) (*domain.Quiz, error) {
	var out domain.Quiz
	if err := c.do(ctx, http.MethodPost, "/quizzes", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteQuiz(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/quizzes/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Grade(ctx context.Context, id string, answers []domain.Answer) (*domain.GradingResult, error) {
	body, err := json.Marshal(map[string]any{"answers": answers})
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}

	var out domain.GradingResult
	if err := c.do(ctx, http.MethodPost, "/quizzes/"+url.PathEscape(id)+"/grade", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Stats(ctx context.Context, id string) (*domain.QuizStats, error) {
	var out domain.QuizStats
	if err := c.do(ctx, http.MethodGet, "/quizzes/"+url.PathEscape(id)+"/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends the request and decodes a 2xx body into out. Error responses are returned as
// *errors.Error carrying the server's code, message and violations.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errors.Error
		if err := json.Unmarshal(b, &e); err != nil || e.Message == "" {
			return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(b)))
		}
		return &e
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
