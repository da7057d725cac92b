// Package client holds the play side of the game: an API client for the
// trivia service and the session state machine that drives one
// play-through.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"trivia-service/internal/domain"
)

// GameAPI is the slice of the server surface the session machine needs.
type GameAPI interface {
	Categories(ctx context.Context) ([]domain.CategorySummary, error)
	NewGame(ctx context.Context, category string, full bool) (domain.NewGame, error)
	Question(ctx context.Context, category string, id int) (domain.PublicQuestion, error)
	Check(ctx context.Context, category string, id int, answer string) (bool, error)
}

// HTTPClient talks to the trivia service JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) Categories(ctx context.Context) ([]domain.CategorySummary, error) {
	var summaries []domain.CategorySummary
	if err := c.getJSON(ctx, "/api/", &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (c *HTTPClient) NewGame(ctx context.Context, category string, full bool) (domain.NewGame, error) {
	path := fmt.Sprintf("/api/%s/newgame", category)
	if full {
		path += "?full=true"
	}

	// The wire shape is duck-typed (order vs questions); resolve it to
	// the tagged variant here, once, at the boundary.
	var payload struct {
		Order     []int                   `json:"order"`
		Questions []domain.PublicQuestion `json:"questions"`
	}
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return domain.NewGame{}, err
	}
	if payload.Questions != nil {
		return domain.NewGame{Mode: domain.ModeBatch, Questions: payload.Questions}, nil
	}
	return domain.NewGame{Mode: domain.ModeSequence, Order: payload.Order}, nil
}

func (c *HTTPClient) Question(ctx context.Context, category string, id int) (domain.PublicQuestion, error) {
	var question domain.PublicQuestion
	if err := c.getJSON(ctx, fmt.Sprintf("/api/%s/question/%d", category, id), &question); err != nil {
		return domain.PublicQuestion{}, err
	}
	return question, nil
}

func (c *HTTPClient) Check(ctx context.Context, category string, id int, answer string) (bool, error) {
	body, err := json.Marshal(map[string]any{"id": id, "answer": answer})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/%s/check", c.baseURL, category), bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	var result domain.CheckResult
	if err := c.do(req, &result); err != nil {
		return false, err
	}
	return result.Correct, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if strings.EqualFold(payload.Error, "question not found") {
			return domain.ErrQuestionNotFound
		}
		return domain.ErrCategoryNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
