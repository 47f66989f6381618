// Package scoring is the HTTP client for the AI validator backend. The
// backend computes scores and suggestions; this side only speaks its
// request/response contract.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ideaforge/api/internal/draft"
	"ideaforge/api/internal/validation"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type validateRequest struct {
	Draft        draft.Fields `json:"draft"`
	IsRefinement bool         `json:"isRefinement"`
}

type validateResponse struct {
	Score      int                    `json:"score"`
	Verdict    string                 `json:"verdict"`
	Dimensions []validation.Dimension `json:"dimensions"`
}

// ScoreIdea submits the full draft for multi-dimensional scoring.
func (c *Client) ScoreIdea(ctx context.Context, fields draft.Fields, isRefinement bool) (validation.Result, error) {
	var parsed validateResponse
	if err := c.post(ctx, "/v1/ideas/validate", validateRequest{Draft: fields, IsRefinement: isRefinement}, &parsed); err != nil {
		return validation.Result{}, err
	}
	if parsed.Score < 0 || parsed.Score > 100 {
		return validation.Result{}, fmt.Errorf("validator returned score %d outside 0-100", parsed.Score)
	}

	verdict := validation.Verdict(parsed.Verdict)
	if verdict == "" {
		verdict = validation.VerdictFor(parsed.Score)
	}

	dimensions := parsed.Dimensions
	for i := range dimensions {
		if dimensions[i].Scale == 0 {
			dimensions[i].Scale = validation.DimensionScales[dimensions[i].Name]
		}
	}

	return validation.Result{
		Score:       parsed.Score,
		Verdict:     verdict,
		Dimensions:  dimensions,
		ValidatedAt: time.Now(),
	}, nil
}

type suggestRequest struct {
	Field string       `json:"field"`
	Draft draft.Fields `json:"draft"`
}

type suggestResponse struct {
	Value string `json:"value"`
}

// SuggestField asks the backend for an improved value for one field, given
// the whole draft as context.
func (c *Client) SuggestField(ctx context.Context, field string, fields draft.Fields) (string, error) {
	var parsed suggestResponse
	if err := c.post(ctx, "/v1/ideas/suggest", suggestRequest{Field: field, Draft: fields}, &parsed); err != nil {
		return "", err
	}
	if strings.TrimSpace(parsed.Value) == "" {
		return "", fmt.Errorf("validator returned an empty suggestion for %s", field)
	}
	return parsed.Value, nil
}

func (c *Client) post(ctx context.Context, path string, payload, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call validator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("validator %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode validator response: %w", err)
	}
	return nil
}
