// Package rewrite talks to an OpenAI-compatible chat-completion
// endpoint and turns page text into its leveled counterpart.
//
// Two calling conventions, matching how failures propagate:
//
//   - Rewrite is fail-open: any transport, HTTP, or empty-response
//     error is logged and the original text is returned unchanged, so
//     a failing upstream can never destroy page content.
//   - Summarize is fail-closed: errors propagate, because a summary
//     operation has nothing safe to fall back to.
//
// The client is stateless per call; pacing between calls is the
// orchestrator's job.
package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/relevel/level"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"

	// Input caps: the clean text sent upstream.
	defaultMaxInputChars        = 2000
	defaultMaxSummaryInputChars = 12000

	// Token ceiling: a small multiple of input length, absolutely
	// capped, so cost and latency stay bounded while the rewrite may
	// still expand.
	minTokenBudget = 256
	maxTokenBudget = 2048

	maxErrBody = 2048
)

// Config tunes the client. Zero values take documented defaults.
type Config struct {
	BaseURL string
	Model   string

	RewriteTemperature float64 // default 0.3
	SummaryTemperature float64 // default 0.4

	MaxInputChars        int // rewrite input cap, default 2000
	MaxSummaryInputChars int // summarize input cap, default 12000

	HTTPClient *http.Client
	Logger     *slog.Logger
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	c.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.BaseURL), "/")
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.RewriteTemperature <= 0 {
		c.RewriteTemperature = 0.3
	}
	if c.SummaryTemperature <= 0 {
		c.SummaryTemperature = 0.4
	}
	if c.MaxInputChars <= 0 {
		c.MaxInputChars = defaultMaxInputChars
	}
	if c.MaxSummaryInputChars <= 0 {
		c.MaxSummaryInputChars = defaultMaxSummaryInputChars
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 90 * time.Second}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client calls the chat-completion endpoint.
type Client struct {
	cfg      Config
	endpoint string
}

// NewClient creates a Client. The bearer credential is supplied per
// call, not stored.
func NewClient(cfg Config) *Client {
	cfg.defaults()
	return &Client{cfg: cfg, endpoint: cfg.BaseURL + "/chat/completions"}
}

// Rewrite returns text rewritten at lvl, or text itself when anything
// goes wrong. It never fails outward and never returns empty output
// for non-empty input.
func (c *Client) Rewrite(ctx context.Context, apiKey, text string, lvl level.Level) string {
	clean := normalize(text, c.cfg.MaxInputChars)
	if clean == "" {
		return text
	}

	raw, err := c.complete(ctx, apiKey, completion{
		system:      rewriteSystemPrompt(),
		user:        rewriteUserPrompt(lvl, clean),
		temperature: c.cfg.RewriteTemperature,
		maxTokens:   tokenBudget(len(clean)),
	})
	if err != nil {
		c.cfg.Logger.Warn("rewrite: upstream call failed, keeping original text",
			"level", lvl, "chars", len(clean), "error", err)
		return text
	}

	out := stripEcho(strings.TrimSpace(raw), clean)
	if out == "" {
		return text
	}
	return out
}

// Summarize produces a leveled summary of text within target. Errors
// propagate: *APIError for non-success statuses, ErrEmptyResponse for
// blank completions.
func (c *Client) Summarize(ctx context.Context, apiKey, text string, lvl level.Level, target SummaryTarget) (string, error) {
	clean := normalize(text, c.cfg.MaxSummaryInputChars)
	if clean == "" {
		return "", ErrEmptyResponse
	}

	// Words to tokens, roughly 1.5 tokens per word, with headroom.
	budget := target.MaxWords * 2
	if budget < minTokenBudget {
		budget = minTokenBudget
	}
	if budget > maxTokenBudget {
		budget = maxTokenBudget
	}

	raw, err := c.complete(ctx, apiKey, completion{
		system:      summarySystemPrompt(),
		user:        summaryUserPrompt(lvl, target, clean),
		temperature: c.cfg.SummaryTemperature,
		maxTokens:   budget,
	})
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(raw)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

type completion struct {
	system      string
	user        string
	temperature float64
	maxTokens   int
}

// tokenBudget bounds output tokens by input length: half the input's
// character count, clamped to [minTokenBudget, maxTokenBudget].
func tokenBudget(inputChars int) int {
	budget := inputChars / 2
	if budget < minTokenBudget {
		budget = minTokenBudget
	}
	if budget > maxTokenBudget {
		budget = maxTokenBudget
	}
	return budget
}

func (c *Client) complete(ctx context.Context, apiKey string, req completion) (string, error) {
	payload := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": req.system},
			{"role": "user", "content": req.user},
		},
		"temperature": req.temperature,
		"max_tokens":  req.maxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("rewrite: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("rewrite: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("rewrite: request upstream: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("rewrite: read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{Status: resp.StatusCode, Message: parseAPIError(respBody)}
	}

	return extractContent(respBody)
}

func parseAPIError(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && strings.TrimSpace(parsed.Error.Message) != "" {
		return parsed.Error.Message
	}

	snippet := strings.TrimSpace(string(body))
	if len(snippet) > maxErrBody {
		snippet = snippet[:maxErrBody] + "..."
	}
	return snippet
}

// extractContent pulls the first choice's message content out of a
// chat-completion response.
func extractContent(body []byte) (string, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("rewrite: parse response JSON: %w", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return parsed.Choices[0].Message.Content, nil
}
