package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/relevel/level"
)

func completionServer(t *testing.T, status int, content string) (*httptest.Server, *http.Request, *[]byte) {
	t.Helper()
	var lastReq http.Request
	var lastBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastReq = *r
		body, _ := io.ReadAll(r.Body)
		lastBody = body

		w.WriteHeader(status)
		if status >= 200 && status < 300 {
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]string{"content": content}},
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "quota exceeded"},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &lastReq, &lastBody
}

func TestRewrite_Success(t *testing.T) {
	srv, req, body := completionServer(t, 200, "Simple words here.")
	c := NewClient(Config{BaseURL: srv.URL})

	in := "A sentence with sufficiently elaborate vocabulary to rewrite."
	got := c.Rewrite(context.Background(), "sk-test", in, level.A1)
	if got != "Simple words here." {
		t.Errorf("Rewrite: got %q", got)
	}

	if auth := req.Header.Get("Authorization"); auth != "Bearer sk-test" {
		t.Errorf("auth header: got %q", auth)
	}

	var payload struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
	}
	if err := json.Unmarshal(*body, &payload); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if len(payload.Messages) != 2 {
		t.Fatalf("messages: got %d, want 2", len(payload.Messages))
	}
	if !strings.Contains(payload.Messages[1].Content, level.Guideline(level.A1)) {
		t.Error("user prompt missing A1 guideline")
	}
	if payload.Temperature != 0.3 {
		t.Errorf("temperature: got %v, want 0.3", payload.Temperature)
	}
	if payload.MaxTokens < minTokenBudget || payload.MaxTokens > maxTokenBudget {
		t.Errorf("max_tokens out of bounds: %d", payload.MaxTokens)
	}
}

func TestRewrite_FailOpenOnHTTPError(t *testing.T) {
	srv, _, _ := completionServer(t, 429, "")
	c := NewClient(Config{BaseURL: srv.URL})

	in := "Original text that must survive an upstream failure intact."
	if got := c.Rewrite(context.Background(), "k", in, level.B1); got != in {
		t.Errorf("fail-open: got %q, want original", got)
	}
}

func TestRewrite_FailOpenOnTransportError(t *testing.T) {
	srv, _, _ := completionServer(t, 200, "x")
	srv.Close() // connection refused from here on
	c := NewClient(Config{BaseURL: srv.URL})

	in := "Text that survives a dead network."
	if got := c.Rewrite(context.Background(), "k", in, level.B2); got != in {
		t.Errorf("fail-open: got %q, want original", got)
	}
}

func TestRewrite_FailOpenOnBlankCompletion(t *testing.T) {
	srv, _, _ := completionServer(t, 200, "   ")
	c := NewClient(Config{BaseURL: srv.URL})

	in := "Another original text kept when the model says nothing."
	if got := c.Rewrite(context.Background(), "k", in, level.C1); got != in {
		t.Errorf("blank completion: got %q, want original", got)
	}
}

func TestRewrite_EchoedInputStripped(t *testing.T) {
	in := "The quick brown fox jumps over the lazy dog and runs away fast"
	srv, _, _ := completionServer(t, 200, "<rewrite>\n"+in)
	c := NewClient(Config{BaseURL: srv.URL})

	if got := c.Rewrite(context.Background(), "k", in, level.A2); got != "<rewrite>" {
		t.Errorf("echo cleanup: got %q, want %q", got, "<rewrite>")
	}
}

func TestSummarize_Success(t *testing.T) {
	srv, _, body := completionServer(t, 200, "A short summary.")
	c := NewClient(Config{BaseURL: srv.URL})

	got, err := c.Summarize(context.Background(), "k",
		strings.Repeat("content words ", 50), level.B1,
		SummaryTarget{MaxWords: 100})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "A short summary." {
		t.Errorf("Summarize: got %q", got)
	}

	var payload struct {
		Temperature float64 `json:"temperature"`
	}
	json.Unmarshal(*body, &payload)
	if payload.Temperature != 0.4 {
		t.Errorf("summary temperature: got %v, want 0.4", payload.Temperature)
	}
}

func TestSummarize_APIErrorPropagates(t *testing.T) {
	srv, _, _ := completionServer(t, 500, "")
	c := NewClient(Config{BaseURL: srv.URL})

	_, err := c.Summarize(context.Background(), "k", "some page content to summarise", level.B1,
		SummaryTarget{MaxWords: 100})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error: got %v, want *APIError", err)
	}
	if apiErr.Status != 500 || !strings.Contains(apiErr.Message, "quota exceeded") {
		t.Errorf("APIError: %+v", apiErr)
	}
}

func TestSummarize_InputTruncated(t *testing.T) {
	srv, _, body := completionServer(t, 200, "summary")
	c := NewClient(Config{BaseURL: srv.URL})

	huge := strings.Repeat("w ", 20000)
	if _, err := c.Summarize(context.Background(), "k", huge, level.B1, SummaryTarget{MaxWords: 100}); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	var payload struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	json.Unmarshal(*body, &payload)
	if len(payload.Messages) != 2 {
		t.Fatal("missing messages")
	}
	// Prompt scaffolding plus at most 12000 chars of content.
	if n := len(payload.Messages[1].Content); n > 13000 {
		t.Errorf("summary input not truncated: %d chars", n)
	}
}
