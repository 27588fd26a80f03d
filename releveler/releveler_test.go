package releveler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hazyhaar/relevel/dom"
	"github.com/hazyhaar/relevel/dom/domtest"
	"github.com/hazyhaar/relevel/level"
	"github.com/hazyhaar/relevel/rewrite"
	"github.com/hazyhaar/relevel/session"
	"github.com/hazyhaar/relevel/summary"
)

const testDoc = `<html><head><title>Test Article</title></head><body>
<p>The first paragraph carries enough text to clear the threshold.</p>
<p>The second paragraph also carries enough text to clear the threshold.</p>
<p>The third paragraph likewise carries enough text to clear the threshold.</p>
</body></html>`

// pageScript answers the injected scripts the way a live document
// would: selection yields units, masks capture snapshots, swaps
// succeed.
func pageScript(units []map[string]any) func(fn string, args []any) (any, error) {
	return func(fn string, args []any) (any, error) {
		switch {
		case strings.Contains(fn, "Scans the document"):
			return units, nil
		case strings.Contains(fn, "Phase 1"):
			return map[string]any{"gone": false, "snapshot": map[string]any{"styles": map[string]string{"font-size": "16px"}}}, nil
		case strings.Contains(fn, "Phase 2"):
			return map[string]any{"mode": "textnode"}, nil
		case strings.Contains(fn, "serialized markup"):
			return len(units), nil
		}
		return nil, fmt.Errorf("unexpected script: %.40s", fn)
	}
}

func threeUnits() []map[string]any {
	units := make([]map[string]any, 3)
	for i := range units {
		units[i] = map[string]any{
			"id":     fmt.Sprintf("relevel-%d", i),
			"tag":    "P",
			"text":   fmt.Sprintf("Paragraph %d carries enough text to clear the threshold.", i),
			"markup": fmt.Sprintf("Paragraph %d carries enough text to clear the threshold.", i),
		}
	}
	return units
}

// fakePager hands out a fixed page and counts opens.
type fakePager struct {
	page  *domtest.Page
	mu    sync.Mutex
	opens int
}

func (p *fakePager) OpenPage(_ context.Context, _ string) (dom.Page, error) {
	p.mu.Lock()
	p.opens++
	p.mu.Unlock()
	return p.page, nil
}

func (p *fakePager) openCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens
}

func completionServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func completionJSON(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"content":%q}}]}`, content)
}

func newTestReleveler(t *testing.T, pager Pager, baseURL string, snk Sink) *Releveler {
	t.Helper()
	r, err := New(Config{
		Pager:       pager,
		Upstream:    rewrite.Config{BaseURL: baseURL, Model: "test-model"},
		APIKey:      "sk-test",
		PacingDelay: -1,
		MaskDelay:   -1,
		Sink:        snk,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestRewrite_AllParagraphs(t *testing.T) {
	llm := completionServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, completionJSON("This is much simpler text now."))
	})

	var (
		mu     sync.Mutex
		events []ProgressEvent
	)
	snk := NewCallbackSink(func(_ context.Context, ev ProgressEvent) error {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
		return nil
	}, nil)

	pager := &fakePager{page: &domtest.Page{
		PageInfo: dom.Info{Title: "Test Article", URL: "https://example.org/a"},
		Handler:  pageScript(threeUnits()),
	}}
	r := newTestReleveler(t, pager, llm.URL, snk)

	out := r.Rewrite(context.Background(), "https://example.org/a", level.B1)
	if !out.Success {
		t.Fatalf("rewrite failed: %s", out.Error)
	}
	if out.ElementsSelected != 3 || out.ElementsRewritten != 3 {
		t.Errorf("selected/rewritten = %d/%d, want 3/3", out.ElementsSelected, out.ElementsRewritten)
	}
	if out.Level != "B1" {
		t.Errorf("level = %q, want B1", out.Level)
	}
	if out.SessionID == "" {
		t.Error("missing session ID")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) == 0 {
		t.Fatal("no progress events")
	}
	prev := -1
	for _, ev := range events {
		if ev.Percent < prev {
			t.Errorf("progress not monotonic: %d after %d", ev.Percent, prev)
		}
		prev = ev.Percent
	}
	if events[0].Percent != 10 {
		t.Errorf("first percent = %d, want 10", events[0].Percent)
	}
	if events[len(events)-1].Percent != 100 {
		t.Errorf("last percent = %d, want 100", events[len(events)-1].Percent)
	}
}

func TestRewrite_FailOpenOnUpstreamError(t *testing.T) {
	llm := completionServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	})

	pager := &fakePager{page: &domtest.Page{Handler: pageScript(threeUnits())}}
	r := newTestReleveler(t, pager, llm.URL, nil)

	out := r.Rewrite(context.Background(), "https://example.org/a", level.A2)
	if !out.Success {
		t.Fatalf("fail-open rewrite reported failure: %s", out.Error)
	}
	// Originals are written back unchanged, so lengths match.
	if out.NewLength != out.OriginalLength {
		t.Errorf("new/original length = %d/%d, want equal", out.NewLength, out.OriginalLength)
	}
	if out.ElementsRewritten != 3 {
		t.Errorf("rewritten = %d, want 3", out.ElementsRewritten)
	}
}

func TestRewrite_NoContent(t *testing.T) {
	pager := &fakePager{page: &domtest.Page{Handler: pageScript(nil)}}
	r := newTestReleveler(t, pager, "http://127.0.0.1:0", nil)

	out := r.Rewrite(context.Background(), "https://example.org/empty", level.B1)
	if out.Success {
		t.Fatal("expected failure on empty page")
	}
	if !strings.Contains(out.Error, session.ErrNoContent.Error()) {
		t.Errorf("error = %q, want no-content", out.Error)
	}
}

func TestRewrite_ReusesSessionForSameURL(t *testing.T) {
	llm := completionServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, completionJSON("Simpler."))
	})

	pager := &fakePager{page: &domtest.Page{Handler: pageScript(threeUnits())}}
	r := newTestReleveler(t, pager, llm.URL, nil)

	first := r.Rewrite(context.Background(), "https://example.org/a", level.B2)
	second := r.Rewrite(context.Background(), "https://example.org/a", level.A1)
	if !first.Success || !second.Success {
		t.Fatalf("rewrites failed: %q / %q", first.Error, second.Error)
	}
	if first.SessionID != second.SessionID {
		t.Errorf("session changed across level switch: %q vs %q", first.SessionID, second.SessionID)
	}
	if pager.openCount() != 1 {
		t.Errorf("page opened %d times, want 1", pager.openCount())
	}
}

func TestRewrite_BusyGuard(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	llm := completionServer(t, func(w http.ResponseWriter, _ *http.Request) {
		once.Do(func() { close(started) })
		<-release
		fmt.Fprint(w, completionJSON("Simpler."))
	})

	pager := &fakePager{page: &domtest.Page{Handler: pageScript(threeUnits())}}
	r := newTestReleveler(t, pager, llm.URL, nil)

	done := make(chan Outcome, 1)
	go func() {
		done <- r.Rewrite(context.Background(), "https://example.org/a", level.B1)
	}()
	<-started

	out := r.Rewrite(context.Background(), "https://example.org/a", level.B1)
	if out.Success {
		t.Fatal("concurrent rewrite should be rejected")
	}
	if out.Error != ErrSessionBusy.Error() {
		t.Errorf("error = %q, want busy", out.Error)
	}

	close(release)
	first := <-done
	if !first.Success {
		t.Fatalf("original rewrite failed: %s", first.Error)
	}
}

func TestSummarize_ProducesArtifact(t *testing.T) {
	llm := completionServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, completionJSON("A short and simple summary of the page."))
	})

	var (
		mu   sync.Mutex
		arts []summary.Artifact
	)
	snk := NewCallbackSink(nil, func(_ context.Context, art summary.Artifact) error {
		mu.Lock()
		arts = append(arts, art)
		mu.Unlock()
		return nil
	})

	pager := &fakePager{page: &domtest.Page{
		PageInfo: dom.Info{Title: "Test Article", URL: "https://example.org/a"},
		Document: testDoc,
		Handler:  pageScript(threeUnits()),
	}}
	r := newTestReleveler(t, pager, llm.URL, snk)

	out := r.Summarize(context.Background(), "https://example.org/a", level.B1)
	if !out.Success {
		t.Fatalf("summarize failed: %s", out.Error)
	}
	if out.SummaryWords == 0 {
		t.Error("summary word count = 0")
	}
	if out.ArtifactFilename != "Test_Article_B1_summary.txt" {
		t.Errorf("filename = %q", out.ArtifactFilename)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(arts) != 1 {
		t.Fatalf("artifacts delivered = %d, want 1", len(arts))
	}
	body := string(arts[0].Data)
	if !strings.HasPrefix(body, "PAGE SUMMARY\n") {
		t.Errorf("artifact missing header: %q", body)
	}
	if !strings.Contains(body, "A short and simple summary") {
		t.Errorf("artifact missing summary body: %q", body)
	}
}

func TestSummarize_FailClosed(t *testing.T) {
	llm := completionServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	})

	pager := &fakePager{page: &domtest.Page{
		Document: testDoc,
		Handler:  pageScript(threeUnits()),
	}}
	r := newTestReleveler(t, pager, llm.URL, nil)

	out := r.Summarize(context.Background(), "https://example.org/a", level.B1)
	if out.Success {
		t.Fatal("expected failure on upstream error")
	}
	if !strings.Contains(out.Error, "quota exceeded") {
		t.Errorf("error = %q, want upstream message", out.Error)
	}
}

func TestReset_NoSessionIsNoop(t *testing.T) {
	pager := &fakePager{page: &domtest.Page{}}
	r := newTestReleveler(t, pager, "http://127.0.0.1:0", nil)

	out := r.Reset(context.Background())
	if !out.Success {
		t.Fatalf("no-session reset failed: %s", out.Error)
	}
	if out.ElementsRestored != 0 {
		t.Errorf("restored = %d, want 0", out.ElementsRestored)
	}
}

func TestReset_RestoresAndEndsSession(t *testing.T) {
	llm := completionServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, completionJSON("Simpler."))
	})

	pager := &fakePager{page: &domtest.Page{Handler: pageScript(threeUnits())}}
	r := newTestReleveler(t, pager, llm.URL, nil)

	if out := r.Rewrite(context.Background(), "https://example.org/a", level.B1); !out.Success {
		t.Fatalf("rewrite: %s", out.Error)
	}

	out := r.Reset(context.Background())
	if !out.Success {
		t.Fatalf("reset failed: %s", out.Error)
	}
	if out.ElementsRestored != 3 {
		t.Errorf("restored = %d, want 3", out.ElementsRestored)
	}

	st := r.Status()
	if st.SessionID != "" || st.Units != 0 {
		t.Errorf("session survived reset: %+v", st)
	}
	if st.State != StateIdle {
		t.Errorf("state = %q, want idle", st.State)
	}
}

func TestStatus_InitialIdle(t *testing.T) {
	pager := &fakePager{page: &domtest.Page{}}
	r := newTestReleveler(t, pager, "http://127.0.0.1:0", nil)

	st := r.Status()
	if st.State != StateIdle || st.Busy {
		t.Errorf("initial status = %+v, want idle and not busy", st)
	}
}
