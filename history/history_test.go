package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hazyhaar/relevel/dbopen"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	n := 0
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	return NewStore(db, WithIDs(func() string {
		n++
		return fmt.Sprintf("op_%04d", n)
	}))
}

func TestRecordAndRecent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := s.Record(ctx, Entry{
			SessionID:         "rlv_1",
			Operation:         "rewrite",
			PageURL:           fmt.Sprintf("https://example.org/page/%d", i),
			Level:             "B1",
			Success:           true,
			ElementsSelected:  5,
			ElementsRewritten: 4,
			Elapsed:           1500 * time.Millisecond,
			CreatedAt:         base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(Recent) = %d, want 2", len(got))
	}
	if got[0].PageURL != "https://example.org/page/2" {
		t.Errorf("newest first: got %q", got[0].PageURL)
	}
	if got[0].ElementsRewritten != 4 || !got[0].Success {
		t.Errorf("round trip: %+v", got[0])
	}
	if got[0].Elapsed != 1500*time.Millisecond {
		t.Errorf("elapsed = %v, want 1.5s", got[0].Elapsed)
	}
}

func TestBySession(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, sid := range []string{"rlv_a", "rlv_b", "rlv_a"} {
		err := s.Record(ctx, Entry{
			SessionID: sid,
			Operation: "rewrite",
			PageURL:   "https://example.org/",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.BySession(ctx, "rlv_a")
	if err != nil {
		t.Fatalf("BySession: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].CreatedAt.Before(got[1].CreatedAt) {
		t.Error("expected oldest first")
	}
}

func TestRecord_FailureEntry(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	err := s.Record(ctx, Entry{
		SessionID: "rlv_1",
		Operation: "summarize",
		PageURL:   "https://example.org/",
		Success:   false,
		Error:     "rewrite: empty completion response",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := s.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Success {
		t.Error("success = true, want false")
	}
	if got[0].Error == "" {
		t.Error("error text lost")
	}
}

func TestPrune(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := s.Record(ctx, Entry{
			SessionID: "rlv_1",
			Operation: "rewrite",
			PageURL:   fmt.Sprintf("https://example.org/%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Prune(ctx, 2); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len after prune = %d, want 2", len(got))
	}
	if got[0].PageURL != "https://example.org/4" {
		t.Errorf("kept newest: got %q", got[0].PageURL)
	}
}
