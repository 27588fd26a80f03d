package selector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/relevel/dom/domtest"
)

type jsUnit struct {
	ID     string `json:"id"`
	Tag    string `json:"tag"`
	Text   string `json:"text"`
	Markup string `json:"markup"`
}

func pageReturning(units []jsUnit) *domtest.Page {
	return &domtest.Page{
		Handler: func(_ string, _ []any) (any, error) { return units, nil },
	}
}

func TestSelect_DocumentOrderAndDenseIndices(t *testing.T) {
	long := strings.Repeat("paragraph text ", 4)
	page := pageReturning([]jsUnit{
		{ID: "0", Tag: "h1", Text: long + "title", Markup: long},
		{ID: "1", Tag: "p", Text: long, Markup: long},
		{ID: "2", Tag: "li", Text: long + "item", Markup: long},
	})

	units, err := New().Select(context.Background(), page)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("units: got %d, want 3", len(units))
	}
	for i, u := range units {
		if u.Index != i {
			t.Errorf("unit[%d]: index=%d, want %d", i, u.Index, i)
		}
	}
	if units[0].Tag != "h1" || units[2].Tag != "li" {
		t.Errorf("order not preserved: %v", units)
	}
}

func TestSelect_Idempotent(t *testing.T) {
	long := strings.Repeat("stable content ", 4)
	page := pageReturning([]jsUnit{
		{ID: "0", Tag: "p", Text: long, Markup: long},
		{ID: "1", Tag: "p", Text: long + "more", Markup: long},
	})

	sel := New()
	first, err := sel.Select(context.Background(), page)
	if err != nil {
		t.Fatalf("first Select: %v", err)
	}
	second, err := sel.Select(context.Background(), page)
	if err != nil {
		t.Fatalf("second Select: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("unit[%d] differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestSelect_RejectsShortText(t *testing.T) {
	page := pageReturning([]jsUnit{
		{ID: "0", Tag: "p", Text: "too short", Markup: "too short"},
		{ID: "1", Tag: "p", Text: strings.Repeat("long enough text ", 3), Markup: "x"},
	})

	units, err := New().Select(context.Background(), page)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("units: got %d, want 1", len(units))
	}
	if units[0].ID != "1" {
		t.Errorf("kept unit: got %q, want %q", units[0].ID, "1")
	}
	if units[0].Index != 0 {
		t.Errorf("index not dense after rejection: %d", units[0].Index)
	}
}

func TestSelect_EvalErrorPropagates(t *testing.T) {
	page := &domtest.Page{
		Handler: func(string, []any) (any, error) {
			return nil, errors.New("execution context destroyed")
		},
	}
	if _, err := New().Select(context.Background(), page); err == nil {
		t.Fatal("Select: expected error")
	}
}

func TestSelect_ThresholdPassedToPage(t *testing.T) {
	page := pageReturning(nil)
	_, err := New(WithMinChars(40)).Select(context.Background(), page)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	calls := page.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls: got %d, want 1", len(calls))
	}
	if len(calls[0].Args) != 1 || calls[0].Args[0] != 40 {
		t.Errorf("threshold arg: got %v, want [40]", calls[0].Args)
	}
}
