package level

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"A1", A1, false},
		{"b2", B2, false},
		{" c1 ", C1, false},
		{"", "", true},
		{"D1", "", true},
		{"A3", "", true},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error, got %q", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Parse(%q): got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestGuideline_AllLevelsDistinct(t *testing.T) {
	seen := make(map[string]Level)
	for _, l := range All {
		g := Guideline(l)
		if g == "" {
			t.Errorf("Guideline(%s): empty", l)
		}
		if prev, dup := seen[g]; dup {
			t.Errorf("Guideline(%s) duplicates %s", l, prev)
		}
		seen[g] = l
	}
}

func TestGuideline_UnknownFallsBackToB1(t *testing.T) {
	if got := Guideline(Level("X9")); got != Guideline(B1) {
		t.Errorf("unknown level: got %q, want B1 guideline", got)
	}
}
