package textdiff

import (
	"strings"
	"testing"
)

func TestCountChanges_EqualInputs(t *testing.T) {
	for _, s := range []string{"", "a", "Hello world", strings.Repeat("long text ", 500)} {
		if got := CountChanges(s, s); got != 0 {
			t.Fatalf("CountChanges(%q, same) = %d, want 0", truncateForLog(s), got)
		}
	}
}

func TestCountChanges_AbsentSidePolicy(t *testing.T) {
	// An empty side means "no content to compare", not "maximal change".
	// Callers distinguish first-capture from no-change themselves.
	if got := CountChanges("", ""); got != 0 {
		t.Fatalf("CountChanges(\"\", \"\") = %d, want 0", got)
	}
	if got := CountChanges("", "Hello"); got != 0 {
		t.Fatalf("CountChanges(\"\", \"Hello\") = %d, want 0", got)
	}
	if got := CountChanges("Hello", ""); got != 0 {
		t.Fatalf("CountChanges(\"Hello\", \"\") = %d, want 0", got)
	}
}

func TestCountChanges_ShortPath(t *testing.T) {
	tests := []struct {
		name     string
		old, new string
		want     int
	}{
		{"append char", "Hello", "Hellox", 1},
		{"prepend char", "Hello", "xHello", 1},
		{"insert middle", "Hello", "Helxlo", 1},
		{"delete start", "Hello", "ello", 1},
		{"delete middle", "Hello", "Helo", 1},
		{"delete end", "Hello", "Hell", 1},
		{"substitute start", "Hello", "Jello", 1},
		{"substitute middle", "Hello", "Hexlo", 1},
		{"substitute end", "Hello", "Hellx", 1},
		{"word suffix", "Hello world", "Hello worlds", 1},
		{"two edits", "kitten", "sitting", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountChanges(tt.old, tt.new); got != tt.want {
				t.Fatalf("CountChanges(%q, %q) = %d, want %d", tt.old, tt.new, got, tt.want)
			}
		})
	}
}

func TestCountChanges_LengthRatioShortcut(t *testing.T) {
	// Lengths 3 vs 10 differ by more than half the larger length, so the DP
	// is skipped and the upper bound comes back.
	if got := CountChanges("abc", "abcdefghij"); got != 10 {
		t.Fatalf("expected shortcut result 10, got %d", got)
	}
}

func TestCountChanges_Symmetry(t *testing.T) {
	long := strings.Repeat("the quick brown fox ", 100)
	pairs := [][2]string{
		{"Hello", "Hellox"},
		{"Hello world", "world Hello"},
		{"abc", "abcdefghij"},
		{long, long + "jumps"},
		{"", "nonempty"},
	}
	for _, p := range pairs {
		ab := CountChanges(p[0], p[1])
		ba := CountChanges(p[1], p[0])
		if ab != ba {
			t.Fatalf("asymmetric: CountChanges(a,b)=%d CountChanges(b,a)=%d", ab, ba)
		}
	}
}

func TestCountChanges_LongPathWordLevel(t *testing.T) {
	// Both sides over the crossover: word-level counting kicks in.
	base := strings.Repeat("alpha beta gamma delta epsilon ", 50) // ~1550 chars
	changed := base + "omega"
	if got := CountChanges(base, changed); got != 1 {
		t.Fatalf("expected 1 added word, got %d", got)
	}

	// A substituted word counts once on each side.
	old := strings.TrimSpace(base) + " ending"
	new := strings.TrimSpace(base) + " finale"
	if got := CountChanges(old, new); got != 2 {
		t.Fatalf("expected 2 (one removed, one added), got %d", got)
	}
}

func TestCountChanges_LargeInputs(t *testing.T) {
	// Two ~100KB texts differing by one trailing character must resolve
	// through the word-level path quickly and with a small distance.
	base := strings.Repeat("monitoring ", 10000) // ~110KB
	got := CountChanges(base, base+"x")
	if got != 1 {
		t.Fatalf("expected 1 word change, got %d", got)
	}
}

func BenchmarkCountChangesLong(b *testing.B) {
	base := strings.Repeat("monitoring ", 10000)
	changed := base + "x"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		CountChanges(base, changed)
	}
}

func truncateForLog(s string) string {
	if len(s) > 20 {
		return s[:20] + "..."
	}
	return s
}
