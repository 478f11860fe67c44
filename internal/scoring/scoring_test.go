package scoring

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScoreExamples(t *testing.T) {
	tests := []struct {
		name       string
		turns      int
		timeMs     int64
		difficulty string
		want       float64
	}{
		{name: "easy", turns: 3, timeMs: 120000, difficulty: "easy", want: 3120},
		{name: "normal", turns: 4, timeMs: 100000, difficulty: "normal", want: 3176.923},
		{name: "hard", turns: 5, timeMs: 80000, difficulty: "hard", want: 3205},
		{name: "hard fast", turns: 3, timeMs: 90000, difficulty: "hard", want: 1965},
		{name: "unknown weighs one", turns: 2, timeMs: 0, difficulty: "extreme", want: 2000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.turns, tc.timeMs, tc.difficulty)
			if math.Abs(got-tc.want) > 0.001 {
				t.Fatalf("expected %.3f got %.3f", tc.want, got)
			}
		})
	}
}

func TestScoreMonotonic(t *testing.T) {
	for _, difficulty := range []string{"easy", "normal", "hard", ""} {
		for turns := 0; turns < 20; turns++ {
			for _, timeMs := range []int64{0, 999, 1000, 60000, 3600000} {
				base := Score(turns, timeMs, difficulty)
				if Score(turns+1, timeMs, difficulty) <= base {
					t.Fatalf("score not increasing in turns for %s t=%d", difficulty, turns)
				}
				if Score(turns, timeMs+1000, difficulty) <= base {
					t.Fatalf("score not increasing in time for %s t=%d", difficulty, turns)
				}
			}
		}
	}
}

func TestHarderDifficultyScoresLower(t *testing.T) {
	for turns := 1; turns < 15; turns++ {
		hard := Score(turns, 50000, "hard")
		normal := Score(turns, 50000, "normal")
		easy := Score(turns, 50000, "easy")
		if !(hard < normal && normal < easy) {
			t.Fatalf("expected hard < normal < easy for %d turns, got %f %f %f", turns, hard, normal, easy)
		}
	}
}

func TestRankFiltersAndSortsStably(t *testing.T) {
	entries := []Entry{
		{RoomID: "r1", Result: "success", Turns: 3, TimeMs: 120000, Difficulty: "easy"},
		{RoomID: "r2", Result: "failure", Turns: 1, TimeMs: 1000, Difficulty: "hard"},
		{RoomID: "r3", Result: "success", Turns: 4, TimeMs: 100000, Difficulty: "normal"},
		{RoomID: "r4", Result: "success", Turns: 5, TimeMs: 80000, Difficulty: "hard"},
		{RoomID: "r5", Result: "success", Turns: 3, TimeMs: 90000, Difficulty: "hard"},
		{RoomID: "r6", Result: "success", Turns: 3, TimeMs: 120000, Difficulty: "easy"},
	}

	ranked := Rank(entries)
	got := make([]string, 0, len(ranked))
	for _, entry := range ranked {
		got = append(got, entry.RoomID)
	}
	want := []string{"r5", "r1", "r6", "r3", "r4"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected ranking (-want +got):\n%s", diff)
	}
	if ranked[0].Rank != 1 || ranked[len(ranked)-1].Rank != len(ranked) {
		t.Fatalf("expected ranks to be 1-based and sequential")
	}
}

func TestRankEmpty(t *testing.T) {
	if got := Rank(nil); len(got) != 0 {
		t.Fatalf("expected empty ranking, got %d", len(got))
	}
}
