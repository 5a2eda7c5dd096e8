package derive

import (
	"fmt"
	"math"
	"sort"
)

// DeriveCategory classifies the match by team-size distribution: two equal
// teams give "<n>v<n>", a single team is either "1v1" (solo, degenerate)
// or "<n>p" co-op, and anything else is a free-for-all.
func DeriveCategory(players []Player) string {
	teamCounts := make(map[int]int)
	for _, p := range players {
		teamCounts[p.TeamID]++
	}

	counts := make([]int, 0, len(teamCounts))
	for _, n := range teamCounts {
		counts = append(counts, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))

	switch {
	case len(counts) == 2 && counts[0] == counts[1]:
		return fmt.Sprintf("%dv%d", counts[0], counts[1])
	case len(counts) == 1 && counts[0] == 1:
		return "1v1"
	case len(counts) == 1:
		return fmt.Sprintf("%dp", counts[0])
	default:
		return "ffa"
	}
}

// DurationSeconds normalizes a raw millisecond duration to whole seconds
// with a floor of 1. Missing, negative, or NaN input also yields 1 so the
// record never carries a nonsensical duration.
func DurationSeconds(durationMS float64) int {
	if math.IsNaN(durationMS) || durationMS <= 0 {
		return 1
	}
	secs := int(math.Round(durationMS / 1000))
	if secs < 1 {
		return 1
	}
	return secs
}
