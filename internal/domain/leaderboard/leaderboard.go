// Package leaderboard keeps the bounded top-N list of points snapshots.
package leaderboard

import (
	"slices"

	"github.com/okian/fakemeh/internal/domain/model"
)

// DefaultSize is the number of entries retained.
const DefaultSize = 5

// Insert returns a new leaderboard with entry added, ordered by points
// descending and truncated to limit. Ties keep their insertion order.
// The input slice is not modified.
func Insert(entries []model.LeaderboardEntry, entry model.LeaderboardEntry, limit int) []model.LeaderboardEntry {
	if limit <= 0 {
		limit = DefaultSize
	}
	out := make([]model.LeaderboardEntry, 0, len(entries)+1)
	out = append(out, entries...)
	out = append(out, entry)
	slices.SortStableFunc(out, func(a, b model.LeaderboardEntry) int {
		return b.Points - a.Points
	})
	if len(out) > limit {
		out = out[:limit:limit]
	}
	return out
}

// Rank returns the 1-based position of the entry equal to e, or 0 when it
// did not make the cut.
func Rank(entries []model.LeaderboardEntry, e model.LeaderboardEntry) int {
	for i, cur := range entries {
		if cur.Nickname == e.Nickname && cur.Points == e.Points && cur.Timestamp.Equal(e.Timestamp) {
			return i + 1
		}
	}
	return 0
}
