// Package scoring maps a user's guess and the backend verdict onto point
// deltas, streak transitions and badge unlocks. Everything here is pure.
package scoring

import "github.com/okian/fakemeh/internal/domain/model"

// Point values for a single analysis.
const (
	basePoints          = 100
	highConfidenceBonus = 50
	midConfidenceBonus  = 25
	streakBonus         = 50
	wrongGuessPenalty   = -50

	highConfidenceScore = 0.9
	midConfidenceScore  = 0.7
	streakBonusFrom     = 3
)

// Outcome is the result of scoring one completed analysis.
type Outcome struct {
	Correct     bool
	PointsDelta int // may be negative; the floor is applied by the caller
	NewStreak   int
}

// Evaluate scores guess against verdict given the streak before this check.
func Evaluate(guess model.Guess, verdict model.Verdict, priorStreak int) Outcome {
	if IsCorrect(guess, verdict.Classification) {
		delta := basePoints + confidenceBonus(verdict.Score)
		streak := priorStreak + 1
		if streak >= streakBonusFrom {
			delta += streakBonus
		}
		return Outcome{Correct: true, PointsDelta: delta, NewStreak: streak}
	}
	return Outcome{Correct: false, PointsDelta: wrongGuessPenalty, NewStreak: 0}
}

// IsCorrect reports whether guess matches the classification.
func IsCorrect(guess model.Guess, c model.Classification) bool {
	switch guess {
	case model.GuessFake:
		return c.IsFake()
	case model.GuessReal:
		return !c.IsFake()
	default:
		return false
	}
}

func confidenceBonus(score float64) int {
	switch {
	case score >= highConfidenceScore:
		return highConfidenceBonus
	case score >= midConfidenceScore:
		return midConfidenceBonus
	default:
		return 0
	}
}

// ApplyDelta adds delta to points, never going below zero.
func ApplyDelta(points, delta int) int {
	return max(0, points+delta)
}

// UnlockCandidate returns the badge unlocked when checksCompleted (already
// incremented for the current check) hits a milestone exactly. At most one
// badge is returned and a held badge is never returned again.
func UnlockCandidate(checksCompleted int, held []model.BadgeID) (model.BadgeID, bool) {
	for _, m := range model.Milestones {
		if checksCompleted != m.Threshold {
			continue
		}
		for _, b := range held {
			if b == m.Badge {
				return "", false
			}
		}
		return m.Badge, true
	}
	return "", false
}
