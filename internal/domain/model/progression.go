package model

import (
	"fmt"
	"slices"
	"time"
)

// BadgeID names a checksCompleted milestone.
type BadgeID string

const (
	BadgeNoviceDetector BadgeID = "Novice Detector"
	BadgeExpertAnalyst  BadgeID = "Expert Analyst"
	BadgeFakeBuster     BadgeID = "Fake Buster"
)

// Milestone binds a badge to the checksCompleted value that unlocks it.
type Milestone struct {
	Badge     BadgeID
	Threshold int
}

// Milestones lists the badges in unlock order.
var Milestones = []Milestone{
	{Badge: BadgeNoviceDetector, Threshold: 5},
	{Badge: BadgeExpertAnalyst, Threshold: 20},
	{Badge: BadgeFakeBuster, Threshold: 50},
}

// anonymousName is shown for leaderboard entries without a nickname.
const anonymousName = "Anonymous"

// LeaderboardEntry is a points snapshot taken when an analysis completed.
type LeaderboardEntry struct {
	Nickname  string    `json:"nickname"`
	Points    int       `json:"points"`
	Timestamp time.Time `json:"timestamp"`
}

// DisplayName returns the nickname or "Anonymous" when it is empty.
func (e LeaderboardEntry) DisplayName() string {
	if e.Nickname == "" {
		return anonymousName
	}
	return e.Nickname
}

// Progression is the durable per-device gamification state.
type Progression struct {
	Points          int                `json:"points"`
	Streak          int                `json:"streak"`
	ChecksCompleted int                `json:"checks_completed"`
	Badges          []BadgeID          `json:"badges"`
	Leaderboard     []LeaderboardEntry `json:"leaderboard"`
}

// HasBadge reports whether id was already unlocked.
func (p Progression) HasBadge(id BadgeID) bool {
	return slices.Contains(p.Badges, id)
}

// Clone returns a deep copy safe to hand to other goroutines.
func (p Progression) Clone() Progression {
	c := p
	c.Badges = slices.Clone(p.Badges)
	c.Leaderboard = slices.Clone(p.Leaderboard)
	return c
}

// NextBadgeProgress describes how far the user is from the next milestone.
func (p Progression) NextBadgeProgress() string {
	for _, m := range Milestones {
		if p.ChecksCompleted < m.Threshold {
			return fmt.Sprintf("Progress to %s: %d/%d", m.Badge, p.ChecksCompleted, m.Threshold)
		}
	}
	return "Max badges achieved!"
}
