// Package progression owns the durable gamification state of a session:
// it applies scoring outcomes with the zero floor, evaluates badges and
// keeps the leaderboard, writing every mutation through to the store.
package progression

import (
	"context"
	"errors"
	"time"

	"github.com/okian/fakemeh/internal/domain/dedupe"
	"github.com/okian/fakemeh/internal/domain/leaderboard"
	"github.com/okian/fakemeh/internal/domain/model"
	"github.com/okian/fakemeh/internal/domain/scoring"
	"github.com/okian/fakemeh/pkg/logger"
	"github.com/okian/fakemeh/pkg/metrics"
)

// Store persists the independently keyed progression values.
type Store interface {
	Load(ctx context.Context) (model.Progression, error)
	SavePoints(ctx context.Context, points int) error
	SaveStreak(ctx context.Context, streak int) error
	SaveChecksCompleted(ctx context.Context, checks int) error
	SaveBadges(ctx context.Context, badges []model.BadgeID) error
	SaveLeaderboard(ctx context.Context, entries []model.LeaderboardEntry) error
}

// Update describes what a single Apply changed.
type Update struct {
	Outcome      scoring.Outcome
	PointsBefore int
	PointsAfter  int
	Badge        model.BadgeID // empty when nothing unlocked
}

// Unlocked reports whether the update unlocked a badge.
func (u Update) Unlocked() bool { return u.Badge != "" }

// Tracker holds the loaded state. It is owned by one session loop and is
// not safe for concurrent use.
type Tracker struct {
	store           Store
	state           model.Progression
	leaderboardSize int
	recorded        dedupe.Deduper // submission ids already on the leaderboard
	logger          logger.Logger
}

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithLeaderboardSize sets how many leaderboard entries are kept.
func WithLeaderboardSize(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.leaderboardSize = n
		}
	}
}

// WithDeduper sets the set of submission ids that already produced a
// leaderboard entry.
func WithDeduper(d dedupe.Deduper) Option {
	return func(t *Tracker) {
		if d != nil {
			t.recorded = d
		}
	}
}

// WithLogger sets the tracker logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// Load reads the state once from store and returns a Tracker over it.
func Load(ctx context.Context, store Store, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		store:           store,
		leaderboardSize: leaderboard.DefaultSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.recorded == nil {
		t.recorded = dedupe.NewInMemoryDeduper()
	}
	if t.logger == nil {
		t.logger = logger.Get().Named("progression")
	}

	state, err := store.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrLoad, err)
	}
	t.state = normalize(state, t.leaderboardSize)
	metrics.UpdateProgression(t.state.Points, t.state.Streak, t.state.ChecksCompleted)

	t.logger.Info(ctx, "progression loaded",
		logger.Int("points", t.state.Points),
		logger.Int("streak", t.state.Streak),
		logger.Int("checksCompleted", t.state.ChecksCompleted),
		logger.Int("badges", len(t.state.Badges)),
	)
	return t, nil
}

// State returns a copy of the current progression.
func (t *Tracker) State() model.Progression {
	return t.state.Clone()
}

// Apply scores guess against verdict and persists each changed value
// immediately after mutating it. Every write is attempted even if an earlier
// one fails; the returned error joins all failures.
func (t *Tracker) Apply(ctx context.Context, guess model.Guess, verdict model.Verdict) (Update, error) {
	out := scoring.Evaluate(guess, verdict, t.state.Streak)
	upd := Update{Outcome: out, PointsBefore: t.state.Points}
	var errs []error

	t.state.Points = scoring.ApplyDelta(t.state.Points, out.PointsDelta)
	upd.PointsAfter = t.state.Points
	errs = append(errs, t.write(ctx, "points", func() error { return t.store.SavePoints(ctx, t.state.Points) }))

	t.state.Streak = out.NewStreak
	errs = append(errs, t.write(ctx, "streak", func() error { return t.store.SaveStreak(ctx, t.state.Streak) }))

	t.state.ChecksCompleted++
	errs = append(errs, t.write(ctx, "checksCompleted", func() error {
		return t.store.SaveChecksCompleted(ctx, t.state.ChecksCompleted)
	}))

	if badge, ok := scoring.UnlockCandidate(t.state.ChecksCompleted, t.state.Badges); ok {
		t.state.Badges = append(t.state.Badges, badge)
		upd.Badge = badge
		metrics.RecordBadgeUnlocked(string(badge))
		t.logger.Info(ctx, "badge unlocked", logger.String("badge", string(badge)))
		errs = append(errs, t.write(ctx, "badges", func() error { return t.store.SaveBadges(ctx, t.state.Badges) }))
	}

	metrics.RecordGuess(out.Correct)
	metrics.UpdateProgression(t.state.Points, t.state.Streak, t.state.ChecksCompleted)
	return upd, errors.Join(errs...)
}

// RecordLeaderboard inserts a snapshot of the current points under nickname
// for submissionID and persists the resulting leaderboard. A submission id
// that already has an entry is refused with ErrDuplicateEntry. When the
// write fails the insert is rolled back and the id forgotten, so the same
// submission may be recorded again.
func (t *Tracker) RecordLeaderboard(ctx context.Context, submissionID, nickname string, ts time.Time) (model.LeaderboardEntry, error) {
	if t.recorded.SeenAndRecord(ctx, submissionID) {
		t.logger.Warn(ctx, "leaderboard entry already recorded", logger.String("submissionID", submissionID))
		return model.LeaderboardEntry{}, ErrDuplicateEntry
	}

	entry := model.LeaderboardEntry{Nickname: nickname, Points: t.state.Points, Timestamp: ts}
	prev := t.state.Leaderboard
	t.state.Leaderboard = leaderboard.Insert(prev, entry, t.leaderboardSize)
	if err := t.write(ctx, "leaderboard", func() error { return t.store.SaveLeaderboard(ctx, t.state.Leaderboard) }); err != nil {
		t.state.Leaderboard = prev
		t.recorded.Unrecord(ctx, submissionID)
		return entry, err
	}
	metrics.RecordLeaderboardInsert()
	return entry, nil
}

func (t *Tracker) write(ctx context.Context, key string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordErrorByComponent("progression", "persist")
		t.logger.Error(ctx, "persist progression value failed", logger.String("key", key), logger.Error(err))
		return errors.Join(ErrPersist, err)
	}
	return nil
}

// normalize enforces the state invariants on values read from storage.
func normalize(p model.Progression, size int) model.Progression {
	p.Points = max(0, p.Points)
	p.Streak = max(0, p.Streak)
	p.ChecksCompleted = max(0, p.ChecksCompleted)

	seen := make(map[model.BadgeID]struct{}, len(p.Badges))
	badges := make([]model.BadgeID, 0, len(p.Badges))
	for _, b := range p.Badges {
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}
		badges = append(badges, b)
	}
	p.Badges = badges

	var board []model.LeaderboardEntry
	for _, e := range p.Leaderboard {
		board = leaderboard.Insert(board, e, size)
	}
	p.Leaderboard = board
	return p
}
