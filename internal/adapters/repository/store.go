package repository

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/okian/fakemeh/internal/domain/model"
	"github.com/okian/fakemeh/pkg/logger"
)

// Keys under which each progression value is stored independently.
const (
	KeyPoints          = "fakemehPoints"
	KeyBadges          = "fakemehBadges"
	KeyStreak          = "fakemehStreak"
	KeyChecksCompleted = "checksCompleted"
	KeyLeaderboard     = "fakemehLeaderboard"
)

// ProgressStore maps the progression values onto a KV backend. Integers are
// stored as decimal strings and lists as JSON.
type ProgressStore struct {
	kv     KV
	logger logger.Logger
}

// NewProgressStore wraps kv.
func NewProgressStore(kv KV, l logger.Logger) *ProgressStore {
	if l == nil {
		l = logger.Get().Named("repository")
	}
	return &ProgressStore{kv: kv, logger: l}
}

// Open builds the KV for driver and wraps it in a ProgressStore.
func Open(ctx context.Context, driver string, opts ...Option) (*ProgressStore, error) {
	cfg := config{sqlitePath: "fakemeh.db"}
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		kv  KV
		err error
	)
	switch strings.ToLower(driver) {
	case DriverSQLite, "":
		kv, err = NewSQLiteKV(ctx, cfg.sqlitePath)
	case DriverRedis:
		kv, err = NewRedisKV(ctx, cfg.redisURL, cfg.keyPrefix)
	case DriverMemory:
		kv = NewMemoryKV()
	default:
		return nil, eris.Wrapf(ErrUnknownDriver, "driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return NewProgressStore(kv, cfg.logger), nil
}

// Close releases the backend.
func (s *ProgressStore) Close() error {
	return s.kv.Close()
}

// Load reads every key. Missing keys are zero values; values that cannot be
// parsed are logged and also treated as zero. Only backend failures return
// an error.
func (s *ProgressStore) Load(ctx context.Context) (model.Progression, error) {
	var p model.Progression
	var err error

	if p.Points, err = s.loadInt(ctx, KeyPoints); err != nil {
		return model.Progression{}, err
	}
	if p.Streak, err = s.loadInt(ctx, KeyStreak); err != nil {
		return model.Progression{}, err
	}
	if p.ChecksCompleted, err = s.loadInt(ctx, KeyChecksCompleted); err != nil {
		return model.Progression{}, err
	}
	if p.Badges, err = loadJSON[[]model.BadgeID](ctx, s, KeyBadges); err != nil {
		return model.Progression{}, err
	}
	if p.Leaderboard, err = loadJSON[[]model.LeaderboardEntry](ctx, s, KeyLeaderboard); err != nil {
		return model.Progression{}, err
	}
	return p, nil
}

func (s *ProgressStore) SavePoints(ctx context.Context, points int) error {
	return s.kv.Put(ctx, KeyPoints, strconv.Itoa(points))
}

func (s *ProgressStore) SaveStreak(ctx context.Context, streak int) error {
	return s.kv.Put(ctx, KeyStreak, strconv.Itoa(streak))
}

func (s *ProgressStore) SaveChecksCompleted(ctx context.Context, checks int) error {
	return s.kv.Put(ctx, KeyChecksCompleted, strconv.Itoa(checks))
}

func (s *ProgressStore) SaveBadges(ctx context.Context, badges []model.BadgeID) error {
	if badges == nil {
		badges = []model.BadgeID{}
	}
	return s.putJSON(ctx, KeyBadges, badges)
}

func (s *ProgressStore) SaveLeaderboard(ctx context.Context, entries []model.LeaderboardEntry) error {
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	return s.putJSON(ctx, KeyLeaderboard, entries)
}

func (s *ProgressStore) putJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "marshal %s", key)
	}
	return s.kv.Put(ctx, key, string(b))
}

func (s *ProgressStore) loadInt(ctx context.Context, key string) (int, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	n, ok := parseLeadingInt(raw)
	if !ok {
		s.logger.Warn(ctx, "unreadable stored value, using zero", logger.String("key", key))
		return 0, nil
	}
	return n, nil
}

func loadJSON[T any](ctx context.Context, s *ProgressStore, key string) (T, error) {
	var zero T
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return zero, err
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		s.logger.Warn(ctx, "unreadable stored value, using zero", logger.String("key", key), logger.Error(err))
		return zero, nil
	}
	return v, nil
}

// parseLeadingInt accepts an optional sign followed by digits, ignoring any
// trailing text, so "12" and "12.7" both read as 12.
func parseLeadingInt(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	end := 0
	if end < len(raw) && (raw[end] == '-' || raw[end] == '+') {
		end++
	}
	digits := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.ParseInt(raw[:end], 10, 64)
	if err != nil || n > math.MaxInt32 || n < math.MinInt32 {
		return 0, false
	}
	return int(n), true
}
