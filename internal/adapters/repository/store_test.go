package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/fakemeh/internal/domain/model"
	"github.com/okian/fakemeh/internal/domain/progression"
	"github.com/okian/fakemeh/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var _ progression.Store = (*ProgressStore)(nil)

func sampleProgression() model.Progression {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return model.Progression{
		Points:          275,
		Streak:          3,
		ChecksCompleted: 5,
		Badges:          []model.BadgeID{model.BadgeNoviceDetector},
		Leaderboard: []model.LeaderboardEntry{
			{Nickname: "ana", Points: 275, Timestamp: ts},
			{Nickname: "", Points: 100, Timestamp: ts.Add(-time.Hour)},
		},
	}
}

func saveAll(t *testing.T, s *ProgressStore, p model.Progression) {
	t.Helper()
	ctx := context.Background()
	for _, err := range []error{
		s.SavePoints(ctx, p.Points),
		s.SaveStreak(ctx, p.Streak),
		s.SaveChecksCompleted(ctx, p.ChecksCompleted),
		s.SaveBadges(ctx, p.Badges),
		s.SaveLeaderboard(ctx, p.Leaderboard),
	} {
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}
}

func assertProgression(t *testing.T, got, want model.Progression) {
	t.Helper()
	if got.Points != want.Points || got.Streak != want.Streak || got.ChecksCompleted != want.ChecksCompleted {
		t.Fatalf("counters mismatch: got %+v want %+v", got, want)
	}
	if len(got.Badges) != len(want.Badges) {
		t.Fatalf("badges mismatch: got %v want %v", got.Badges, want.Badges)
	}
	for i := range want.Badges {
		if got.Badges[i] != want.Badges[i] {
			t.Fatalf("badge %d: got %q want %q", i, got.Badges[i], want.Badges[i])
		}
	}
	if len(got.Leaderboard) != len(want.Leaderboard) {
		t.Fatalf("leaderboard length: got %d want %d", len(got.Leaderboard), len(want.Leaderboard))
	}
	for i, e := range want.Leaderboard {
		g := got.Leaderboard[i]
		if g.Nickname != e.Nickname || g.Points != e.Points || !g.Timestamp.Equal(e.Timestamp) {
			t.Fatalf("entry %d: got %+v want %+v", i, g, e)
		}
	}
}

func TestProgressStore_EmptyLoad(t *testing.T) {
	s := NewProgressStore(NewMemoryKV(), nil)
	p, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Points != 0 || p.Streak != 0 || p.ChecksCompleted != 0 || len(p.Badges) != 0 || len(p.Leaderboard) != 0 {
		t.Fatalf("expected zero progression, got %+v", p)
	}
}

func TestProgressStore_MemoryRoundTrip(t *testing.T) {
	s, err := Open(context.Background(), DriverMemory)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	want := sampleProgression()
	saveAll(t, s, want)
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertProgression(t, got, want)
}

func TestProgressStore_SQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.db")

	s, err := Open(ctx, DriverSQLite, WithSQLitePath(path))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want := sampleProgression()
	saveAll(t, s, want)
	// Overwrite one key to exercise the upsert path.
	want.Points = 300
	if err := s.SavePoints(ctx, want.Points); err != nil {
		t.Fatalf("save points: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(ctx, DriverSQLite, WithSQLitePath(path))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertProgression(t, got, want)
}

func TestProgressStore_UnreadableValuesLoadAsZero(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	_ = kv.Put(ctx, KeyPoints, "lots")
	_ = kv.Put(ctx, KeyStreak, "4 in a row")
	_ = kv.Put(ctx, KeyChecksCompleted, "12.9")
	_ = kv.Put(ctx, KeyBadges, "{not json")
	_ = kv.Put(ctx, KeyLeaderboard, `[{"nickname":1}]`)

	p, err := NewProgressStore(kv, nil).Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Points != 0 {
		t.Errorf("expected points 0, got %d", p.Points)
	}
	if p.Streak != 4 {
		t.Errorf("expected streak 4, got %d", p.Streak)
	}
	if p.ChecksCompleted != 12 {
		t.Errorf("expected checks 12, got %d", p.ChecksCompleted)
	}
	if p.Badges != nil || p.Leaderboard != nil {
		t.Errorf("expected empty lists, got %v %v", p.Badges, p.Leaderboard)
	}
}

func TestProgressStore_ReadsBrowserTimestamps(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	_ = kv.Put(ctx, KeyLeaderboard, `[{"nickname":"bo","points":150,"timestamp":"2024-03-02T10:04:05.123Z"}]`)

	p, err := NewProgressStore(kv, nil).Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Leaderboard) != 1 || p.Leaderboard[0].Points != 150 {
		t.Fatalf("unexpected leaderboard %+v", p.Leaderboard)
	}
	if p.Leaderboard[0].Timestamp.Year() != 2024 {
		t.Errorf("timestamp not parsed: %v", p.Leaderboard[0].Timestamp)
	}
}

func TestProgressStore_EmptyListsStoredAsArrays(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := NewProgressStore(kv, nil)
	if err := s.SaveBadges(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if v, _, _ := kv.Get(ctx, KeyBadges); v != "[]" {
		t.Errorf("expected [], got %q", v)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "etcd")
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
}

func TestOpen_BadRedisURL(t *testing.T) {
	_, err := Open(context.Background(), DriverRedis, WithRedisURL("not-a-url"))
	if err == nil {
		t.Fatal("expected error for malformed redis url")
	}
}

func TestMemoryKV_Closed(t *testing.T) {
	kv := NewMemoryKV()
	_ = kv.Close()
	if err := kv.Put(context.Background(), "k", "v"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, _, err := kv.Get(context.Background(), "k"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestParseLeadingInt(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"42", 42, true},
		{" -7 ", -7, true},
		{"12.9", 12, true},
		{"NaN", 0, false},
		{"", 0, false},
		{"-", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseLeadingInt(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("parseLeadingInt(%q) = %d,%v want %d,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
