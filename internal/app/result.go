package service

import (
	"context"
	"image"
	"time"

	"github.com/okian/fakemeh/internal/domain/model"
)

// Result is what one completed submission produced.
type Result struct {
	SubmissionID string         `json:"submission_id"`
	Guess        string         `json:"guess"`
	Verdict      *model.Verdict `json:"verdict,omitempty"`
	Label        string         `json:"classification,omitempty"`

	Correct     bool                    `json:"correct"`
	PointsDelta int                     `json:"points_delta"`
	Points      int                     `json:"points"`
	Streak      int                     `json:"streak"`
	Badge       model.BadgeID           `json:"badge_unlocked,omitempty"`
	Entry       *model.LeaderboardEntry `json:"leaderboard_entry,omitempty"`
	// Rank is the entry's 1-based leaderboard position, 0 when it missed the cut.
	Rank int `json:"leaderboard_rank,omitempty"`

	// Fallback is set when the verdict carried no anomaly points.
	Fallback string `json:"fallback,omitempty"`
	// Display is the frame to show: the composited overlay, or the unmarked
	// image when no overlay could be drawn. Nil when no image was uploaded.
	Display image.Image `json:"-"`

	Err          error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"`
	HeatmapErr   error  `json:"-"`
	PersistErr   error  `json:"-"`

	CompletedAt time.Time `json:"completed_at"`
}

// Failed reports whether the analysis itself failed.
func (r *Result) Failed() bool { return r.Err != nil }

// Ticket tracks one dispatched submission.
type Ticket struct {
	ID     string
	done   chan struct{}
	result *Result
}

func newTicket(id string) *Ticket {
	return &Ticket{ID: id, done: make(chan struct{})}
}

func (t *Ticket) complete(r *Result) {
	t.result = r
	close(t.done)
}

// Done is closed once the result is available.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Wait blocks until the submission completes or ctx is done. A failed
// analysis returns the result together with its error.
func (t *Ticket) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-t.done:
		return t.result, t.result.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Draft is the submission being composed before Check.
type Draft struct {
	ImageName string      `json:"image_name,omitempty"`
	HasImage  bool        `json:"has_image"`
	URL       string      `json:"url,omitempty"`
	Guess     model.Guess `json:"-"`
	GuessName string      `json:"guess,omitempty"`
	Nickname  string      `json:"nickname,omitempty"`

	imageData []byte
}

func (d Draft) submission() model.Submission {
	return model.Submission{
		ImageData: d.imageData,
		ImageName: d.ImageName,
		URL:       d.URL,
		Guess:     d.Guess,
		Nickname:  d.Nickname,
	}
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	Phase        Phase             `json:"phase"`
	InFlightID   string            `json:"in_flight_id,omitempty"`
	Draft        Draft             `json:"draft"`
	LastResult   *Result           `json:"last_result,omitempty"`
	LastError    string            `json:"last_error,omitempty"`
	Progression  model.Progression `json:"progression"`
	NextBadge    string            `json:"next_badge"`
	ImageVisible bool              `json:"image_visible"`
}
