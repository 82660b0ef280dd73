// Package service runs the detection session: it validates a guess, sends
// the submission to the analysis backend and, once the verdict arrives,
// applies scoring, progression and heatmap rendering on a single loop.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fakemeh/internal/adapters/mq/queue"
	"github.com/okian/fakemeh/internal/adapters/mq/worker"
	"github.com/okian/fakemeh/internal/domain/heatmap"
	"github.com/okian/fakemeh/internal/domain/model"
	"github.com/okian/fakemeh/internal/domain/progression"
	"github.com/okian/fakemeh/pkg/logger"
	"github.com/okian/fakemeh/pkg/metrics"
)

const defaultMailboxCapacity = 32

// Analyzer sends a submission to the analysis backend.
type Analyzer interface {
	Analyze(ctx context.Context, sub model.Submission) (model.Verdict, error)
}

// inFlight is the submission currently outstanding.
type inFlight struct {
	id      string
	sub     model.Submission
	ticket  *Ticket
	started time.Time
}

// Session serializes every state change through one loop goroutine. Public
// methods post commands to the loop; Snapshot reads a published copy.
type Session struct {
	analyzer Analyzer
	tracker  *progression.Tracker
	renderer *heatmap.Renderer

	mailboxCapacity int
	revealDelay     time.Duration
	overlayOpacity  float64
	displayWidth    int
	maxImagePixels  int
	now             func() time.Time

	mailbox *queue.InMemoryQueue[event]
	loop    *worker.Loop[event]

	// Owned by the loop goroutine.
	phase      Phase
	draft      Draft
	current    *inFlight
	lastResult *Result
	lastError  string

	view atomic.Pointer[Snapshot]

	startOnce sync.Once
	started   atomic.Bool
	stopOnce  sync.Once
	stopped   chan struct{}

	logger logger.Logger
}

// New constructs a Session over a loaded progression tracker.
func New(analyzer Analyzer, tracker *progression.Tracker, opts ...Option) *Session {
	s := &Session{
		analyzer:        analyzer,
		tracker:         tracker,
		mailboxCapacity: defaultMailboxCapacity,
		overlayOpacity:  heatmap.DefaultOverlayOpacity,
		maxImagePixels:  heatmap.DefaultMaxPixels,
		now:             time.Now,
		stopped:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("session")
	}
	if s.renderer == nil {
		s.renderer = heatmap.NewRenderer()
	}

	s.mailbox = queue.NewInMemoryQueue[event](
		queue.WithCapacity(s.mailboxCapacity),
		queue.WithName("session_mailbox"),
	)
	s.loop = worker.NewLoop[event](s.mailbox, s, worker.WithName("session"), worker.WithLogger(s.logger))
	s.publish()
	return s
}

// Start runs the loop in the background until Stop or ctx is cancelled.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.logger.Info(ctx, "session started",
			logger.Int("mailboxCapacity", s.mailboxCapacity),
			logger.Duration("revealDelay", s.revealDelay),
		)
		s.started.Store(true)
		go s.loop.Run(ctx)
	})
}

// Stop closes the mailbox, lets the loop drain it and fails any submission
// that is still outstanding with ErrStopped.
func (s *Session) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopped)
		_ = s.mailbox.Close()
		if !s.started.Load() {
			return
		}

		select {
		case <-s.loop.Done():
		case <-ctx.Done():
			err = s.loop.Shutdown(ctx)
			return
		}

		if s.current != nil {
			s.current.ticket.complete(&Result{
				SubmissionID: s.current.id,
				Err:          ErrStopped,
				ErrorMessage: ErrStopped.Error(),
			})
			s.current = nil
		}
		s.logger.Info(ctx, "session stopped")
	})
	return err
}

// Snapshot returns the latest published view. Safe for concurrent use.
func (s *Session) Snapshot() Snapshot {
	return *s.view.Load()
}

// Submit validates sub and dispatches it. It fails with ErrMissingGuess
// when no guess was made and with ErrSubmissionInFlight while another
// submission is outstanding; neither touches the network.
func (s *Session) Submit(ctx context.Context, sub model.Submission) (*Ticket, error) {
	reply := make(chan submitReply, 1)
	if err := s.post(ctx, &submitCmd{sub: sub, reply: reply}); err != nil {
		return nil, err
	}
	return awaitReply(ctx, reply)
}

// Check submits the current draft.
func (s *Session) Check(ctx context.Context) (*Ticket, error) {
	reply := make(chan submitReply, 1)
	if err := s.post(ctx, &submitCmd{fromDraft: true, reply: reply}); err != nil {
		return nil, err
	}
	return awaitReply(ctx, reply)
}

// SelectImage attaches an uploaded image to the draft. The guess and the
// previous result are cleared.
func (s *Session) SelectImage(ctx context.Context, name string, data []byte) error {
	return s.editDraft(ctx, func(d *Draft) bool {
		d.ImageName = name
		d.imageData = data
		d.HasImage = len(data) > 0
		return true
	})
}

// SetURL sets the draft URL. The guess and the previous result are cleared.
func (s *Session) SetURL(ctx context.Context, url string) error {
	return s.editDraft(ctx, func(d *Draft) bool {
		d.URL = url
		return true
	})
}

// SetGuess records the user's guess on the draft.
func (s *Session) SetGuess(ctx context.Context, g model.Guess) error {
	return s.editDraft(ctx, func(d *Draft) bool {
		d.Guess = g
		d.GuessName = g.String()
		return false
	})
}

// SetNickname sets the leaderboard nickname on the draft.
func (s *Session) SetNickname(ctx context.Context, nickname string) error {
	return s.editDraft(ctx, func(d *Draft) bool {
		d.Nickname = nickname
		return false
	})
}

// editDraft applies edit on the loop and waits until it is visible in
// Snapshot.
func (s *Session) editDraft(ctx context.Context, edit func(d *Draft) bool) error {
	cmd := &draftCmd{edit: edit, done: make(chan struct{})}
	if err := s.post(ctx, cmd); err != nil {
		return err
	}
	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post enqueues a command without blocking.
func (s *Session) post(ctx context.Context, ev event) error {
	select {
	case <-s.stopped:
		return ErrStopped
	default:
	}
	if !s.mailbox.Enqueue(ctx, ev) {
		if s.mailbox.IsClosed() {
			return ErrStopped
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrBusy
	}
	return nil
}

func awaitReply(ctx context.Context, reply <-chan submitReply) (*Ticket, error) {
	select {
	case r := <-reply:
		return r.ticket, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Handle runs one event on the loop goroutine.
func (s *Session) Handle(ctx context.Context, ev event) error {
	ev.apply(ctx, s)
	s.publish()
	if f, ok := ev.(finisher); ok {
		f.finish()
	}
	return nil
}

func (s *Session) setPhase(p Phase) {
	s.phase = p
	metrics.UpdateSessionPhase(int(p))
}

// publish stores a fresh snapshot for readers.
func (s *Session) publish() {
	snap := &Snapshot{
		Phase:      s.phase,
		Draft:      s.draft,
		LastResult: s.lastResult,
		LastError:  s.lastError,
	}
	snap.Draft.imageData = nil
	if s.current != nil {
		snap.InFlightID = s.current.id
	}
	if s.tracker != nil {
		snap.Progression = s.tracker.State()
		snap.NextBadge = snap.Progression.NextBadgeProgress()
	}
	snap.ImageVisible = s.lastResult != nil && s.lastResult.Display != nil
	s.view.Store(snap)
}

// dispatch runs the backend call off the loop. The request context is
// detached from the caller so a dispatched submission is never cancelled.
func (s *Session) dispatch(id string, sub model.Submission) {
	ctx := context.Background()
	if err := s.mailbox.Put(ctx, &dispatchedEvt{id: id}); err != nil {
		return
	}

	start := time.Now()
	verdict, err := s.analyzer.Analyze(ctx, sub)
	metrics.RecordAnalysisLatency(float64(time.Since(start).Milliseconds()))

	if err == nil && s.revealDelay > 0 {
		t := time.NewTimer(s.revealDelay)
		select {
		case <-t.C:
		case <-s.stopped:
			t.Stop()
		}
	}
	if putErr := s.mailbox.Put(ctx, &completionEvt{id: id, verdict: verdict, err: err}); putErr != nil {
		s.logger.Warn(ctx, "verdict dropped, session stopped", logger.String("submissionID", id))
	}
}

func newSubmissionID() string {
	return uuid.NewString()
}
