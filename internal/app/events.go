package service

import (
	"context"
	"errors"

	"github.com/okian/fakemeh/internal/adapters/backend"
	"github.com/okian/fakemeh/internal/domain/leaderboard"
	"github.com/okian/fakemeh/internal/domain/model"
	"github.com/okian/fakemeh/pkg/logger"
	"github.com/okian/fakemeh/pkg/metrics"
)

// event is anything the loop processes.
type event interface {
	apply(ctx context.Context, s *Session)
}

// finisher is implemented by events that answer a waiting caller. finish
// runs after the snapshot reflecting apply has been published.
type finisher interface {
	finish()
}

type submitReply struct {
	ticket *Ticket
	err    error
}

type submitCmd struct {
	sub       model.Submission
	fromDraft bool
	reply     chan<- submitReply
	out       submitReply
}

func (c *submitCmd) finish() { c.reply <- c.out }

func (c *submitCmd) apply(ctx context.Context, s *Session) {
	if s.phase.InFlight() {
		metrics.RecordSubmission(metrics.OutcomeRejected)
		c.out = submitReply{err: ErrSubmissionInFlight}
		return
	}

	sub := c.sub
	if c.fromDraft {
		sub = s.draft.submission()
	}

	s.setPhase(PhaseValidating)
	if err := Validate(sub); err != nil {
		s.setPhase(PhaseIdle)
		s.lastError = err.Error()
		metrics.RecordSubmission(metrics.OutcomeMissingGuess)
		c.out = submitReply{err: err}
		return
	}

	id := newSubmissionID()
	s.current = &inFlight{id: id, sub: sub, ticket: newTicket(id), started: s.now()}
	s.lastError = ""
	s.lastResult = nil
	s.setPhase(PhaseSubmitting)
	s.logger.Info(ctx, "submission dispatched",
		logger.String("submissionID", id),
		logger.String("guess", sub.Guess.String()),
		logger.Bool("hasImage", sub.HasImage()),
		logger.Bool("hasURL", sub.URL != ""),
	)
	go s.dispatch(id, sub)
	c.out = submitReply{ticket: s.current.ticket}
}

// Validate fails with ErrMissingGuess when sub carries no guess. Missing
// image and URL are left for the backend to reject.
func Validate(sub model.Submission) error {
	if !sub.Guess.IsSet() {
		return ErrMissingGuess
	}
	return nil
}

type draftCmd struct {
	// edit mutates the draft and reports whether the guess and previous
	// result must be cleared.
	edit func(d *Draft) bool
	done chan struct{}
}

func (c *draftCmd) finish() { close(c.done) }

func (c *draftCmd) apply(_ context.Context, s *Session) {
	if !c.edit(&s.draft) {
		return
	}
	s.draft.Guess = model.GuessUnset
	s.draft.GuessName = ""
	s.lastResult = nil
	s.lastError = ""
	if !s.phase.InFlight() {
		s.setPhase(PhaseIdle)
	}
}

type dispatchedEvt struct {
	id string
}

func (e *dispatchedEvt) apply(_ context.Context, s *Session) {
	if s.current != nil && s.current.id == e.id && s.phase == PhaseSubmitting {
		s.setPhase(PhaseAwaitingVerdict)
	}
}

type completionEvt struct {
	id      string
	verdict model.Verdict
	err     error

	ticket *Ticket
	result *Result
}

func (e *completionEvt) finish() {
	if e.ticket != nil {
		e.ticket.complete(e.result)
	}
}

func (e *completionEvt) apply(ctx context.Context, s *Session) {
	if s.current == nil || s.current.id != e.id {
		s.logger.Warn(ctx, "completion for unknown submission ignored", logger.String("submissionID", e.id))
		return
	}

	cur := s.current
	s.current = nil
	var res *Result
	if e.err != nil {
		res = s.fail(ctx, cur, e.err)
	} else {
		res = s.succeed(ctx, cur, e.verdict)
	}
	s.lastResult = res
	e.ticket, e.result = cur.ticket, res
}

func (s *Session) fail(ctx context.Context, cur *inFlight, err error) *Result {
	msg := backend.DefaultAnalysisMessage
	var ae *backend.AnalysisError
	if errors.As(err, &ae) {
		msg = ae.Message
	}
	s.setPhase(PhaseFailed)
	s.lastError = msg
	metrics.RecordSubmission(metrics.OutcomeFailed)
	s.logger.Warn(ctx, "analysis failed", logger.String("submissionID", cur.id), logger.Error(err))
	return &Result{
		SubmissionID: cur.id,
		Guess:        cur.sub.Guess.String(),
		Err:          err,
		ErrorMessage: msg,
		CompletedAt:  s.now(),
	}
}

// succeed applies the verdict in order: scoring and persistence, badge,
// leaderboard, then heatmap.
func (s *Session) succeed(ctx context.Context, cur *inFlight, verdict model.Verdict) *Result {
	s.setPhase(PhaseSucceeded)
	metrics.RecordSubmission(metrics.OutcomeSucceeded)

	res := &Result{
		SubmissionID: cur.id,
		Guess:        cur.sub.Guess.String(),
		Verdict:      &verdict,
		Label:        verdict.Classification.String(),
		CompletedAt:  s.now(),
	}

	upd, persistErr := s.tracker.Apply(ctx, cur.sub.Guess, verdict)
	res.Correct = upd.Outcome.Correct
	res.PointsDelta = upd.PointsAfter - upd.PointsBefore
	res.Badge = upd.Badge

	if cur.sub.Nickname != "" {
		entry, err := s.tracker.RecordLeaderboard(ctx, cur.id, cur.sub.Nickname, res.CompletedAt)
		if err == nil {
			res.Entry = &entry
		}
		persistErr = errors.Join(persistErr, err)
	}
	res.PersistErr = persistErr

	state := s.tracker.State()
	res.Points = state.Points
	res.Streak = state.Streak
	if res.Entry != nil {
		res.Rank = leaderboard.Rank(state.Leaderboard, *res.Entry)
	}

	s.renderResult(ctx, cur.sub, verdict, res)

	s.logger.Info(ctx, "verdict applied",
		logger.String("submissionID", cur.id),
		logger.String("classification", res.Label),
		logger.Bool("correct", res.Correct),
		logger.Int("pointsDelta", res.PointsDelta),
		logger.Int("points", res.Points),
	)
	return res
}
