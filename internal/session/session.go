// Package session tracks per-player game sessions and guarantees that a spin
// gesture maps to exactly one selection and one award attempt, no matter how
// many times the player taps while the wheel is turning.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rewardly/platform/internal/domain"
)

// State is the lifecycle phase of a session.
type State string

const (
	StateIdle     State = "idle"
	StateSpinning State = "spinning"
	StateSettled  State = "settled"
)

// Hooks are optional callbacks fired on session transitions. Nil fields are
// skipped. Callbacks run synchronously on the calling goroutine, so they must
// not call back into the session.
type Hooks struct {
	OnSpinStart              func(playerID uuid.UUID, sequence uint64)
	OnSpinSettled            func(playerID uuid.UUID, outcome *domain.SpinOutcome)
	OnReconciliationPending  func(playerID, spinID uuid.UUID)
	OnReconciliationResolved func(playerID uuid.UUID, tx *domain.Transaction)
}

// Result is what a spin gesture resolves to. When the ledger was unreachable
// the outcome is still present and Pending is true; Command arrives later via
// reconciliation.
type Result struct {
	Outcome *domain.SpinOutcome
	Command *domain.CommandResult
	Pending bool
}

// SpinFunc performs the actual selection and award for one gesture. The
// session invokes it at most once per in-flight spin.
type SpinFunc func(ctx context.Context, sequence uint64) (*Result, error)

type inflight struct {
	done chan struct{}
	res  *Result
	err  error
}

// Session is the per-player state machine. All exported methods are safe for
// concurrent use.
type Session struct {
	mu             sync.Mutex
	playerID       uuid.UUID
	state          State
	spinsRemaining int
	pendingAwards  int
	sequence       uint64
	lastOutcome    *domain.SpinOutcome
	awarded        bool
	cur            *inflight
	lastActive     time.Time
	hooks          Hooks
}

// New creates an idle session for the player. spinsRemaining is an advisory
// mirror of the server-owned counter; the ledger remains the authority.
func New(playerID uuid.UUID, spinsRemaining int, hooks Hooks) *Session {
	return &Session{
		playerID:       playerID,
		state:          StateIdle,
		spinsRemaining: spinsRemaining,
		hooks:          hooks,
		lastActive:     time.Now(),
	}
}

// Begin runs one spin gesture. If a spin is already in flight the call does
// not start another one; it waits for the in-flight spin and returns its
// result, so rapid taps collapse into a single selection and a single award
// attempt. A settled session is implicitly reset before the new spin.
func (s *Session) Begin(ctx context.Context, spin SpinFunc) (*Result, error) {
	s.mu.Lock()

	if s.state == StateSpinning && s.cur != nil {
		fl := s.cur
		s.mu.Unlock()
		select {
		case <-fl.done:
			return fl.res, fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if s.state == StateSettled {
		s.resetLocked()
	}

	if s.spinsRemaining <= 0 {
		s.mu.Unlock()
		return nil, domain.ErrNoSpinsRemaining()
	}

	s.state = StateSpinning
	s.sequence++
	seq := s.sequence
	s.awarded = false
	fl := &inflight{done: make(chan struct{})}
	s.cur = fl
	s.lastActive = time.Now()
	s.mu.Unlock()

	if s.hooks.OnSpinStart != nil {
		s.hooks.OnSpinStart(s.playerID, seq)
	}

	res, err := spin(ctx, seq)
	s.settle(fl, res, err)
	return res, err
}

// settle records the spin function's result exactly once and releases any
// callers waiting on the in-flight spin.
func (s *Session) settle(fl *inflight, res *Result, err error) {
	s.mu.Lock()
	fl.res = res
	fl.err = err
	s.cur = nil
	s.lastActive = time.Now()

	if err != nil || res == nil {
		s.state = StateIdle
		s.mu.Unlock()
		close(fl.done)
		return
	}

	s.state = StateSettled
	s.lastOutcome = res.Outcome
	s.awarded = true
	if res.Command != nil && res.Command.Player != nil {
		s.spinsRemaining = res.Command.Player.SpinsRemaining
	} else if s.spinsRemaining > 0 {
		s.spinsRemaining--
	}
	if res.Pending {
		// The award sits in the retry queue and the server counter has not
		// decremented yet. Remember the consumed entitlement so counter
		// refreshes from the stale player row cannot re-open it.
		s.pendingAwards++
	}
	s.mu.Unlock()
	close(fl.done)

	if s.hooks.OnSpinSettled != nil {
		s.hooks.OnSpinSettled(s.playerID, res.Outcome)
	}
}

// ReconciliationPending fires the pending hook for an award that missed the
// ledger and was queued for retry.
func (s *Session) ReconciliationPending(spinID uuid.UUID) {
	if s.hooks.OnReconciliationPending != nil {
		s.hooks.OnReconciliationPending(s.playerID, spinID)
	}
}

// ReconciliationResolved releases one pending entitlement once a queued award
// reached the ledger and fires the resolved hook. The transaction's counter
// snapshot already reflects the consumed spin, so it becomes the new advisory
// value minus whatever is still queued.
func (s *Session) ReconciliationResolved(tx *domain.Transaction) {
	s.mu.Lock()
	if s.pendingAwards > 0 {
		s.pendingAwards--
	}
	if tx != nil {
		s.spinsRemaining = clampSpins(tx.SpinsRemainingAfter - s.pendingAwards)
	}
	s.lastActive = time.Now()
	s.mu.Unlock()

	if s.hooks.OnReconciliationResolved != nil {
		s.hooks.OnReconciliationResolved(s.playerID, tx)
	}
}

// Reset clears a settled outcome and returns the session to idle. Resetting
// never cancels an in-flight spin or an outstanding award.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSettled {
		s.resetLocked()
	}
}

func (s *Session) resetLocked() {
	s.state = StateIdle
	s.lastOutcome = nil
	s.awarded = false
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastOutcome returns the settled outcome, or nil when idle or spinning.
func (s *Session) LastOutcome() *domain.SpinOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOutcome
}

// SpinsRemaining returns the advisory counter.
func (s *Session) SpinsRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spinsRemaining
}

// SetSpinsRemaining refreshes the advisory counter from the server value.
// Awards still sitting in the retry queue have consumed entitlement the
// server row does not show yet, so they are subtracted: a ledger outage must
// never let the stale row permit a spin the server would reject.
func (s *Session) SetSpinsRemaining(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spinsRemaining = clampSpins(n - s.pendingAwards)
	s.lastActive = time.Now()
}

// PendingAwards reports how many of this session's awards are still queued
// for reconciliation.
func (s *Session) PendingAwards() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingAwards
}

func clampSpins(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// LastActive reports the time of the session's last transition.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
