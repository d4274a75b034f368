// Package reconcile recovers prize awards that could not reach the reward
// ledger. A spin that settled on screen is never taken back; the award is
// queued and retried with backoff until the ledger accepts it or the attempt
// budget runs out, in which case the entry is parked for operator review.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rewardly/platform/internal/domain"
	"github.com/rewardly/platform/internal/guard"
)

// breakerKey identifies the ledger circuit in the shared breaker.
const breakerKey = "reward-ledger"

// AwardFunc posts one prize award to the ledger. Implementations must be
// idempotent on the spin ID so a retry can never double-credit.
type AwardFunc func(ctx context.Context, params domain.AwardPrizeParams) (*domain.CommandResult, error)

// Projector receives durable ledger results to refresh the cached wallet
// view. Apply errors are read-side only and never trigger a ledger retry.
type Projector interface {
	ApplyResult(ctx context.Context, result *domain.CommandResult) error
}

// Callbacks surface reconciliation transitions to the caller (session hooks,
// outbox events). Nil fields are skipped.
type Callbacks struct {
	OnPending   func(playerID, spinID uuid.UUID)
	OnResolved  func(playerID uuid.UUID, tx *domain.Transaction)
	OnExhausted func(playerID, spinID uuid.UUID, err error)
}

// Config tunes the retry queue.
type Config struct {
	QueueSize   int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultConfig matches the app's reconnect cadence: quick first retry,
// capped exponential growth after that.
func DefaultConfig() Config {
	return Config{
		QueueSize:   256,
		MaxAttempts: 6,
		BaseBackoff: 2 * time.Second,
		MaxBackoff:  2 * time.Minute,
	}
}

type pendingAward struct {
	params   domain.AwardPrizeParams
	attempts int
	lastErr  error
}

// Reconciler wraps the award path with the recovery rules:
//  1. success refreshes the projection from the returned snapshot, no extra fetch
//  2. ledger failure queues a retry and never bumps the projection optimistically
//  3. projection failure after a durable write is logged, never retried against the ledger
//  4. retries reuse the spin ID so ledger idempotency absorbs replays
type Reconciler struct {
	award     AwardFunc
	projector Projector
	breaker   *guard.CircuitBreaker
	callbacks Callbacks
	logger    *slog.Logger
	cfg       Config

	queue chan *pendingAward

	mu     sync.Mutex
	parked []*pendingAward
}

// New creates a reconciler. Call Start to launch the retry worker.
func New(award AwardFunc, projector Projector, breaker *guard.CircuitBreaker, callbacks Callbacks, logger *slog.Logger, cfg Config) *Reconciler {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultConfig().BaseBackoff
	}
	if cfg.MaxBackoff < cfg.BaseBackoff {
		cfg.MaxBackoff = DefaultConfig().MaxBackoff
	}
	return &Reconciler{
		award:     award,
		projector: projector,
		breaker:   breaker,
		callbacks: callbacks,
		logger:    logger,
		cfg:       cfg,
		queue:     make(chan *pendingAward, cfg.QueueSize),
	}
}

// Award posts a prize award, applying the recovery rules. When the ledger is
// unreachable the award is queued and (nil, true, nil) is returned: the spin
// outcome stands and the wallet catches up later. Non-transient errors are
// returned to the caller unchanged.
func (r *Reconciler) Award(ctx context.Context, params domain.AwardPrizeParams) (*domain.CommandResult, bool, error) {
	if check := r.breaker.Check(ctx, breakerKey); !check.Allowed {
		r.logger.Warn("ledger circuit open, queueing award",
			"player_id", params.PlayerID, "spin_id", params.SpinID, "reason", check.Reason)
		r.enqueue(&pendingAward{params: params, lastErr: domain.ErrLedgerUnavailable(errors.New(check.Reason))})
		return nil, true, nil
	}

	result, err := r.award(ctx, params)
	if err != nil {
		if !isLedgerUnavailable(err) {
			return nil, false, err
		}
		r.breaker.RecordFailure(breakerKey)
		r.logger.Warn("ledger unavailable, queueing award for retry",
			"player_id", params.PlayerID, "spin_id", params.SpinID, "error", err)
		r.enqueue(&pendingAward{params: params, lastErr: err})
		return nil, true, nil
	}

	r.breaker.RecordSuccess(breakerKey)
	r.applyProjection(ctx, result)
	return result, false, nil
}

// Start launches the retry worker. Stops when ctx is cancelled; queued
// entries survive only as long as the process.
func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("reconciler started",
		"queue_size", r.cfg.QueueSize, "max_attempts", r.cfg.MaxAttempts, "base_backoff", r.cfg.BaseBackoff)

	go func() {
		for {
			select {
			case <-ctx.Done():
				r.logger.Info("reconciler stopped", "queued", len(r.queue), "parked", r.ParkedCount())
				return
			case entry := <-r.queue:
				r.retry(ctx, entry)
			}
		}
	}()
}

func (r *Reconciler) retry(ctx context.Context, entry *pendingAward) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(r.backoff(entry.attempts)):
	}

	entry.attempts++
	result, err := r.award(ctx, entry.params)
	if err == nil {
		r.breaker.RecordSuccess(breakerKey)
		r.applyProjection(ctx, result)
		r.logger.Info("queued award reconciled",
			"player_id", entry.params.PlayerID, "spin_id", entry.params.SpinID,
			"attempts", entry.attempts, "idempotent", result.Idempotent)
		if r.callbacks.OnResolved != nil {
			r.callbacks.OnResolved(entry.params.PlayerID, result.Transaction)
		}
		return
	}

	if !isLedgerUnavailable(err) {
		// the award itself is invalid; retrying cannot fix it
		r.park(entry, err)
		return
	}

	r.breaker.RecordFailure(breakerKey)
	entry.lastErr = err
	if entry.attempts >= r.cfg.MaxAttempts {
		r.park(entry, err)
		return
	}

	r.logger.Warn("award retry failed, requeueing",
		"player_id", entry.params.PlayerID, "spin_id", entry.params.SpinID,
		"attempts", entry.attempts, "error", err)
	r.enqueue(entry)
}

func (r *Reconciler) enqueue(entry *pendingAward) {
	select {
	case r.queue <- entry:
		if entry.attempts == 0 && r.callbacks.OnPending != nil {
			r.callbacks.OnPending(entry.params.PlayerID, entry.params.SpinID)
		}
	default:
		r.park(entry, entry.lastErr)
	}
}

// park shelves an award that retrying cannot recover. Parked entries are
// never dropped silently; they stay visible for manual replay.
func (r *Reconciler) park(entry *pendingAward, err error) {
	r.mu.Lock()
	r.parked = append(r.parked, entry)
	r.mu.Unlock()

	r.logger.Error("award parked after retries",
		"player_id", entry.params.PlayerID, "spin_id", entry.params.SpinID,
		"attempts", entry.attempts, "error", err)
	if r.callbacks.OnExhausted != nil {
		r.callbacks.OnExhausted(entry.params.PlayerID, entry.params.SpinID, err)
	}
}

// applyProjection refreshes the cached balance from the durable result. A
// failure here is read-side only: the write already landed, so the worst case
// is a stale view until the next refresh.
func (r *Reconciler) applyProjection(ctx context.Context, result *domain.CommandResult) {
	if r.projector == nil || result == nil || result.Transaction == nil {
		return
	}
	if err := r.projector.ApplyResult(ctx, result); err != nil {
		r.logger.Warn("projection refresh failed, view may be stale",
			"player_id", result.Transaction.PlayerID, "error", err)
	}
}

// ParkedCount reports how many awards are shelved for manual replay.
func (r *Reconciler) ParkedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.parked)
}

// Parked returns the parameters of shelved awards, oldest first.
func (r *Reconciler) Parked() []domain.AwardPrizeParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AwardPrizeParams, len(r.parked))
	for i, e := range r.parked {
		out[i] = e.params
	}
	return out
}

// QueuedCount reports how many awards are waiting for retry.
func (r *Reconciler) QueuedCount() int {
	return len(r.queue)
}

func (r *Reconciler) backoff(attempts int) time.Duration {
	d := r.cfg.BaseBackoff << attempts
	if d > r.cfg.MaxBackoff || d <= 0 {
		return r.cfg.MaxBackoff
	}
	return d
}

func isLedgerUnavailable(err error) bool {
	var appErr *domain.AppError
	return errors.As(err, &appErr) && appErr.Code == domain.CodeLedgerUnavailable
}
