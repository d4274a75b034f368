package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rewardly/platform/internal/domain"
	"github.com/rewardly/platform/internal/guard"
	"github.com/rewardly/platform/internal/projection"
	"github.com/rewardly/platform/internal/reconcile"
	"github.com/rewardly/platform/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeLedger behaves like the pgx-backed client: idempotent on the reference,
// and returns LEDGER_UNAVAILABLE while offline.
type fakeLedger struct {
	mu      sync.Mutex
	offline bool
	coins   int64
	spins   int
	byRef   map[string]*domain.Transaction
	calls   int
}

func newFakeLedger(coins int64, spins int) *fakeLedger {
	return &fakeLedger{coins: coins, spins: spins, byRef: make(map[string]*domain.Transaction)}
}

func (f *fakeLedger) setOffline(v bool) {
	f.mu.Lock()
	f.offline = v
	f.mu.Unlock()
}

func (f *fakeLedger) AwardPrize(_ context.Context, params domain.AwardPrizeParams) (*domain.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.offline {
		return nil, domain.ErrLedgerUnavailable(errors.New("dial tcp: connection refused"))
	}

	ref := params.SpinID.String()
	if existing, ok := f.byRef[ref]; ok {
		return f.result(existing, true), nil
	}

	var amount int64
	if params.Prize.Type == domain.PrizeCoins {
		amount = params.Prize.Value
	}
	f.coins += amount
	if f.spins > 0 {
		f.spins--
	}
	tx := &domain.Transaction{
		ID:                  uuid.New(),
		PlayerID:            params.PlayerID,
		Type:                domain.TxSpinReward,
		Source:              domain.SourceSpinWheel,
		Amount:              amount,
		BalanceAfter:        f.coins,
		SpinsRemainingAfter: f.spins,
	}
	f.byRef[ref] = tx
	return f.result(tx, false), nil
}

func (f *fakeLedger) GrantSpins(_ context.Context, params domain.GrantSpinsParams) (*domain.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if existing, ok := f.byRef[params.Reference]; ok {
		return f.result(existing, true), nil
	}
	f.spins += params.Count
	tx := &domain.Transaction{
		ID: uuid.New(), PlayerID: params.PlayerID, Type: domain.TxSpinGrant,
		BalanceAfter: f.coins, SpinsRemainingAfter: f.spins,
	}
	f.byRef[params.Reference] = tx
	return f.result(tx, false), nil
}

func (f *fakeLedger) Redeem(_ context.Context, params domain.RedeemParams) (*domain.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if existing, ok := f.byRef[params.Reference]; ok {
		return f.result(existing, true), nil
	}
	if f.coins < params.Amount {
		return nil, domain.ErrInsufficientBalance()
	}
	f.coins -= params.Amount
	tx := &domain.Transaction{
		ID: uuid.New(), PlayerID: params.PlayerID, Type: domain.TxRedeem,
		Amount: -params.Amount, BalanceAfter: f.coins, SpinsRemainingAfter: f.spins,
	}
	f.byRef[params.Reference] = tx
	return f.result(tx, false), nil
}

func (f *fakeLedger) result(tx *domain.Transaction, idem bool) *domain.CommandResult {
	return &domain.CommandResult{
		Transaction: tx,
		Player:      &domain.Player{ID: tx.PlayerID, Coins: tx.BalanceAfter, SpinsRemaining: tx.SpinsRemainingAfter},
		Idempotent:  idem,
	}
}

type fakePlayers struct {
	mu      sync.Mutex
	players map[uuid.UUID]*domain.Player
}

func (f *fakePlayers) FindByID(_ context.Context, id uuid.UUID) (*domain.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.players[id], nil
}

func (f *fakePlayers) setSpins(id uuid.UUID, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.players[id]; ok {
		p.SpinsRemaining = n
	}
}

type fakeTables struct {
	table *domain.PrizeTable
}

func (f *fakeTables) GetActive(context.Context) (*domain.PrizeTable, error) {
	return f.table, nil
}

func coinsTable() *domain.PrizeTable {
	return &domain.PrizeTable{
		ID:     uuid.New(),
		Name:   "standard",
		Active: true,
		Segments: []domain.Segment{
			{ID: "coins-50", Label: "50 coins", Weight: 1, PrizeType: domain.PrizeCoins, Value: 50},
		},
	}
}

type spinFixture struct {
	svc        *SpinService
	ledger     *fakeLedger
	players    *fakePlayers
	sessions   *session.Manager
	reconciler *reconcile.Reconciler
	projector  *projection.Projector
	playerID   uuid.UUID
	pending    chan uuid.UUID
	resolved   chan *domain.Transaction
}

func newSpinFixture(t *testing.T, coins int64, spins int) *spinFixture {
	t.Helper()
	playerID := uuid.New()
	led := newFakeLedger(coins, spins)
	proj := projection.NewProjector(projection.NewInMemoryStore(), 0)

	fx := &spinFixture{
		ledger:    led,
		projector: proj,
		playerID:  playerID,
		pending:   make(chan uuid.UUID, 8),
		resolved:  make(chan *domain.Transaction, 8),
	}

	hooks := session.Hooks{
		OnReconciliationPending:  func(_, spinID uuid.UUID) { fx.pending <- spinID },
		OnReconciliationResolved: func(_ uuid.UUID, tx *domain.Transaction) { fx.resolved <- tx },
	}
	fx.sessions = session.NewManager(hooks, time.Minute)

	breaker := guard.NewCircuitBreaker(100, 50*time.Millisecond)
	callbacks := reconcile.Callbacks{
		OnResolved: func(pid uuid.UUID, tx *domain.Transaction) {
			if s, ok := fx.sessions.Get(pid); ok {
				s.ReconciliationResolved(tx)
			}
		},
	}
	fx.reconciler = reconcile.New(led.AwardPrize, proj, breaker, callbacks, testLogger(), reconcile.Config{
		QueueSize:   8,
		MaxAttempts: 10,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
	})

	players := &fakePlayers{players: map[uuid.UUID]*domain.Player{
		playerID: {ID: playerID, Coins: coins, SpinsRemaining: spins, Currency: "USD"},
	}}
	fx.players = players

	fx.svc = NewSpinService(players, &fakeTables{table: coinsTable()}, fx.sessions, fx.reconciler,
		func() float64 { return 0.5 }, testLogger())
	return fx
}

func TestSpin_HappyPath(t *testing.T) {
	fx := newSpinFixture(t, 100, 3)

	result, err := fx.svc.Spin(context.Background(), fx.playerID)
	require.NoError(t, err)

	assert.False(t, result.Pending)
	assert.Equal(t, "coins-50", result.Outcome.Segment.ID)
	assert.GreaterOrEqual(t, result.Outcome.RotationDegrees, 1800.0)
	require.NotNil(t, result.Transaction)
	assert.Equal(t, int64(150), result.Transaction.BalanceAfter)
	require.NotNil(t, result.Coins)
	assert.Equal(t, int64(150), *result.Coins)
	assert.Equal(t, 2, result.SpinsRemaining)

	view, err := fx.projector.Get(context.Background(), fx.playerID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), view.Coins)
}

func TestSpin_OfflineLedgerSettlesAndReconciles(t *testing.T) {
	fx := newSpinFixture(t, 100, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fx.reconciler.Start(ctx)

	fx.ledger.setOffline(true)

	result, err := fx.svc.Spin(ctx, fx.playerID)
	require.NoError(t, err, "a dead ledger must not fail the spin")
	assert.True(t, result.Pending)
	assert.Nil(t, result.Transaction)
	assert.Equal(t, result.Outcome.SpinID, <-fx.pending)

	// the projection was not bumped optimistically
	_, projErr := fx.projector.Get(ctx, fx.playerID)
	assert.Error(t, projErr)

	fx.ledger.setOffline(false)

	select {
	case tx := <-fx.resolved:
		assert.Equal(t, int64(150), tx.BalanceAfter, "prior balance plus the pending 50, exactly once")
	case <-time.After(time.Second):
		t.Fatal("queued award never resolved")
	}

	view, err := fx.projector.Get(ctx, fx.playerID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), view.Coins)
}

func TestSpin_OutageCannotSpinPastEntitlement(t *testing.T) {
	fx := newSpinFixture(t, 100, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fx.reconciler.Start(ctx)

	fx.ledger.setOffline(true)

	first, err := fx.svc.Spin(ctx, fx.playerID)
	require.NoError(t, err)
	assert.True(t, first.Pending)
	assert.Equal(t, 0, first.SpinsRemaining)
	assert.Equal(t, first.Outcome.SpinID, <-fx.pending)

	// the player row still shows one spin until the queued award lands;
	// repeat gestures must not ride the stale row past the entitlement
	for i := 0; i < 2; i++ {
		_, err := fx.svc.Spin(ctx, fx.playerID)
		var appErr *domain.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, domain.CodeNoSpinsRemaining, appErr.Code)
	}

	fx.ledger.setOffline(false)

	select {
	case tx := <-fx.resolved:
		assert.Equal(t, int64(150), tx.BalanceAfter, "one entitlement, one credit")
		assert.Equal(t, 0, tx.SpinsRemainingAfter)
	case <-time.After(time.Second):
		t.Fatal("queued award never resolved")
	}

	// the resolved award has decremented the player row too
	fx.players.setSpins(fx.playerID, 0)
	_, err = fx.svc.Spin(ctx, fx.playerID)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.CodeNoSpinsRemaining, appErr.Code)
}

func TestSpin_DuplicateRetryDoesNotDoubleCredit(t *testing.T) {
	fx := newSpinFixture(t, 100, 3)

	result, err := fx.svc.Spin(context.Background(), fx.playerID)
	require.NoError(t, err)

	// replay the settled spin's award directly, as a stray retry would
	replay, err := fx.ledger.AwardPrize(context.Background(), domain.AwardPrizeParams{
		PlayerID: fx.playerID,
		SpinID:   result.Outcome.SpinID,
		Source:   domain.SourceSpinWheel,
		Prize:    result.Outcome.Prize,
	})
	require.NoError(t, err)
	assert.True(t, replay.Idempotent)
	assert.Equal(t, result.Transaction.ID, replay.Transaction.ID)
	assert.Equal(t, int64(150), replay.Transaction.BalanceAfter)
}

func TestSpin_NoSpinsRemaining(t *testing.T) {
	fx := newSpinFixture(t, 100, 0)

	_, err := fx.svc.Spin(context.Background(), fx.playerID)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.CodeNoSpinsRemaining, appErr.Code)
	assert.Equal(t, 0, fx.ledger.calls)
}

func TestSpin_UnknownPlayer(t *testing.T) {
	fx := newSpinFixture(t, 100, 3)

	_, err := fx.svc.Spin(context.Background(), uuid.New())
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.CodeNotFound, appErr.Code)
}

func TestSpinsRemaining(t *testing.T) {
	fx := newSpinFixture(t, 100, 3)

	n, err := fx.svc.SpinsRemaining(context.Background(), fx.playerID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPrizeTable(t *testing.T) {
	fx := newSpinFixture(t, 100, 3)

	table, err := fx.svc.PrizeTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "standard", table.Name)
	require.Len(t, table.Segments, 1)
}
