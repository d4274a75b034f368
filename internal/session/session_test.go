package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rewardly/platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOutcome() *domain.SpinOutcome {
	return &domain.SpinOutcome{
		SpinID: uuid.New(),
		Segment: domain.Segment{
			ID:        "seg-2",
			Label:     "50 coins",
			Weight:    1,
			PrizeType: domain.PrizeCoins,
			Value:     50,
		},
		Prize:           domain.Prize{Type: domain.PrizeCoins, Value: 50},
		RotationDegrees: 1912.5,
	}
}

func TestSession_SingleFlight(t *testing.T) {
	var spins, settles atomic.Int64
	hooks := Hooks{
		OnSpinSettled: func(uuid.UUID, *domain.SpinOutcome) { settles.Add(1) },
	}
	s := New(uuid.New(), 3, hooks)

	entered := make(chan struct{})
	release := make(chan struct{})
	outcome := testOutcome()

	spin := func(ctx context.Context, seq uint64) (*Result, error) {
		spins.Add(1)
		close(entered)
		<-release
		return &Result{Outcome: outcome}, nil
	}

	results := make([]*Result, 3)
	errs := make([]error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = s.Begin(context.Background(), spin)
	}()
	<-entered

	// two more taps while the wheel is turning
	for i := 1; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Begin(context.Background(), spin)
		}(i)
	}
	// give the late taps time to park on the in-flight spin
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), spins.Load(), "gesture must select exactly once")
	assert.Equal(t, int64(1), settles.Load(), "gesture must settle exactly once")
	for i := 0; i < 3; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.Equal(t, outcome.SpinID, results[i].Outcome.SpinID)
	}
	assert.Equal(t, StateSettled, s.State())
	assert.Equal(t, 2, s.SpinsRemaining())
}

func TestSession_NoSpinsRemaining(t *testing.T) {
	s := New(uuid.New(), 0, Hooks{})

	_, err := s.Begin(context.Background(), func(context.Context, uint64) (*Result, error) {
		t.Fatal("spin must not run with zero spins remaining")
		return nil, nil
	})

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.CodeNoSpinsRemaining, appErr.Code)
	assert.Equal(t, StateIdle, s.State())
}

func TestSession_FailedSpinReturnsToIdle(t *testing.T) {
	s := New(uuid.New(), 2, Hooks{})
	boom := errors.New("selector blew up")

	_, err := s.Begin(context.Background(), func(context.Context, uint64) (*Result, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, s.LastOutcome())
	// a failed gesture does not consume a spin
	assert.Equal(t, 2, s.SpinsRemaining())
}

func TestSession_SettledResetsForNextSpin(t *testing.T) {
	s := New(uuid.New(), 3, Hooks{})
	spin := func(context.Context, uint64) (*Result, error) {
		return &Result{Outcome: testOutcome()}, nil
	}

	first, err := s.Begin(context.Background(), spin)
	require.NoError(t, err)
	assert.Equal(t, StateSettled, s.State())

	second, err := s.Begin(context.Background(), spin)
	require.NoError(t, err)
	assert.NotEqual(t, first.Outcome.SpinID, second.Outcome.SpinID)
	assert.Equal(t, 1, s.SpinsRemaining())
}

func TestSession_SequenceIncrements(t *testing.T) {
	s := New(uuid.New(), 5, Hooks{})
	var seen []uint64
	spin := func(_ context.Context, seq uint64) (*Result, error) {
		seen = append(seen, seq)
		return &Result{Outcome: testOutcome()}, nil
	}

	for i := 0; i < 3; i++ {
		_, err := s.Begin(context.Background(), spin)
		require.NoError(t, err)
	}
	assert.Equal(t, []uint64{1, 2, 3}, seen)
}

func TestSession_SpinsRemainingFromLedgerResult(t *testing.T) {
	s := New(uuid.New(), 5, Hooks{})

	_, err := s.Begin(context.Background(), func(context.Context, uint64) (*Result, error) {
		return &Result{
			Outcome: testOutcome(),
			Command: &domain.CommandResult{
				Player: &domain.Player{SpinsRemaining: 1},
			},
		}, nil
	})
	require.NoError(t, err)

	// the server-owned value wins over the advisory decrement
	assert.Equal(t, 1, s.SpinsRemaining())
}

func TestSession_ReconciliationHooks(t *testing.T) {
	playerID := uuid.New()
	var pending, resolved atomic.Int64
	hooks := Hooks{
		OnReconciliationPending: func(pid, spinID uuid.UUID) {
			assert.Equal(t, playerID, pid)
			pending.Add(1)
		},
		OnReconciliationResolved: func(pid uuid.UUID, tx *domain.Transaction) {
			assert.Equal(t, playerID, pid)
			resolved.Add(1)
		},
	}
	s := New(playerID, 1, hooks)

	s.ReconciliationPending(uuid.New())
	s.ReconciliationResolved(&domain.Transaction{ID: uuid.New()})

	assert.Equal(t, int64(1), pending.Load())
	assert.Equal(t, int64(1), resolved.Load())
}

func TestSession_PendingAwardHoldsEntitlement(t *testing.T) {
	s := New(uuid.New(), 1, Hooks{})

	res, err := s.Begin(context.Background(), func(context.Context, uint64) (*Result, error) {
		return &Result{Outcome: testOutcome(), Pending: true}, nil
	})
	require.NoError(t, err)
	assert.True(t, res.Pending)
	assert.Equal(t, 0, s.SpinsRemaining())
	assert.Equal(t, 1, s.PendingAwards())

	// the player row still shows the spin while the award waits in the
	// retry queue; a refresh from it must not re-open the entitlement
	s.SetSpinsRemaining(1)
	assert.Equal(t, 0, s.SpinsRemaining())

	_, err = s.Begin(context.Background(), func(context.Context, uint64) (*Result, error) {
		t.Fatal("spent entitlement must not spin again")
		return nil, nil
	})
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.CodeNoSpinsRemaining, appErr.Code)

	s.ReconciliationResolved(&domain.Transaction{SpinsRemainingAfter: 0})
	assert.Equal(t, 0, s.PendingAwards())
	assert.Equal(t, 0, s.SpinsRemaining())
}

func TestManager_GetOrCreateAndEvict(t *testing.T) {
	m := NewManager(Hooks{}, time.Minute)
	playerID := uuid.New()

	s1 := m.Session(playerID, 3)
	s2 := m.Session(playerID, 5)
	assert.Same(t, s1, s2)
	assert.Equal(t, 5, s1.SpinsRemaining(), "existing session counter refreshed")
	assert.Equal(t, 1, m.Len())

	m.Evict(playerID)
	_, ok := m.Get(playerID)
	assert.False(t, ok)
}

func TestManager_SweepSkipsInFlight(t *testing.T) {
	m := NewManager(Hooks{}, 10*time.Millisecond)

	idle := m.Session(uuid.New(), 1)
	busy := m.Session(uuid.New(), 1)

	entered := make(chan struct{})
	release := make(chan struct{})
	go busy.Begin(context.Background(), func(context.Context, uint64) (*Result, error) {
		close(entered)
		<-release
		return &Result{Outcome: testOutcome()}, nil
	})
	<-entered

	evicted := m.Sweep(time.Now().Add(time.Hour))
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, m.Len())
	_, ok := m.Get(idle.playerID)
	assert.False(t, ok)

	close(release)
}

func TestManager_SweepSkipsPendingAwards(t *testing.T) {
	m := NewManager(Hooks{}, 10*time.Millisecond)
	playerID := uuid.New()

	s := m.Session(playerID, 1)
	_, err := s.Begin(context.Background(), func(context.Context, uint64) (*Result, error) {
		return &Result{Outcome: testOutcome(), Pending: true}, nil
	})
	require.NoError(t, err)

	// evicting the session would lose the consumed entitlement
	evicted := m.Sweep(time.Now().Add(time.Hour))
	assert.Equal(t, 0, evicted)
	got, ok := m.Get(playerID)
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestManager_SweepDisabled(t *testing.T) {
	m := NewManager(Hooks{}, 0)
	m.Session(uuid.New(), 1)

	assert.Equal(t, 0, m.Sweep(time.Now().Add(time.Hour)))
	assert.Equal(t, 1, m.Len())
}
