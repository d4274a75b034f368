package app

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rewardly/platform/internal/auth"
	"github.com/rewardly/platform/internal/domain"
	"github.com/rewardly/platform/internal/guard"
	"github.com/rewardly/platform/internal/handler"
	"github.com/rewardly/platform/internal/infra"
	"github.com/rewardly/platform/internal/ledger"
	"github.com/rewardly/platform/internal/projection"
	"github.com/rewardly/platform/internal/provider"
	"github.com/rewardly/platform/internal/reconcile"
	"github.com/rewardly/platform/internal/repository"
	"github.com/rewardly/platform/internal/service"
	"github.com/rewardly/platform/internal/session"
	"github.com/rewardly/platform/internal/wheel"
)

// Deps holds the externally created dependencies for New.
type Deps struct {
	Cfg    *infra.Config
	Pool   *pgxpool.Pool
	JWTMgr *auth.JWTManager
	Logger *slog.Logger
}

// App is the assembled reward platform: the HTTP router plus the background
// workers (reconciliation retry queue, outbox poller, session sweeper).
type App struct {
	Router     chi.Router
	Sessions   *session.Manager
	Reconciler *reconcile.Reconciler

	poller *infra.OutboxPoller
	cfg    *infra.Config
	logger *slog.Logger
}

// New wires repositories, the ledger engine, the reconciler, services, and
// handlers into a ready-to-serve App. Call StartWorkers before serving.
func New(deps Deps) *App {
	cfg := deps.Cfg
	pool := deps.Pool
	logger := deps.Logger

	// Repositories
	playerRepo := repository.NewPlayerRepository()
	txRepo := repository.NewTransactionRepository()
	outboxRepo := repository.NewOutboxRepository()
	tableRepo := repository.NewPrizeTableRepository()

	// Ledger engine and its pool-bound client
	ledgerEngine := ledger.NewEngine(playerRepo, txRepo, outboxRepo)
	pgLedger := service.NewPgLedger(pool, ledgerEngine, cfg.LedgerTimeout)

	// Read-side
	players := service.NewPlayerReader(pool, playerRepo)
	tables := service.NewPrizeTableReader(pool, tableRepo)
	txs := service.NewTransactionLister(pool, txRepo)
	projector := projection.NewProjector(projection.NewInMemoryStore(), cfg.ProjectionTTL)

	// Standalone outbox insert for app-level events (session settles,
	// reconciliation transitions). Ledger events ride the command tx.
	emit := func(draft domain.OutboxDraft) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := outboxRepo.Insert(ctx, pool, draft); err != nil {
			logger.Warn("outbox insert failed", "event_type", draft.EventType, "error", err)
		}
	}

	// Game sessions
	sessions := session.NewManager(session.Hooks{
		OnSpinStart: func(playerID uuid.UUID, sequence uint64) {
			logger.Debug("spin started", "player_id", playerID, "sequence", sequence)
		},
		OnSpinSettled: func(playerID uuid.UUID, outcome *domain.SpinOutcome) {
			emit(domain.NewSpinSettledEvent(playerID, outcome))
		},
		OnReconciliationPending: func(playerID, spinID uuid.UUID) {
			emit(domain.NewReconciliationEvent(domain.EventReconciliationPending, playerID, spinID))
		},
		OnReconciliationResolved: func(playerID uuid.UUID, tx *domain.Transaction) {
			emit(domain.NewReconciliationEvent(domain.EventReconciliationResolved, playerID, tx.ID))
		},
	}, cfg.SessionIdleTTL)

	// Reconciler: retries awards through the same idempotent command, and
	// bridges resolution back to the player's session.
	breaker := guard.NewCircuitBreaker(cfg.BreakerFailThreshold, cfg.BreakerResetTimeout)
	reconciler := reconcile.New(pgLedger.AwardPrize, projector, breaker, reconcile.Callbacks{
		OnResolved: func(playerID uuid.UUID, tx *domain.Transaction) {
			if sess, ok := sessions.Get(playerID); ok {
				sess.ReconciliationResolved(tx)
			}
		},
		OnExhausted: func(playerID, spinID uuid.UUID, err error) {
			logger.Error("award reconciliation exhausted, parked for operator review",
				"player_id", playerID, "spin_id", spinID, "error", err)
		},
	}, logger, reconcile.Config{
		QueueSize:   cfg.ReconcileQueueSize,
		MaxAttempts: cfg.ReconcileMaxAttempts,
		BaseBackoff: cfg.ReconcileBaseBackoff,
		MaxBackoff:  cfg.ReconcileMaxBackoff,
	})

	// Wheel draws: RANDOM.ORG when configured, process PRNG otherwise
	rng := wheel.RNG(rand.Float64)
	if cfg.RandomOrgAPIKey != "" {
		rng = provider.NewRandomOrgClient(cfg.RandomOrgAPIKey, logger).WheelRNG()
	}

	// Services
	spinSvc := service.NewSpinService(players, tables, sessions, reconciler, rng, logger)
	walletSvc := service.NewWalletService(players, txs, pgLedger, projector, logger)

	// Handlers
	spinLimiter := guard.NewRateLimiter(cfg.SpinRateLimit, cfg.SpinRateWindow)
	wheelHandler := handler.NewWheelHandler(spinSvc, spinLimiter)
	walletHandler := handler.NewWalletHandler(walletSvc)

	// Outbox poller
	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	poller := infra.NewOutboxPoller(pool, producer, logger)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORS(cfg.CORSAllowedOrigins))
	r.Use(handler.JSONContentType)

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(pool))

	r.Route("/wheel", func(r chi.Router) {
		// Player routes
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthenticatePlayer(deps.JWTMgr))

			r.Get("/prize-table", wheelHandler.GetPrizeTable)
			r.Post("/spin", wheelHandler.Spin)
			r.Get("/spins", wheelHandler.GetSpinsRemaining)
		})

		// Internal service callers (promo engine, daily refill job)
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthenticateService(deps.JWTMgr))
			r.Use(auth.RequireScope("spins:grant"))

			r.Post("/spins/grant", walletHandler.GrantSpins)
		})
	})

	r.Route("/wallet", func(r chi.Router) {
		r.Use(auth.AuthenticatePlayer(deps.JWTMgr))

		r.Get("/balance", walletHandler.GetBalance)
		r.Get("/transactions", walletHandler.GetTransactions)
		r.Post("/redeem", walletHandler.Redeem)
	})

	return &App{
		Router:     r,
		Sessions:   sessions,
		Reconciler: reconciler,
		poller:     poller,
		cfg:        cfg,
		logger:     logger,
	}
}

// StartWorkers launches the background loops. They stop when ctx is done.
func (a *App) StartWorkers(ctx context.Context) {
	a.Reconciler.Start(ctx)
	a.poller.Start(ctx)
	if a.cfg.SessionIdleTTL > 0 {
		go a.sweepSessions(ctx)
	}
}

// sweepSessions evicts idle sessions on a half-TTL cadence. Only started
// when eviction is enabled.
func (a *App) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.SessionIdleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := a.Sessions.Sweep(now); n > 0 {
				a.logger.Debug("idle sessions evicted", "count", n)
			}
		}
	}
}
