//go:build integration

package testutil

import (
	"context"
	"time"
)

// CleanAll truncates mutable tables. The seeded prize table survives so the
// wheel stays spinnable between tests.
func (env *TestEnv) CleanAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tables := []string{
		"event_outbox",
		"reward_transactions",
		"rewards_players",
	}

	for _, table := range tables {
		_, _ = env.Pool.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE")
	}
}
