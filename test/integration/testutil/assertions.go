//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
)

// DecodeJSON reads and decodes a JSON response body into dst.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
}

// AssertStatus checks that the response has the expected HTTP status code.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertErrorCode checks that the response body carries the expected error code.
func AssertErrorCode(t *testing.T, resp *http.Response, expectedCode string) {
	t.Helper()
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	DecodeJSON(t, resp, &errResp)
	if errResp.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, errResp.Code, errResp.Message)
	}
}

// AssertLedgerBalance queries rewards_players and asserts coins and spins.
func AssertLedgerBalance(t *testing.T, env *TestEnv, playerID uuid.UUID, coins int64, spins int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var gotCoins int64
	var gotSpins int
	err := env.Pool.QueryRow(ctx,
		`SELECT coins, spins_remaining FROM rewards_players WHERE id = $1`, playerID).
		Scan(&gotCoins, &gotSpins)
	if err != nil {
		t.Fatalf("AssertLedgerBalance: %v", err)
	}
	if gotCoins != coins {
		t.Errorf("expected %d coins, got %d", coins, gotCoins)
	}
	if gotSpins != spins {
		t.Errorf("expected %d spins, got %d", spins, gotSpins)
	}
}

// CountTransactions returns the number of ledger entries for the player.
func CountTransactions(t *testing.T, env *TestEnv, playerID uuid.UUID) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var n int
	err := env.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reward_transactions WHERE player_id = $1`, playerID).Scan(&n)
	if err != nil {
		t.Fatalf("CountTransactions: %v", err)
	}
	return n
}
