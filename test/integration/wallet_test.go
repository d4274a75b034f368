//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewardly/platform/test/integration/testutil"
)

func TestWallet_GetBalance(t *testing.T) {
	env := testutil.NewTestEnv(t)
	playerID := env.SeedPlayer(250, 2)
	token := env.PlayerToken(playerID)

	resp := env.AuthGET("/wallet/balance", token)
	testutil.AssertStatus(t, resp, http.StatusOK)

	var view struct {
		Coins          int64  `json:"coins"`
		SpinsRemaining int    `json:"spins_remaining"`
		Currency       string `json:"currency"`
	}
	testutil.DecodeJSON(t, resp, &view)
	assert.Equal(t, int64(250), view.Coins)
	assert.Equal(t, 2, view.SpinsRemaining)
	assert.Equal(t, "USD", view.Currency)
}

func TestWallet_Redeem(t *testing.T) {
	env := testutil.NewTestEnv(t)
	playerID := env.SeedPlayer(100, 0)
	token := env.PlayerToken(playerID)

	body := map[string]interface{}{"amount": 40, "reference": "order-1"}

	resp := env.AuthPOST("/wallet/redeem", body, token)
	testutil.AssertStatus(t, resp, http.StatusOK)

	var result struct {
		Coins      int64 `json:"coins"`
		Idempotent bool  `json:"idempotent"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, int64(60), result.Coins)
	assert.False(t, result.Idempotent)
	testutil.AssertLedgerBalance(t, env, playerID, 60, 0)

	// Replaying the same order reference returns the original entry
	resp = env.AuthPOST("/wallet/redeem", body, token)
	testutil.AssertStatus(t, resp, http.StatusOK)
	testutil.DecodeJSON(t, resp, &result)
	assert.True(t, result.Idempotent)
	testutil.AssertLedgerBalance(t, env, playerID, 60, 0)
	assert.Equal(t, 1, testutil.CountTransactions(t, env, playerID))
}

func TestWallet_RedeemInsufficientBalance(t *testing.T) {
	env := testutil.NewTestEnv(t)
	playerID := env.SeedPlayer(10, 0)
	token := env.PlayerToken(playerID)

	resp := env.AuthPOST("/wallet/redeem",
		map[string]interface{}{"amount": 40, "reference": "order-2"}, token)
	testutil.AssertStatus(t, resp, http.StatusBadRequest)
	testutil.AssertErrorCode(t, resp, "INSUFFICIENT_BALANCE")
	testutil.AssertLedgerBalance(t, env, playerID, 10, 0)
}

func TestWallet_Transactions(t *testing.T) {
	env := testutil.NewTestEnv(t)
	playerID := env.SeedPlayer(100, 0)
	token := env.PlayerToken(playerID)

	resp := env.AuthPOST("/wallet/redeem",
		map[string]interface{}{"amount": 25, "reference": "order-3"}, token)
	testutil.AssertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = env.AuthGET("/wallet/transactions", token)
	testutil.AssertStatus(t, resp, http.StatusOK)

	var page struct {
		Transactions []struct {
			Type   string `json:"type"`
			Amount int64  `json:"amount"`
		} `json:"transactions"`
		NextCursor *string `json:"next_cursor"`
	}
	testutil.DecodeJSON(t, resp, &page)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, "redeem", page.Transactions[0].Type)
	assert.Equal(t, int64(-25), page.Transactions[0].Amount)
	assert.Nil(t, page.NextCursor)
}

func TestWallet_GrantSpins(t *testing.T) {
	env := testutil.NewTestEnv(t)
	playerID := env.SeedPlayer(0, 0)

	body := map[string]interface{}{
		"player_id": playerID.String(),
		"count":     3,
		"reference": "daily-2026-09-01",
		"source":    "promo",
	}

	t.Run("player token is rejected", func(t *testing.T) {
		resp := env.AuthPOST("/wheel/spins/grant", body, env.PlayerToken(playerID))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong scope is rejected", func(t *testing.T) {
		resp := env.AuthPOST("/wheel/spins/grant", body, env.ServiceToken("other:scope"))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("scoped service token grants once per period", func(t *testing.T) {
		token := env.ServiceToken("spins:grant")

		resp := env.AuthPOST("/wheel/spins/grant", body, token)
		testutil.AssertStatus(t, resp, http.StatusOK)

		var result struct {
			SpinsRemaining int  `json:"spins_remaining"`
			Idempotent     bool `json:"idempotent"`
		}
		testutil.DecodeJSON(t, resp, &result)
		assert.Equal(t, 3, result.SpinsRemaining)
		testutil.AssertLedgerBalance(t, env, playerID, 0, 3)

		// Same period reference collapses onto the first grant
		resp = env.AuthPOST("/wheel/spins/grant", body, token)
		testutil.AssertStatus(t, resp, http.StatusOK)
		testutil.DecodeJSON(t, resp, &result)
		assert.True(t, result.Idempotent)
		testutil.AssertLedgerBalance(t, env, playerID, 0, 3)
	})
}

func TestWallet_BalanceForUnknownPlayer(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token := env.PlayerToken(uuid.New())

	resp := env.AuthGET("/wallet/balance", token)
	testutil.AssertStatus(t, resp, http.StatusNotFound)
}
