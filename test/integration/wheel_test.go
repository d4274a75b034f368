//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewardly/platform/test/integration/testutil"
)

func TestWheel_NoToken(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.GET("/wheel/prize-table")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWheel_GetPrizeTable(t *testing.T) {
	env := testutil.NewTestEnv(t)
	playerID := env.SeedPlayer(0, 0)
	token := env.PlayerToken(playerID)

	resp := env.AuthGET("/wheel/prize-table", token)
	testutil.AssertStatus(t, resp, http.StatusOK)

	var table struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Segments []struct {
			ID     string `json:"id"`
			Weight int64  `json:"weight"`
		} `json:"segments"`
	}
	testutil.DecodeJSON(t, resp, &table)

	assert.Equal(t, "default-wheel", table.Name)
	require.Len(t, table.Segments, 8)
	for _, seg := range table.Segments {
		assert.Positive(t, seg.Weight)
	}
}

func TestWheel_SpinHappyPath(t *testing.T) {
	env := testutil.NewTestEnv(t)
	playerID := env.SeedPlayer(100, 3)
	token := env.PlayerToken(playerID)

	resp := env.AuthPOST("/wheel/spin", nil, token)
	testutil.AssertStatus(t, resp, http.StatusOK)

	var result struct {
		Outcome *struct {
			SpinID          string  `json:"spin_id"`
			RotationDegrees float64 `json:"rotation_degrees"`
		} `json:"outcome"`
		SpinsRemaining int  `json:"spins_remaining"`
		Pending        bool `json:"pending"`
	}
	testutil.DecodeJSON(t, resp, &result)

	require.NotNil(t, result.Outcome)
	assert.NotEmpty(t, result.Outcome.SpinID)
	assert.GreaterOrEqual(t, result.Outcome.RotationDegrees, 1800.0)
	assert.Equal(t, 2, result.SpinsRemaining)
	assert.False(t, result.Pending)

	// One ledger entry per spin, spin consumed server-side
	assert.Equal(t, 1, testutil.CountTransactions(t, env, playerID))
}

func TestWheel_SpinWithoutSpinsRemaining(t *testing.T) {
	env := testutil.NewTestEnv(t)
	playerID := env.SeedPlayer(100, 0)
	token := env.PlayerToken(playerID)

	resp := env.AuthPOST("/wheel/spin", nil, token)
	testutil.AssertStatus(t, resp, http.StatusConflict)
	testutil.AssertErrorCode(t, resp, "NO_SPINS_REMAINING")

	assert.Zero(t, testutil.CountTransactions(t, env, playerID))
}

func TestWheel_GetSpinsRemaining(t *testing.T) {
	env := testutil.NewTestEnv(t)
	playerID := env.SeedPlayer(0, 5)
	token := env.PlayerToken(playerID)

	resp := env.AuthGET("/wheel/spins", token)
	testutil.AssertStatus(t, resp, http.StatusOK)

	var body struct {
		SpinsRemaining int `json:"spins_remaining"`
	}
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, 5, body.SpinsRemaining)
}

func TestWheel_UnknownPlayer(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token := env.PlayerToken(env.SeedPlayer(0, 0))
	env.CleanAll() // player row gone, token still valid

	resp := env.AuthPOST("/wheel/spin", nil, token)
	testutil.AssertStatus(t, resp, http.StatusNotFound)
}
