//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rewardly/platform/internal/auth"
)

// SeedPlayer inserts a player row directly and returns its ID.
func (env *TestEnv) SeedPlayer(coins int64, spins int) uuid.UUID {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id := uuid.New()
	_, err := env.Pool.Exec(ctx, `
		INSERT INTO rewards_players (id, coins, spins_remaining, currency)
		VALUES ($1, $2, $3, 'USD')`, id, coins, spins)
	if err != nil {
		env.t.Fatalf("SeedPlayer: %v", err)
	}
	return id
}

// PlayerToken signs a player-realm bearer token for the given player.
func (env *TestEnv) PlayerToken(playerID uuid.UUID) string {
	env.t.Helper()
	token, err := env.JWTMgr.Sign(auth.RealmPlayer, playerID, "", time.Hour)
	if err != nil {
		env.t.Fatalf("PlayerToken: %v", err)
	}
	return token
}

// ServiceToken signs a service-realm bearer token with the given scope.
func (env *TestEnv) ServiceToken(scope string) string {
	env.t.Helper()
	token, err := env.JWTMgr.Sign(auth.RealmService, uuid.New(), scope, time.Hour)
	if err != nil {
		env.t.Fatalf("ServiceToken: %v", err)
	}
	return token
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("GET", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("AuthGET %s: new request: %v", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("AuthGET %s: %v", path, err)
	}
	return resp
}

// AuthPOST performs an authenticated POST request with a JSON body.
func (env *TestEnv) AuthPOST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("POST %s: encode: %v", path, err)
		}
	}
	req, err := http.NewRequest("POST", env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("POST %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}
