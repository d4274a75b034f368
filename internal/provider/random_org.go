package provider

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/rewardly/platform/internal/wheel"
)

// RandomOrgClient sources wheel draws from RANDOM.ORG with CSPRNG fallback.
// A draw is a float in [0, 1); the wheel maps it onto the weighted segments.
type RandomOrgClient struct {
	apiKey string
	logger *slog.Logger
	client *http.Client
}

// NewRandomOrgClient creates a new RANDOM.ORG client.
func NewRandomOrgClient(apiKey string, logger *slog.Logger) *RandomOrgClient {
	return &RandomOrgClient{
		apiKey: apiKey,
		logger: logger,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// DrawFloats returns n draws in [0, 1) from RANDOM.ORG. Falls back to
// crypto/rand when the API key is unset or the API is unavailable, so a spin
// never blocks on the provider.
func (c *RandomOrgClient) DrawFloats(ctx context.Context, n int) ([]float64, error) {
	if c.apiKey == "" {
		return csprngFloats(n)
	}

	result, err := c.fetchFromAPI(ctx, n)
	if err != nil {
		c.logger.Warn("random.org unavailable, falling back to CSPRNG", "error", err)
		return csprngFloats(n)
	}

	return result, nil
}

// WheelRNG adapts the client to the wheel's draw function. Each call fetches
// one draw with a short timeout; errors degrade to the CSPRNG fallback.
func (c *RandomOrgClient) WheelRNG() wheel.RNG {
	return func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		draws, err := c.DrawFloats(ctx, 1)
		if err != nil || len(draws) == 0 {
			// crypto/rand only fails when the OS entropy source is broken
			c.logger.Error("wheel draw failed, using zero draw", "error", err)
			return 0
		}
		return draws[0]
	}
}

func (c *RandomOrgClient) fetchFromAPI(ctx context.Context, n int) ([]float64, error) {
	reqBody := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "generateDecimalFractions",
		"params": map[string]interface{}{
			"apiKey":        c.apiKey,
			"n":             n,
			"decimalPlaces": 14,
			"replacement":   true,
		},
		"id": 1,
	}

	body, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.random.org/json-rpc/4/invoke", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api returned %d", resp.StatusCode)
	}

	var response struct {
		Result struct {
			Random struct {
				Data []float64 `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if response.Error != nil {
		return nil, fmt.Errorf("api error: %s", response.Error.Message)
	}

	for _, d := range response.Result.Random.Data {
		if d < 0 || d >= 1 {
			return nil, fmt.Errorf("draw out of range: %v", d)
		}
	}

	return response.Result.Random.Data, nil
}

// csprngFloats generates draws in [0, 1) from crypto/rand.
func csprngFloats(n int) ([]float64, error) {
	const resolution = 1 << 53

	max := big.NewInt(resolution)
	result := make([]float64, n)

	for i := 0; i < n; i++ {
		r, err := rand.Int(rand.Reader, max)
		if err != nil {
			return nil, fmt.Errorf("csprng: %w", err)
		}
		result[i] = float64(r.Int64()) / resolution
	}

	return result, nil
}
