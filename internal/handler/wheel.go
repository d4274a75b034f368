package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rewardly/platform/internal/auth"
	"github.com/rewardly/platform/internal/domain"
	"github.com/rewardly/platform/internal/guard"
	"github.com/rewardly/platform/internal/service"
)

// WheelHandler serves the spin wheel endpoints.
type WheelHandler struct {
	spins       *service.SpinService
	spinLimiter *guard.RateLimiter
}

// NewWheelHandler creates a new WheelHandler. limiter may be nil to disable
// spin rate limiting.
func NewWheelHandler(spins *service.SpinService, limiter *guard.RateLimiter) *WheelHandler {
	return &WheelHandler{spins: spins, spinLimiter: limiter}
}

// prizeTableResponse is the shape of GET /wheel/prize-table.
type prizeTableResponse struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Segments []domain.Segment `json:"segments"`
}

// GetPrizeTable handles GET /wheel/prize-table.
func (h *WheelHandler) GetPrizeTable(w http.ResponseWriter, r *http.Request) {
	table, err := h.spins.PrizeTable(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, prizeTableResponse{
		ID:       table.ID.String(),
		Name:     table.Name,
		Segments: table.Segments,
	})
}

// Spin handles POST /wheel/spin.
func (h *WheelHandler) Spin(w http.ResponseWriter, r *http.Request) {
	playerID, err := playerIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	if h.spinLimiter != nil {
		if check := h.spinLimiter.Check(r.Context(), playerID.String()); !check.Allowed {
			RespondJSON(w, http.StatusTooManyRequests, map[string]string{
				"code":    "RATE_LIMITED",
				"message": check.Reason,
			})
			return
		}
	}

	result, err := h.spins.Spin(r.Context(), playerID)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

// spinsResponse is the shape of GET /wheel/spins.
type spinsResponse struct {
	SpinsRemaining int `json:"spins_remaining"`
}

// GetSpinsRemaining handles GET /wheel/spins.
func (h *WheelHandler) GetSpinsRemaining(w http.ResponseWriter, r *http.Request) {
	playerID, err := playerIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	n, err := h.spins.SpinsRemaining(r.Context(), playerID)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, spinsResponse{SpinsRemaining: n})
}

// playerIDFromContext extracts and validates the player UUID from auth context.
func playerIDFromContext(r *http.Request) (uuid.UUID, error) {
	sub := auth.SubjectFromContext(r.Context())
	if sub == "" {
		return uuid.Nil, domain.ErrUnauthorized("no subject in context")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, domain.ErrUnauthorized("invalid subject")
	}
	return id, nil
}
