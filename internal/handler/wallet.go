package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rewardly/platform/internal/domain"
	"github.com/rewardly/platform/internal/service"
)

// WalletHandler handles wallet balance, history, redeem, and grant endpoints.
type WalletHandler struct {
	wallet *service.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallet *service.WalletService) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

// GetBalance handles GET /wallet/balance.
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	playerID, err := playerIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	view, err := h.wallet.Balance(r.Context(), playerID)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, view)
}

// txListResponse wraps a list of transactions with cursor.
type txListResponse struct {
	Transactions []domain.Transaction `json:"transactions"`
	NextCursor   *string              `json:"next_cursor,omitempty"`
}

// GetTransactions handles GET /wallet/transactions with cursor-based pagination.
func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	playerID, err := playerIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	txs, err := h.wallet.Transactions(r.Context(), playerID, cursor, limit+1)
	if err != nil {
		RespondError(w, err)
		return
	}

	resp := txListResponse{Transactions: txs}
	if len(txs) > limit {
		resp.Transactions = txs[:limit]
		nextID := txs[limit].ID.String()
		resp.NextCursor = &nextID
	}

	RespondJSON(w, http.StatusOK, resp)
}

// redeemRequest is the body of POST /wallet/redeem.
type redeemRequest struct {
	Amount    int64           `json:"amount"`
	Reference string          `json:"reference"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Redeem handles POST /wallet/redeem.
func (h *WalletHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	playerID, err := playerIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req redeemRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	result, err := h.wallet.Redeem(r.Context(), playerID, req.Amount, req.Reference, req.Metadata)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"transaction": result.Transaction,
		"coins":       result.Player.Coins,
		"idempotent":  result.Idempotent,
	})
}

// grantSpinsRequest is the body of POST /wheel/spins/grant (service realm).
type grantSpinsRequest struct {
	PlayerID  string          `json:"player_id"`
	Count     int             `json:"count"`
	Reference string          `json:"reference"`
	Source    string          `json:"source,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// GrantSpins handles POST /wheel/spins/grant.
func (h *WalletHandler) GrantSpins(w http.ResponseWriter, r *http.Request) {
	var req grantSpinsRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid player_id"))
		return
	}

	result, err := h.wallet.GrantSpins(r.Context(), domain.GrantSpinsParams{
		PlayerID:  playerID,
		Count:     req.Count,
		Reference: req.Reference,
		Source:    domain.Source(req.Source),
		Metadata:  req.Metadata,
	})
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"transaction":     result.Transaction,
		"spins_remaining": result.Player.SpinsRemaining,
		"idempotent":      result.Idempotent,
	})
}
