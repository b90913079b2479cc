package handlers

import (
	"net/http"

	"github.com/eldtechnologies/messenger/internal/models"
)

// AccountResponse represents a ledger slot.
type AccountResponse struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
	DataLen  int    `json:"data_len"`
}

// AirdropRequest represents the airdrop body.
type AirdropRequest struct {
	Address  models.Address `json:"address"`
	Lamports uint64         `json:"lamports"`
}

// maxAirdrop caps a single development airdrop.
const maxAirdrop = 10_000_000_000

// GetAccount returns the balance of a slot. Absent slots read as empty.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.addressParam(w, r, "address")
	if !ok {
		return
	}
	h.respondAccount(w, r, addr)
}

// Airdrop credits lamports to an address. Development only.
func (h *Handler) Airdrop(w http.ResponseWriter, r *http.Request) {
	var req AirdropRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Address.IsZero() {
		h.Error(w, http.StatusBadRequest, "address is required")
		return
	}
	if req.Lamports == 0 || req.Lamports > maxAirdrop {
		h.Error(w, http.StatusBadRequest, "lamports must be between 1 and 10000000000")
		return
	}

	if err := h.ledger.Airdrop(r.Context(), req.Address, req.Lamports); err != nil {
		h.logger.Error().Err(err).Str("address", req.Address.String()).Msg("airdrop failed")
		h.Error(w, http.StatusInternalServerError, "airdrop failed")
		return
	}
	h.respondAccount(w, r, req.Address)
}

func (h *Handler) respondAccount(w http.ResponseWriter, r *http.Request, addr models.Address) {
	acct, err := h.ledger.Account(r.Context(), addr)
	if err != nil {
		h.logger.Error().Err(err).Str("address", addr.String()).Msg("account read failed")
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	resp := AccountResponse{Address: addr.String()}
	if acct != nil {
		resp.Lamports = acct.Lamports
		resp.DataLen = len(acct.Data)
	}
	h.JSON(w, http.StatusOK, resp)
}
