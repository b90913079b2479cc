package handlers

import (
	"net/http"

	"github.com/eldtechnologies/messenger/internal/models"
	"github.com/eldtechnologies/messenger/internal/program"
)

// InitializeConfigRequest represents the config initialization body.
type InitializeConfigRequest struct {
	FeeVault    models.Address `json:"fee_vault"`
	ProtocolFee uint64         `json:"protocol_fee"`
}

// UpdateConfigRequest is a partial update; omitted fields are unchanged.
type UpdateConfigRequest struct {
	FeeVault    *models.Address `json:"fee_vault"`
	ProtocolFee *uint64         `json:"protocol_fee"`
}

// ConfigResponse wraps the platform config with the receipt that changed it.
type ConfigResponse struct {
	Config  *models.PlatformConfig `json:"config"`
	Receipt *ReceiptResponse       `json:"receipt,omitempty"`
}

// InitializeConfig makes the caller the platform authority.
func (h *Handler) InitializeConfig(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credential(w, r)
	if !ok {
		return
	}
	var req InitializeConfigRequest
	if !h.decode(w, r, &req) {
		return
	}

	receipt, err := h.program.InitializeConfig(r.Context(), cred, req.FeeVault, req.ProtocolFee)
	if err != nil {
		h.ProgramError(w, err)
		return
	}
	h.respondConfig(w, r, http.StatusCreated, receipt)
}

// UpdateConfig changes the fee vault and/or protocol fee.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credential(w, r)
	if !ok {
		return
	}
	var req UpdateConfigRequest
	if !h.decode(w, r, &req) {
		return
	}

	receipt, err := h.program.UpdateConfig(r.Context(), cred, program.ConfigUpdate{
		FeeVault:    req.FeeVault,
		ProtocolFee: req.ProtocolFee,
	})
	if err != nil {
		h.ProgramError(w, err)
		return
	}
	h.respondConfig(w, r, http.StatusOK, receipt)
}

// GetConfig returns the platform config.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.respondConfig(w, r, http.StatusOK, nil)
}

func (h *Handler) respondConfig(w http.ResponseWriter, r *http.Request, status int, receipt *program.Receipt) {
	var cfg *models.PlatformConfig
	if receipt != nil {
		cfg = receipt.Config
	} else {
		var err error
		if cfg, err = h.program.Config(r.Context()); err != nil {
			h.ProgramError(w, err)
			return
		}
	}
	resp := ConfigResponse{Config: cfg}
	if receipt != nil {
		rr := newReceiptResponse(receipt)
		resp.Receipt = &rr
	}
	h.JSON(w, status, resp)
}
