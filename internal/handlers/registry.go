package handlers

import (
	"net/http"

	"github.com/eldtechnologies/messenger/internal/crypto"
	"github.com/eldtechnologies/messenger/internal/models"
	"github.com/eldtechnologies/messenger/internal/program"
)

// RegisterRequest represents the registry creation body.
type RegisterRequest struct {
	EncryptionKey models.Address `json:"encryption_key"`
}

// SetMinFeeRequest represents the min fee update body.
type SetMinFeeRequest struct {
	MinFee *uint64 `json:"min_fee"`
}

// RegistryResponse represents an identity's encryption registry.
type RegistryResponse struct {
	Address  string                     `json:"address"`
	Registry *models.EncryptionRegistry `json:"registry"`
	Receipt  *ReceiptResponse           `json:"receipt,omitempty"`
}

// Register creates the caller's encryption registry.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credential(w, r)
	if !ok {
		return
	}
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	receipt, err := h.program.Register(r.Context(), cred, req.EncryptionKey)
	if err != nil {
		h.ProgramError(w, err)
		return
	}
	h.respondRegistry(w, r, http.StatusCreated, cred.Identity(), receipt)
}

// GetRegistry handles encryption key lookup.
func (h *Handler) GetRegistry(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.addressParam(w, r, "identity")
	if !ok {
		return
	}
	h.respondRegistry(w, r, http.StatusOK, identity, nil)
}

// UpdateEncryptionKey rotates the identity's encryption key.
func (h *Handler) UpdateEncryptionKey(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credential(w, r)
	if !ok {
		return
	}
	owner, ok := h.addressParam(w, r, "identity")
	if !ok {
		return
	}
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	receipt, err := h.program.UpdateEncryptionKey(r.Context(), cred, owner, req.EncryptionKey)
	if err != nil {
		h.ProgramError(w, err)
		return
	}
	h.respondRegistry(w, r, http.StatusOK, owner, receipt)
}

// SetMinFee changes the identity's inbound message fee.
func (h *Handler) SetMinFee(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credential(w, r)
	if !ok {
		return
	}
	owner, ok := h.addressParam(w, r, "identity")
	if !ok {
		return
	}
	var req SetMinFeeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.MinFee == nil {
		h.Error(w, http.StatusBadRequest, "min_fee is required")
		return
	}

	receipt, err := h.program.SetMinFee(r.Context(), cred, owner, *req.MinFee)
	if err != nil {
		h.ProgramError(w, err)
		return
	}
	h.respondRegistry(w, r, http.StatusOK, owner, receipt)
}

// Deregister closes the identity's registry and refunds its deposit.
func (h *Handler) Deregister(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credential(w, r)
	if !ok {
		return
	}
	owner, ok := h.addressParam(w, r, "identity")
	if !ok {
		return
	}

	receipt, err := h.program.Deregister(r.Context(), cred, owner)
	if err != nil {
		h.ProgramError(w, err)
		return
	}
	h.JSON(w, http.StatusOK, newReceiptResponse(receipt))
}

// respondRegistry answers with the record a committed request wrote, or
// with the committed state when there is no receipt.
func (h *Handler) respondRegistry(w http.ResponseWriter, r *http.Request, status int, owner models.Address, receipt *program.Receipt) {
	var reg *models.EncryptionRegistry
	if receipt != nil {
		reg = receipt.Registry
	} else {
		var err error
		if reg, err = h.program.Registry(r.Context(), owner); err != nil {
			h.ProgramError(w, err)
			return
		}
	}
	if reg == nil {
		h.ProgramError(w, program.ErrNotFound)
		return
	}
	resp := RegistryResponse{
		Address:  crypto.RegistryAddress(owner).String(),
		Registry: reg,
	}
	if receipt != nil {
		rr := newReceiptResponse(receipt)
		resp.Receipt = &rr
	}
	h.JSON(w, status, resp)
}
