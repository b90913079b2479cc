package handlers

import (
	"net/http"

	"github.com/eldtechnologies/messenger/internal/models"
	"github.com/eldtechnologies/messenger/internal/program"
)

// SendMessageRequest represents the message relay body. Ciphertext and Nonce
// are base64.
type SendMessageRequest struct {
	Recipient         models.Address  `json:"recipient"`
	Ciphertext        []byte          `json:"ciphertext"`
	Nonce             []byte          `json:"nonce"`
	FeeVault          models.Address  `json:"fee_vault"`
	RecipientRegistry *models.Address `json:"recipient_registry,omitempty"`
	RecipientWallet   *models.Address `json:"recipient_wallet,omitempty"`
}

// SendMessage relays one encrypted envelope and charges its fees.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credential(w, r)
	if !ok {
		return
	}
	var req SendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := program.CheckCiphertext(req.Ciphertext); err != nil {
		h.ProgramError(w, err)
		return
	}
	if len(req.Nonce) != models.NonceSize {
		h.Error(w, http.StatusBadRequest, "nonce must be 24 bytes")
		return
	}

	pr := program.SendMessageRequest{
		Recipient:         req.Recipient,
		Ciphertext:        req.Ciphertext,
		FeeVault:          req.FeeVault,
		RecipientRegistry: req.RecipientRegistry,
		RecipientWallet:   req.RecipientWallet,
	}
	copy(pr.Nonce[:], req.Nonce)

	receipt, err := h.program.SendMessage(r.Context(), cred, pr)
	if err != nil {
		h.ProgramError(w, err)
		return
	}
	h.JSON(w, http.StatusCreated, newReceiptResponse(receipt))
}
