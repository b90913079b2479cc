package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/messenger/internal/api/middleware"
	"github.com/eldtechnologies/messenger/internal/crypto"
	"github.com/eldtechnologies/messenger/internal/models"
	"github.com/eldtechnologies/messenger/internal/program"
	"github.com/eldtechnologies/messenger/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	program *program.Program
	ledger  store.Ledger
	redis   *store.RedisStore
	logger  zerolog.Logger
}

// NewHandler creates a new Handler. redis may be nil.
func NewHandler(prog *program.Program, redis *store.RedisStore, logger zerolog.Logger) *Handler {
	return &Handler{
		program: prog,
		ledger:  prog.Ledger(),
		redis:   redis,
		logger:  logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// ErrorResponse is the body of a rejected ledger request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
	Name  string `json:"name"`
}

// ProgramError writes err, mapping request rejections to client errors.
func (h *Handler) ProgramError(w http.ResponseWriter, err error) {
	pe, ok := program.AsError(err)
	if !ok {
		h.logger.Error().Err(err).Msg("ledger request failed")
		h.Error(w, http.StatusInternalServerError, "ledger error")
		return
	}
	h.JSON(w, statusFor(pe), ErrorResponse{Error: pe.Message, Code: pe.Code, Name: pe.Name})
}

func statusFor(pe *program.Error) int {
	switch pe {
	case program.ErrEmptyMessage, program.ErrMessageTooLarge:
		return http.StatusUnprocessableEntity
	case program.ErrUnauthorized:
		return http.StatusForbidden
	case program.ErrNotFound:
		return http.StatusNotFound
	case program.ErrAlreadyInitialized, program.ErrAlreadyRegistered:
		return http.StatusConflict
	case program.ErrInsufficientFunds:
		return http.StatusPaymentRequired
	default:
		return http.StatusBadRequest
	}
}

// credential returns the caller's verified credential, writing 401 if the
// route was reached without one.
func (h *Handler) credential(w http.ResponseWriter, r *http.Request) (crypto.Credential, bool) {
	cred, ok := middleware.CredentialFromContext(r.Context())
	if !ok {
		h.Error(w, http.StatusUnauthorized, "missing credential")
	}
	return cred, ok
}

// decode reads a JSON body into v, writing 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// addressParam parses a base58 address URL parameter, writing 400 on failure.
func (h *Handler) addressParam(w http.ResponseWriter, r *http.Request, name string) (models.Address, bool) {
	addr, err := models.ParseAddress(chi.URLParam(r, name))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid "+name)
		return models.Address{}, false
	}
	return addr, true
}

// ReceiptResponse describes a committed request.
type ReceiptResponse struct {
	TxID       string          `json:"tx_id"`
	Operation  string          `json:"operation"`
	Signer     string          `json:"signer"`
	ExecutedAt string          `json:"executed_at"`
	Events     []EventResponse `json:"events,omitempty"`
}

// EventResponse is the wire form of a MessageSent notification.
type EventResponse struct {
	Sender     string `json:"sender"`
	Recipient  string `json:"recipient"`
	Ciphertext []byte `json:"ciphertext"` // base64
	Nonce      []byte `json:"nonce"`      // base64
	Timestamp  int64  `json:"timestamp"`
}

func newReceiptResponse(rc *program.Receipt) ReceiptResponse {
	resp := ReceiptResponse{
		TxID:       rc.TxID.String(),
		Operation:  rc.Operation,
		Signer:     rc.Signer.String(),
		ExecutedAt: rc.ExecutedAt.Format(time.RFC3339),
	}
	for _, ev := range rc.Events {
		resp.Events = append(resp.Events, EventResponse{
			Sender:     ev.Sender.String(),
			Recipient:  ev.Recipient.String(),
			Ciphertext: ev.Ciphertext,
			Nonce:      ev.Nonce[:],
			Timestamp:  ev.Timestamp,
		})
	}
	return resp
}
