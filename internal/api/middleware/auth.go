package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/messenger/internal/crypto"
	"github.com/eldtechnologies/messenger/internal/store"
)

// Auth headers.
const (
	HeaderSigner    = "X-Messenger-Signer"
	HeaderNonce     = "X-Messenger-Nonce"
	HeaderTimestamp = "X-Messenger-Timestamp"
	HeaderSignature = "X-Messenger-Signature"
)

type contextKey string

const CredentialContextKey contextKey = "credential"

// AuthMiddleware handles signature verification for authenticated endpoints.
type AuthMiddleware struct {
	nonces store.NonceStore
	logger zerolog.Logger
	window time.Duration
	now    func() time.Time
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(nonces store.NonceStore, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		nonces: nonces,
		logger: logger,
		window: 30 * time.Second, // Tight window to minimize replay attack surface
		now:    time.Now,
	}
}

// RequireAuth middleware verifies Ed25519 signatures on requests and stores
// the resulting credential in the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signer := r.Header.Get(HeaderSigner)
		nonce := r.Header.Get(HeaderNonce)
		timestamp := r.Header.Get(HeaderTimestamp)
		signature := r.Header.Get(HeaderSignature)

		if signer == "" || nonce == "" || timestamp == "" || signature == "" {
			jsonError(w, http.StatusUnauthorized, "missing auth headers")
			return
		}

		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid timestamp format")
			return
		}
		if !m.isTimestampValid(ts) {
			jsonError(w, http.StatusUnauthorized, "timestamp expired or too far in future")
			return
		}

		// Validate nonce format (min 24 chars for adequate entropy)
		if len(nonce) < 24 {
			jsonError(w, http.StatusUnauthorized, "nonce must be at least 24 characters")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewBuffer(body)) // Reset for handler

		signedData := crypto.SignaturePayload(r.Method, r.URL.Path, sha256Hex(body), nonce, ts)
		cred, err := crypto.Verify(signer, signedData, signature)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid signature")
			return
		}

		// Claim after verification so forged requests cannot burn nonces.
		fresh, err := m.nonces.ClaimNonce(r.Context(), cred.Identity(), nonce, 3*time.Minute)
		if err != nil {
			m.logger.Error().Err(err).Msg("nonce store unavailable")
			jsonError(w, http.StatusServiceUnavailable, "service unavailable")
			return
		}
		if !fresh {
			jsonError(w, http.StatusUnauthorized, "nonce already used")
			return
		}

		ctx := context.WithValue(r.Context(), CredentialContextKey, cred)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) isTimestampValid(ts int64) bool {
	now := m.now().UnixMilli()
	windowMs := m.window.Milliseconds()
	// Only accept timestamps from the past (within window), reject future timestamps
	return ts > now-windowMs && ts <= now
}

func sha256Hex(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// CredentialFromContext retrieves the verified caller credential. The second
// result is false on unauthenticated routes.
func CredentialFromContext(ctx context.Context) (crypto.Credential, bool) {
	cred, ok := ctx.Value(CredentialContextKey).(crypto.Credential)
	return cred, ok && cred.Valid()
}
