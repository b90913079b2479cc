package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/eldtechnologies/messenger/internal/models"
)

var (
	ErrInvalidPublicKey = errors.New("invalid Ed25519 public key")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrSignatureExpired = errors.New("signature timestamp expired")
	ErrInvalidNonce     = errors.New("invalid or reused nonce")
)

// ValidatePublicKey checks that a base58 identity is a usable Ed25519 public key.
func ValidatePublicKey(identity string) (ed25519.PublicKey, error) {
	addr, err := models.ParseAddress(identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if addr.IsZero() {
		return nil, fmt.Errorf("%w: zero key", ErrInvalidPublicKey)
	}
	return ed25519.PublicKey(addr[:]), nil
}

// VerifySignature verifies a signed message.
func VerifySignature(pubkey ed25519.PublicKey, signedData []byte, signatureB64 string) error {
	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("%w: invalid base64 encoding", ErrInvalidSignature)
	}

	if len(signature) != ed25519.SignatureSize || !ed25519.Verify(pubkey, signedData, signature) {
		return ErrInvalidSignature
	}

	return nil
}

// SignaturePayload creates the canonical data to sign.
// Format: method|path|bodyHash|nonce|timestamp
func SignaturePayload(method, path, bodyHash, nonce string, timestamp int64) []byte {
	return []byte(fmt.Sprintf("%s|%s|%s|%s|%d", method, path, bodyHash, nonce, timestamp))
}

// ParsePrivateKey decodes a base64 Ed25519 private key. A 32-byte seed is
// also accepted.
func ParsePrivateKey(keyB64 string) (ed25519.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, fmt.Errorf("invalid private key encoding: %w", err)
	}
	switch len(raw) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	default:
		return nil, fmt.Errorf("invalid private key length %d", len(raw))
	}
}
