package messenger

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

const (
	protocolVersion = "messenger-envelope-v1"
	ephemeralPKSize = 32
	keySize         = 32
	tagSize         = 16

	// NonceSize is the XChaCha20-Poly1305 nonce length carried next to
	// every ciphertext.
	NonceSize = chacha20poly1305.NonceSizeX

	// MaxCiphertextSize is the largest envelope the relay accepts.
	MaxCiphertextSize = 900

	// MaxPlaintextSize is the largest message that seals into one envelope.
	MaxPlaintextSize = MaxCiphertextSize - ephemeralPKSize - tagSize
)

// CryptoError represents an encryption/decryption error.
type CryptoError struct {
	Message string
}

func (e *CryptoError) Error() string {
	return e.Message
}

// EncryptionKey derives the X25519 public key registered for an Ed25519
// identity.
func EncryptionKey(edPub ed25519.PublicKey) ([]byte, error) {
	p, err := new(edwards25519.Point).SetBytes(edPub)
	if err != nil {
		return nil, fmt.Errorf("invalid Ed25519 public key: %w", err)
	}
	return p.BytesMontgomery(), nil
}

// encryptionPrivateKey converts an Ed25519 seed to the matching X25519
// private key.
func encryptionPrivateKey(seed []byte) []byte {
	h := sha512.Sum512(seed)
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64
	return h[:32]
}

// deriveKey derives an encryption key using HKDF-SHA256.
func deriveKey(sharedSecret, ephemeralPK, recipientPK []byte) ([]byte, error) {
	salt := make([]byte, 0, len(ephemeralPK)+len(recipientPK))
	salt = append(salt, ephemeralPK...)
	salt = append(salt, recipientPK...)

	hkdfReader := hkdf.New(sha256.New, sharedSecret, salt, []byte(protocolVersion))
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdfReader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Seal encrypts plaintext to a recipient's registered X25519 encryption key.
// The ciphertext is ephemeral_pk[32] + sealed[N+16]; the nonce travels
// separately.
func Seal(plaintext []byte, recipientKey []byte) (ciphertext []byte, nonce [NonceSize]byte, err error) {
	if len(plaintext) == 0 {
		return nil, nonce, &CryptoError{Message: "plaintext is empty"}
	}
	if len(plaintext) > MaxPlaintextSize {
		return nil, nonce, &CryptoError{Message: fmt.Sprintf("plaintext too long: %d bytes, maximum %d", len(plaintext), MaxPlaintextSize)}
	}
	if len(recipientKey) != curve25519.PointSize {
		return nil, nonce, &CryptoError{Message: fmt.Sprintf("invalid encryption key length: %d, expected %d", len(recipientKey), curve25519.PointSize)}
	}

	// Generate ephemeral X25519 keypair
	var ephPriv [32]byte
	if _, err := rand.Read(ephPriv[:]); err != nil {
		return nil, nonce, err
	}
	ephPub, err := curve25519.X25519(ephPriv[:], curve25519.Basepoint)
	if err != nil {
		return nil, nonce, err
	}

	sharedSecret, err := curve25519.X25519(ephPriv[:], recipientKey)
	if err != nil {
		return nil, nonce, &CryptoError{Message: "invalid encryption key"}
	}

	key, err := deriveKey(sharedSecret, ephPub, recipientKey)
	if err != nil {
		return nil, nonce, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nonce, err
	}
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, nonce, err
	}

	ciphertext = make([]byte, 0, ephemeralPKSize+len(plaintext)+tagSize)
	ciphertext = append(ciphertext, ephPub...)
	ciphertext = aead.Seal(ciphertext, nonce[:], plaintext, nil)
	return ciphertext, nonce, nil
}

// Open decrypts an envelope with the recipient's Ed25519 private key.
func Open(ciphertext []byte, nonce [NonceSize]byte, privateKey ed25519.PrivateKey) ([]byte, error) {
	if len(ciphertext) < ephemeralPKSize+tagSize {
		return nil, &CryptoError{Message: fmt.Sprintf("ciphertext too short: %d bytes, minimum %d", len(ciphertext), ephemeralPKSize+tagSize)}
	}

	ephPK := ciphertext[:ephemeralPKSize]
	sealed := ciphertext[ephemeralPKSize:]

	ownPriv := encryptionPrivateKey(privateKey.Seed())
	ownPub, err := curve25519.X25519(ownPriv, curve25519.Basepoint)
	if err != nil {
		return nil, &CryptoError{Message: fmt.Sprintf("failed to derive X25519 public key: %v", err)}
	}

	sharedSecret, err := curve25519.X25519(ownPriv, ephPK)
	if err != nil {
		return nil, &CryptoError{Message: "decryption failed: invalid ephemeral key"}
	}

	key, err := deriveKey(sharedSecret, ephPK, ownPub)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce[:], sealed, nil)
	if err != nil {
		return nil, &CryptoError{Message: "decryption failed: wrong key or tampered ciphertext"}
	}
	return plaintext, nil
}

// ErrCrypto checks if an error is a CryptoError.
func ErrCrypto(err error) bool {
	var ce *CryptoError
	return errors.As(err, &ce)
}
