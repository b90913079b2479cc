package crypto

import (
	"crypto/ed25519"

	"github.com/eldtechnologies/messenger/internal/models"
)

// Credential is proof that the caller controls an identity. It can only be
// obtained by verifying a signature or by holding the identity's private key.
type Credential struct {
	identity models.Address
}

// Identity returns the verified identity.
func (c Credential) Identity() models.Address {
	return c.identity
}

// Valid reports whether the credential was produced by a verification step.
func (c Credential) Valid() bool {
	return !c.identity.IsZero()
}

// Verify checks signature against signedData for identity and returns a
// credential on success.
func Verify(identity string, signedData []byte, signatureB64 string) (Credential, error) {
	pubkey, err := ValidatePublicKey(identity)
	if err != nil {
		return Credential{}, err
	}
	if err := VerifySignature(pubkey, signedData, signatureB64); err != nil {
		return Credential{}, err
	}
	var c Credential
	copy(c.identity[:], pubkey)
	return c, nil
}

// CredentialFromKey returns the credential of the holder of priv.
func CredentialFromKey(priv ed25519.PrivateKey) Credential {
	var c Credential
	copy(c.identity[:], priv.Public().(ed25519.PublicKey))
	return c
}
