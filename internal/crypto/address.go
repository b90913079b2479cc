package crypto

import (
	"crypto/sha256"

	"github.com/eldtechnologies/messenger/internal/models"
)

const (
	// RegistrySeed namespaces per-owner encryption registry records.
	RegistrySeed = "messenger"

	// ConfigSeed namespaces the platform configuration singleton.
	ConfigSeed = "config"

	// GenesisSeed namespaces the record marking genesis as applied.
	GenesisSeed = "genesis"

	derivationMarker = "ProgramDerivedAddress"
)

// ProgramID scopes every derived address to this program.
var ProgramID = models.Address(sha256.Sum256([]byte("messenger.program.v1")))

// DeriveAddress computes a storage address from seeds. The result is a pure
// function of its inputs, so records are located without an index.
func DeriveAddress(seeds ...[]byte) models.Address {
	h := sha256.New()
	for _, s := range seeds {
		h.Write(s)
	}
	h.Write(ProgramID[:])
	h.Write([]byte(derivationMarker))
	var a models.Address
	copy(a[:], h.Sum(nil))
	return a
}

// ConfigAddress returns the address of the platform configuration.
func ConfigAddress() models.Address {
	return DeriveAddress([]byte(ConfigSeed))
}

// RegistryAddress returns the address of owner's encryption registry.
func RegistryAddress(owner models.Address) models.Address {
	return DeriveAddress([]byte(RegistrySeed), owner[:])
}

// GenesisAddress returns the address of the genesis marker record.
func GenesisAddress() models.Address {
	return DeriveAddress([]byte(GenesisSeed))
}
