package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eldtechnologies/messenger/internal/models"
)

// Genesis is the initial ledger state applied at startup.
//
//	accounts:
//	  - address: 7xKX...
//	    lamports: 1000000000
//	config:
//	  fee_vault: 9yLm...
//	  protocol_fee: 5000
type Genesis struct {
	Accounts []GenesisAccount `yaml:"accounts"`
	Config   *GenesisConfig   `yaml:"config"`
}

type GenesisAccount struct {
	Address  models.Address `yaml:"address"`
	Lamports uint64         `yaml:"lamports"`
}

// GenesisConfig initializes the platform config, signed by the operator key.
type GenesisConfig struct {
	FeeVault    models.Address `yaml:"fee_vault"`
	ProtocolFee uint64         `yaml:"protocol_fee"`
}

// LoadGenesis reads a genesis file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	return ParseGenesis(data)
}

// ParseGenesis decodes genesis YAML.
func ParseGenesis(data []byte) (*Genesis, error) {
	var g Genesis
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse genesis: %w", err)
	}
	for i, acct := range g.Accounts {
		if acct.Address.IsZero() {
			return nil, fmt.Errorf("genesis account %d: missing address", i)
		}
	}
	if g.Config != nil && g.Config.FeeVault.IsZero() {
		return nil, fmt.Errorf("genesis config: missing fee_vault")
	}
	return &g, nil
}
