package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/eldtechnologies/messenger/internal/crypto"
	"github.com/eldtechnologies/messenger/internal/models"
	"github.com/eldtechnologies/messenger/internal/store"
)

// ConfigUpdate is a partial update; nil fields are left unchanged.
type ConfigUpdate struct {
	FeeVault    *models.Address
	ProtocolFee *uint64
}

// InitializeConfig creates the platform configuration with signer as its
// authority. It can succeed only once per deployment.
func (p *Program) InitializeConfig(ctx context.Context, signer crypto.Credential, feeVault models.Address, protocolFee uint64) (*Receipt, error) {
	return p.execute(ctx, OpInitializeConfig, signer, func(inv *invocation) error {
		if feeVault.IsZero() {
			return ErrInvalidFeeVault
		}

		cfg := &models.PlatformConfig{
			Authority:   inv.signer,
			FeeVault:    feeVault,
			ProtocolFee: protocolFee,
			UpdatedAt:   inv.now,
		}
		data, err := cfg.MarshalBinary()
		if err != nil {
			return err
		}

		err = inv.tx.CreateAccount(inv.ctx, inv.signer, crypto.ConfigAddress(), data)
		if errors.Is(err, store.ErrAccountExists) {
			return ErrAlreadyInitialized
		}
		inv.config = cfg
		return err
	})
}

// UpdateConfig applies a partial update. Only the current authority may
// update the configuration.
func (p *Program) UpdateConfig(ctx context.Context, signer crypto.Credential, update ConfigUpdate) (*Receipt, error) {
	return p.execute(ctx, OpUpdateConfig, signer, func(inv *invocation) error {
		cfg, err := loadConfig(inv)
		if err != nil {
			return err
		}
		if cfg.Authority != inv.signer {
			return ErrUnauthorized
		}

		if update.FeeVault != nil {
			if update.FeeVault.IsZero() {
				return ErrInvalidFeeVault
			}
			cfg.FeeVault = *update.FeeVault
		}
		if update.ProtocolFee != nil {
			cfg.ProtocolFee = *update.ProtocolFee
		}
		cfg.UpdatedAt = inv.now

		data, err := cfg.MarshalBinary()
		if err != nil {
			return err
		}
		inv.config = cfg
		return inv.tx.WriteAccount(inv.ctx, crypto.ConfigAddress(), data)
	})
}

// Config returns the committed platform configuration, or ErrNotFound
// before initialization.
func (p *Program) Config(ctx context.Context) (*models.PlatformConfig, error) {
	acct, err := p.ledger.Account(ctx, crypto.ConfigAddress())
	if err != nil {
		return nil, err
	}
	return decodeConfig(acct)
}

func loadConfig(inv *invocation) (*models.PlatformConfig, error) {
	acct, err := inv.tx.Account(inv.ctx, crypto.ConfigAddress())
	if err != nil {
		return nil, err
	}
	return decodeConfig(acct)
}

func decodeConfig(acct *store.Account) (*models.PlatformConfig, error) {
	if !acct.HasData() {
		return nil, ErrNotFound
	}
	cfg := &models.PlatformConfig{}
	if err := cfg.UnmarshalBinary(acct.Data); err != nil {
		return nil, fmt.Errorf("decode platform config: %w", err)
	}
	return cfg, nil
}
