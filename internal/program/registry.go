package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/eldtechnologies/messenger/internal/crypto"
	"github.com/eldtechnologies/messenger/internal/metrics"
	"github.com/eldtechnologies/messenger/internal/models"
	"github.com/eldtechnologies/messenger/internal/store"
)

// Register creates the signer's encryption registry with a zero minimum fee.
// The signer pays the record's storage deposit.
func (p *Program) Register(ctx context.Context, signer crypto.Credential, encryptionKey models.Address) (*Receipt, error) {
	receipt, err := p.execute(ctx, OpRegister, signer, func(inv *invocation) error {
		if encryptionKey.IsZero() {
			return ErrInvalidEncryptionKey
		}

		reg := &models.EncryptionRegistry{
			Owner:         inv.signer,
			EncryptionKey: encryptionKey,
			CreatedAt:     inv.now,
			UpdatedAt:     inv.now,
		}
		data, err := reg.MarshalBinary()
		if err != nil {
			return err
		}

		err = inv.tx.CreateAccount(inv.ctx, inv.signer, crypto.RegistryAddress(inv.signer), data)
		if errors.Is(err, store.ErrAccountExists) {
			return ErrAlreadyRegistered
		}
		inv.registry = reg
		return err
	})
	if err == nil {
		metrics.RegistryEvents.WithLabelValues("registered").Inc()
	}
	return receipt, err
}

// UpdateEncryptionKey replaces the key advertised in owner's registry.
func (p *Program) UpdateEncryptionKey(ctx context.Context, signer crypto.Credential, owner, encryptionKey models.Address) (*Receipt, error) {
	receipt, err := p.mutateRegistry(ctx, OpUpdateEncryptionKey, signer, owner, func(reg *models.EncryptionRegistry) error {
		if encryptionKey.IsZero() {
			return ErrInvalidEncryptionKey
		}
		reg.EncryptionKey = encryptionKey
		return nil
	})
	if err == nil {
		metrics.RegistryEvents.WithLabelValues("key_updated").Inc()
	}
	return receipt, err
}

// SetMinFee replaces the minimum fee senders must pay owner. No upper bound
// is enforced.
func (p *Program) SetMinFee(ctx context.Context, signer crypto.Credential, owner models.Address, minFee uint64) (*Receipt, error) {
	receipt, err := p.mutateRegistry(ctx, OpSetMinFee, signer, owner, func(reg *models.EncryptionRegistry) error {
		reg.MinFee = minFee
		return nil
	})
	if err == nil {
		metrics.RegistryEvents.WithLabelValues("min_fee_set").Inc()
	}
	return receipt, err
}

// Deregister deletes owner's registry and returns its storage deposit to
// owner.
func (p *Program) Deregister(ctx context.Context, signer crypto.Credential, owner models.Address) (*Receipt, error) {
	receipt, err := p.execute(ctx, OpDeregister, signer, func(inv *invocation) error {
		addr := crypto.RegistryAddress(owner)
		reg, err := loadOwnedRegistry(inv, addr)
		if err != nil {
			return err
		}
		return inv.tx.CloseAccount(inv.ctx, addr, reg.Owner)
	})
	if err == nil {
		metrics.RegistryEvents.WithLabelValues("deregistered").Inc()
	}
	return receipt, err
}

// Registry returns owner's committed registry, or nil if owner has none.
func (p *Program) Registry(ctx context.Context, owner models.Address) (*models.EncryptionRegistry, error) {
	acct, err := p.ledger.Account(ctx, crypto.RegistryAddress(owner))
	if err != nil {
		return nil, err
	}
	return decodeRegistry(acct)
}

func (p *Program) mutateRegistry(ctx context.Context, op string, signer crypto.Credential, owner models.Address, mutate func(*models.EncryptionRegistry) error) (*Receipt, error) {
	return p.execute(ctx, op, signer, func(inv *invocation) error {
		addr := crypto.RegistryAddress(owner)
		reg, err := loadOwnedRegistry(inv, addr)
		if err != nil {
			return err
		}
		if err := mutate(reg); err != nil {
			return err
		}
		reg.UpdatedAt = inv.now

		data, err := reg.MarshalBinary()
		if err != nil {
			return err
		}
		inv.registry = reg
		return inv.tx.WriteAccount(inv.ctx, addr, data)
	})
}

// loadOwnedRegistry loads the registry at addr and requires the signer to be
// its owner.
func loadOwnedRegistry(inv *invocation, addr models.Address) (*models.EncryptionRegistry, error) {
	reg, err := loadRegistry(inv, addr)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, ErrNotFound
	}
	if reg.Owner != inv.signer {
		return nil, ErrUnauthorized
	}
	return reg, nil
}

func loadRegistry(inv *invocation, addr models.Address) (*models.EncryptionRegistry, error) {
	acct, err := inv.tx.Account(inv.ctx, addr)
	if err != nil {
		return nil, err
	}
	return decodeRegistry(acct)
}

// decodeRegistry returns nil, nil for an empty slot.
func decodeRegistry(acct *store.Account) (*models.EncryptionRegistry, error) {
	if !acct.HasData() {
		return nil, nil
	}
	reg := &models.EncryptionRegistry{}
	if err := reg.UnmarshalBinary(acct.Data); err != nil {
		return nil, fmt.Errorf("decode encryption registry: %w", err)
	}
	return reg, nil
}
