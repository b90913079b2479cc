package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/messenger/internal/config"
	"github.com/eldtechnologies/messenger/internal/crypto"
	"github.com/eldtechnologies/messenger/internal/program"
	"github.com/eldtechnologies/messenger/internal/store"
)

// applyGenesis funds the listed accounts and, when the file carries a config
// section, initializes the platform config signed by the operator key.
// Applying genesis to a ledger that already carries the marker is a no-op.
func applyGenesis(ctx context.Context, logger zerolog.Logger, prog *program.Program, path, operatorKey string) error {
	g, err := config.LoadGenesis(path)
	if err != nil {
		return err
	}

	funded, err := fundGenesis(ctx, prog.Ledger(), g.Accounts)
	if err != nil {
		return err
	}
	if funded {
		logger.Info().Int("accounts", len(g.Accounts)).Msg("genesis accounts funded")
	} else {
		logger.Info().Msg("genesis already applied")
	}

	if g.Config == nil {
		return nil
	}
	if operatorKey == "" {
		return errors.New("genesis config requires OPERATOR_KEY")
	}
	priv, err := crypto.ParsePrivateKey(operatorKey)
	if err != nil {
		return err
	}

	operator := crypto.CredentialFromKey(priv)
	_, err = prog.InitializeConfig(ctx, operator, g.Config.FeeVault, g.Config.ProtocolFee)
	switch {
	case errors.Is(err, program.ErrAlreadyInitialized):
		logger.Info().Msg("platform config already initialized")
	case err != nil:
		return fmt.Errorf("initialize config: %w", err)
	default:
		logger.Info().
			Str("authority", operator.Identity().String()).
			Str("fee_vault", g.Config.FeeVault.String()).
			Uint64("protocol_fee", g.Config.ProtocolFee).
			Msg("platform config initialized")
	}
	return nil
}

// fundGenesis mints the genesis balances and writes the marker record in one
// request. It reports false when the marker already exists.
func fundGenesis(ctx context.Context, ledger store.Ledger, accounts []config.GenesisAccount) (bool, error) {
	tx, err := ledger.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	marker := crypto.GenesisAddress()
	existing, err := tx.Account(ctx, marker)
	if err != nil {
		return false, fmt.Errorf("read genesis marker: %w", err)
	}
	if existing.HasData() {
		return false, nil
	}

	for _, acct := range accounts {
		if err := tx.Mint(ctx, acct.Address, acct.Lamports); err != nil {
			return false, fmt.Errorf("fund %s: %w", acct.Address, err)
		}
	}

	// The marker holds the unix time genesis was applied and funds its own
	// deposit.
	data := binary.LittleEndian.AppendUint64(nil, uint64(time.Now().Unix()))
	if err := tx.Mint(ctx, marker, ledger.Rent().MinimumBalance(len(data))); err != nil {
		return false, err
	}
	if err := tx.CreateAccount(ctx, marker, marker, data); err != nil {
		return false, fmt.Errorf("write genesis marker: %w", err)
	}
	return true, tx.Commit(ctx)
}
