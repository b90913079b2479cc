package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/messenger/internal/crypto"
	"github.com/eldtechnologies/messenger/internal/models"
	"github.com/eldtechnologies/messenger/internal/program"
	"github.com/eldtechnologies/messenger/internal/store"
)

func TestApplyGenesis(t *testing.T) {
	ctx := context.Background()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	operator := crypto.CredentialFromKey(priv)

	var alice, vault models.Address
	alice[0], vault[0] = 1, 2
	doc := "accounts:\n" +
		"  - address: " + alice.String() + "\n" +
		"    lamports: 500\n" +
		"  - address: " + operator.Identity().String() + "\n" +
		"    lamports: 1000000\n" +
		"config:\n" +
		"  fee_vault: " + vault.String() + "\n" +
		"  protocol_fee: 42\n"
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	ledger := store.NewMemoryStore(store.Rent{LamportsPerByte: 1})
	prog := program.New(ledger)
	key := base64.StdEncoding.EncodeToString(priv)

	for i := 0; i < 2; i++ {
		require.NoError(t, applyGenesis(ctx, zerolog.Nop(), prog, path, key))
	}

	bal, err := store.Balance(ctx, ledger, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), bal)

	cfg, err := prog.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, operator.Identity(), cfg.Authority)
	assert.Equal(t, vault, cfg.FeeVault)
	assert.Equal(t, uint64(42), cfg.ProtocolFee)
}

func TestApplyGenesisConfigNeedsOperator(t *testing.T) {
	var vault models.Address
	vault[0] = 2
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte("config:\n  fee_vault: "+vault.String()+"\n"), 0o600))

	prog := program.New(store.NewMemoryStore(store.Rent{}))
	assert.Error(t, applyGenesis(context.Background(), zerolog.Nop(), prog, path, ""))
}

func TestApplyGenesisAfterDrain(t *testing.T) {
	ctx := context.Background()
	sqlite, err := store.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "ledger.db"), store.Rent{LamportsPerByte: 1})
	require.NoError(t, err)
	t.Cleanup(sqlite.Close)

	ledgers := map[string]store.Ledger{
		"memory": store.NewMemoryStore(store.Rent{LamportsPerByte: 1}),
		"sqlite": sqlite,
	}
	for name, ledger := range ledgers {
		t.Run(name, func(t *testing.T) {
			var alice, bob models.Address
			alice[0], bob[0] = 1, 3
			doc := "accounts:\n" +
				"  - address: " + alice.String() + "\n" +
				"    lamports: 500\n"
			path := filepath.Join(t.TempDir(), "genesis.yaml")
			require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
			prog := program.New(ledger)

			require.NoError(t, applyGenesis(ctx, zerolog.Nop(), prog, path, ""))

			tx, err := ledger.Begin(ctx)
			require.NoError(t, err)
			require.NoError(t, tx.Transfer(ctx, alice, bob, 500))
			require.NoError(t, tx.Commit(ctx))

			acct, err := ledger.Account(ctx, alice)
			require.NoError(t, err)
			assert.Nil(t, acct)

			require.NoError(t, applyGenesis(ctx, zerolog.Nop(), prog, path, ""))

			bal, err := store.Balance(ctx, ledger, alice)
			require.NoError(t, err)
			assert.Zero(t, bal)

			bal, err = store.Balance(ctx, ledger, bob)
			require.NoError(t, err)
			assert.Equal(t, uint64(500), bal)

			marker, err := ledger.Account(ctx, crypto.GenesisAddress())
			require.NoError(t, err)
			assert.True(t, marker.HasData())
		})
	}
}
