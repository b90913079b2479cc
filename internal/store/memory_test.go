package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/messenger/internal/models"
)

func addr(b byte) models.Address {
	var a models.Address
	a[0] = b
	return a
}

func TestMemoryTransferAndRollback(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(Rent{})
	require.NoError(t, s.Airdrop(ctx, addr(1), 100))

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Transfer(ctx, addr(1), addr(2), 60))
	assert.ErrorIs(t, tx.Transfer(ctx, addr(1), addr(3), 41), ErrInsufficientFunds)
	require.NoError(t, tx.Rollback(ctx))

	bal, err := Balance(ctx, s, addr(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(100), bal)

	bal, err = Balance(ctx, s, addr(2))
	require.NoError(t, err)
	assert.Zero(t, bal)

	assert.ErrorIs(t, tx.Commit(ctx), ErrTxDone)
}

func TestMemoryCreateChargesRentAndCloseRefunds(t *testing.T) {
	ctx := context.Background()
	rent := Rent{LamportsPerByte: 2}
	s := NewMemoryStore(rent)
	require.NoError(t, s.Airdrop(ctx, addr(1), 10_000))

	data := []byte("record")
	deposit := rent.MinimumBalance(len(data))

	tx, _ := s.Begin(ctx)
	require.NoError(t, tx.CreateAccount(ctx, addr(1), addr(9), data))
	assert.ErrorIs(t, tx.CreateAccount(ctx, addr(1), addr(9), data), ErrAccountExists)
	require.NoError(t, tx.Commit(ctx))

	acct, err := s.Account(ctx, addr(9))
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, deposit, acct.Lamports)
	assert.Equal(t, data, acct.Data)

	bal, _ := Balance(ctx, s, addr(1))
	assert.Equal(t, 10_000-deposit, bal)

	tx, _ = s.Begin(ctx)
	require.NoError(t, tx.CloseAccount(ctx, addr(9), addr(1)))
	require.NoError(t, tx.Commit(ctx))

	acct, err = s.Account(ctx, addr(9))
	require.NoError(t, err)
	assert.Nil(t, acct)

	bal, _ = Balance(ctx, s, addr(1))
	assert.Equal(t, uint64(10_000), bal)
}

func TestMemoryWriteRequiresRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(Rent{})

	tx, _ := s.Begin(ctx)
	defer tx.Rollback(ctx)
	assert.ErrorIs(t, tx.WriteAccount(ctx, addr(4), []byte("x")), ErrAccountNotFound)
	assert.ErrorIs(t, tx.CloseAccount(ctx, addr(4), addr(1)), ErrAccountNotFound)
}

func TestMemoryCreateWithoutRentFunds(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(Rent{LamportsPerByte: 1})

	tx, _ := s.Begin(ctx)
	defer tx.Rollback(ctx)
	assert.ErrorIs(t, tx.CreateAccount(ctx, addr(1), addr(2), []byte("x")), ErrInsufficientFunds)
}

func TestMemoryNonceStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryNonceStore()
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }

	ok, err := s.ClaimNonce(ctx, addr(1), "n", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = s.ClaimNonce(ctx, addr(1), "n", time.Minute)
	assert.False(t, ok)

	ok, _ = s.ClaimNonce(ctx, addr(2), "n", time.Minute)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = s.ClaimNonce(ctx, addr(1), "n", time.Minute)
	assert.True(t, ok)
}

func TestMemoryMintIsTransactional(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(Rent{})

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Mint(ctx, addr(4), 70))
	require.NoError(t, tx.Rollback(ctx))

	bal, err := Balance(ctx, s, addr(4))
	require.NoError(t, err)
	assert.Zero(t, bal)

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Mint(ctx, addr(4), 70))
	require.NoError(t, tx.Commit(ctx))

	bal, err = Balance(ctx, s, addr(4))
	require.NoError(t, err)
	assert.Equal(t, uint64(70), bal)
}
