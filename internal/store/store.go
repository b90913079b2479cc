package store

import (
	"context"
	"errors"
	"math"

	"github.com/eldtechnologies/messenger/internal/models"
)

var (
	ErrAccountExists     = errors.New("account already exists")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBalanceOverflow   = errors.New("balance overflow")
	ErrTxDone            = errors.New("transaction already committed or rolled back")
)

// accountOverhead is the per-account storage charged on top of the data size.
const accountOverhead = 128

// Account is a balance-holding slot. Records carry Data and the rent deposit
// paid when they were created; wallets carry only lamports.
type Account struct {
	Address  models.Address
	Lamports uint64
	Data     []byte
}

// HasData reports whether the account holds a record.
func (a *Account) HasData() bool {
	return a != nil && len(a.Data) > 0
}

// Rent prices storage allocation.
type Rent struct {
	LamportsPerByte uint64
}

// MinimumBalance returns the deposit a record of size bytes must hold.
func (r Rent) MinimumBalance(size int) uint64 {
	return uint64(accountOverhead+size) * r.LamportsPerByte
}

// Ledger is the execution environment: it runs each request in one Tx and
// serializes requests that touch the same accounts.
type Ledger interface {
	Close()
	Ping(ctx context.Context) error

	// Begin starts an atomic request.
	Begin(ctx context.Context) (Tx, error)

	// Account reads committed state. Returns nil, nil when absent.
	Account(ctx context.Context, addr models.Address) (*Account, error)

	// Airdrop credits lamports to addr outside of any request.
	Airdrop(ctx context.Context, addr models.Address, lamports uint64) error

	Rent() Rent
}

// Tx is one all-or-nothing request. After Commit or Rollback every method
// returns ErrTxDone.
type Tx interface {
	// Account returns the account as seen by this request, nil if absent.
	Account(ctx context.Context, addr models.Address) (*Account, error)

	// CreateAccount stores data at addr, funding the rent deposit from payer.
	// Fails with ErrAccountExists if addr already holds a record.
	CreateAccount(ctx context.Context, payer, addr models.Address, data []byte) error

	// WriteAccount replaces the record at addr.
	WriteAccount(ctx context.Context, addr models.Address, data []byte) error

	// CloseAccount deletes the record at addr and moves every lamport it
	// holds to beneficiary.
	CloseAccount(ctx context.Context, addr, beneficiary models.Address) error

	// Transfer moves lamports from one slot to another.
	Transfer(ctx context.Context, from, to models.Address, lamports uint64) error

	// Mint credits newly issued lamports to addr. Program operations never
	// mint; it backs airdrops and genesis funding.
	Mint(ctx context.Context, addr models.Address, lamports uint64) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Balance returns the lamports held at addr, zero when absent.
func Balance(ctx context.Context, l Ledger, addr models.Address) (uint64, error) {
	acct, err := l.Account(ctx, addr)
	if err != nil || acct == nil {
		return 0, err
	}
	return acct.Lamports, nil
}

func addLamports(a, b uint64) (uint64, error) {
	if b > math.MaxInt64 || a > math.MaxInt64-b {
		return 0, ErrBalanceOverflow
	}
	return a + b, nil
}

func toSigned(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, ErrBalanceOverflow
	}
	return int64(v), nil
}
