package store

import (
	"context"
	"sync"

	"github.com/eldtechnologies/messenger/internal/models"
)

// MemoryStore is an in-process ledger. A request holds the write lock from
// Begin until Commit or Rollback, so requests are fully serialized.
type MemoryStore struct {
	mu       sync.RWMutex
	rent     Rent
	accounts map[models.Address]*Account
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore(rent Rent) *MemoryStore {
	return &MemoryStore{
		rent:     rent,
		accounts: make(map[models.Address]*Account),
	}
}

func (s *MemoryStore) Close() {}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Rent() Rent {
	return s.rent
}

// Begin starts a request, waiting for any in-flight request to finish.
func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &memoryTx{store: s, overlay: make(map[models.Address]*Account)}, nil
}

// Account returns a copy of the committed account at addr.
func (s *MemoryStore) Account(ctx context.Context, addr models.Address) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAccount(s.accounts[addr]), nil
}

// Airdrop credits lamports to addr.
func (s *MemoryStore) Airdrop(ctx context.Context, addr models.Address, lamports uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.accounts[addr]
	if acct == nil {
		acct = &Account{Address: addr}
		s.accounts[addr] = acct
	}
	total, err := addLamports(acct.Lamports, lamports)
	if err != nil {
		return err
	}
	acct.Lamports = total
	return nil
}

func cloneAccount(a *Account) *Account {
	if a == nil {
		return nil
	}
	c := &Account{Address: a.Address, Lamports: a.Lamports}
	if a.Data != nil {
		c.Data = append([]byte(nil), a.Data...)
	}
	return c
}

// memoryTx buffers writes in an overlay. A nil overlay entry marks a deleted
// account.
type memoryTx struct {
	store   *MemoryStore
	overlay map[models.Address]*Account
	done    bool
}

func (tx *memoryTx) get(addr models.Address) *Account {
	if acct, ok := tx.overlay[addr]; ok {
		return cloneAccount(acct)
	}
	return cloneAccount(tx.store.accounts[addr])
}

func (tx *memoryTx) put(acct *Account) {
	tx.overlay[acct.Address] = acct
}

func (tx *memoryTx) Account(ctx context.Context, addr models.Address) (*Account, error) {
	if tx.done {
		return nil, ErrTxDone
	}
	return tx.get(addr), nil
}

func (tx *memoryTx) CreateAccount(ctx context.Context, payer, addr models.Address, data []byte) error {
	if tx.done {
		return ErrTxDone
	}
	if tx.get(addr).HasData() {
		return ErrAccountExists
	}
	if err := tx.Transfer(ctx, payer, addr, tx.store.rent.MinimumBalance(len(data))); err != nil {
		return err
	}
	acct := tx.get(addr)
	if acct == nil {
		acct = &Account{Address: addr}
	}
	acct.Data = append([]byte(nil), data...)
	tx.put(acct)
	return nil
}

func (tx *memoryTx) WriteAccount(ctx context.Context, addr models.Address, data []byte) error {
	if tx.done {
		return ErrTxDone
	}
	acct := tx.get(addr)
	if !acct.HasData() {
		return ErrAccountNotFound
	}
	acct.Data = append([]byte(nil), data...)
	tx.put(acct)
	return nil
}

func (tx *memoryTx) CloseAccount(ctx context.Context, addr, beneficiary models.Address) error {
	if tx.done {
		return ErrTxDone
	}
	acct := tx.get(addr)
	if !acct.HasData() {
		return ErrAccountNotFound
	}
	if err := tx.Transfer(ctx, addr, beneficiary, acct.Lamports); err != nil {
		return err
	}
	tx.overlay[addr] = nil
	return nil
}

func (tx *memoryTx) Transfer(ctx context.Context, from, to models.Address, lamports uint64) error {
	if tx.done {
		return ErrTxDone
	}
	if lamports == 0 {
		return nil
	}
	src := tx.get(from)
	if src == nil || src.Lamports < lamports {
		return ErrInsufficientFunds
	}
	if from == to {
		return nil
	}
	dst := tx.get(to)
	if dst == nil {
		dst = &Account{Address: to}
	}
	total, err := addLamports(dst.Lamports, lamports)
	if err != nil {
		return err
	}
	src.Lamports -= lamports
	dst.Lamports = total
	tx.put(src)
	tx.put(dst)
	return nil
}

func (tx *memoryTx) Mint(ctx context.Context, addr models.Address, lamports uint64) error {
	if tx.done {
		return ErrTxDone
	}
	acct := tx.get(addr)
	if acct == nil {
		acct = &Account{Address: addr}
	}
	total, err := addLamports(acct.Lamports, lamports)
	if err != nil {
		return err
	}
	acct.Lamports = total
	tx.put(acct)
	return nil
}

func (tx *memoryTx) Commit(ctx context.Context) error {
	if tx.done {
		return ErrTxDone
	}
	for addr, acct := range tx.overlay {
		if acct == nil || (acct.Lamports == 0 && !acct.HasData()) {
			delete(tx.store.accounts, addr)
			continue
		}
		tx.store.accounts[addr] = acct
	}
	tx.finish()
	return nil
}

func (tx *memoryTx) Rollback(ctx context.Context) error {
	if tx.done {
		return ErrTxDone
	}
	tx.finish()
	return nil
}

func (tx *memoryTx) finish() {
	tx.done = true
	tx.overlay = nil
	tx.store.mu.Unlock()
}
