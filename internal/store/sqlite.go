package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eldtechnologies/messenger/internal/models"
)

// SQLiteStore is a single-node ledger backed by SQLite.
type SQLiteStore struct {
	db   *sql.DB
	rent Rent
}

// NewSQLiteStore opens (and if needed creates) a SQLite ledger.
// If dbPath is empty, defaults to "./data/messenger.db"
func NewSQLiteStore(ctx context.Context, dbPath string, rent Rent) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/messenger.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	// BEGIN IMMEDIATE takes the write lock up front, so requests serialize
	// instead of failing on lock upgrade.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db, rent: rent}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		address BLOB PRIMARY KEY,
		lamports INTEGER NOT NULL DEFAULT 0 CHECK (lamports >= 0),
		data BLOB,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Rent() Rent {
	return s.rent
}

// Begin starts a request in an immediate transaction.
func (s *SQLiteStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, rent: s.rent}, nil
}

// Account reads a committed account.
func (s *SQLiteStore) Account(ctx context.Context, addr models.Address) (*Account, error) {
	return scanSQLiteAccount(s.db.QueryRowContext(ctx, `
		SELECT lamports, data FROM accounts WHERE address = ?
	`, addr[:]), addr)
}

// Airdrop credits lamports to addr.
func (s *SQLiteStore) Airdrop(ctx context.Context, addr models.Address, lamports uint64) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.Mint(ctx, addr, lamports); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func scanSQLiteAccount(row *sql.Row, addr models.Address) (*Account, error) {
	acct := &Account{Address: addr}
	var lamports int64
	err := row.Scan(&lamports, &acct.Data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	acct.Lamports = uint64(lamports)
	return acct, nil
}

type sqliteTx struct {
	tx   *sql.Tx
	rent Rent
}

func (t *sqliteTx) Account(ctx context.Context, addr models.Address) (*Account, error) {
	return scanSQLiteAccount(t.tx.QueryRowContext(ctx, `
		SELECT lamports, data FROM accounts WHERE address = ?
	`, addr[:]), addr)
}

func (t *sqliteTx) CreateAccount(ctx context.Context, payer, addr models.Address, data []byte) error {
	existing, err := t.Account(ctx, addr)
	if err != nil {
		return err
	}
	if existing.HasData() {
		return ErrAccountExists
	}

	if err := t.Transfer(ctx, payer, addr, t.rent.MinimumBalance(len(data))); err != nil {
		return err
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO accounts (address, lamports, data, updated_at)
		VALUES (?, 0, ?, ?)
		ON CONFLICT (address) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, addr[:], data, time.Now())
	return err
}

func (t *sqliteTx) WriteAccount(ctx context.Context, addr models.Address, data []byte) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE accounts SET data = ?, updated_at = ?
		WHERE address = ? AND data IS NOT NULL AND length(data) > 0
	`, data, time.Now(), addr[:])
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (t *sqliteTx) CloseAccount(ctx context.Context, addr, beneficiary models.Address) error {
	acct, err := t.Account(ctx, addr)
	if err != nil {
		return err
	}
	if !acct.HasData() {
		return ErrAccountNotFound
	}
	if err := t.Transfer(ctx, addr, beneficiary, acct.Lamports); err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `DELETE FROM accounts WHERE address = ?`, addr[:])
	return err
}

func (t *sqliteTx) Transfer(ctx context.Context, from, to models.Address, lamports uint64) error {
	if lamports == 0 {
		return nil
	}
	amount, err := toSigned(lamports)
	if err != nil {
		return err
	}

	res, err := t.tx.ExecContext(ctx, `
		UPDATE accounts SET lamports = lamports - ?, updated_at = ?
		WHERE address = ? AND lamports >= ?
	`, amount, time.Now(), from[:], amount)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return ErrInsufficientFunds
	}

	if err := t.Mint(ctx, to, lamports); err != nil {
		return err
	}

	// Empty wallets are not kept around.
	_, err = t.tx.ExecContext(ctx, `
		DELETE FROM accounts WHERE address = ? AND lamports = 0 AND data IS NULL
	`, from[:])
	return err
}

func (t *sqliteTx) Mint(ctx context.Context, to models.Address, lamports uint64) error {
	dst, err := t.Account(ctx, to)
	if err != nil {
		return err
	}
	var current uint64
	if dst != nil {
		current = dst.Lamports
	}
	if _, err := addLamports(current, lamports); err != nil {
		return err
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO accounts (address, lamports, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET lamports = accounts.lamports + excluded.lamports, updated_at = excluded.updated_at
	`, to[:], int64(lamports), time.Now())
	return err
}

func (t *sqliteTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return ErrTxDone
		}
		return err
	}
	return nil
}

func (t *sqliteTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return ErrTxDone
		}
		return err
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}
