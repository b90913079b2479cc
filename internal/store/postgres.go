package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eldtechnologies/messenger/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	address BYTEA PRIMARY KEY CHECK (octet_length(address) = 32),
	lamports BIGINT NOT NULL DEFAULT 0 CHECK (lamports >= 0),
	data BYTEA,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// RunMigrations creates the ledger schema if it does not exist.
func RunMigrations(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, postgresSchema)
	return err
}

// PostgresStore is a ledger backed by PostgreSQL. Conflicting requests
// serialize on row locks.
type PostgresStore struct {
	pool *pgxpool.Pool
	rent Rent
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string, rent Rent) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool, rent: rent}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Rent() Rent {
	return s.rent
}

// Begin starts a request.
func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	return &postgresTx{tx: tx, rent: s.rent}, nil
}

// Account reads a committed account.
func (s *PostgresStore) Account(ctx context.Context, addr models.Address) (*Account, error) {
	return scanPostgresAccount(s.pool.QueryRow(ctx, `
		SELECT lamports, data FROM accounts WHERE address = $1
	`, addr[:]), addr)
}

// Airdrop credits lamports to addr.
func (s *PostgresStore) Airdrop(ctx context.Context, addr models.Address, lamports uint64) error {
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

func scanPostgresAccount(row pgx.Row, addr models.Address) (*Account, error) {
	acct := &Account{Address: addr}
	var lamports int64
	err := row.Scan(&lamports, &acct.Data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	acct.Lamports = uint64(lamports)
	return acct, nil
}

type postgresTx struct {
	tx   pgx.Tx
	rent Rent
}

// Account locks and reads the row so the rest of the request sees a stable
// value.
func (t *postgresTx) Account(ctx context.Context, addr models.Address) (*Account, error) {
	return scanPostgresAccount(t.tx.QueryRow(ctx, `
		SELECT lamports, data FROM accounts WHERE address = $1 FOR UPDATE
	`, addr[:]), addr)
}

func (t *postgresTx) CreateAccount(ctx context.Context, payer, addr models.Address, data []byte) error {
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

	// A concurrent create of the same address blocks on the row and then
	// fails the WHERE clause.
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO accounts (address, lamports, data)
		VALUES ($1, 0, $2)
		ON CONFLICT (address) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
		WHERE accounts.data IS NULL
	`, addr[:], data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountExists
	}
	return nil
}

func (t *postgresTx) WriteAccount(ctx context.Context, addr models.Address, data []byte) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE accounts SET data = $1, updated_at = NOW()
		WHERE address = $2 AND data IS NOT NULL
	`, data, addr[:])
	if err != nil {
		return err
	}
	return requireAffected(tag)
}

func (t *postgresTx) CloseAccount(ctx context.Context, addr, beneficiary models.Address) error {
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
	_, err = t.tx.Exec(ctx, `DELETE FROM accounts WHERE address = $1`, addr[:])
	return err
}

func (t *postgresTx) Transfer(ctx context.Context, from, to models.Address, lamports uint64) error {
	if lamports == 0 {
		return nil
	}
	amount, err := toSigned(lamports)
	if err != nil {
		return err
	}

	tag, err := t.tx.Exec(ctx, `
		UPDATE accounts SET lamports = lamports - $1, updated_at = NOW()
		WHERE address = $2 AND lamports >= $1
	`, amount, from[:])
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientFunds
	}

	if err := t.Mint(ctx, to, lamports); err != nil {
		return err
	}

	_, err = t.tx.Exec(ctx, `
		DELETE FROM accounts WHERE address = $1 AND lamports = 0 AND data IS NULL
	`, from[:])
	return err
}

func (t *postgresTx) Mint(ctx context.Context, to models.Address, lamports uint64) error {
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

	_, err = t.tx.Exec(ctx, `
		INSERT INTO accounts (address, lamports)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET lamports = accounts.lamports + EXCLUDED.lamports, updated_at = NOW()
	`, to[:], int64(lamports))
	return err
}

func (t *postgresTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return ErrTxDone
		}
		return err
	}
	return nil
}

func (t *postgresTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return ErrTxDone
		}
		return err
	}
	return nil
}

func requireAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
