//go:build container
// +build container

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T, ctx context.Context) string {
	t.Helper()

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "messenger",
				"POSTGRES_PASSWORD": "messenger",
				"POSTGRES_DB":       "messenger",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://messenger:messenger@%s:%s/messenger?sslmode=disable", host, port.Port())
}

func TestPostgresLedger(t *testing.T) {
	ctx := context.Background()
	url := startPostgres(t, ctx)

	require.NoError(t, RunMigrations(ctx, url))
	rent := Rent{LamportsPerByte: 1}
	s, err := NewPostgresStore(ctx, url, rent)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.Airdrop(ctx, addr(1), 1_000))

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateAccount(ctx, addr(1), addr(5), []byte("rec")))
	require.NoError(t, tx.Transfer(ctx, addr(1), addr(2), 10))
	require.NoError(t, tx.Commit(ctx))

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, tx.CreateAccount(ctx, addr(1), addr(5), []byte("rec")), ErrAccountExists)
	require.NoError(t, tx.Rollback(ctx))

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Transfer(ctx, addr(1), addr(2), 5))
	assert.ErrorIs(t, tx.Transfer(ctx, addr(1), addr(3), 10_000), ErrInsufficientFunds)
	require.NoError(t, tx.Rollback(ctx))

	bal, err := Balance(ctx, s, addr(2))
	require.NoError(t, err)
	assert.Equal(t, uint64(10), bal)

	bal, err = Balance(ctx, s, addr(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000-10)-rent.MinimumBalance(3), bal)
}
