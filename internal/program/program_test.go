package program

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/messenger/internal/crypto"
	"github.com/eldtechnologies/messenger/internal/models"
	"github.com/eldtechnologies/messenger/internal/store"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.MessageSent
}

func (n *recordingNotifier) Publish(ctx context.Context, txID uuid.UUID, ev models.MessageSent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

// testClock advances one second every time it is read.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	ctx      context.Context
	ledger   *store.MemoryStore
	program  *Program
	notifier *recordingNotifier
}

func newFixture(t *testing.T, rent store.Rent) *fixture {
	t.Helper()
	ledger := store.NewMemoryStore(rent)
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	notifier := &recordingNotifier{}
	return &fixture{
		ctx:      context.Background(),
		ledger:   ledger,
		program:  New(ledger, WithClock(clock.Now), WithNotifier(notifier)),
		notifier: notifier,
	}
}

func newIdentity(t *testing.T) crypto.Credential {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return crypto.CredentialFromKey(priv)
}

func encryptionKey(b byte) models.Address {
	var k models.Address
	for i := range k {
		k[i] = b
	}
	return k
}

func (f *fixture) fund(t *testing.T, who crypto.Credential, lamports uint64) {
	t.Helper()
	require.NoError(t, f.ledger.Airdrop(f.ctx, who.Identity(), lamports))
}

func (f *fixture) balance(t *testing.T, addr models.Address) uint64 {
	t.Helper()
	bal, err := store.Balance(f.ctx, f.ledger, addr)
	require.NoError(t, err)
	return bal
}
