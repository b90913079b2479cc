package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/messenger/internal/models"
)

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(ctx context.Context, txID uuid.UUID, ev models.MessageSent) error {
	p.calls++
	return errors.New("broker down")
}

func TestNewNotification(t *testing.T) {
	var sender, recipient models.Address
	sender[0], recipient[0] = 1, 2
	ev := models.MessageSent{Sender: sender, Recipient: recipient, Ciphertext: []byte("ct"), Timestamp: 5}
	ev.Nonce[0] = 7

	txID := uuid.New()
	n := NewNotification(txID, ev)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, txID.String(), n.TxID)
	assert.Equal(t, sender.String(), n.Sender)
	assert.Equal(t, recipient.String(), n.Recipient)
	assert.Equal(t, int64(5), n.Timestamp)

	nonce, err := base64.StdEncoding.DecodeString(n.Nonce)
	require.NoError(t, err)
	assert.Len(t, nonce, models.NonceSize)
	assert.Equal(t, byte(7), nonce[0])
}

func TestFanoutCallsEveryPublisher(t *testing.T) {
	a, b := &failingPublisher{}, &failingPublisher{}
	err := Fanout{a, b}.Publish(context.Background(), uuid.New(), models.MessageSent{})
	assert.Error(t, err)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestInboxChannel(t *testing.T) {
	var recipient models.Address
	assert.Equal(t, "messenger:inbox:"+recipient.String(), InboxChannel(recipient))
}
