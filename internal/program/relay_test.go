package program

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/messenger/internal/crypto"
	"github.com/eldtechnologies/messenger/internal/models"
	"github.com/eldtechnologies/messenger/internal/store"
)

type relayFixture struct {
	*fixture
	authority crypto.Credential
	vault     models.Address
	sender    crypto.Credential
	recipient crypto.Credential
}

func newRelayFixture(t *testing.T, protocolFee uint64) *relayFixture {
	t.Helper()
	f := newFixture(t, store.Rent{})
	rf := &relayFixture{
		fixture:   f,
		authority: newIdentity(t),
		vault:     newIdentity(t).Identity(),
		sender:    newIdentity(t),
		recipient: newIdentity(t),
	}
	_, err := f.program.InitializeConfig(f.ctx, rf.authority, rf.vault, protocolFee)
	require.NoError(t, err)
	return rf
}

func (rf *relayFixture) request(ciphertext []byte) SendMessageRequest {
	wallet := rf.recipient.Identity()
	req := SendMessageRequest{
		Recipient:       rf.recipient.Identity(),
		Ciphertext:      ciphertext,
		FeeVault:        rf.vault,
		RecipientWallet: &wallet,
	}
	for i := range req.Nonce {
		req.Nonce[i] = byte(i)
	}
	return req
}

func TestSendMessageSizeBounds(t *testing.T) {
	rf := newRelayFixture(t, 0)

	cases := []struct {
		size int
		want error
	}{
		{0, ErrEmptyMessage},
		{1, nil},
		{899, nil},
		{900, nil},
		{901, ErrMessageTooLarge},
		{4096, ErrMessageTooLarge},
	}
	for _, tc := range cases {
		_, err := rf.program.SendMessage(rf.ctx, rf.sender, rf.request(make([]byte, tc.size)))
		if tc.want == nil {
			assert.NoError(t, err, "size %d", tc.size)
		} else {
			assert.ErrorIs(t, err, tc.want, "size %d", tc.size)
		}
	}
	assert.Len(t, rf.notifier.events, 3)
}

func TestSendMessageChargesBothFees(t *testing.T) {
	rf := newRelayFixture(t, 100)
	_, err := rf.program.Register(rf.ctx, rf.recipient, encryptionKey(1))
	require.NoError(t, err)
	_, err = rf.program.SetMinFee(rf.ctx, rf.recipient, rf.recipient.Identity(), 50)
	require.NoError(t, err)
	rf.fund(t, rf.sender, 200)

	ciphertext := []byte("sealed envelope")
	req := rf.request(ciphertext)
	receipt, err := rf.program.SendMessage(rf.ctx, rf.sender, req)
	require.NoError(t, err)

	assert.Equal(t, uint64(50), rf.balance(t, rf.sender.Identity()))
	assert.Equal(t, uint64(100), rf.balance(t, rf.vault))
	assert.Equal(t, uint64(50), rf.balance(t, rf.recipient.Identity()))

	require.Len(t, receipt.Events, 1)
	ev := receipt.Events[0]
	assert.Equal(t, rf.sender.Identity(), ev.Sender)
	assert.Equal(t, rf.recipient.Identity(), ev.Recipient)
	assert.True(t, bytes.Equal(ciphertext, ev.Ciphertext))
	assert.Equal(t, req.Nonce, ev.Nonce)
	assert.NotZero(t, ev.Timestamp)

	require.Len(t, rf.notifier.events, 1)
	assert.Equal(t, ev, rf.notifier.events[0])
}

func TestSendMessageWithoutRecipientRegistry(t *testing.T) {
	rf := newRelayFixture(t, 100)
	rf.fund(t, rf.sender, 200)

	req := rf.request([]byte("hi"))
	req.RecipientWallet = nil
	_, err := rf.program.SendMessage(rf.ctx, rf.sender, req)
	require.NoError(t, err)

	assert.Equal(t, uint64(100), rf.balance(t, rf.sender.Identity()))
	assert.Equal(t, uint64(100), rf.balance(t, rf.vault))
	assert.Zero(t, rf.balance(t, rf.recipient.Identity()))
}

func TestSendMessageZeroMinFeeSkipsSecondCharge(t *testing.T) {
	rf := newRelayFixture(t, 10)
	_, err := rf.program.Register(rf.ctx, rf.recipient, encryptionKey(1))
	require.NoError(t, err)
	rf.fund(t, rf.sender, 10)

	req := rf.request([]byte("hi"))
	req.RecipientWallet = nil
	_, err = rf.program.SendMessage(rf.ctx, rf.sender, req)
	require.NoError(t, err)

	assert.Zero(t, rf.balance(t, rf.sender.Identity()))
	assert.Zero(t, rf.balance(t, rf.recipient.Identity()))
}

func TestSendMessageIsAtomic(t *testing.T) {
	rf := newRelayFixture(t, 100)
	_, err := rf.program.Register(rf.ctx, rf.recipient, encryptionKey(1))
	require.NoError(t, err)
	_, err = rf.program.SetMinFee(rf.ctx, rf.recipient, rf.recipient.Identity(), 50)
	require.NoError(t, err)
	rf.fund(t, rf.sender, 120)

	_, err = rf.program.SendMessage(rf.ctx, rf.sender, rf.request([]byte("hi")))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	assert.Equal(t, uint64(120), rf.balance(t, rf.sender.Identity()))
	assert.Zero(t, rf.balance(t, rf.vault))
	assert.Zero(t, rf.balance(t, rf.recipient.Identity()))
	assert.Empty(t, rf.notifier.events)
}

func TestSendMessageProtocolFeeUnaffordable(t *testing.T) {
	rf := newRelayFixture(t, 100)
	rf.fund(t, rf.sender, 99)

	_, err := rf.program.SendMessage(rf.ctx, rf.sender, rf.request([]byte("hi")))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, uint64(99), rf.balance(t, rf.sender.Identity()))
}

func TestSendMessageRequiresConfig(t *testing.T) {
	f := newFixture(t, store.Rent{})
	sender := newIdentity(t)
	recipient := newIdentity(t).Identity()

	_, err := f.program.SendMessage(f.ctx, sender, SendMessageRequest{
		Recipient:  recipient,
		Ciphertext: []byte("hi"),
		FeeVault:   newIdentity(t).Identity(),
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSendMessageRejectsWrongFeeVault(t *testing.T) {
	rf := newRelayFixture(t, 100)
	rf.fund(t, rf.sender, 200)
	attacker := newIdentity(t).Identity()

	req := rf.request([]byte("hi"))
	req.FeeVault = attacker
	_, err := rf.program.SendMessage(rf.ctx, rf.sender, req)
	assert.ErrorIs(t, err, ErrInvalidFeeVault)
	assert.Equal(t, uint64(200), rf.balance(t, rf.sender.Identity()))
	assert.Zero(t, rf.balance(t, attacker))
}

func TestSendMessageRejectsMisdirectedRecipientFee(t *testing.T) {
	rf := newRelayFixture(t, 0)
	_, err := rf.program.Register(rf.ctx, rf.recipient, encryptionKey(1))
	require.NoError(t, err)
	_, err = rf.program.SetMinFee(rf.ctx, rf.recipient, rf.recipient.Identity(), 50)
	require.NoError(t, err)
	rf.fund(t, rf.sender, 200)

	attacker := newIdentity(t).Identity()
	req := rf.request([]byte("hi"))
	req.RecipientWallet = &attacker
	_, err = rf.program.SendMessage(rf.ctx, rf.sender, req)
	assert.ErrorIs(t, err, ErrInvalidRecipientWallet)

	req.RecipientWallet = nil
	_, err = rf.program.SendMessage(rf.ctx, rf.sender, req)
	assert.ErrorIs(t, err, ErrInvalidRecipientWallet)

	assert.Equal(t, uint64(200), rf.balance(t, rf.sender.Identity()))
	assert.Zero(t, rf.balance(t, attacker))
}

func TestSendMessageRejectsForeignRegistrySlot(t *testing.T) {
	rf := newRelayFixture(t, 0)
	other := crypto.RegistryAddress(newIdentity(t).Identity())

	req := rf.request([]byte("hi"))
	req.RecipientRegistry = &other
	_, err := rf.program.SendMessage(rf.ctx, rf.sender, req)
	assert.ErrorIs(t, err, ErrInvalidRecipientRegistry)

	derived := crypto.RegistryAddress(rf.recipient.Identity())
	req.RecipientRegistry = &derived
	_, err = rf.program.SendMessage(rf.ctx, rf.sender, req)
	assert.NoError(t, err)
}

func TestSendMessageSizeCheckedBeforeConfig(t *testing.T) {
	f := newFixture(t, store.Rent{})

	_, err := f.program.SendMessage(f.ctx, newIdentity(t), SendMessageRequest{
		Recipient: newIdentity(t).Identity(),
	})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}
