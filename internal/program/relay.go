package program

import (
	"context"

	"github.com/eldtechnologies/messenger/internal/crypto"
	"github.com/eldtechnologies/messenger/internal/metrics"
	"github.com/eldtechnologies/messenger/internal/models"
)

// SendMessageRequest is a sender's request to relay one encrypted envelope.
//
// FeeVault, RecipientRegistry and RecipientWallet are the slots the caller
// declares the request will touch. They are checked against trusted state
// before any value moves.
type SendMessageRequest struct {
	Recipient  models.Address
	Ciphertext []byte
	Nonce      [models.NonceSize]byte

	FeeVault          models.Address
	RecipientRegistry *models.Address
	RecipientWallet   *models.Address
}

// CheckCiphertext applies the envelope size bounds. It is the first check
// SendMessage makes.
func CheckCiphertext(ciphertext []byte) error {
	switch {
	case len(ciphertext) == 0:
		return ErrEmptyMessage
	case len(ciphertext) > models.MaxCiphertextSize:
		return ErrMessageTooLarge
	}
	return nil
}

// SendMessage validates the envelope, charges the protocol fee and the
// recipient's minimum fee, and emits a MessageSent notification.
func (p *Program) SendMessage(ctx context.Context, signer crypto.Credential, req SendMessageRequest) (*Receipt, error) {
	var protocolFee, recipientFee uint64

	receipt, err := p.execute(ctx, OpSendMessage, signer, func(inv *invocation) error {
		if err := CheckCiphertext(req.Ciphertext); err != nil {
			return err
		}
		if req.Recipient.IsZero() {
			return ErrInvalidIdentity
		}

		cfg, err := loadConfig(inv)
		if err != nil {
			return err
		}
		if req.FeeVault != cfg.FeeVault {
			return ErrInvalidFeeVault
		}

		if cfg.ProtocolFee > 0 {
			if err := inv.tx.Transfer(inv.ctx, inv.signer, cfg.FeeVault, cfg.ProtocolFee); err != nil {
				return err
			}
			protocolFee = cfg.ProtocolFee
		}

		// The lookup always uses the derived address, so omitting the
		// registry slot cannot skip the recipient's fee.
		registryAddr := crypto.RegistryAddress(req.Recipient)
		if req.RecipientRegistry != nil && *req.RecipientRegistry != registryAddr {
			return ErrInvalidRecipientRegistry
		}
		reg, err := loadRegistry(inv, registryAddr)
		if err != nil {
			return err
		}

		if reg != nil && reg.MinFee > 0 {
			if req.RecipientWallet == nil || *req.RecipientWallet != reg.Owner {
				return ErrInvalidRecipientWallet
			}
			if err := inv.tx.Transfer(inv.ctx, inv.signer, reg.Owner, reg.MinFee); err != nil {
				return err
			}
			recipientFee = reg.MinFee
		}

		inv.emit(models.MessageSent{
			Sender:     inv.signer,
			Recipient:  req.Recipient,
			Ciphertext: append([]byte(nil), req.Ciphertext...),
			Nonce:      req.Nonce,
			Timestamp:  inv.now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.MessagesSent.Inc()
	metrics.MessageBytes.Observe(float64(len(req.Ciphertext)))
	metrics.FeesCollected.WithLabelValues("protocol").Add(float64(protocolFee))
	metrics.FeesCollected.WithLabelValues("recipient").Add(float64(recipientFee))
	return receipt, nil
}
