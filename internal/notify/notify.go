// Package notify delivers committed MessageSent notifications to
// off-ledger observers.
package notify

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/messenger/internal/crypto"
	"github.com/eldtechnologies/messenger/internal/models"
)

// Notification is the published form of a MessageSent event.
type Notification struct {
	ID         string `json:"id"`
	TxID       string `json:"tx_id"`
	Sender     string `json:"sender"`
	Recipient  string `json:"recipient"`
	Ciphertext string `json:"ciphertext"` // base64
	Nonce      string `json:"nonce"`      // base64, 24 bytes
	Timestamp  int64  `json:"timestamp"`
}

// NewNotification builds the published form of ev.
func NewNotification(txID uuid.UUID, ev models.MessageSent) Notification {
	return Notification{
		ID:         crypto.NewEventID(),
		TxID:       txID.String(),
		Sender:     ev.Sender.String(),
		Recipient:  ev.Recipient.String(),
		Ciphertext: base64.StdEncoding.EncodeToString(ev.Ciphertext),
		Nonce:      base64.StdEncoding.EncodeToString(ev.Nonce[:]),
		Timestamp:  ev.Timestamp,
	}
}

// LogPublisher writes notifications to the log. Used when no broker is
// configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, txID uuid.UUID, ev models.MessageSent) error {
	p.logger.Info().
		Str("tx", txID.String()).
		Str("sender", ev.Sender.String()).
		Str("recipient", ev.Recipient.String()).
		Int("bytes", len(ev.Ciphertext)).
		Int64("timestamp", ev.Timestamp).
		Msg("message sent")
	return nil
}

// Publisher receives committed MessageSent events.
type Publisher interface {
	Publish(ctx context.Context, txID uuid.UUID, ev models.MessageSent) error
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, txID uuid.UUID, ev models.MessageSent) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, txID, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
