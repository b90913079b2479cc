// Package program implements the directory-and-relay state transitions:
// the platform fee configuration, per-identity encryption registries and
// fee-gated message sends. Every operation runs as one atomic ledger request
// and takes the caller's verified credential as an explicit argument.
package program

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/messenger/internal/crypto"
	"github.com/eldtechnologies/messenger/internal/metrics"
	"github.com/eldtechnologies/messenger/internal/models"
	"github.com/eldtechnologies/messenger/internal/store"
)

// Operation names, used in receipts, logs and metrics.
const (
	OpInitializeConfig    = "initialize_config"
	OpUpdateConfig        = "update_config"
	OpRegister            = "register"
	OpUpdateEncryptionKey = "update_encryption_key"
	OpSetMinFee           = "set_min_fee"
	OpDeregister          = "deregister"
	OpSendMessage         = "send_message"
)

// Notifier hands committed notifications to off-ledger observers.
type Notifier interface {
	Publish(ctx context.Context, txID uuid.UUID, event models.MessageSent) error
}

// Receipt describes a committed request.
type Receipt struct {
	TxID       uuid.UUID            `json:"tx_id"`
	Operation  string               `json:"operation"`
	Signer     models.Address       `json:"signer"`
	Events     []models.MessageSent `json:"events,omitempty"`
	ExecutedAt time.Time            `json:"executed_at"`

	// Config and Registry hold the record the request wrote, if any.
	Config   *models.PlatformConfig     `json:"-"`
	Registry *models.EncryptionRegistry `json:"-"`
}

// Program executes requests against a ledger.
type Program struct {
	ledger   store.Ledger
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

// Option configures a Program.
type Option func(*Program)

// WithNotifier sets where committed notifications are published.
func WithNotifier(n Notifier) Option {
	return func(p *Program) { p.notifier = n }
}

// WithLogger sets the program logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Program) { p.logger = logger }
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Program) { p.now = now }
}

// New creates a Program over ledger.
func New(ledger store.Ledger, opts ...Option) *Program {
	p := &Program{
		ledger: ledger,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ledger returns the underlying ledger.
func (p *Program) Ledger() store.Ledger {
	return p.ledger
}

// invocation is the state of one request while it executes.
type invocation struct {
	ctx    context.Context
	tx     store.Tx
	signer models.Address
	now    int64
	events []models.MessageSent

	config   *models.PlatformConfig
	registry *models.EncryptionRegistry
}

func (inv *invocation) emit(ev models.MessageSent) {
	inv.events = append(inv.events, ev)
}

// execute runs fn inside one ledger transaction. Any error from fn rolls
// back every mutation fn made.
func (p *Program) execute(ctx context.Context, op string, signer crypto.Credential, fn func(*invocation) error) (*Receipt, error) {
	start := time.Now()
	if !signer.Valid() {
		p.rejected(op, models.Address{}, ErrUnauthorized)
		return nil, ErrUnauthorized
	}

	tx, err := p.ledger.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback(ctx)

	executedAt := p.now()
	inv := &invocation{
		ctx:    ctx,
		tx:     tx,
		signer: signer.Identity(),
		now:    executedAt.Unix(),
	}

	if err := fn(inv); err != nil {
		err = translate(err)
		p.rejected(op, inv.signer, err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.TransactionsTotal.WithLabelValues(op, "error").Inc()
		p.logger.Error().Err(err).Str("op", op).Msg("commit failed")
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	receipt := &Receipt{
		TxID:       crypto.NewTransactionID(),
		Operation:  op,
		Signer:     inv.signer,
		Events:     inv.events,
		ExecutedAt: executedAt.UTC(),
		Config:     inv.config,
		Registry:   inv.registry,
	}

	metrics.TransactionsTotal.WithLabelValues(op, "committed").Inc()
	metrics.TransactionDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	p.logger.Debug().
		Str("tx", receipt.TxID.String()).
		Str("op", op).
		Str("signer", inv.signer.String()).
		Int("events", len(inv.events)).
		Msg("transaction committed")

	p.publish(ctx, receipt)
	return receipt, nil
}

func (p *Program) rejected(op string, signer models.Address, err error) {
	if pe, ok := AsError(err); ok {
		metrics.TransactionsTotal.WithLabelValues(op, pe.Name).Inc()
		p.logger.Info().
			Str("op", op).
			Str("signer", signer.String()).
			Str("code", pe.Name).
			Msg("transaction rejected")
		return
	}
	metrics.TransactionsTotal.WithLabelValues(op, "error").Inc()
	p.logger.Error().Err(err).Str("op", op).Msg("transaction failed")
}

// publish delivers committed notifications. Delivery is off-ledger, so a
// publisher failure never affects the committed request.
func (p *Program) publish(ctx context.Context, receipt *Receipt) {
	if p.notifier == nil {
		return
	}
	for _, ev := range receipt.Events {
		if err := p.notifier.Publish(ctx, receipt.TxID, ev); err != nil {
			metrics.NotificationsPublished.WithLabelValues("error").Inc()
			p.logger.Warn().Err(err).Str("tx", receipt.TxID.String()).Msg("notification publish failed")
			continue
		}
		metrics.NotificationsPublished.WithLabelValues("ok").Inc()
	}
}
