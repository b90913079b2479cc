package models

import (
	"fmt"
)

const (
	// NonceSize is the fixed length of a message nonce.
	NonceSize = 24

	// MaxCiphertextSize is the largest payload a single send may carry.
	MaxCiphertextSize = 900
)

var MessageSentTag = eventTag("MessageSent")

// MessageSent is the notification appended to a successful send's event log.
type MessageSent struct {
	Sender     Address         `json:"sender"`
	Recipient  Address         `json:"recipient"`
	Ciphertext []byte          `json:"ciphertext"`
	Nonce      [NonceSize]byte `json:"nonce"`
	Timestamp  int64           `json:"timestamp"`
}

// MarshalBinary encodes the event as tag, sender, recipient, u32 length,
// ciphertext, nonce and timestamp.
func (e *MessageSent) MarshalBinary() ([]byte, error) {
	size := TagSize + 2*AddressSize + 4 + len(e.Ciphertext) + NonceSize + 8
	w := newWriter(MessageSentTag, size)
	w.address(e.Sender)
	w.address(e.Recipient)
	w.u32(uint32(len(e.Ciphertext)))
	w.bytes(e.Ciphertext)
	w.bytes(e.Nonce[:])
	w.i64(e.Timestamp)
	return w.buf, nil
}

func (e *MessageSent) UnmarshalBinary(data []byte) error {
	r, err := newReader(data, MessageSentTag, -1)
	if err != nil {
		return err
	}
	if r.remaining() < 2*AddressSize+4 {
		return fmt.Errorf("%w: truncated header", ErrRecordSize)
	}
	e.Sender = r.address()
	e.Recipient = r.address()
	n := int(r.u32())
	if r.remaining() != n+NonceSize+8 {
		return fmt.Errorf("%w: ciphertext length %d does not match payload", ErrRecordSize, n)
	}
	e.Ciphertext = r.bytes(n)
	copy(e.Nonce[:], r.bytes(NonceSize))
	e.Timestamp = r.i64()
	return nil
}
