package models

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
)

// TagSize is the length of the type tag that prefixes every stored record
// and every encoded event.
const TagSize = 8

var (
	ErrRecordSize = errors.New("record has wrong size")
	ErrRecordTag  = errors.New("record has wrong type tag")
)

// Tag is a record or event discriminator.
type Tag [TagSize]byte

func recordTag(name string) Tag {
	return namespacedTag("account", name)
}

func eventTag(name string) Tag {
	return namespacedTag("event", name)
}

func namespacedTag(namespace, name string) Tag {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var t Tag
	copy(t[:], sum[:TagSize])
	return t
}

// writer appends fixed-width little-endian fields to a buffer.
type writer struct {
	buf []byte
}

func newWriter(tag Tag, size int) *writer {
	w := &writer{buf: make([]byte, 0, size)}
	w.buf = append(w.buf, tag[:]...)
	return w
}

func (w *writer) address(a Address) {
	w.buf = append(w.buf, a[:]...)
}

func (w *writer) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *writer) i64(v int64) {
	w.u64(uint64(v))
}

func (w *writer) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *writer) bytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// reader consumes fields written by writer. Callers check length up front.
type reader struct {
	buf []byte
	off int
}

func newReader(data []byte, tag Tag, size int) (*reader, error) {
	if size >= 0 && len(data) != size {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrRecordSize, size, len(data))
	}
	if len(data) < TagSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrRecordSize, len(data))
	}
	if Tag(data[:TagSize]) != tag {
		return nil, ErrRecordTag
	}
	return &reader{buf: data, off: TagSize}, nil
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) address() Address {
	var a Address
	copy(a[:], r.buf[r.off:r.off+AddressSize])
	r.off += AddressSize
	return a
}

func (r *reader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *reader) i64() int64 {
	return int64(r.u64())
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) bytes(n int) []byte {
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out
}
