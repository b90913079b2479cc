package models

// EncryptionRegistrySize is the stored size of an EncryptionRegistry record.
const EncryptionRegistrySize = TagSize + AddressSize + AddressSize + 8 + 8 + 8

var EncryptionRegistryTag = recordTag("EncryptionRegistry")

// EncryptionRegistry advertises an identity's current encryption key and the
// minimum fee it charges per inbound message. Zero MinFee means no gate.
type EncryptionRegistry struct {
	Owner         Address `json:"owner"`
	EncryptionKey Address `json:"encryption_key"`
	MinFee        uint64  `json:"min_fee"`
	CreatedAt     int64   `json:"created_at"`
	UpdatedAt     int64   `json:"updated_at"`
}

func (r *EncryptionRegistry) MarshalBinary() ([]byte, error) {
	w := newWriter(EncryptionRegistryTag, EncryptionRegistrySize)
	w.address(r.Owner)
	w.address(r.EncryptionKey)
	w.u64(r.MinFee)
	w.i64(r.CreatedAt)
	w.i64(r.UpdatedAt)
	return w.buf, nil
}

func (r *EncryptionRegistry) UnmarshalBinary(data []byte) error {
	rd, err := newReader(data, EncryptionRegistryTag, EncryptionRegistrySize)
	if err != nil {
		return err
	}
	r.Owner = rd.address()
	r.EncryptionKey = rd.address()
	r.MinFee = rd.u64()
	r.CreatedAt = rd.i64()
	r.UpdatedAt = rd.i64()
	return nil
}
