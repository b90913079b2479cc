package models

import "time"

// PlatformConfigSize is the stored size of a PlatformConfig record.
const PlatformConfigSize = TagSize + AddressSize + AddressSize + 8 + 8

var PlatformConfigTag = recordTag("PlatformConfig")

// PlatformConfig is the deployment-wide fee configuration.
type PlatformConfig struct {
	Authority   Address `json:"authority"`
	FeeVault    Address `json:"fee_vault"`
	ProtocolFee uint64  `json:"protocol_fee"`
	UpdatedAt   int64   `json:"updated_at"`
}

// UpdatedTime returns UpdatedAt as a time.Time.
func (c *PlatformConfig) UpdatedTime() time.Time {
	return time.Unix(c.UpdatedAt, 0).UTC()
}

// MarshalBinary encodes the record in its fixed storage layout.
func (c *PlatformConfig) MarshalBinary() ([]byte, error) {
	w := newWriter(PlatformConfigTag, PlatformConfigSize)
	w.address(c.Authority)
	w.address(c.FeeVault)
	w.u64(c.ProtocolFee)
	w.i64(c.UpdatedAt)
	return w.buf, nil
}

// UnmarshalBinary decodes a stored record, rejecting foreign tags.
func (c *PlatformConfig) UnmarshalBinary(data []byte) error {
	r, err := newReader(data, PlatformConfigTag, PlatformConfigSize)
	if err != nil {
		return err
	}
	c.Authority = r.address()
	c.FeeVault = r.address()
	c.ProtocolFee = r.u64()
	c.UpdatedAt = r.i64()
	return nil
}
