package gatt

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// ClientConfig is the value of a Client Characteristic Configuration
// Descriptor. It is transmitted as two little-endian bytes.
type ClientConfig uint16

const (
	ClientConfigNotify   ClientConfig = 0x0001
	ClientConfigIndicate ClientConfig = 0x0002
)

// clientConfigLen is the only valid length of a CCCD value.
const clientConfigLen = 2

// ErrBadClientConfigLen is returned when a CCCD value is not 2 bytes long.
var ErrBadClientConfigLen = errors.New("client characteristic configuration must be 2 bytes")

// ParseClientConfig decodes a CCCD value. Reserved bits are kept.
func ParseClientConfig(b []byte) (ClientConfig, error) {
	if len(b) != clientConfigLen {
		return 0, errors.Wrapf(ErrBadClientConfigLen, "got %d bytes", len(b))
	}
	return ClientConfig(binary.LittleEndian.Uint16(b)), nil
}

// Bytes returns the on-air encoding of c.
func (c ClientConfig) Bytes() []byte {
	b := make([]byte, clientConfigLen)
	binary.LittleEndian.PutUint16(b, uint16(c))
	return b
}

// Notify reports whether the peer asked for notifications.
func (c ClientConfig) Notify() bool { return c&ClientConfigNotify != 0 }

// Indicate reports whether the peer asked for indications.
func (c ClientConfig) Indicate() bool { return c&ClientConfigIndicate != 0 }

func (c ClientConfig) String() string {
	return fmt.Sprintf("notify=%t indicate=%t", c.Notify(), c.Indicate())
}
