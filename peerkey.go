package gatt

import (
	"fmt"
	"net"
	"strings"

	"github.com/pkg/errors"
)

// peerAddrLen is the length of a BLE device address.
const peerAddrLen = 6

// ErrBadPeerAddr is returned for addresses that are not 6 bytes long.
var ErrBadPeerAddr = errors.New("peer address must be 6 bytes")

// PeerKey returns the storage key of a peer: its address as uppercase,
// colon-separated hex ("AA:BB:CC:DD:EE:FF"), bytes in the order the
// stack reports them.
func PeerKey(addr net.HardwareAddr) (string, error) {
	if len(addr) != peerAddrLen {
		return "", errors.Wrapf(ErrBadPeerAddr, "got %d bytes", len(addr))
	}
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		addr[0], addr[1], addr[2], addr[3], addr[4], addr[5]), nil
}

// ParsePeerKey is the inverse of PeerKey. It also accepts lowercase hex and
// '-' separators, as printed by other tools.
func ParsePeerKey(s string) (net.HardwareAddr, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid peer address %q", s)
	}
	if len(hw) != peerAddrLen {
		return nil, errors.Wrapf(ErrBadPeerAddr, "invalid peer address %q", s)
	}
	return hw, nil
}
