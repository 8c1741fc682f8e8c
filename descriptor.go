package gatt

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// valuePolicy selects where a descriptor's value comes from.
type valuePolicy int

const (
	// policyStatic serves the descriptor's fixed value.
	policyStatic valuePolicy = iota

	// policyPersistedByPeer serves a 2-byte value stored in a PeerStore
	// under the requesting peer's address.
	policyPersistedByPeer
)

// A Descriptor is a characteristic descriptor. Descriptors are built
// once, before the server starts, and are not modified afterwards; the
// only state that changes at runtime lives in the PeerStore.
type Descriptor struct {
	name   string // diagnostic only
	uuid   UUID
	perms  AttributePermissions
	value  []byte
	policy valuePolicy
	store  *PeerStore

	char *Characteristic
}

// NewDescriptor returns a descriptor with a static value. See SetValue.
func NewDescriptor(name string, u UUID, perms AttributePermissions) *Descriptor {
	return &Descriptor{name: name, uuid: u, perms: perms}
}

// UserDescription returns a read-only Characteristic User Description
// descriptor (0x2901) whose value is text.
func UserDescription(text string) *Descriptor {
	return NewDescriptor("User Description", gattAttrUserDescriptionUUID, PermRead()).
		SetValue([]byte(text))
}

// CCCD returns a Client Characteristic Configuration Descriptor (0x2902)
// whose value is kept per peer address in ps, so that a peer's
// subscription survives reconnects. A nil ps is bound to the server's
// store when the server starts.
func CCCD(ps *PeerStore) *Descriptor {
	d := NewDescriptor("Client Characteristic Configuration",
		gattAttrClientCharacteristicConfigUUID, PermReadWrite())
	d.policy = policyPersistedByPeer
	d.store = ps
	return d
}

// SetValue sets the static value of d and returns d. It has no effect on
// the value served by a CCCD.
func (d *Descriptor) SetValue(b []byte) *Descriptor {
	d.value = b
	return d
}

func (d *Descriptor) Name() string                      { return d.name }
func (d *Descriptor) UUID() UUID                        { return d.uuid }
func (d *Descriptor) Permissions() AttributePermissions { return d.perms }
func (d *Descriptor) Value() []byte                     { return d.value }

// Persisted reports whether d's value is kept per peer.
func (d *Descriptor) Persisted() bool { return d.policy == policyPersistedByPeer }

// ServeRead returns the value of d as seen by the peer of req, and an ATT
// status. A peer that never wrote a CCCD reads [0x00, 0x00]; reading
// never creates a record.
func (d *Descriptor) ServeRead(req *ReadRequest) ([]byte, byte) {
	if !d.perms.CanRead() {
		return nil, StatusReadNotPermitted
	}
	if d.policy == policyStatic {
		return d.value, StatusSuccess
	}

	cfg, err := d.clientConfig(req.Conn)
	if err != nil {
		log.Warnf("%s: read failed: %s", d.name, err)
		return nil, StatusUnexpectedError
	}
	return cfg.Bytes(), StatusSuccess
}

// ServeWrite stores data as the value of d for the peer of r, replacing
// any previous value. Only CCCDs are writable; data must be exactly two
// bytes. If the store fails the write is reported as failed and the
// peer's previous value, if any, is kept.
func (d *Descriptor) ServeWrite(r Request, data []byte) byte {
	if !d.perms.CanWrite() || d.policy != policyPersistedByPeer {
		return StatusWriteNotPermitted
	}

	cfg, err := ParseClientConfig(data)
	if err != nil {
		log.Debugf("%s: rejected write [% X]: %s", d.name, data, err)
		return StatusInvalidAttrValueLen
	}

	if err := d.setClientConfig(r.Conn, cfg); err != nil {
		log.Warnf("%s: write failed: %s", d.name, err)
		return StatusUnexpectedError
	}
	return StatusSuccess
}

func (d *Descriptor) peerStore() (*PeerStore, error) {
	if d.store == nil {
		return nil, errors.New("no peer store bound")
	}
	return d.store, nil
}

func (d *Descriptor) clientConfig(c Conn) (ClientConfig, error) {
	ps, err := d.peerStore()
	if err != nil {
		return 0, err
	}
	if c == nil {
		return 0, errors.New("request has no connection")
	}
	cfg, _, err := ps.ClientConfig(c.RemoteAddr().HardwareAddr)
	return cfg, err
}

func (d *Descriptor) setClientConfig(c Conn, cfg ClientConfig) error {
	ps, err := d.peerStore()
	if err != nil {
		return err
	}
	if c == nil {
		return errors.New("request has no connection")
	}
	return ps.SetClientConfig(c.RemoteAddr().HardwareAddr, cfg)
}

func (d *Descriptor) handle(n uint16) handle {
	return handle{
		typ:   typDescriptor,
		n:     n,
		uuid:  d.uuid,
		attr:  d,
		value: d.value,
	}
}
