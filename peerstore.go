package gatt

import (
	"net"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/XC-/gattdesc/kvstore"
)

// A PeerStore holds per-peer descriptor state on top of a kvstore.Store.
// All accesses, from every connection and every descriptor, are serialized:
// at most one Get or Put reaches the underlying store at a time, and a
// caller blocks until it is its turn. A slow store therefore delays every
// peer.
type PeerStore struct {
	mu sync.Mutex
	kv kvstore.Store
}

// NewPeerStore wraps kv. The PeerStore takes ownership of kv.
func NewPeerStore(kv kvstore.Store) *PeerStore {
	return &PeerStore{kv: kv}
}

// get returns the raw record stored for addr.
func (ps *PeerStore) get(addr net.HardwareAddr) ([]byte, bool, error) {
	key, err := PeerKey(addr)
	if err != nil {
		return nil, false, err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	v, ok, err := ps.kv.Get(key)
	if err != nil {
		return nil, false, errors.Wrapf(err, "cannot load record for %s", key)
	}
	return v, ok, nil
}

// put overwrites the record stored for addr.
func (ps *PeerStore) put(addr net.HardwareAddr, v []byte) error {
	key, err := PeerKey(addr)
	if err != nil {
		return err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	if err := ps.kv.Put(key, v); err != nil {
		return errors.Wrapf(err, "cannot save record for %s", key)
	}
	log.Debugf("Saved record for %s: [% X]", key, v)
	return nil
}

// ClientConfig returns the CCCD value persisted for addr. ok is false when
// the peer has never written one; the returned value is then 0.
func (ps *PeerStore) ClientConfig(addr net.HardwareAddr) (cfg ClientConfig, ok bool, err error) {
	v, ok, err := ps.get(addr)
	if err != nil || !ok {
		return 0, false, err
	}
	cfg, err = ParseClientConfig(v)
	if err != nil {
		return 0, false, errors.Wrap(err, "corrupt record")
	}
	return cfg, true, nil
}

// SetClientConfig persists cfg as the CCCD value for addr.
func (ps *PeerStore) SetClientConfig(addr net.HardwareAddr, cfg ClientConfig) error {
	return ps.put(addr, cfg.Bytes())
}

// Keys lists the peer keys that have a record, if the underlying store can
// enumerate them.
func (ps *PeerStore) Keys() ([]string, error) {
	l, ok := ps.kv.(kvstore.Lister)
	if !ok {
		return nil, errors.New("store cannot list its keys")
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	return l.Keys()
}

// Close closes the underlying store.
func (ps *PeerStore) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.kv.Close()
}

// sharedStore is a PeerStore that is opened at most once; every caller
// sees the outcome of the first open.
type sharedStore struct {
	once sync.Once
	mu   sync.Mutex
	ps   *PeerStore
	err  error
}

func (s *sharedStore) init(open func() (kvstore.Store, error)) (*PeerStore, error) {
	s.once.Do(func() {
		var ps *PeerStore
		kv, err := open()
		if err != nil {
			err = errors.Wrap(err, "cannot open peer store")
		} else {
			ps = NewPeerStore(kv)
		}
		s.mu.Lock()
		s.ps, s.err = ps, err
		s.mu.Unlock()
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ps, s.err
}

func (s *sharedStore) get() *PeerStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ps
}

var defaultStore sharedStore

// InitDefault initializes the process-wide PeerStore with the store
// returned by open. Only the first call runs open; concurrent callers wait
// for it, and every caller gets its result, including a failure. Servers
// should call this during startup so that an unusable medium stops the
// process before any peer connects.
func InitDefault(open func() (kvstore.Store, error)) (*PeerStore, error) {
	return defaultStore.init(open)
}

// Default returns the process-wide PeerStore, or nil if InitDefault has not
// run or failed.
func Default() *PeerStore {
	return defaultStore.get()
}
