// Package kvstore provides the namespaced, byte-oriented key-value stores
// that back persisted GATT descriptor values.
package kvstore

import (
	"github.com/pkg/errors"
)

// A Store is a namespaced non-volatile key-value store.
// Each individual Put is expected to be crash-safe.
type Store interface {
	// Get returns the value stored under key. A missing key is
	// reported as ok == false with a nil error; err is reserved for
	// medium-level failures.
	Get(key string) (value []byte, ok bool, err error)

	// Put stores value under key, replacing any previous value.
	Put(key string, value []byte) error

	// Close releases the underlying medium.
	Close() error
}

// A Lister is a Store that can enumerate its keys.
type Lister interface {
	Keys() ([]string, error)
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Open opens the backend selected by cfg.
func Open(cfg Config) (Store, error) {
	cfg = cfg.withDefaults()
	if cfg.Path == "" && cfg.Backend != BackendMem {
		p, err := DefaultPath(cfg.Backend)
		if err != nil {
			return nil, err
		}
		cfg.Path = p
	}

	switch cfg.Backend {
	case BackendMem:
		return NewMem(), nil
	case BackendBolt:
		s, err := OpenBolt(cfg.Path, cfg.Namespace, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendFile:
		s, err := OpenFile(cfg.Path, cfg.Namespace)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
