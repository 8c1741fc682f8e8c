package kvstore

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

// File is a Store kept in a single CBOR-encoded file. The whole file is
// rewritten on every Put; the rewrite goes through a temporary file and a
// rename so a crash leaves either the old or the new contents.
type File struct {
	mu     sync.Mutex
	path   string
	ns     string
	data   map[string]map[string][]byte // namespace -> key -> value
	closed bool
}

var cborHandle codec.CborHandle

// OpenFile loads the store at path. A missing file is an empty store.
func OpenFile(path string, namespace string) (*File, error) {
	s := &File{
		path: path,
		ns:   namespace,
		data: map[string]map[string][]byte{},
	}

	log.Debugf("Reading file store from %s", path)
	blob, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrapf(err, "cannot read file store %s", path)
	}

	if len(blob) > 0 {
		dec := codec.NewDecoderBytes(blob, &cborHandle)
		if err := dec.Decode(&s.data); err != nil {
			return nil, errors.Wrapf(err, "cannot decode file store %s", path)
		}
	}

	return s, nil
}

func (s *File) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	v, ok := s.data[s.ns][key]
	return clone(v), ok, nil
}

func (s *File) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	ns := s.data[s.ns]
	if ns == nil {
		ns = map[string][]byte{}
		s.data[s.ns] = ns
	}
	prev, had := ns[key]
	ns[key] = clone(value)

	if err := s.flush(); err != nil {
		// Keep memory consistent with what is on disk.
		if had {
			ns[key] = prev
		} else {
			delete(ns, key)
		}
		return errors.Wrapf(err, "file put %s", key)
	}
	return nil
}

func (s *File) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(s.data[s.ns]))
	for k := range s.data[s.ns] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *File) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// flush must be called with s.mu held.
func (s *File) flush() error {
	var blob []byte
	enc := codec.NewEncoderBytes(&blob, &cborHandle)
	if err := enc.Encode(s.data); err != nil {
		return errors.Wrap(err, "cannot encode file store")
	}

	tmp, err := ioutil.TempFile(filepath.Dir(s.path), ".gattdesc-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
