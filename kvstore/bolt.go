package kvstore

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

// Bolt is a Store backed by a bbolt database. The namespace maps to a
// top-level bucket, so several namespaces can share one file.
type Bolt struct {
	db     *bolt.DB
	bucket []byte
}

// OpenBolt opens (creating if needed) the database at path and ensures the
// namespace bucket exists. timeout bounds the wait for the file lock held
// by another process.
func OpenBolt(path string, namespace string, timeout time.Duration) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open bolt store %s", path)
	}

	s := &Bolt{db: db, bucket: []byte(namespace)}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "cannot create namespace %q in %s",
			namespace, path)
	}

	log.Debugf("Opened bolt store %s (namespace=%s)", path, namespace)
	return s, nil
}

func (s *Bolt) Get(key string) ([]byte, bool, error) {
	var v []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return errors.Errorf("namespace %q missing", s.bucket)
		}
		// Values returned by bbolt are only valid inside the transaction.
		v = clone(b.Get([]byte(key)))
		return nil
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "bolt get %s", key)
	}
	return v, v != nil, nil
}

func (s *Bolt) Put(key string, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return errors.Errorf("namespace %q missing", s.bucket)
		}
		return b.Put([]byte(key), clone(value))
	})
	if err != nil {
		return errors.Wrapf(err, "bolt put %s", key)
	}
	return nil
}

func (s *Bolt) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return errors.Errorf("namespace %q missing", s.bucket)
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "bolt list keys")
	}
	return keys, nil
}

func (s *Bolt) Close() error {
	return s.db.Close()
}
