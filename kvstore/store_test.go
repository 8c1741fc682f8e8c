package kvstore

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"
)

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "kvstore")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// openers returns a fresh instance of every backend, plus a way to reopen
// the persistent ones against the same medium.
func openers(t *testing.T) map[string]func() Store {
	dir := tempDir(t)
	mem := NewMem()
	return map[string]func() Store{
		"mem": func() Store { return mem },
		"bolt": func() Store {
			s, err := OpenBolt(filepath.Join(dir, "b.db"), "ble", time.Second)
			if err != nil {
				t.Fatal(err)
			}
			return s
		},
		"file": func() Store {
			s, err := OpenFile(filepath.Join(dir, "f.cbor"), "ble")
			if err != nil {
				t.Fatal(err)
			}
			return s
		},
	}
}

func TestStoreGetPut(t *testing.T) {
	for name, open := range openers(t) {
		s := open()

		if v, ok, err := s.Get("AA:BB:CC:DD:EE:FF"); err != nil || ok || v != nil {
			t.Errorf("%s: Get(missing): got (%v, %v, %v) want (nil, false, nil)", name, v, ok, err)
		}

		if err := s.Put("AA:BB:CC:DD:EE:FF", []byte{1, 0}); err != nil {
			t.Fatalf("%s: Put: %v", name, err)
		}
		if err := s.Put("AA:BB:CC:DD:EE:FF", []byte{2, 0}); err != nil {
			t.Fatalf("%s: Put: %v", name, err)
		}
		v, ok, err := s.Get("AA:BB:CC:DD:EE:FF")
		if err != nil || !ok || !bytes.Equal(v, []byte{2, 0}) {
			t.Errorf("%s: Get: got (%x, %v, %v) want (0200, true, nil)", name, v, ok, err)
		}
		s.Close()
	}
}

func TestStoreCopiesValues(t *testing.T) {
	for name, open := range openers(t) {
		s := open()

		in := []byte{1, 0}
		if err := s.Put("k", in); err != nil {
			t.Fatalf("%s: Put: %v", name, err)
		}
		in[0] = 0xff

		out, _, _ := s.Get("k")
		if !bytes.Equal(out, []byte{1, 0}) {
			t.Errorf("%s: stored value aliased caller memory: got %x", name, out)
		}
		out[1] = 0xff
		if again, _, _ := s.Get("k"); !bytes.Equal(again, []byte{1, 0}) {
			t.Errorf("%s: returned value aliased store memory: got %x", name, again)
		}
		s.Close()
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	for name, open := range openers(t) {
		if name == "mem" {
			continue
		}
		s := open()
		if err := s.Put("DE:AD:BE:EF:00:01", []byte{1, 0}); err != nil {
			t.Fatalf("%s: Put: %v", name, err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("%s: Close: %v", name, err)
		}

		s = open()
		v, ok, err := s.Get("DE:AD:BE:EF:00:01")
		if err != nil || !ok || !bytes.Equal(v, []byte{1, 0}) {
			t.Errorf("%s: after reopen: got (%x, %v, %v) want (0100, true, nil)", name, v, ok, err)
		}
		s.Close()
	}
}

func TestStoreKeys(t *testing.T) {
	for name, open := range openers(t) {
		s := open()
		for _, k := range []string{"b", "a", "c"} {
			if err := s.Put(k, []byte{0, 0}); err != nil {
				t.Fatalf("%s: Put: %v", name, err)
			}
		}
		got, err := s.(Lister).Keys()
		if err != nil {
			t.Fatalf("%s: Keys: %v", name, err)
		}
		if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
			t.Errorf("%s: Keys: got %v want %v", name, got, want)
		}
		s.Close()
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	path := filepath.Join(tempDir(t), "ns.db")

	a, err := OpenBolt(path, "a", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Put("k", []byte{1}); err != nil {
		t.Fatal(err)
	}
	a.Close()

	b, err := OpenBolt(path, "b", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if _, ok, _ := b.Get("k"); ok {
		t.Errorf("namespace b sees a key written in namespace a")
	}
}

func TestClosedStore(t *testing.T) {
	s := NewMem()
	s.Close()
	if err := s.Put("k", nil); err != ErrClosed {
		t.Errorf("Put after Close: got %v want %v", err, ErrClosed)
	}
	if _, _, err := s.Get("k"); err != ErrClosed {
		t.Errorf("Get after Close: got %v want %v", err, ErrClosed)
	}
}

func TestOpen(t *testing.T) {
	dir := tempDir(t)
	cases := []struct {
		cfg     Config
		wantErr bool
	}{
		{cfg: Config{Backend: BackendMem}},
		{cfg: Config{Backend: BackendBolt, Path: filepath.Join(dir, "o.db")}},
		{cfg: Config{Backend: BackendFile, Path: filepath.Join(dir, "o.cbor")}},
		{cfg: Config{Backend: "nvs"}, wantErr: true},
	}

	for _, tt := range cases {
		s, err := Open(tt.cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("Open(%+v): got err %v, wantErr %v", tt.cfg, err, tt.wantErr)
			continue
		}
		if s != nil {
			s.Close()
		}
	}
}

func TestBoltConcurrent(t *testing.T) {
	s, err := OpenBolt(filepath.Join(tempDir(t), "c.db"), "ble", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("AA:00:00:00:00:%02X", i)
			for j := 0; j < 10; j++ {
				if err := s.Put(key, []byte{byte(j), 0}); err != nil {
					t.Errorf("Put(%s): %v", key, err)
					return
				}
				if v, ok, err := s.Get(key); err != nil || !ok || v[0] != byte(j) {
					t.Errorf("Get(%s): got (%x, %v, %v) want %02x00", key, v, ok, err, j)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	keys, err := s.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 8 {
		t.Errorf("Keys: got %d want 8", len(keys))
	}
}
