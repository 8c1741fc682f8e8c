package kvstore

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

const (
	BackendBolt = "bolt"
	BackendFile = "file"
	BackendMem  = "mem"
)

const (
	DefaultNamespace = "ble"
	DefaultTimeout   = time.Second

	defaultBoltFilename = ".gattdesc.db"
	defaultFileFilename = ".gattdesc.cbor"
)

// Config selects and parameterizes a store backend.
type Config struct {
	Backend   string
	Path      string
	Namespace string

	// Timeout bounds how long the bolt backend waits for its file lock.
	Timeout time.Duration
}

// NewConfig returns the default configuration: a bolt database in the
// user's home directory.
func NewConfig() Config {
	return Config{
		Backend:   BackendBolt,
		Namespace: DefaultNamespace,
		Timeout:   DefaultTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.Backend == "" {
		c.Backend = BackendBolt
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// DefaultPath returns the file a backend uses when no path is configured.
func DefaultPath(backend string) (string, error) {
	dir, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "cannot locate home directory")
	}

	switch backend {
	case BackendFile:
		return filepath.Join(dir, defaultFileFilename), nil
	default:
		return filepath.Join(dir, defaultBoltFilename), nil
	}
}

func einvalConnString(f string, args ...interface{}) error {
	return errors.Errorf("invalid store connstring; "+f, args...)
}

// ParseConnString parses a comma-separated list of key=value pairs, e.g.
// "backend=bolt,path=/var/lib/gatt.db,namespace=ble,timeout=2s".
// Omitted keys keep their defaults; an empty string yields NewConfig().
func ParseConnString(cs string) (Config, error) {
	cfg := NewConfig()

	if strings.TrimSpace(cs) == "" {
		return cfg, nil
	}

	for _, p := range strings.Split(cs, ",") {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			return cfg, einvalConnString("expected comma-separated "+
				"key=value pairs; no '=' in: %s", p)
		}

		k := strings.TrimSpace(kv[0])
		v := strings.TrimSpace(kv[1])

		switch k {
		case "backend":
			switch v {
			case BackendBolt, BackendFile, BackendMem:
				cfg.Backend = v
			default:
				return cfg, einvalConnString("unknown backend: %s", v)
			}
		case "path":
			p, err := homedir.Expand(v)
			if err != nil {
				return cfg, einvalConnString("invalid path %s: %s", v, err)
			}
			cfg.Path = p
		case "namespace":
			if v == "" {
				return cfg, einvalConnString("empty namespace")
			}
			cfg.Namespace = v
		case "timeout":
			d, err := cast.ToDurationE(v)
			if err != nil || d <= 0 {
				return cfg, einvalConnString("invalid timeout: %s", v)
			}
			cfg.Timeout = d
		default:
			return cfg, einvalConnString("unrecognized key: %s", k)
		}
	}

	return cfg, nil
}
