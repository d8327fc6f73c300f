package confloader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gourdian25/ecwt"
)

// File is the on-disk and environment configuration of the ecwt command.
type File struct {
	Namespace string   `koanf:"namespace"`
	Key       string   `koanf:"key"`
	KeyFile   string   `koanf:"key_file"`
	Cipher    string   `koanf:"cipher"`
	Identity  string   `koanf:"identity"`
	Schema    []string `koanf:"schema"`

	Redis RedisConfig `koanf:"redis"`
	Cache CacheConfig `koanf:"cache"`
	Log   LogConfig   `koanf:"log"`
}

// RedisConfig configures the revocation store. Revocation is disabled when
// Address is empty.
type RedisConfig struct {
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// CacheConfig configures the decode cache.
type CacheConfig struct {
	Enabled    bool  `koanf:"enabled"`
	MaxEntries int64 `koanf:"max_entries"`
}

// LogConfig configures the command logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Defaults returns the default configuration as a nested map.
func Defaults() map[string]any {
	return map[string]any{
		"cipher":   string(ecwt.XChaCha20Poly1305Algorithm),
		"identity": string(ecwt.ULIDIdentity),
		"redis": map[string]any{
			"db": 0,
		},
		"cache": map[string]any{
			"enabled":     false,
			"max_entries": ecwt.DefaultCacheEntries,
		},
		"log": map[string]any{
			"level":  "info",
			"format": "text",
		},
	}
}

// ResolveKey returns the encryption key from Key or, when it is empty,
// from KeyFile.
func (f *File) ResolveKey() ([]byte, error) {
	switch {
	case f.Key != "" && f.KeyFile != "":
		return nil, errors.New("key and key_file are mutually exclusive")
	case f.Key != "":
		key, err := ecwt.ParseKey(f.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid key: %w", err)
		}
		return key, nil
	case f.KeyFile != "":
		return ecwt.LoadKeyFile(f.KeyFile)
	default:
		return nil, errors.New("either key or key_file must be set")
	}
}

// FactoryConfig converts the file into a factory configuration. Schema
// fields accept any value.
func (f *File) FactoryConfig() (ecwt.Config, error) {
	key, err := f.ResolveKey()
	if err != nil {
		return ecwt.Config{}, err
	}

	schema := make(ecwt.Schema, len(f.Schema))
	for _, name := range f.Schema {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		schema[name] = nil
	}

	return ecwt.Config{
		Key:       key,
		Namespace: f.Namespace,
		Schema:    schema,
		Cipher:    ecwt.CipherAlgorithm(f.Cipher),
		Identity:  ecwt.IdentityAlgorithm(f.Identity),
	}, nil
}
