// File: ecwt_config_test.go

package ecwt

import (
	"encoding/base64"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidation(t *testing.T) {
	t.Run("Default config", func(t *testing.T) {
		config := DefaultConfig(testKey)
		assert.Equal(t, XChaCha20Poly1305Algorithm, config.Cipher)
		assert.Equal(t, ULIDIdentity, config.Identity)
		assert.Empty(t, config.Schema)

		_, err := NewFactory(config)
		require.NoError(t, err)
	})

	t.Run("Zero algorithms use defaults", func(t *testing.T) {
		_, err := NewFactory(Config{Key: testKey})
		require.NoError(t, err)
	})

	tests := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"Short key", func(c *Config) { c.Key = testKey[:16] }, "encryption key must be 32 bytes"},
		{"Missing key", func(c *Config) { c.Key = nil }, "encryption key must be 32 bytes"},
		{"Unknown cipher", func(c *Config) { c.Cipher = "rot13" }, "unsupported cipher"},
		{"Unknown identity", func(c *Config) { c.Identity = "uuidv4" }, "unsupported identity algorithm"},
		{"Empty field name", func(c *Config) { c.Schema[""] = nil }, "schema field names cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig()
			tt.mutate(&config)

			factory, err := NewFactory(config)
			require.Error(t, err)
			assert.Nil(t, factory)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestSchemaFields(t *testing.T) {
	schema := Schema{"zeta": nil, "alpha": nil, "mid": nil}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, schema.Fields())
	assert.Empty(t, Schema{}.Fields())
}

func TestKeys(t *testing.T) {
	t.Run("GenerateKey", func(t *testing.T) {
		a, err := GenerateKey()
		require.NoError(t, err)
		b, err := GenerateKey()
		require.NoError(t, err)

		assert.Len(t, a, KeySize)
		assert.NotEqual(t, a, b)
	})

	t.Run("ParseKey", func(t *testing.T) {
		for name, text := range map[string]string{
			"Hex":             hex.EncodeToString(testKey),
			"Base64":          base64.StdEncoding.EncodeToString(testKey),
			"Raw URL base64":  base64.RawURLEncoding.EncodeToString(testKey),
			"Trailing spaces": hex.EncodeToString(testKey) + "\n",
		} {
			t.Run(name, func(t *testing.T) {
				key, err := ParseKey(text)
				require.NoError(t, err)
				assert.Equal(t, testKey, key)
			})
		}

		_, err := ParseKey("not a key")
		assert.Error(t, err)
		_, err = ParseKey(hex.EncodeToString(testKey[:16]))
		assert.Error(t, err)
	})

	t.Run("LoadKeyFile", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "ecwt.key")
		require.NoError(t, os.WriteFile(path, []byte(hex.EncodeToString(testKey)+"\n"), 0600))
		require.NoError(t, os.Chmod(path, 0600))

		key, err := LoadKeyFile(path)
		require.NoError(t, err)
		assert.Equal(t, testKey, key)

		require.NoError(t, os.Chmod(path, 0644))
		_, err = LoadKeyFile(path)
		assert.ErrorContains(t, err, "insecure key file permissions")

		_, err = LoadKeyFile(filepath.Join(dir, "missing.key"))
		assert.Error(t, err)
	})
}
