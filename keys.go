package ecwt

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// GenerateKey returns a new random encryption key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// ParseKey decodes a textual key. Hex and standard or URL-safe base64 are
// accepted; the decoded key must be KeySize bytes.
func ParseKey(text string) ([]byte, error) {
	text = strings.TrimSpace(text)

	if key, err := hex.DecodeString(text); err == nil && len(key) == KeySize {
		return key, nil
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if key, err := enc.DecodeString(text); err == nil && len(key) == KeySize {
			return key, nil
		}
	}

	return nil, fmt.Errorf("key must be %d bytes encoded as hex or base64", KeySize)
}

// LoadKeyFile reads a key written by ParseKey-compatible tooling. The file
// must not be readable by group or others.
func LoadKeyFile(path string) ([]byte, error) {
	if err := checkFilePermissions(path, 0600); err != nil {
		return nil, fmt.Errorf("insecure key file permissions: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key, err := ParseKey(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse key file %s: %w", path, err)
	}
	return key, nil
}

// checkFilePermissions checks if the file has the required permissions
func checkFilePermissions(path string, requiredPerm os.FileMode) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	actualPerm := info.Mode().Perm()

	// More permissive than required is rejected.
	if actualPerm&^requiredPerm != 0 {
		return fmt.Errorf("file %s has permissions %#o, expected %#o", path, actualPerm, requiredPerm)
	}

	return nil
}
