package ecwt

import (
	"sort"
)

// KeySize is the size in bytes of the token encryption key.
const KeySize = 32

// CipherAlgorithm selects the authenticated cipher used for token payloads.
type CipherAlgorithm string

const (
	XChaCha20Poly1305Algorithm CipherAlgorithm = "xchacha20-poly1305" // Default, 24-byte random nonce
	AES256GCMAlgorithm         CipherAlgorithm = "aes-256-gcm"        // 12-byte random nonce
)

// IdentityAlgorithm selects the time-ordered identifier embedded in tokens.
type IdentityAlgorithm string

const (
	ULIDIdentity   IdentityAlgorithm = "ulid"   // Default, 26-char Crockford base32 text id
	UUIDv7Identity IdentityAlgorithm = "uuidv7" // RFC 9562 version 7, canonical text id
)

// Validator reports whether value is acceptable for a schema field.
type Validator func(value any) bool

// Schema maps payload field names to an optional validator. A nil validator
// accepts any value.
//
// The payload is encoded positionally in the lexicographic order of the
// names, so a token can only be verified by a factory built with the same
// set of names.
type Schema map[string]Validator

// Fields returns the schema names in canonical order.
func (s Schema) Fields() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config holds the factory configuration.
//
// Fields:
//   - Key: Encryption key (KeySize bytes)
//   - Namespace: Scopes the revocation store key; may be empty
//   - Schema: Payload fields and their validators
//   - Cipher: Authenticated cipher (default XChaCha20-Poly1305)
//   - Identity: Identifier algorithm (default ULID)
type Config struct {
	Key       []byte
	Namespace string
	Schema    Schema
	Cipher    CipherAlgorithm
	Identity  IdentityAlgorithm
}

// DefaultConfig returns a Config with the default cipher and identifier
// algorithms and an empty schema.
func DefaultConfig(key []byte) Config {
	return Config{
		Key:      key,
		Schema:   Schema{},
		Cipher:   XChaCha20Poly1305Algorithm,
		Identity: ULIDIdentity,
	}
}

// validateConfig fills defaults and checks the configuration.
func validateConfig(config *Config) error {
	if len(config.Key) != KeySize {
		return configError("encryption key must be %d bytes, got %d", KeySize, len(config.Key))
	}

	switch config.Cipher {
	case "":
		config.Cipher = XChaCha20Poly1305Algorithm
	case XChaCha20Poly1305Algorithm, AES256GCMAlgorithm:
	default:
		return configError("unsupported cipher: %s, supports %s and %s", config.Cipher, XChaCha20Poly1305Algorithm, AES256GCMAlgorithm)
	}

	switch config.Identity {
	case "":
		config.Identity = ULIDIdentity
	case ULIDIdentity, UUIDv7Identity:
	default:
		return configError("unsupported identity algorithm: %s, supports %s and %s", config.Identity, ULIDIdentity, UUIDv7Identity)
	}

	for name := range config.Schema {
		if name == "" {
			return configError("schema field names cannot be empty")
		}
	}

	return nil
}
