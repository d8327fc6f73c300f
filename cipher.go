package ecwt

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// Cipher is an authenticated symmetric cipher. Ciphertexts are
// self-describing: Decrypt needs nothing but the blob and the key the
// cipher was built with.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(blob []byte) ([]byte, error)
}

// blobVersion prefixes every encrypted blob and is authenticated as
// associated data, so a flipped version byte fails to open.
const blobVersion byte = 0x01

var errBlobTooShort = errors.New("encrypted blob is too short")

// aeadCipher seals blobs in the format
//
//	[version: 1 byte] [nonce: NonceSize bytes] [ciphertext+tag]
type aeadCipher struct {
	aead gocipher.AEAD
}

// NewXChaCha20Poly1305 returns a Cipher using XChaCha20-Poly1305 with a
// random 24-byte nonce per token.
func NewXChaCha20Poly1305(key []byte) (Cipher, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	return &aeadCipher{aead: aead}, nil
}

// NewAESGCM returns a Cipher using AES-256-GCM with a random 12-byte nonce.
func NewAESGCM(key []byte) (Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("AES-256-GCM key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	aead, err := gocipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &aeadCipher{aead: aead}, nil
}

func newCipher(algorithm CipherAlgorithm, key []byte) (Cipher, error) {
	switch algorithm {
	case AES256GCMAlgorithm:
		return NewAESGCM(key)
	default:
		return NewXChaCha20Poly1305(key)
	}
}

func (c *aeadCipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()

	output := make([]byte, 1+nonceSize, 1+nonceSize+len(plaintext)+c.aead.Overhead())
	output[0] = blobVersion
	if _, err := io.ReadFull(rand.Reader, output[1:]); err != nil {
		return nil, fmt.Errorf("generating random nonce: %w", err)
	}

	return c.aead.Seal(output, output[1:], plaintext, output[:1]), nil
}

func (c *aeadCipher) Decrypt(blob []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(blob) < 1+nonceSize+c.aead.Overhead() {
		return nil, errBlobTooShort
	}
	if blob[0] != blobVersion {
		return nil, fmt.Errorf("encrypted blob version %d is not supported", blob[0])
	}

	return c.aead.Open(nil, blob[1:1+nonceSize], blob[1+nonceSize:], blob[:1])
}
