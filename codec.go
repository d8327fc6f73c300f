package ecwt

import (
	"fmt"
	"reflect"

	"github.com/eknkc/basex"
	"github.com/fxamacker/cbor/v2"
)

// TupleCodec serializes the canonical token tuple. It must round-trip byte
// strings, integers, nil and ordered arrays.
type TupleCodec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// TextCodec maps encrypted blobs to URL-safe text and back.
type TextCodec interface {
	Encode(b []byte) string
	Decode(s string) ([]byte, error)
}

// Base62Alphabet is the alphabet of the default text codec.
const Base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// CBORCodec is the default TupleCodec, using Core Deterministic Encoding
// (RFC 8949 §4.2) so equal tuples produce equal bytes.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBORCodec creates a CBORCodec.
func NewCBORCodec() (*CBORCodec, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("CBOR encoder initialization failed: %w", err)
	}
	dec, err := cbor.DecOptions{
		// Payload maps decode as map[string]any instead of
		// map[interface{}]interface{}.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("CBOR decoder initialization failed: %w", err)
	}
	return &CBORCodec{enc: enc, dec: dec}, nil
}

func (c *CBORCodec) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c *CBORCodec) Unmarshal(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}

// Base62 is the default TextCodec.
type Base62 struct {
	enc *basex.Encoding
}

// NewBase62 creates a Base62 codec over Base62Alphabet.
func NewBase62() (*Base62, error) {
	enc, err := basex.NewEncoding(Base62Alphabet)
	if err != nil {
		return nil, fmt.Errorf("base62 initialization failed: %w", err)
	}
	return &Base62{enc: enc}, nil
}

func (b *Base62) Encode(src []byte) string {
	return b.enc.Encode(src)
}

func (b *Base62) Decode(s string) ([]byte, error) {
	return b.enc.Decode(s)
}

// canonicalTuple is the only structure ever encrypted: the identifier bytes,
// the TTL in seconds at creation (nil when the token never expires) and the
// payload values in canonical schema order.
type canonicalTuple struct {
	ID      []byte
	TTL     *int64
	Payload []any
}

// tokenCodec composes the tuple codec, the cipher and the text codec.
type tokenCodec struct {
	tuple  TupleCodec
	cipher Cipher
	text   TextCodec
	fields int
}

// encode serializes, encrypts and text-encodes a tuple. It also returns the
// payload as it will be read back by decode.
func (c *tokenCodec) encode(tuple canonicalTuple) (string, []any, error) {
	var ttl any
	if tuple.TTL != nil {
		ttl = *tuple.TTL
	}
	payload := tuple.Payload
	if payload == nil {
		// A nil slice would be written as null rather than an empty array.
		payload = []any{}
	}

	raw, err := c.tuple.Marshal([]any{tuple.ID, ttl, payload})
	if err != nil {
		return "", nil, fmt.Errorf("failed to serialize token: %w", err)
	}

	normalized, err := c.unpack(raw)
	if err != nil {
		return "", nil, fmt.Errorf("failed to serialize token: payload does not round-trip")
	}

	blob, err := c.cipher.Encrypt(raw)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encrypt token: %w", err)
	}

	return c.text.Encode(blob), normalized.Payload, nil
}

// decode reverses encode. Every failure is ErrMalformedToken.
func (c *tokenCodec) decode(token string) (canonicalTuple, error) {
	blob, err := c.text.Decode(token)
	if err != nil || len(blob) == 0 {
		return canonicalTuple{}, ErrMalformedToken
	}

	raw, err := c.cipher.Decrypt(blob)
	if err != nil {
		return canonicalTuple{}, ErrMalformedToken
	}

	tuple, err := c.unpack(raw)
	if err != nil {
		return canonicalTuple{}, ErrMalformedToken
	}
	return tuple, nil
}

// unpack deserializes a plaintext and checks the tuple shape.
func (c *tokenCodec) unpack(raw []byte) (canonicalTuple, error) {
	var elements []any
	if err := c.tuple.Unmarshal(raw, &elements); err != nil {
		return canonicalTuple{}, err
	}
	if len(elements) != 3 {
		return canonicalTuple{}, fmt.Errorf("tuple has %d elements", len(elements))
	}

	id, ok := elements[0].([]byte)
	if !ok {
		return canonicalTuple{}, fmt.Errorf("identifier is %T", elements[0])
	}

	var ttl *int64
	switch v := elements[1].(type) {
	case nil:
	case uint64:
		if v > uint64(maxTTLSeconds) {
			return canonicalTuple{}, fmt.Errorf("ttl %d out of range", v)
		}
		seconds := int64(v)
		ttl = &seconds
	case int64:
		if v < 0 {
			return canonicalTuple{}, fmt.Errorf("ttl %d is negative", v)
		}
		ttl = &v
	default:
		return canonicalTuple{}, fmt.Errorf("ttl is %T", elements[1])
	}

	payload, ok := elements[2].([]any)
	if !ok {
		return canonicalTuple{}, fmt.Errorf("payload is %T", elements[2])
	}
	if len(payload) != c.fields {
		return canonicalTuple{}, fmt.Errorf("payload has %d values, schema has %d", len(payload), c.fields)
	}

	return canonicalTuple{ID: id, TTL: ttl, Payload: payload}, nil
}
