// Package ecwt issues and verifies Ecwt tokens: compact, encrypted,
// self-contained authentication tokens.
//
// # Overview
//
// Each token carries:
// - A time-ordered unique identifier (ULID by default) embedding its creation time
// - An optional TTL in seconds
// - An application payload described by a Schema
//
// The tuple (identifier, ttl, payload) is serialized with CBOR, sealed with an
// AEAD cipher (XChaCha20-Poly1305 by default) and rendered as base-62 text.
// Verification needs only the key: no lookup is required to check
// authenticity or expiry.
//
// # Payload schema
//
// The payload is positional. Values are written in the lexicographic order
// of the schema field names, so the factory that verifies a token must be
// built with the same field names as the one that created it:
//
//	factory, err := ecwt.NewFactory(ecwt.Config{
//	    Key: key,
//	    Schema: ecwt.Schema{
//	        "user_id": func(v any) bool { _, ok := v.(string); return ok },
//	        "role":    nil,
//	    },
//	})
//
//	token, err := factory.Create(ctx, map[string]any{"user_id": "u-1", "role": "admin"}, ecwt.WithTTL(time.Hour))
//	verified, err := factory.Verify(ctx, token.String())
//
// # Revocation and caching
//
// With WithRevocationStore, Token.Revoke records the token id in a
// time-scored set (a Redis sorted set for RedisRevocationStore) until the
// token's natural expiry, and Verify rejects it with ErrRevoked. Without a
// store, Revoke only logs a warning.
//
// With WithDecodeCache, decoded tokens are cached by token string for at most
// their remaining validity. Expiry and revocation are checked on every call,
// whether the token came from the cache or not.
//
// # Errors
//
// - ErrInvalidConfig: construction failed
// - *ValidationError (ErrValidation): Create rejected a field value or TTL
// - ErrMalformedToken: the string is not a token produced with this key and schema
// - *InvalidError (ErrInvalid) with reason ErrExpired or ErrRevoked, carrying the decoded Token
package ecwt
