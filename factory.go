package ecwt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Factory creates, verifies and revokes tokens. It is immutable after
// NewFactory and safe for concurrent use by multiple goroutines.
type Factory struct {
	namespace     string
	revocationKey string
	schema        Schema
	fields        []string

	codec    *tokenCodec
	identity IdentitySource
	store    RevocationStore
	cache    DecodeCache

	logger  *slog.Logger
	metrics MetricsRecorder
	now     func() time.Time
}

// NewFactory creates a token factory.
//
// The configuration is validated first, then options are applied, then any
// collaborator left unset is built from the configuration: the cipher from
// Key and Cipher, the identity source from Identity, CBOR as the tuple codec
// and base-62 as the text codec. Revocation and caching stay disabled unless
// WithRevocationStore and WithDecodeCache are given.
//
// All construction errors wrap ErrInvalidConfig.
func NewFactory(config Config, opts ...Option) (*Factory, error) {
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	schema := make(Schema, len(config.Schema))
	for name, validator := range config.Schema {
		schema[name] = validator
	}
	fields := schema.Fields()

	f := &Factory{
		namespace:     config.Namespace,
		revocationKey: RevocationKey(config.Namespace),
		schema:        schema,
		fields:        fields,
		codec:         &tokenCodec{fields: len(fields)},
		logger:        slog.Default(),
		metrics:       noopMetrics{},
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.codec.cipher == nil {
		cipher, err := newCipher(config.Cipher, config.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		f.codec.cipher = cipher
	}
	if f.codec.tuple == nil {
		codec, err := NewCBORCodec()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		f.codec.tuple = codec
	}
	if f.codec.text == nil {
		codec, err := NewBase62()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		f.codec.text = codec
	}
	if f.identity == nil {
		f.identity = newIdentitySource(config.Identity)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.metrics == nil {
		f.metrics = noopMetrics{}
	}
	if f.now == nil {
		f.now = time.Now
	}

	return f, nil
}

// DefaultFactory creates a factory with the default configuration, a
// Ristretto decode cache and, when redisOpts is not nil, a Redis revocation
// store.
func DefaultFactory(key []byte, schema Schema, redisOpts *redis.Options, opts ...Option) (*Factory, error) {
	config := DefaultConfig(key)
	config.Schema = schema

	cache, err := NewRistrettoCache(DefaultCacheEntries)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	defaults := []Option{WithDecodeCache(cache)}

	if redisOpts != nil {
		store, err := NewRedisRevocationStore(redis.NewClient(redisOpts))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		defaults = append(defaults, WithRevocationStore(store))
	}

	return NewFactory(config, append(defaults, opts...)...)
}

// Namespace returns the configured namespace.
func (f *Factory) Namespace() string {
	return f.namespace
}

// Fields returns the schema field names in canonical order.
func (f *Factory) Fields() []string {
	return append([]string(nil), f.fields...)
}

// Create issues a new token carrying the schema fields of data.
//
// Each schema field is read from data and checked by its validator; fields
// of data outside the schema are not encoded. A rejected value or TTL
// returns a *ValidationError and has no side effects. The returned token's
// Data holds the values exactly as Verify will decode them.
func (f *Factory) Create(ctx context.Context, data map[string]any, opts ...CreateOption) (*Token, error) {
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	payload := make([]any, 0, len(f.fields))
	for _, name := range f.fields {
		value := data[name]
		if validator := f.schema[name]; validator != nil && !validator(value) {
			return nil, &ValidationError{Field: name, Value: value}
		}
		payload = append(payload, value)
	}

	ttl, err := ttlSeconds(o)
	if err != nil {
		return nil, err
	}

	id, err := f.identity.Issue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token ID: %w", err)
	}

	token, normalized, err := f.codec.encode(canonicalTuple{ID: id.Bytes(), TTL: ttl, Payload: payload})
	if err != nil {
		return nil, err
	}

	entry := CacheEntry{Identifier: id, TTL: ttl, Data: newData(f.fields, normalized)}
	f.setCache(token, entry)
	f.metrics.TokenCreated()

	return newToken(f, token, id, ttl, entry.Data), nil
}

// Verify decodes a token string and checks that it has neither expired nor
// been revoked.
//
// A string that cannot be decoded returns ErrMalformedToken. An expired or
// revoked token returns an *InvalidError carrying the decoded token. A
// revocation store failure is returned wrapped.
func (f *Factory) Verify(ctx context.Context, token string) (*Token, error) {
	if token == "" {
		f.metrics.TokenVerified(OutcomeMalformed)
		return nil, ErrMalformedToken
	}

	entry, err := f.lookup(token)
	if err != nil {
		f.metrics.TokenVerified(OutcomeMalformed)
		return nil, err
	}

	t := newToken(f, token, entry.Identifier, entry.TTL, entry.Data)

	if entry.TTL != nil && entry.Identifier.UnixMilli()+*entry.TTL*1000 < f.now().UnixMilli() {
		f.metrics.TokenVerified(OutcomeExpired)
		return nil, newExpiredError(t)
	}

	if f.store != nil {
		_, revoked, err := f.store.Score(ctx, f.revocationKey, t.ID())
		if err != nil {
			f.metrics.TokenVerified(OutcomeError)
			return nil, fmt.Errorf("failed to check revocation: %w", err)
		}
		if revoked {
			f.metrics.TokenVerified(OutcomeRevoked)
			return nil, newRevokedError(t)
		}
	}

	f.metrics.TokenVerified(OutcomeValid)
	return t, nil
}

// ClearCache drops every cached decode result.
func (f *Factory) ClearCache() {
	if f.cache != nil {
		f.cache.Clear()
	}
}

// PruneRevocations removes revocation entries of tokens that have expired.
// Entries of tokens that never expire are kept. The store must implement
// RevocationPruner.
func (f *Factory) PruneRevocations(ctx context.Context) (int64, error) {
	if f.store == nil {
		return 0, errors.New("revocation store is not configured")
	}
	pruner, ok := f.store.(RevocationPruner)
	if !ok {
		return 0, fmt.Errorf("revocation store %T does not support pruning", f.store)
	}

	removed, err := pruner.Prune(ctx, f.revocationKey, f.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune revocations: %w", err)
	}
	f.logger.Debug("pruned revoked tokens", "namespace", f.namespace, "removed", removed)
	return removed, nil
}

// lookup returns the decoded token from the cache or by decoding it.
func (f *Factory) lookup(token string) (CacheEntry, error) {
	if f.cache != nil {
		if entry, ok := f.cache.Get(token); ok {
			f.metrics.CacheLookup(true)
			return entry, nil
		}
		f.metrics.CacheLookup(false)
	}

	tuple, err := f.codec.decode(token)
	if err != nil {
		return CacheEntry{}, err
	}

	id, err := f.identity.Parse(tuple.ID)
	if err != nil {
		return CacheEntry{}, ErrMalformedToken
	}

	entry := CacheEntry{Identifier: id, TTL: tuple.TTL, Data: newData(f.fields, tuple.Payload)}
	f.setCache(token, entry)
	return entry, nil
}

// setCache stores a decoded token for no longer than it stays valid.
func (f *Factory) setCache(token string, entry CacheEntry) {
	if f.cache == nil {
		return
	}
	ttl, ok := cacheTTL(entry.Identifier.UnixMilli(), entry.TTL, f.now().UnixMilli())
	if !ok {
		return
	}
	f.cache.Set(token, entry, ttl)
}

// revoke records a token id in the revocation store until the token's
// natural expiry. It performs at most one write and does not retry.
func (f *Factory) revoke(ctx context.Context, tokenID string, createdMs int64, ttl *int64) error {
	if f.store == nil {
		f.logger.Warn("revocation store is not configured, token cannot be revoked", "token_id", tokenID)
		f.metrics.TokenRevoked(RevocationNoStore)
		return nil
	}

	expiresAt := UnboundedExpiry
	if ttl != nil {
		expiresAt = createdMs + *ttl*1000
	}
	if expiresAt <= f.now().UnixMilli() {
		f.metrics.TokenRevoked(RevocationSkipped)
		return nil
	}

	if err := f.store.Upsert(ctx, f.revocationKey, tokenID, expiresAt); err != nil {
		f.metrics.TokenRevoked(RevocationFailed)
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	f.metrics.TokenRevoked(RevocationStored)
	return nil
}

// ttlSeconds validates the TTL of a Create call.
func ttlSeconds(o createOptions) (*int64, error) {
	if !o.hasTTL {
		return nil, nil
	}
	if o.ttl < 0 || o.ttl%time.Second != 0 {
		return nil, &ValidationError{Field: "ttl", Value: o.ttl}
	}
	seconds := int64(o.ttl / time.Second)
	if seconds > maxTTLSeconds {
		return nil, &ValidationError{Field: "ttl", Value: o.ttl}
	}
	return &seconds, nil
}
