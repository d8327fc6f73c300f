package ecwt

import (
	"log/slog"
	"time"
)

// Option configures collaborators of a Factory.
type Option func(*Factory)

// WithRevocationStore enables revocation. Without it Token.Revoke is a
// logged no-op and Verify never reports ErrRevoked.
func WithRevocationStore(store RevocationStore) Option {
	return func(f *Factory) {
		f.store = store
	}
}

// WithDecodeCache caches decoded tokens by token string.
func WithDecodeCache(cache DecodeCache) Option {
	return func(f *Factory) {
		f.cache = cache
	}
}

// WithIdentitySource overrides the source selected by Config.Identity.
func WithIdentitySource(source IdentitySource) Option {
	return func(f *Factory) {
		f.identity = source
	}
}

// WithCipher overrides the cipher built from Config.Key and Config.Cipher.
func WithCipher(cipher Cipher) Option {
	return func(f *Factory) {
		f.codec.cipher = cipher
	}
}

// WithTupleCodec overrides the CBOR tuple codec.
func WithTupleCodec(codec TupleCodec) Option {
	return func(f *Factory) {
		f.codec.tuple = codec
	}
}

// WithTextCodec overrides the base-62 text codec.
func WithTextCodec(codec TextCodec) Option {
	return func(f *Factory) {
		f.codec.text = codec
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics MetricsRecorder) Option {
	return func(f *Factory) {
		f.metrics = metrics
	}
}

// WithClock replaces time.Now for expiry and revocation decisions.
func WithClock(now func() time.Time) Option {
	return func(f *Factory) {
		f.now = now
	}
}

// CreateOption configures a single Create call.
type CreateOption func(*createOptions)

type createOptions struct {
	ttl    time.Duration
	hasTTL bool
}

// WithTTL makes the token expire ttl after creation. ttl must be a
// non-negative whole number of seconds. Tokens created without WithTTL never
// expire.
func WithTTL(ttl time.Duration) CreateOption {
	return func(o *createOptions) {
		o.ttl = ttl
		o.hasTTL = true
	}
}
