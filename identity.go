package ecwt

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Identifier is a unique, time-ordered token id.
type Identifier interface {
	// Bytes returns the binary form embedded in the token.
	Bytes() []byte
	// String returns the text form used as the token id.
	String() string
	// UnixMilli returns the creation time in milliseconds since the epoch.
	UnixMilli() int64
}

// IdentitySource issues and parses identifiers.
type IdentitySource interface {
	// Issue returns a new identifier strictly greater than every identifier
	// previously issued by the source. It may wait for the clock to move to
	// the next millisecond.
	Issue(ctx context.Context) (Identifier, error)
	// Parse restores an identifier from its binary form.
	Parse(b []byte) (Identifier, error)
}

func newIdentitySource(algorithm IdentityAlgorithm) IdentitySource {
	switch algorithm {
	case UUIDv7Identity:
		return NewUUIDv7Source()
	default:
		return NewULIDSource()
	}
}

type ulidIdentifier struct {
	id ulid.ULID
}

func (i ulidIdentifier) Bytes() []byte    { return i.id.Bytes() }
func (i ulidIdentifier) String() string   { return i.id.String() }
func (i ulidIdentifier) UnixMilli() int64 { return int64(i.id.Time()) }

// ULIDSource issues ULIDs with monotonic entropy. Within one millisecond the
// random part is incremented; when it overflows the source waits for the
// next millisecond. A clock that steps backwards never produces a smaller id.
type ULIDSource struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
	lastMs  uint64
}

// ULIDOption configures a ULIDSource.
type ULIDOption func(*ULIDSource)

// WithULIDEntropy replaces crypto/rand as the entropy source.
func WithULIDEntropy(r io.Reader) ULIDOption {
	return func(s *ULIDSource) {
		s.entropy = ulid.Monotonic(r, 0)
	}
}

// WithULIDClock replaces time.Now.
func WithULIDClock(now func() time.Time) ULIDOption {
	return func(s *ULIDSource) {
		s.now = now
	}
}

// NewULIDSource creates a ULID identity source.
func NewULIDSource(opts ...ULIDOption) *ULIDSource {
	s := &ULIDSource{
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue implements IdentitySource.
func (s *ULIDSource) Issue(ctx context.Context) (Identifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		ms := ulid.Timestamp(s.now())
		if ms < s.lastMs {
			ms = s.lastMs
		}

		id, err := ulid.New(ms, s.entropy)
		if err == nil {
			s.lastMs = ms
			return ulidIdentifier{id: id}, nil
		}
		if !errors.Is(err, ulid.ErrMonotonicOverflow) {
			return nil, fmt.Errorf("failed to generate token ID: %w", err)
		}

		// Sequence exhausted for this millisecond.
		s.lastMs = ms + 1
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		wait := time.Duration(int64(s.lastMs)-s.now().UnixMilli()) * time.Millisecond
		if wait <= 0 {
			wait = time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Parse implements IdentitySource.
func (s *ULIDSource) Parse(b []byte) (Identifier, error) {
	var id ulid.ULID
	if err := id.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return ulidIdentifier{id: id}, nil
}

type uuidIdentifier struct {
	id uuid.UUID
}

func (i uuidIdentifier) Bytes() []byte  { return i.id[:] }
func (i uuidIdentifier) String() string { return i.id.String() }

// UnixMilli reads the 48-bit big-endian timestamp of a version 7 UUID.
func (i uuidIdentifier) UnixMilli() int64 {
	var ts [8]byte
	copy(ts[2:], i.id[:6])
	return int64(binary.BigEndian.Uint64(ts[:]))
}

// UUIDv7Source issues version 7 UUIDs. Ordering within a millisecond relies
// on the sub-millisecond counter of github.com/google/uuid; the source
// additionally rejects an id that does not sort after the previous one.
type UUIDv7Source struct {
	mu   sync.Mutex
	last uuid.UUID
}

// NewUUIDv7Source creates a UUIDv7 identity source.
func NewUUIDv7Source() *UUIDv7Source {
	return &UUIDv7Source{}
}

// Issue implements IdentitySource.
func (s *UUIDv7Source) Issue(ctx context.Context) (Identifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate token ID: %w", err)
		}
		if bytes.Compare(id[:], s.last[:]) > 0 {
			s.last = id
			return uuidIdentifier{id: id}, nil
		}
		time.Sleep(time.Millisecond)
	}
}

// Parse implements IdentitySource.
func (s *UUIDv7Source) Parse(b []byte) (Identifier, error) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return nil, err
	}
	if id.Version() != 7 {
		return nil, fmt.Errorf("uuid version %d is not 7", id.Version())
	}
	return uuidIdentifier{id: id}, nil
}
