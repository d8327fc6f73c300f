// ecwt.go

package ecwt

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token is a decoded Ecwt. It is created by Factory.Create or a successful
// (or expired/revoked) Factory.Verify and never changes afterwards.
type Token struct {
	factory    *Factory
	token      string
	id         Identifier
	ttlInitial *int64
	data       Data
}

func newToken(factory *Factory, token string, id Identifier, ttlInitial *int64, data Data) *Token {
	return &Token{
		factory:    factory,
		token:      token,
		id:         id,
		ttlInitial: ttlInitial,
		data:       data,
	}
}

// String returns the token string handed to clients.
func (t *Token) String() string {
	return t.token
}

// ID returns the text form of the token identifier.
func (t *Token) ID() string {
	return t.id.String()
}

// Identifier returns the token identifier.
func (t *Token) Identifier() Identifier {
	return t.id
}

// CreatedAt returns the creation time embedded in the identifier.
func (t *Token) CreatedAt() time.Time {
	return time.UnixMilli(t.id.UnixMilli())
}

// ExpiresAt returns the expiry as Unix seconds. ok is false for a token that
// never expires.
func (t *Token) ExpiresAt() (seconds int64, ok bool) {
	if t.ttlInitial == nil {
		return 0, false
	}
	return t.id.UnixMilli()/1000 + *t.ttlInitial, true
}

// Data returns the token payload.
func (t *Token) Data() Data {
	return t.data
}

// TTL returns the remaining time to live in seconds. The value is zero or
// negative once the token has expired. ok is false for a token that never
// expires. Revocation is not consulted.
func (t *Token) TTL() (seconds int64, ok bool) {
	if t.ttlInitial == nil {
		return 0, false
	}
	elapsedMs := t.factory.now().UnixMilli() - t.id.UnixMilli()
	elapsed := elapsedMs / 1000
	if elapsedMs%1000 < 0 {
		// Floor, so a clock behind the id time counts as a full second early.
		elapsed--
	}
	return *t.ttlInitial - elapsed, true
}

// Revoke marks the token as revoked until its natural expiry. Without a
// configured revocation store it logs a warning and the token stays usable.
func (t *Token) Revoke(ctx context.Context) error {
	return t.factory.revoke(ctx, t.ID(), t.id.UnixMilli(), t.ttlInitial)
}

// RegisteredClaims returns the token identity as JWT registered claims, for
// code that already reasons about jti/iat/exp.
func (t *Token) RegisteredClaims() jwt.RegisteredClaims {
	claims := jwt.RegisteredClaims{
		ID:       t.ID(),
		IssuedAt: jwt.NewNumericDate(t.CreatedAt()),
	}
	if exp, ok := t.ExpiresAt(); ok {
		claims.ExpiresAt = jwt.NewNumericDate(time.Unix(exp, 0))
	}
	return claims
}

// Data is a read-only view of a token payload. Values are the decoded wire
// values, so integers read back as uint64 (non-negative) or int64.
type Data struct {
	values map[string]any
	fields []string
}

func newData(fields []string, values []any) Data {
	m := make(map[string]any, len(fields))
	for i, name := range fields {
		m[name] = values[i]
	}
	return Data{values: m, fields: fields}
}

// Get returns the value of a field. Maps, slices and byte strings are
// copies.
func (d Data) Get(name string) (any, bool) {
	v, ok := d.values[name]
	return cloneValue(v), ok
}

// String returns a string field, or "" when absent or not a string.
func (d Data) String(name string) string {
	s, _ := d.values[name].(string)
	return s
}

// Int64 returns an integer field.
func (d Data) Int64(name string) (int64, bool) {
	switch v := d.values[name].(type) {
	case int64:
		return v, true
	case uint64:
		if v > 1<<63-1 {
			return 0, false
		}
		return int64(v), true
	default:
		return 0, false
	}
}

// Keys returns the field names in canonical order.
func (d Data) Keys() []string {
	return append([]string(nil), d.fields...)
}

// Len returns the number of fields.
func (d Data) Len() int {
	return len(d.fields)
}

// Map returns a deep copy of the payload.
func (d Data) Map() map[string]any {
	return cloneValue(d.values).(map[string]any)
}

// GoString makes %#v print the payload rather than the internals.
func (d Data) GoString() string {
	return fmt.Sprintf("ecwt.Data%#v", d.values)
}

// cloneValue deep-copies the mutable types a decoded payload can hold.
func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, e := range v {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(v))
		for i, e := range v {
			s[i] = cloneValue(e)
		}
		return s
	case []byte:
		return append([]byte(nil), v...)
	default:
		return v
	}
}
