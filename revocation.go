package ecwt

import (
	"context"
)

// UnboundedExpiry is the revocation score, in milliseconds, written for
// tokens that never expire. It is the largest integer a float64 score can
// hold exactly, so such entries are never pruned.
const UnboundedExpiry int64 = 1<<53 - 1

// maxTTLSeconds keeps createdMs + ttl*1000 below UnboundedExpiry.
const maxTTLSeconds = UnboundedExpiry / 1000 / 2

const redisKeyPrefix = "@ecwt:"

// RevocationStore is a time-scored set of revoked token ids. Scores are the
// absolute expiry in milliseconds.
type RevocationStore interface {
	// Upsert adds member to the set at key, or updates its score.
	Upsert(ctx context.Context, key, member string, score int64) error
	// Score returns the score of member; found is false when it is absent.
	Score(ctx context.Context, key, member string) (score int64, found bool, err error)
}

// RevocationPruner is implemented by stores that can drop entries whose
// score is below a bound.
type RevocationPruner interface {
	Prune(ctx context.Context, key string, before int64) (removed int64, err error)
}

// RevocationKey returns the store key holding revoked ids for a namespace.
func RevocationKey(namespace string) string {
	if namespace == "" {
		return redisKeyPrefix + "revoked"
	}
	return redisKeyPrefix + namespace + ":revoked"
}
