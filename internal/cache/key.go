// Package cache implements the Redis-backed response cache and the
// per-user rate limiter. Both treat the backend as optional: a nil
// client, a failed round trip or a timeout all degrade to running the
// wrapped operation directly (fail-open) instead of failing the request.
package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Arg is one named argument contributing to a cache key.
type Arg struct {
	Name  string
	Value any
}

// Key derives a deterministic cache key for one read operation. Keys are
// structured as prefix:op:ownerID:digest so that invalidation patterns
// can match exactly on the owner segment instead of on serialized
// substrings. The digest covers the argument set: args are sorted by
// name and their values serialized as JSON, so two calls with the same
// arguments produce the same key regardless of argument order.
func Key(prefix, op string, ownerID uint64, args ...Arg) string {
	sorted := make([]Arg, len(args))
	copy(sorted, args)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var sb strings.Builder
	for _, a := range sorted {
		v, err := json.Marshal(a.Value)
		if err != nil {
			// Fall back to fmt for the rare unserializable value; the
			// key only needs to be stable, not reversible.
			v = []byte(fmt.Sprintf("%v", a.Value))
		}
		sb.WriteString(a.Name)
		sb.WriteByte('=')
		sb.Write(v)
		sb.WriteByte(';')
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return fmt.Sprintf("%s:%s:%d:%x", prefix, op, ownerID, sum[:16])
}

// OwnerPattern returns the glob pattern matching every cached entry of
// one operation for one owner, whatever the filter arguments were.
func OwnerPattern(prefix, op string, ownerID uint64) string {
	return fmt.Sprintf("%s:%s:%d:*", prefix, op, ownerID)
}
