// Package cache keeps feed responses and quota windows so repeated runs skip
// the network and the database. A cache hit always returns exactly what the
// source returned for the same key.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Key prefixes per source.
const (
	PrefixFeed   = "api"
	PrefixQuotas = "db_with_anchor"
)

type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key derives a stable cache key from a prefix and its parameters.
func Key(prefix string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = k + "=" + params[k]
	}
	sum := md5.Sum([]byte(strings.Join(parts, "_")))
	return prefix + "_" + hex.EncodeToString(sum[:])
}
