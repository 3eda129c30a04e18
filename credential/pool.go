// Package credential holds the ordered pool of API credentials consumed
// by a batch run.
//
// A Pool is a cursor over an immutable snapshot. Exhausting a credential
// advances the cursor; the same credential is never handed out again
// within the pool's lifetime.
package credential

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Pool hands out credentials in order until all have been exhausted.
// Not safe for concurrent use; a run owns its pool exclusively.
type Pool struct {
	keys   []string
	cursor int
}

// NewPool creates a pool from keys, preserving order. Blank entries and
// repeated keys are dropped so a single bad key is never tried twice.
func NewPool(keys []string) *Pool {
	seen := make(map[string]struct{}, len(keys))
	snapshot := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		snapshot = append(snapshot, k)
	}
	return &Pool{keys: snapshot}
}

// Current returns the head credential. ok is false once the pool is empty.
func (p *Pool) Current() (key string, ok bool) {
	if p.cursor >= len(p.keys) {
		return "", false
	}
	return p.keys[p.cursor], true
}

// Exhaust drops the head credential. It is a no-op on an empty pool.
func (p *Pool) Exhaust() {
	if p.cursor < len(p.keys) {
		p.cursor++
	}
}

// Position returns the 1-based index of the head credential, for progress
// reporting. It returns Len()+1 once the pool is empty.
func (p *Pool) Position() int { return p.cursor + 1 }

// Len returns the number of credentials the pool started with.
func (p *Pool) Len() int { return len(p.keys) }

// Remaining returns how many credentials are still usable.
func (p *Pool) Remaining() int { return len(p.keys) - p.cursor }

// Exhausted returns how many credentials have been dropped.
func (p *Pool) Exhausted() int { return p.cursor }

// Shuffle returns a uniformly shuffled copy of keys (Fisher–Yates over
// crypto/rand). The input slice is not modified.
func Shuffle(keys []string) ([]string, error) {
	out := make([]string, len(keys))
	copy(out, keys)
	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, fmt.Errorf("crypto/rand failed: %w", err)
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}
	return out, nil
}

// Redact masks a credential for logs, keeping only the last four characters
// of keys long enough that doing so does not leak most of the secret.
func Redact(key string) string {
	const visible = 4
	if len(key) <= 2*visible {
		return "****"
	}
	return "****" + key[len(key)-visible:]
}
