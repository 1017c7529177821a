// Package wire holds the small pieces shared by the sockline client and its
// tooling: correlation id generation, value coercion for message bodies, and
// the normalized error shape reported through the client's error hook.
package wire

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// IDGenerator issues correlation ids unique within the process for one scope.
// Ids take the form "<scope>-<n>" with a monotonically increasing counter,
// or "message-id-<n>" when no scope was given. The zero value is not usable;
// construct with NewIDGenerator.
type IDGenerator struct {
	scope string
	n     atomic.Uint64
}

// NewIDGenerator returns a generator labelled with the given scope name.
// The scope is normalized to lower case with runs of non-alphanumeric
// characters collapsed to single dashes.
func NewIDGenerator(scope string) *IDGenerator {
	return &IDGenerator{scope: normalizeScope(scope)}
}

// Next returns the next id. Safe for concurrent use.
func (g *IDGenerator) Next() string {
	n := g.n.Add(1)
	if g.scope == "" {
		return fmt.Sprintf("message-id-%d", n)
	}
	return fmt.Sprintf("%s-%d", g.scope, n)
}

func normalizeScope(scope string) string {
	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range strings.ToLower(scope) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// RandomID creates a random hex token for callers that want collision
// resistance instead of a counter.
func RandomID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("fallback-%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
