package authz

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/greymark/gatewatch/internal/activity"
)

// DigestGate authorizes by comparing the SHA-256 digest of an entered
// passphrase against a digest configured out of band. No network is
// involved. The digest itself (never the passphrase) is persisted, and
// resume compares the stored digest to the configured one, so rotating
// the configured digest invalidates every outstanding unlock.
//
// A gate constructed with no configured digest is an open system:
// authorization is unconditionally granted and nothing is ever persisted.
type DigestGate struct {
	mu         sync.Mutex
	store      Store
	configured string
	unlocked   bool
	log        *activity.Log
	onRevoke   func(reason string)
}

// NewDigestGate returns a gate expecting the given SHA-256 hex digest.
// An empty digest means commands are open to anyone.
func NewDigestGate(configuredDigest string, store Store, log *activity.Log) *DigestGate {
	return &DigestGate{
		store:      store,
		configured: strings.ToLower(strings.TrimSpace(configuredDigest)),
		log:        log,
	}
}

// OnRevoke registers a callback invoked after a revocation.
func (g *DigestGate) OnRevoke(fn func(reason string)) {
	g.mu.Lock()
	g.onRevoke = fn
	g.mu.Unlock()
}

// Open reports whether the gate has no configured digest.
func (g *DigestGate) Open() bool { return g.configured == "" }

func (g *DigestGate) Authorized() bool {
	if g.Open() {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unlocked
}

// CanCommand matches Authorized: the digest gate is binary, not graded.
func (g *DigestGate) CanCommand() bool { return g.Authorized() }

// Authorize digests the passphrase and compares it to the configured
// digest. A mismatch resets the gate: the stored digest is cleared along
// with the unlock, so a stale persisted unlock cannot outlive a failed
// attempt.
func (g *DigestGate) Authorize(ctx context.Context, cred Credentials) error {
	if g.Open() {
		return nil
	}
	digest := DigestPassphrase(cred.Passphrase)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(g.configured)) != 1 {
		g.mu.Lock()
		g.unlocked = false
		_ = g.store.Clear()
		g.mu.Unlock()
		return ErrPassphraseMismatch
	}

	g.mu.Lock()
	g.unlocked = true
	if err := g.store.Save([]byte(digest)); err != nil {
		g.unlocked = false
		g.mu.Unlock()
		return err
	}
	g.mu.Unlock()

	g.log.Append("Commands unlocked")
	return nil
}

// Resume restores a persisted unlock when the stored digest still equals
// the configured one. Open gates resume trivially with no storage read
// or write.
func (g *DigestGate) Resume() bool {
	if g.Open() {
		return true
	}
	data, err := g.store.Load()
	if err != nil || len(data) == 0 {
		return false
	}
	stored := strings.ToLower(strings.TrimSpace(string(data)))
	if stored != g.configured {
		_ = g.store.Clear()
		return false
	}
	g.mu.Lock()
	g.unlocked = true
	g.mu.Unlock()
	return true
}

// Revoke locks the gate and clears the persisted digest.
func (g *DigestGate) Revoke(reason string) {
	if g.Open() {
		return
	}
	g.mu.Lock()
	g.unlocked = false
	_ = g.store.Clear()
	onRevoke := g.onRevoke
	g.mu.Unlock()

	g.log.Append("%s", reason)
	if onRevoke != nil {
		onRevoke(reason)
	}
}

// DigestPassphrase returns the lowercase SHA-256 hex digest of a
// passphrase, the value expected in the command_digest config field.
func DigestPassphrase(passphrase string) string {
	sum := sha256.Sum256([]byte(passphrase))
	return hex.EncodeToString(sum[:])
}
