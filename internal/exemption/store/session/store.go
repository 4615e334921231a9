// Package session is the session-backed cache behind the wizard. It exposes
// the external store's narrow contract: read a value, stage a write, commit
// staged writes in one go. There is deliberately no locking or optimistic
// concurrency: if two requests for one session race, the last commit wins.
package session

import "context"

// Fixed cache keys under one session.
const (
	// KeyExemption holds the in-progress exemption aggregate.
	KeyExemption = "exemption"
	// KeySavedSiteDetails holds a snapshot of the site details taken before
	// an edit pass, restored when the user backs out.
	KeySavedSiteDetails = "savedSiteDetails"
)

// Store is the opaque key-value session store with commit semantics.
// Set stages a write; Get observes staged writes from the same session
// before falling back to committed state, so a handler's read-modify-write
// cycle sees its own pending changes. Commit persists everything staged for
// the session.
type Store interface {
	Get(ctx context.Context, sessionID, key string) ([]byte, bool, error)
	Set(ctx context.Context, sessionID, key string, value []byte) error
	Commit(ctx context.Context, sessionID string) error
	Destroy(ctx context.Context, sessionID string) error
}
