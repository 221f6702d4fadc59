package domain

import (
	"context"
	"errors"
	"time"
)

// MaxThreadLen is the most tweets a single thread may contain.
const MaxThreadLen = 25

// ErrSessionExpired signals that the stored publishing session is no longer
// authenticated. It must never be retried by the generic retry wrapper:
// expired credentials cannot be fixed by waiting, only by a fresh login.
var ErrSessionExpired = errors.New("publishing session expired: login required")

// Tweet is a single post destined for the remote publishing target.
type Tweet struct {
	Text  string   `json:"text"`
	Media []string `json:"media,omitempty"` // media URLs, optional
}

// PublishResult is produced once per publish attempt. The driver applies its
// own internal retry budget; callers decide whether to re-invoke.
//
// A thread call can fail while earlier tweets are already live on the remote
// target. PostIDs always carries the ids that did succeed so callers can
// reconcile such a partial thread.
type PublishResult struct {
	Success   bool     `json:"success"`
	PostIDs   []string `json:"postIds,omitempty"` // in posting order
	ThreadURL string   `json:"threadUrl,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Cookie is a browser cookie captured from an authenticated session.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"` // unix seconds, 0 = session cookie
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
}

// Session is a cached authenticated credential set for the publishing target.
// A session older than SessionTTL is treated as absent.
type Session struct {
	Cookies    []Cookie  `json:"cookies"`
	CapturedAt time.Time `json:"capturedAt"`
}

// SessionTTL is how long a stored session is trusted before it must be
// re-acquired through login.
const SessionTTL = 7 * 24 * time.Hour

// Expired reports whether the session is past its TTL at time now.
func (s Session) Expired(now time.Time) bool {
	return now.Sub(s.CapturedAt) > SessionTTL
}

// Credentials is the login input for the publishing target. It is never
// persisted in plaintext, only as the derived encrypted session blob.
type Credentials struct {
	Username string
	Secret   string
}

// SessionStore persists encrypted sessions keyed by account identifier.
// Encryption and TTL enforcement are store-internal invariants: Get never
// returns an expired session, it deletes the blob and reports absence.
type SessionStore interface {
	Put(ctx context.Context, accountID string, s Session) error
	Get(ctx context.Context, accountID string) (*Session, error) // nil when absent or expired
	Delete(ctx context.Context, accountID string) error
	Close() error
}

// RemotePublisher posts content to the remote publishing target. The
// concrete implementation drives a browser; tests substitute a fake.
type RemotePublisher interface {
	Login(ctx context.Context, creds Credentials) error
	PostSingle(ctx context.Context, tweet Tweet) (PublishResult, error)
	PostThread(ctx context.Context, thread []Tweet) (PublishResult, error)
}
