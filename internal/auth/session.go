package auth

import (
	"context"
	"time"
)

// SessionState tracks a refresh token's validity. The machine is
// Active → Revoked, terminal; there is no way back to Active.
type SessionState string

const (
	SessionActive  SessionState = "active"
	SessionRevoked SessionState = "revoked"
)

// Session is the server-side record of one issued refresh token. The ID is
// the refresh token's jti; exactly one record exists per issued token.
type Session struct {
	ID        string
	SubjectID string
	State     SessionState
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionStore is the keyed store holding refresh sessions and the logout
// blacklist of access token ids. Entries may be physically dropped once
// their expiry passes.
type SessionStore interface {
	// CreateSession inserts a new record in state Active.
	CreateSession(ctx context.Context, s *Session) error

	// FindSession returns the record for a refresh token id, ErrNotFound if
	// no record exists.
	FindSession(ctx context.Context, tokenID string) (*Session, error)

	// RevokeSession transitions Active → Revoked atomically. It reports
	// false when the record was not Active anymore: of two concurrent
	// callers exactly one observes true.
	RevokeSession(ctx context.Context, tokenID string) (bool, error)

	// RevokeSubjectSessions revokes every session of the subject.
	RevokeSubjectSessions(ctx context.Context, subjectID string) error

	// BlacklistAccess denylists an access token id until its natural expiry.
	BlacklistAccess(ctx context.Context, tokenID string, expiresAt time.Time) error

	// AccessBlacklisted reports whether an access token id is denylisted.
	AccessBlacklisted(ctx context.Context, tokenID string) (bool, error)
}
