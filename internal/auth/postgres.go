package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var _ SessionStore = (*PGSessionStore)(nil)

// PGSessionStore implements SessionStore on PostgreSQL. The Active→Revoked
// transition is a conditional UPDATE, so two concurrent rotations of the
// same refresh token cannot both win.
type PGSessionStore struct {
	db *sql.DB
}

// NewPGSessionStore wraps an open database handle.
func NewPGSessionStore(db *sql.DB) *PGSessionStore {
	return &PGSessionStore{db: db}
}

func (s *PGSessionStore) CreateSession(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx,
		`insert into auth_sessions(id, subject_id, state, expires_at, created_at)
		 values($1, $2, $3, $4, $5)`,
		sess.ID, sess.SubjectID, string(sess.State), sess.ExpiresAt.UTC(), sess.CreatedAt.UTC(),
	)
	return err
}

func (s *PGSessionStore) FindSession(ctx context.Context, tokenID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, subject_id, state, expires_at, created_at
		 from auth_sessions where id = $1`, tokenID)
	var (
		sess  Session
		state string
	)
	if err := row.Scan(&sess.ID, &sess.SubjectID, &state, &sess.ExpiresAt, &sess.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	sess.State = SessionState(state)
	return &sess, nil
}

func (s *PGSessionStore) RevokeSession(ctx context.Context, tokenID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`update auth_sessions set state = $1 where id = $2 and state = $3`,
		string(SessionRevoked), tokenID, string(SessionActive),
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *PGSessionStore) RevokeSubjectSessions(ctx context.Context, subjectID string) error {
	_, err := s.db.ExecContext(ctx,
		`update auth_sessions set state = $1 where subject_id = $2 and state = $3`,
		string(SessionRevoked), subjectID, string(SessionActive),
	)
	return err
}

func (s *PGSessionStore) BlacklistAccess(ctx context.Context, tokenID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`insert into auth_access_blacklist(token_id, expires_at)
		 values($1, $2)
		 on conflict (token_id) do nothing`,
		tokenID, expiresAt.UTC(),
	)
	return err
}

func (s *PGSessionStore) AccessBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`select exists(
			select 1 from auth_access_blacklist
			where token_id = $1 and expires_at > now()
		 )`, tokenID)
	var blacklisted bool
	if err := row.Scan(&blacklisted); err != nil {
		return false, err
	}
	return blacklisted, nil
}

// CleanupResult reports how many stale rows a cleanup pass removed.
type CleanupResult struct {
	DeletedSessions         int64 `json:"deleted_sessions"`
	DeletedBlacklistEntries int64 `json:"deleted_blacklist_entries"`
}

// Cleanup prunes sessions and blacklist entries whose expiry has passed.
// Unlike Redis, Postgres has no per-row TTL, so expired rows linger until a
// pass like this removes them; correctness never depends on it running.
func (s *PGSessionStore) Cleanup(ctx context.Context, batchSize int) (CleanupResult, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	var result CleanupResult

	res, err := s.db.ExecContext(ctx,
		`delete from auth_sessions where id in (
			select id from auth_sessions where expires_at < now() limit $1
		 )`, batchSize)
	if err != nil {
		return CleanupResult{}, err
	}
	if result.DeletedSessions, err = res.RowsAffected(); err != nil {
		return CleanupResult{}, err
	}

	res, err = s.db.ExecContext(ctx,
		`delete from auth_access_blacklist where token_id in (
			select token_id from auth_access_blacklist where expires_at < now() limit $1
		 )`, batchSize)
	if err != nil {
		return CleanupResult{}, err
	}
	if result.DeletedBlacklistEntries, err = res.RowsAffected(); err != nil {
		return CleanupResult{}, err
	}
	return result, nil
}
