package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ SessionStore = (*RedisSessionStore)(nil)

// revokeScript performs the Active→Revoked transition atomically: the state
// key is flipped only if it still holds "active", and exactly one of two
// concurrent callers sees 1.
var revokeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  redis.call("SET", KEYS[1], ARGV[2], "KEEPTTL")
  return 1
end
return 0
`)

// RedisSessionStore implements SessionStore on Redis. Expiry is native:
// session and blacklist keys carry a TTL matching the token they track, so
// no cleanup pass is needed.
type RedisSessionStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisSessionStore wraps a connected client.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, now: time.Now}
}

func sessionKey(tokenID string) string      { return "auth:session:" + tokenID }
func sessionStateKey(tokenID string) string { return "auth:session:" + tokenID + ":state" }
func subjectKey(subjectID string) string    { return "auth:subject:" + subjectID + ":sessions" }
func blacklistKey(tokenID string) string    { return "auth:blacklist:" + tokenID }

func (s *RedisSessionStore) CreateSession(ctx context.Context, sess *Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("auth: session %s already expired", sess.ID)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.ID), sess.SubjectID, ttl)
	pipe.Set(ctx, sessionStateKey(sess.ID), string(sess.State), ttl)
	pipe.SAdd(ctx, subjectKey(sess.SubjectID), sess.ID)
	pipe.Expire(ctx, subjectKey(sess.SubjectID), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisSessionStore) FindSession(ctx context.Context, tokenID string) (*Session, error) {
	subjectID, err := s.client.Get(ctx, sessionKey(tokenID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}
	state, err := s.client.Get(ctx, sessionStateKey(tokenID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}
	ttl, err := s.client.TTL(ctx, sessionKey(tokenID)).Result()
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        tokenID,
		SubjectID: subjectID,
		State:     SessionState(state),
		ExpiresAt: s.now().Add(ttl),
	}, nil
}

func (s *RedisSessionStore) RevokeSession(ctx context.Context, tokenID string) (bool, error) {
	won, err := revokeScript.Run(ctx, s.client,
		[]string{sessionStateKey(tokenID)},
		string(SessionActive), string(SessionRevoked),
	).Int()
	if err != nil {
		return false, err
	}
	return won == 1, nil
}

func (s *RedisSessionStore) RevokeSubjectSessions(ctx context.Context, subjectID string) error {
	tokenIDs, err := s.client.SMembers(ctx, subjectKey(subjectID)).Result()
	if err != nil {
		return err
	}
	for _, tokenID := range tokenIDs {
		if _, err := s.RevokeSession(ctx, tokenID); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisSessionStore) BlacklistAccess(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, blacklistKey(tokenID), "1", ttl).Err()
}

func (s *RedisSessionStore) AccessBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	exists, err := s.client.Exists(ctx, blacklistKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
