package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jx-dohwan/devlog/internal/audit"
	"github.com/jx-dohwan/devlog/internal/ids"
	"github.com/jx-dohwan/devlog/internal/obs"
	"github.com/jx-dohwan/devlog/internal/user"
)

const (
	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenPair carries the two credentials handed out on sign-in and rotation.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// RoleResolver reports the current role of a subject. Rotation resolves the
// role fresh instead of trusting a claim baked into the refresh token, so a
// role change takes effect on the next rotation.
type RoleResolver func(ctx context.Context, subjectID string) (user.Role, error)

// TokenService owns token pair issuance, verification, rotation and
// revocation. Every issued refresh token has exactly one session record in
// the store; a refresh token can be redeemed at most once.
type TokenService struct {
	codec       *Codec
	store       SessionStore
	now         func() time.Time
	accessTTL   time.Duration
	refreshTTL  time.Duration
	resolveRole RoleResolver
}

// TokenServiceOption configures TokenService behavior.
type TokenServiceOption func(*TokenService)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenServiceOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenServiceOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithRoleResolver sets the lookup used to re-resolve a subject's role when
// rotating. Without one, rotated access tokens fall back to the regular
// user role.
func WithRoleResolver(r RoleResolver) TokenServiceOption {
	return func(s *TokenService) {
		if r != nil {
			s.resolveRole = r
		}
	}
}

// NewTokenService constructs the service. The secret signs both token kinds
// with HS256; issuer is embedded in and required of every token.
func NewTokenService(store SessionStore, secret, issuer string, opts ...TokenServiceOption) (*TokenService, error) {
	if store == nil {
		return nil, errors.New("auth: session store is required")
	}
	s := &TokenService{
		store:      store,
		now:        time.Now,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		resolveRole: func(context.Context, string) (user.Role, error) {
			return user.RoleUser, nil
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	codec, err := NewCodec(secret, issuer, s.now)
	if err != nil {
		return nil, err
	}
	s.codec = codec
	return s, nil
}

// Issue mints a fresh access/refresh pair and records a new Active session
// keyed by the refresh token's id.
func (s *TokenService) Issue(ctx context.Context, p Principal) (TokenPair, error) {
	if p.ID == "" {
		return TokenPair{}, ErrInvalidInput
	}
	accessToken, accessExp, err := s.codec.SignAccess(p, ids.New(), s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refreshID := ids.New()
	refreshToken, refreshExp, err := s.codec.SignRefresh(p.ID, refreshID, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.CreateSession(ctx, &Session{
		ID:        refreshID,
		SubjectID: p.ID,
		State:     SessionActive,
		ExpiresAt: refreshExp,
		CreatedAt: s.now().UTC(),
	}); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess resolves a principal from an access token. It is
// side-effect-free: signature, expiry and the logout blacklist are checked,
// nothing is written.
func (s *TokenService) VerifyAccess(ctx context.Context, token string) (Principal, error) {
	claims, err := s.codec.VerifyAccess(token)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}
	blacklisted, err := s.store.AccessBlacklisted(ctx, claims.ID)
	if err != nil {
		return Principal{}, err
	}
	if blacklisted {
		return Principal{}, ErrUnauthorized
	}
	role := user.Role(claims.Role)
	if !role.Valid() {
		return Principal{}, ErrUnauthorized
	}
	return Principal{ID: claims.Subject, Role: role}, nil
}

// Rotate redeems a refresh token for a brand-new pair. A token can win a
// rotation exactly once; any later presentation is treated as replay and
// revokes every remaining session of the subject.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		obs.CountRotation("denied")
		return TokenPair{}, ErrUnauthorized
	}

	record, err := s.store.FindSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, s.containReplay(ctx, claims.Subject, claims.ID)
		}
		return TokenPair{}, err
	}
	if record.State != SessionActive {
		return TokenPair{}, s.containReplay(ctx, record.SubjectID, record.ID)
	}

	won, err := s.store.RevokeSession(ctx, record.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if !won {
		// Lost the Active→Revoked race: someone redeemed this token first.
		return TokenPair{}, s.containReplay(ctx, record.SubjectID, record.ID)
	}

	role, err := s.resolveRole(ctx, record.SubjectID)
	if err != nil {
		return TokenPair{}, err
	}
	pair, err := s.Issue(ctx, Principal{ID: record.SubjectID, Role: role})
	if err != nil {
		return TokenPair{}, err
	}
	obs.CountRotation("ok")
	return pair, nil
}

// containReplay handles a refresh token presented after it was already
// redeemed or revoked: all remaining sessions of the subject are revoked and
// the caller gets a plain Unauthorized.
func (s *TokenService) containReplay(ctx context.Context, subjectID, tokenID string) error {
	obs.CountRotation("denied")
	obs.CountReplay()
	_ = audit.LogEvent(ctx, "auth.refresh.replay_detected", map[string]any{
		"subject_id": subjectID,
		"token_id":   tokenID,
	})
	if subjectID != "" {
		if err := s.store.RevokeSubjectSessions(ctx, subjectID); err != nil {
			obs.Error("revoke sessions after replay failed", map[string]any{
				"subject_id": subjectID,
				"error":      err.Error(),
			})
		}
	}
	return ErrUnauthorized
}

// RevokeAll revokes every session of the subject.
func (s *TokenService) RevokeAll(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return ErrInvalidInput
	}
	return s.store.RevokeSubjectSessions(ctx, subjectID)
}

// BlacklistAccessToken denylists an access token id until its natural
// expiry. Tokens already past their expiry need no entry.
func (s *TokenService) BlacklistAccessToken(ctx context.Context, tokenID string, naturalExpiry time.Time) error {
	if tokenID == "" {
		return ErrInvalidInput
	}
	if !naturalExpiry.After(s.now()) {
		return nil
	}
	return s.store.BlacklistAccess(ctx, tokenID, naturalExpiry)
}
