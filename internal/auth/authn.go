package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/jx-dohwan/devlog/internal/audit"
	"github.com/jx-dohwan/devlog/internal/obs"
	"github.com/jx-dohwan/devlog/internal/user"
)

// UserDirectory is the persistence collaborator owning user accounts. An
// absent user is (nil, nil), not an error. Email uniqueness is enforced at
// the storage layer; Create surfaces a duplicate as user.ErrEmailTaken.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	FindByID(ctx context.Context, id string) (*user.User, error)
	Create(ctx context.Context, u *user.User) error
}

// NotificationSender delivers best-effort notifications. Failures are
// logged, never propagated.
type NotificationSender interface {
	SendWelcome(ctx context.Context, email, nickname string) error
}

// SignUpInput is the validated registration payload. Validation of shape
// (email format, password policy, nickname length) happens upstream at the
// HTTP boundary.
type SignUpInput struct {
	Email    string
	Password string
	Nickname string
}

// Service implements the sign-up, sign-in, sign-out and refresh flows on
// top of the directory, the hasher and the token service.
type Service struct {
	users  UserDirectory
	hasher Hasher
	tokens *TokenService
	notify NotificationSender
}

// NewService wires the authentication flows together.
func NewService(users UserDirectory, hasher Hasher, tokens *TokenService, notify NotificationSender) (*Service, error) {
	if users == nil || hasher == nil || tokens == nil {
		return nil, errors.New("auth: users, hasher and tokens are required")
	}
	return &Service{users: users, hasher: hasher, tokens: tokens, notify: notify}, nil
}

// Tokens exposes the underlying token service for middleware that only
// needs verification.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// SignUp registers a new account. A taken email fails with ErrConflict
// before any hashing or persistence work happens.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) error {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" || strings.TrimSpace(in.Nickname) == "" {
		return ErrInvalidInput
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrConflict
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return err
	}
	u := &user.User{
		Email:        email,
		PasswordHash: digest,
		Nickname:     strings.TrimSpace(in.Nickname),
		Role:         user.RoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// The lookup above raced with a concurrent registration.
		if errors.Is(err, user.ErrEmailTaken) {
			return ErrConflict
		}
		return err
	}

	if s.notify != nil {
		if err := s.notify.SendWelcome(ctx, u.Email, u.Nickname); err != nil {
			obs.Error("welcome notification failed", map[string]any{
				"email": u.Email,
				"error": err.Error(),
			})
		}
	}
	return nil
}

// ValidateUser resolves credentials to a user, or nil when either the email
// is unknown or the password does not match. An unknown email skips the
// hasher entirely.
func (s *Service) ValidateUser(ctx context.Context, email, password string) (*user.User, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, nil
	}
	return u, nil
}

// SignIn authenticates credentials and issues a token pair. The failure
// never reveals whether the email or the password was wrong.
func (s *Service) SignIn(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := s.ValidateUser(ctx, email, password)
	if err != nil {
		return TokenPair{}, err
	}
	if u == nil {
		obs.CountSignIn("denied")
		return TokenPair{}, ErrUnauthorized
	}
	pair, err := s.tokens.Issue(ctx, Principal{ID: u.ID, Role: u.Role})
	if err != nil {
		return TokenPair{}, err
	}
	obs.CountSignIn("ok")
	_ = audit.LogEvent(ctx, "auth.sign_in", map[string]any{"subject_id": u.ID})
	return pair, nil
}

// SignOut invalidates the presented access token immediately and revokes
// every outstanding refresh session of the subject. Both writes complete
// before SignOut returns.
func (s *Service) SignOut(ctx context.Context, subjectID, accessToken string) error {
	claims, err := s.tokens.codec.VerifyAccess(accessToken)
	if err != nil {
		return ErrUnauthorized
	}
	if claims.Subject != subjectID {
		return ErrUnauthorized
	}
	if err := s.tokens.BlacklistAccessToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	if err := s.tokens.RevokeAll(ctx, subjectID); err != nil {
		return err
	}
	_ = audit.LogEvent(ctx, "auth.sign_out", map[string]any{"subject_id": subjectID})
	return nil
}

// RefreshTokens exchanges a still-valid refresh token for a new pair.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (TokenPair, error) {
	return s.tokens.Rotate(ctx, refreshToken)
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
