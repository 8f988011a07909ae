package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jx-dohwan/devlog/internal/user"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Principal is the authenticated identity attached to a request after the
// access token has been verified. It lives for one request only.
type Principal struct {
	ID   string
	Role user.Role
}

// Claims is the JWT payload shared by access and refresh tokens. Access
// tokens carry the role; refresh tokens carry only the subject and token id.
type Claims struct {
	Role      string `json:"role,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Codec signs and verifies the compact time-bounded tokens issued by the
// service. It is transport-agnostic: callers hand it raw token strings.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewCodec builds a codec signing with HS256 over the given secret.
func NewCodec(secret, issuer string, now func() time.Time) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: token secret is required")
	}
	if now == nil {
		now = time.Now
	}
	return &Codec{secret: []byte(secret), issuer: issuer, now: now}, nil
}

// SignAccess mints an access token for the principal.
func (c *Codec) SignAccess(p Principal, tokenID string, ttl time.Duration) (string, time.Time, error) {
	return c.sign(Claims{
		Role:      string(p.Role),
		TokenType: tokenTypeAccess,
	}, p.ID, tokenID, ttl)
}

// SignRefresh mints a refresh token for the subject.
func (c *Codec) SignRefresh(subjectID, tokenID string, ttl time.Duration) (string, time.Time, error) {
	return c.sign(Claims{TokenType: tokenTypeRefresh}, subjectID, tokenID, ttl)
}

func (c *Codec) sign(claims Claims, subjectID, tokenID string, ttl time.Duration) (string, time.Time, error) {
	if subjectID == "" || tokenID == "" {
		return "", time.Time{}, errors.New("auth: subject and token id are required")
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("auth: ttl must be greater than zero")
	}
	now := c.now().UTC()
	expiresAt := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        tokenID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyAccess checks signature, expiry and token type of an access token.
func (c *Codec) VerifyAccess(token string) (*Claims, error) {
	return c.verify(token, tokenTypeAccess)
}

// VerifyRefresh checks signature, expiry and token type of a refresh token.
func (c *Codec) VerifyRefresh(token string) (*Claims, error) {
	return c.verify(token, tokenTypeRefresh)
}

func (c *Codec) verify(token, wantType string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.ID) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
