package user

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a lookup for an account that does not exist.
var ErrNotFound = errors.New("user: not found")

// Profile is the public projection of a user. It never carries the
// password digest.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Nickname  string    `json:"nickname"`
	Role      Role      `json:"role"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// Directory is the persistence surface the service reads from.
type Directory interface {
	FindByID(ctx context.Context, id string) (*User, error)
	Rank(ctx context.Context, limit, offset int) ([]Ranked, int64, error)
}

// Service serves user profiles and the score ranking.
type Service struct {
	dir Directory
}

// NewService wraps the directory.
func NewService(dir Directory) (*Service, error) {
	if dir == nil {
		return nil, errors.New("user: directory is required")
	}
	return &Service{dir: dir}, nil
}

// Profile returns the public view of the account.
func (s *Service) Profile(ctx context.Context, id string) (Profile, error) {
	u, err := s.dir.FindByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if u == nil {
		return Profile{}, ErrNotFound
	}
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		Nickname:  u.Nickname,
		Role:      u.Role,
		Score:     u.Score,
		CreatedAt: u.CreatedAt,
	}, nil
}

// Ranking returns one page of the score leaderboard plus the total number
// of ranked users.
func (s *Service) Ranking(ctx context.Context, page, limit int) ([]Ranked, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.dir.Rank(ctx, limit, (page-1)*limit)
}
