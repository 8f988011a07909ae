package post

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jx-dohwan/devlog/internal/auth"
	"github.com/jx-dohwan/devlog/internal/obs"
	"github.com/jx-dohwan/devlog/internal/user"
)

// createScore is awarded to the author when a post is published.
const createScore = 10

const (
	maxTitleLen   = 200
	maxContentLen = 50_000
)

// Store is the persistence collaborator for posts.
type Store interface {
	Create(ctx context.Context, p *Post) error
	Find(ctx context.Context, id string) (*Post, error)
	List(ctx context.Context, limit, offset int) ([]Post, int64, error)
	Update(ctx context.Context, p *Post) error
	Delete(ctx context.Context, id string) (bool, error)
}

// ScoreAwarder credits activity points to a user.
type ScoreAwarder interface {
	AddScore(ctx context.Context, userID string, points int64) error
}

// Service implements the post operations, enforcing ownership on mutation.
type Service struct {
	store  Store
	scores ScoreAwarder
}

// NewService wires the post flows together. The score awarder is optional.
func NewService(store Store, scores ScoreAwarder) (*Service, error) {
	if store == nil {
		return nil, errors.New("post: store is required")
	}
	return &Service{store: store, scores: scores}, nil
}

// CreateInput is the authoring payload.
type CreateInput struct {
	Title   string
	Content string
}

func (in CreateInput) validate() error {
	title := strings.TrimSpace(in.Title)
	if title == "" || len(title) > maxTitleLen {
		return auth.ErrInvalidInput
	}
	if strings.TrimSpace(in.Content) == "" || len(in.Content) > maxContentLen {
		return auth.ErrInvalidInput
	}
	return nil
}

// Create publishes a post authored by the principal and credits activity
// score. A failed score credit is logged, not propagated: the post exists.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*Post, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	post := &Post{
		AuthorID: p.ID,
		Title:    strings.TrimSpace(in.Title),
		Content:  in.Content,
	}
	if err := s.store.Create(ctx, post); err != nil {
		return nil, err
	}
	if s.scores != nil {
		if err := s.scores.AddScore(ctx, p.ID, createScore); err != nil {
			obs.Error("score credit failed", map[string]any{
				"author_id": p.ID,
				"post_id":   post.ID,
				"error":     err.Error(),
			})
		}
	}
	return post, nil
}

// Get returns a single post.
func (s *Service) Get(ctx context.Context, id string) (*Post, error) {
	p, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, auth.ErrNotFound
	}
	return p, nil
}

// List returns one page of posts, newest first. Page numbers start at 1;
// out-of-range input is clamped rather than rejected.
func (s *Service) List(ctx context.Context, page, limit int) ([]Post, Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	posts, total, err := s.store.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, Page{}, err
	}
	return posts, NewPage(page, limit, total), nil
}

// Update rewrites a post. Only the author may update it.
func (s *Service) Update(ctx context.Context, p auth.Principal, id string, in CreateInput) (*Post, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	existing, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, auth.ErrNotFound
	}
	if existing.AuthorID != p.ID {
		return nil, fmt.Errorf("subject %s does not own post %s: %w", p.ID, id, auth.ErrForbidden)
	}
	existing.Title = strings.TrimSpace(in.Title)
	existing.Content = in.Content
	if err := s.store.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes a post. The author may delete their own; admins may delete
// anyone's.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id string) error {
	existing, err := s.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return auth.ErrNotFound
	}
	if existing.AuthorID != p.ID && p.Role != user.RoleAdmin {
		return fmt.Errorf("subject %s does not own post %s: %w", p.ID, id, auth.ErrForbidden)
	}
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return auth.ErrNotFound
	}
	return nil
}
