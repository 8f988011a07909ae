package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Repository persists posts in PostgreSQL. Listing joins the author's
// nickname so the read model never needs a second round trip.
type Repository struct {
	db *sql.DB
}

// NewRepository wraps an open database handle.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new post, assigning a fresh id when none is set.
func (r *Repository) Create(ctx context.Context, p *Post) error {
	if p.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate post id: %w", err)
		}
		p.ID = id.String()
	}
	err := r.db.QueryRowContext(ctx,
		`insert into posts(id, author_id, title, content)
		 values($1, $2, $3, $4)
		 returning created_at, updated_at`,
		p.ID, p.AuthorID, p.Title, p.Content,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// Find returns the post with the given id, or nil when absent.
func (r *Repository) Find(ctx context.Context, id string) (*Post, error) {
	row := r.db.QueryRowContext(ctx,
		`select p.id, p.author_id, u.nickname, p.title, p.content, p.created_at, p.updated_at
		 from posts p join users u on u.id = p.author_id
		 where p.id = $1`, id)
	var p Post
	err := row.Scan(&p.ID, &p.AuthorID, &p.AuthorNickname, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query post: %w", err)
	}
	return &p, nil
}

// List returns posts newest first, plus the total count for pagination.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Post, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `select count(*) from posts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`select p.id, p.author_id, u.nickname, p.title, p.content, p.created_at, p.updated_at
		 from posts p join users u on u.id = p.author_id
		 order by p.created_at desc, p.id desc
		 limit $1 offset $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.AuthorNickname, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		posts = append(posts, p)
	}
	return posts, total, rows.Err()
}

// Update rewrites title and content of the post.
func (r *Repository) Update(ctx context.Context, p *Post) error {
	err := r.db.QueryRowContext(ctx,
		`update posts set title = $1, content = $2, updated_at = now()
		 where id = $3
		 returning updated_at`,
		p.Title, p.Content, p.ID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

// Delete removes the post. Deleting an absent post reports false.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `delete from posts where id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
