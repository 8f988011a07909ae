package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrEmailTaken is returned by Create when the unique email constraint
// rejects the insert.
var ErrEmailTaken = errors.New("user: email already taken")

const pgUniqueViolation = "23505"

// Repository persists users in PostgreSQL.
type Repository struct {
	db *sql.DB
}

// NewRepository wraps an open database handle.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user, assigning a fresh id when none is set.
func (r *Repository) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate user id: %w", err)
		}
		u.ID = id.String()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	err := r.db.QueryRowContext(ctx,
		`insert into users(id, email, password_hash, nickname, role, score)
		 values($1, $2, $3, $4, $5, $6)
		 returning created_at, updated_at`,
		u.ID, u.Email, u.PasswordHash, u.Nickname, string(u.Role), u.Score,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByEmail returns the user with the given email, or nil when absent.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx,
		`select id, email, password_hash, nickname, role, score, created_at, updated_at
		 from users where email = $1`, email)
}

// FindByID returns the user with the given id, or nil when absent.
func (r *Repository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx,
		`select id, email, password_hash, nickname, role, score, created_at, updated_at
		 from users where id = $1`, id)
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (*User, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	var (
		u    User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Nickname, &role, &u.Score, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.Role = Role(role)
	return &u, nil
}

// AddScore adds points to a user's score.
func (r *Repository) AddScore(ctx context.Context, id string, points int64) error {
	_, err := r.db.ExecContext(ctx,
		`update users set score = score + $1, updated_at = now() where id = $2`,
		points, id,
	)
	if err != nil {
		return fmt.Errorf("add score: %w", err)
	}
	return nil
}

// Rank lists users ordered by score. Ties share a rank (dense ranking).
func (r *Repository) Rank(ctx context.Context, limit, offset int) ([]Ranked, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`select id, nickname, score, dense_rank() over (order by score desc) as rank
		 from users
		 order by score desc, created_at asc
		 limit $1 offset $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query ranking: %w", err)
	}
	defer rows.Close()

	var ranked []Ranked
	for rows.Next() {
		var entry Ranked
		if err := rows.Scan(&entry.ID, &entry.Nickname, &entry.Score, &entry.Rank); err != nil {
			return nil, 0, err
		}
		ranked = append(ranked, entry)
	}
	return ranked, total, rows.Err()
}
