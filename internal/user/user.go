package user

import "time"

// Role classifies what a user is allowed to do. The set is closed: regular
// users and administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is an account able to sign in and author posts. The password is only
// ever stored as a digest.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Nickname     string
	Role         Role
	Score        int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ranked is a user decorated with their position in the score ranking.
type Ranked struct {
	ID       string
	Nickname string
	Score    int64
	Rank     int64
}
