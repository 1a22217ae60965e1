package api

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mchen/pagewatch/pkg/storage"
)

const userSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// UserStore provides persistence for API accounts.
type UserStore struct {
	db *storage.DB
}

// NewUserStore creates a new user store.
func NewUserStore(db *storage.DB) *UserStore {
	return &UserStore{db: db}
}

// Migrate creates the users table.
func (s *UserStore) Migrate(ctx context.Context) error {
	return s.db.Migrate(ctx, userSchema)
}

// User represents an API account.
type User struct {
	ID           int
	Email        string
	PasswordHash string
}

// CreateUser inserts a new user.
func (s *UserStore) CreateUser(ctx context.Context, email, passwordHash string) (int, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash) VALUES (?, ?)`,
		email, passwordHash)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	id, _ := res.LastInsertId()
	return int(id), nil
}

// GetUserByEmail finds a user by their email address, or nil when absent.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM users WHERE email = ?`, email)
	u := &User{}
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}
