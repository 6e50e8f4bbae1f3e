package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alanyoungcy/roundauction/internal/domain"
)

// UserStore implements domain.UserStore on PostgreSQL.
type UserStore struct {
	client *Client
}

var _ domain.UserStore = (*UserStore)(nil)

// NewUserStore creates a UserStore backed by the given client.
func NewUserStore(client *Client) *UserStore {
	return &UserStore{client: client}
}

// Create inserts a new user row.
func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	_, err := s.client.Pool().Exec(ctx,
		`INSERT INTO users (id, name, created_at) VALUES ($1, $2, $3)`,
		u.ID, u.Name, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", u.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Get fetches a user by id.
func (s *UserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := s.client.Pool().QueryRow(ctx,
		`SELECT id, name, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}
