package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/roundauction/internal/domain"
)

// UserService registers bidders. Every user gets a wallet at creation so a
// deposit can follow immediately.
type UserService struct {
	users    domain.UserStore
	wallets  domain.WalletStore
	currency string
	logger   *slog.Logger
}

// NewUserService creates a UserService. New wallets are opened in
// defaultCurrency.
func NewUserService(users domain.UserStore, wallets domain.WalletStore, defaultCurrency string, logger *slog.Logger) *UserService {
	if defaultCurrency == "" {
		defaultCurrency = domain.DefaultCurrency
	}
	return &UserService{users: users, wallets: wallets, currency: defaultCurrency, logger: logger}
}

// CreateUser registers a new user and opens their wallet. An empty name gets
// a generated one.
func (s *UserService) CreateUser(ctx context.Context, name string) (*domain.User, error) {
	id := uuid.New().String()

	name = strings.TrimSpace(name)
	if name == "" {
		name = "bidder-" + id[:8]
	}

	user := &domain.User{
		ID:        id,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	wallet, err := domain.NewWallet(user.ID, s.currency)
	if err != nil {
		return nil, err
	}
	if err := s.wallets.Create(ctx, wallet); err != nil {
		return nil, fmt.Errorf("user_service: create wallet: %w", err)
	}

	s.logger.Info("user created", "user_id", user.ID, "name", user.Name)
	return user, nil
}

// GetUser fetches a user by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.Get(ctx, id)
}
