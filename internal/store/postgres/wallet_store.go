package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alanyoungcy/roundauction/internal/domain"
)

// WalletStore implements domain.WalletStore on PostgreSQL. Update runs the
// caller's mutation inside a transaction holding a row lock, so concurrent
// updates to the same wallet serialize instead of losing writes.
type WalletStore struct {
	client *Client
}

var _ domain.WalletStore = (*WalletStore)(nil)

// NewWalletStore creates a WalletStore backed by the given client.
func NewWalletStore(client *Client) *WalletStore {
	return &WalletStore{client: client}
}

// Create inserts a new wallet row.
func (s *WalletStore) Create(ctx context.Context, w *domain.Wallet) error {
	query := `
		INSERT INTO wallets (id, balance, locked, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.client.Pool().Exec(ctx, query,
		w.ID, w.Balance.String(), w.Locked.String(), w.Balance.Currency(),
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("wallet %s: %w", w.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// Get fetches a wallet by id.
func (s *WalletStore) Get(ctx context.Context, id string) (*domain.Wallet, error) {
	query := `
		SELECT id, balance::text, locked::text, currency, created_at, updated_at
		FROM wallets
		WHERE id = $1`
	return scanWallet(s.client.Pool().QueryRow(ctx, query, id))
}

// Update loads the wallet under FOR UPDATE, applies fn, and writes the result
// back in the same transaction.
func (s *WalletStore) Update(ctx context.Context, id string, fn func(w *domain.Wallet) error) error {
	tx, err := s.client.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("update wallet: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		SELECT id, balance::text, locked::text, currency, created_at, updated_at
		FROM wallets
		WHERE id = $1
		FOR UPDATE`
	w, err := scanWallet(tx.QueryRow(ctx, query, id))
	if err != nil {
		return err
	}

	if err := fn(w); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE wallets SET balance = $2, locked = $3, updated_at = NOW() WHERE id = $1`,
		w.ID, w.Balance.String(), w.Locked.String(),
	)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("update wallet: commit: %w", err)
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		w        domain.Wallet
		balance  string
		locked   string
		currency string
	)
	err := row.Scan(&w.ID, &balance, &locked, &currency, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("wallet: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}

	w.Balance, err = domain.MoneyFromString(balance, currency)
	if err != nil {
		return nil, fmt.Errorf("scan wallet balance: %w", err)
	}
	w.Locked, err = domain.MoneyFromString(locked, currency)
	if err != nil {
		return nil, fmt.Errorf("scan wallet locked: %w", err)
	}
	return &w, nil
}
