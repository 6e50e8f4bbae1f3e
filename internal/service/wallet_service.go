package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/roundauction/internal/domain"
)

// WalletService owns wallet creation and deposits. Locking, unlocking, and
// charging happen inside the bidding and settlement paths.
type WalletService struct {
	wallets  domain.WalletStore
	currency string
	logger   *slog.Logger
}

// NewWalletService creates a WalletService. defaultCurrency is used when a
// caller opens a wallet without naming one.
func NewWalletService(wallets domain.WalletStore, defaultCurrency string, logger *slog.Logger) *WalletService {
	if defaultCurrency == "" {
		defaultCurrency = domain.DefaultCurrency
	}
	return &WalletService{wallets: wallets, currency: defaultCurrency, logger: logger}
}

// CreateWallet opens an empty wallet for the user. A second call for the
// same user fails with ErrAlreadyExists.
func (s *WalletService) CreateWallet(ctx context.Context, userID, currency string) (*domain.Wallet, error) {
	if currency == "" {
		currency = s.currency
	}
	wallet, err := domain.NewWallet(userID, currency)
	if err != nil {
		return nil, err
	}
	if err := s.wallets.Create(ctx, wallet); err != nil {
		return nil, err
	}
	s.logger.Info("wallet created", "user_id", userID, "currency", currency)
	return wallet, nil
}

// DepositFunds credits the user's spendable balance.
func (s *WalletService) DepositFunds(ctx context.Context, userID string, amount domain.Money) error {
	if !amount.IsPositive() {
		return fmt.Errorf("wallet_service: deposit must be positive: %w", domain.ErrOutOfRange)
	}
	return s.wallets.Update(ctx, userID, func(w *domain.Wallet) error {
		return w.Deposit(amount)
	})
}

// GetWallet fetches the user's wallet.
func (s *WalletService) GetWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	return s.wallets.Get(ctx, userID)
}
