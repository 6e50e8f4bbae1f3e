package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/roundauction/internal/domain"
)

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	users := newMemUserStore()
	wallets := newMemWalletStore()
	svc := NewUserService(users, wallets, "", testLogger())

	u, err := svc.CreateUser(ctx, "Alice")
	require.NoError(t, err)
	require.Equal(t, "Alice", u.Name)

	// A wallet is opened alongside the user.
	w, err := wallets.Get(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, w.Balance.IsZero())
	require.Equal(t, domain.DefaultCurrency, w.Balance.Currency())

	got, err := svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
}

func TestCreateUserGeneratesName(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newMemUserStore(), newMemWalletStore(), "", testLogger())

	u, err := svc.CreateUser(ctx, "   ")
	require.NoError(t, err)
	require.NotEmpty(t, u.Name)
	require.Contains(t, u.Name, "bidder-")
}

func TestCreateUserHonorsConfiguredCurrency(t *testing.T) {
	ctx := context.Background()
	wallets := newMemWalletStore()
	svc := NewUserService(newMemUserStore(), wallets, "USD", testLogger())

	u, err := svc.CreateUser(ctx, "Alice")
	require.NoError(t, err)

	w, err := wallets.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "USD", w.Balance.Currency())
}

func TestWalletService(t *testing.T) {
	ctx := context.Background()
	wallets := newMemWalletStore()
	svc := NewWalletService(wallets, "", testLogger())

	w, err := svc.CreateWallet(ctx, "user-1", "")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultCurrency, w.Balance.Currency())

	// Duplicate creation conflicts.
	_, err = svc.CreateWallet(ctx, "user-1", "")
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	amount, err := domain.MoneyFromString("250", domain.DefaultCurrency)
	require.NoError(t, err)
	require.NoError(t, svc.DepositFunds(ctx, "user-1", amount))

	got, err := svc.GetWallet(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "250", got.Balance.String())

	// Deposits must be positive.
	require.ErrorIs(t, svc.DepositFunds(ctx, "user-1", domain.ZeroMoney(domain.DefaultCurrency)), domain.ErrOutOfRange)
}

func TestWalletServiceConfiguredCurrency(t *testing.T) {
	ctx := context.Background()
	svc := NewWalletService(newMemWalletStore(), "USD", testLogger())

	w, err := svc.CreateWallet(ctx, "user-1", "")
	require.NoError(t, err)
	require.Equal(t, "USD", w.Balance.Currency())
}
