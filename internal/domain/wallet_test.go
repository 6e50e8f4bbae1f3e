package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func money(t *testing.T, amount string) Money {
	t.Helper()
	m, err := MoneyFromString(amount, "XTR")
	require.NoError(t, err)
	return m
}

func TestNewWallet(t *testing.T) {
	w, err := NewWallet("user-1", "XTR")
	require.NoError(t, err)
	require.Equal(t, "user-1", w.ID)
	require.True(t, w.Balance.IsZero())
	require.True(t, w.Locked.IsZero())

	_, err = NewWallet("", "XTR")
	require.ErrorIs(t, err, ErrNotProvided)
}

func TestWalletLockUnlockCharge(t *testing.T) {
	w, err := NewWallet("user-1", "XTR")
	require.NoError(t, err)

	require.NoError(t, w.Deposit(money(t, "100")))
	require.Equal(t, "100", w.Balance.String())

	// Locking moves funds from balance to locked.
	require.NoError(t, w.LockFunds(money(t, "60")))
	require.Equal(t, "40", w.Balance.String())
	require.Equal(t, "60", w.Locked.String())

	// A lock beyond the balance fails and changes nothing.
	require.ErrorIs(t, w.LockFunds(money(t, "41")), ErrInsufficientFunds)
	require.Equal(t, "40", w.Balance.String())
	require.Equal(t, "60", w.Locked.String())

	// Unlocking returns funds to the balance.
	require.NoError(t, w.UnlockFunds(money(t, "10")))
	require.Equal(t, "50", w.Balance.String())
	require.Equal(t, "50", w.Locked.String())

	require.ErrorIs(t, w.UnlockFunds(money(t, "51")), ErrInsufficientFunds)

	// Charging burns locked funds without crediting the balance.
	require.NoError(t, w.ChargeLocked(money(t, "50")))
	require.Equal(t, "50", w.Balance.String())
	require.True(t, w.Locked.IsZero())

	require.ErrorIs(t, w.ChargeLocked(money(t, "1")), ErrInsufficientFunds)
}

func TestWalletNeverGoesNegative(t *testing.T) {
	w, err := NewWallet("user-1", "XTR")
	require.NoError(t, err)
	require.NoError(t, w.Deposit(money(t, "25")))

	ops := []func() error{
		func() error { return w.LockFunds(money(t, "20")) },
		func() error { return w.ChargeLocked(money(t, "15")) },
		func() error { return w.UnlockFunds(money(t, "5")) },
		func() error { return w.LockFunds(money(t, "10")) },
		func() error { return w.ChargeLocked(money(t, "10")) },
	}
	for _, op := range ops {
		require.NoError(t, op())
		require.False(t, w.Balance.Amount().IsNegative())
		require.False(t, w.Locked.Amount().IsNegative())
	}
}
