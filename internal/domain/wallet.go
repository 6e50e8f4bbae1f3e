package domain

import (
	"fmt"
	"time"
)

// Wallet holds a user's spendable balance and the funds locked against
// outstanding bids. Its id equals the owning user's id. Balance and locked
// never go negative; every mutation checks its precondition first.
type Wallet struct {
	ID        string
	Balance   Money
	Locked    Money
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewWallet builds an empty wallet for the given user.
func NewWallet(userID, currency string) (*Wallet, error) {
	if userID == "" {
		return nil, fmt.Errorf("wallet: user id is required: %w", ErrNotProvided)
	}
	now := time.Now().UTC()
	return &Wallet{
		ID:        userID,
		Balance:   ZeroMoney(currency),
		Locked:    ZeroMoney(currency),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Deposit credits the spendable balance.
func (w *Wallet) Deposit(amount Money) error {
	balance, err := w.Balance.Add(amount)
	if err != nil {
		return err
	}
	w.Balance = balance
	return nil
}

// LockFunds moves amount from balance to locked. Fails with
// ErrInsufficientFunds when the balance does not cover the amount.
func (w *Wallet) LockFunds(amount Money) error {
	ok, err := w.Balance.GreaterThanOrEqual(amount)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("wallet %s: lock %s: %w", w.ID, amount, ErrInsufficientFunds)
	}

	balance, err := w.Balance.Subtract(amount)
	if err != nil {
		return err
	}
	locked, err := w.Locked.Add(amount)
	if err != nil {
		return err
	}
	w.Balance = balance
	w.Locked = locked
	return nil
}

// UnlockFunds moves amount from locked back to balance.
func (w *Wallet) UnlockFunds(amount Money) error {
	ok, err := w.Locked.GreaterThanOrEqual(amount)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("wallet %s: unlock %s: %w", w.ID, amount, ErrInsufficientFunds)
	}

	locked, err := w.Locked.Subtract(amount)
	if err != nil {
		return err
	}
	balance, err := w.Balance.Add(amount)
	if err != nil {
		return err
	}
	w.Locked = locked
	w.Balance = balance
	return nil
}

// ChargeLocked removes amount from locked funds. The money leaves the
// system; nothing is credited back to the balance.
func (w *Wallet) ChargeLocked(amount Money) error {
	ok, err := w.Locked.GreaterThanOrEqual(amount)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("wallet %s: charge %s: %w", w.ID, amount, ErrInsufficientFunds)
	}

	locked, err := w.Locked.Subtract(amount)
	if err != nil {
		return err
	}
	w.Locked = locked
	return nil
}
