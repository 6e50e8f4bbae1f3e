package domain

import "context"

// AuctionStore persists auction aggregates.
type AuctionStore interface {
	Create(ctx context.Context, a *Auction) error
	Get(ctx context.Context, id string) (*Auction, error)
	// GetActiveRound fetches the auction only when it is ACTIVE and its
	// current round matches roundNumber. Returns ErrNotFound otherwise.
	GetActiveRound(ctx context.Context, id string, roundNumber int) (*Auction, error)
	Update(ctx context.Context, a *Auction) error
	List(ctx context.Context) ([]*Auction, error)
}

// WalletStore persists wallets. Update applies fn to the current wallet
// state atomically with respect to that record; when fn returns an error
// nothing is written and the error is returned unchanged.
type WalletStore interface {
	Create(ctx context.Context, w *Wallet) error
	Get(ctx context.Context, id string) (*Wallet, error)
	Update(ctx context.Context, id string, fn func(w *Wallet) error) error
}

// RoundResultStore persists immutable per-round settlement results.
type RoundResultStore interface {
	// Insert writes the result unless one already exists for the same
	// (auction, round) key. It reports whether the write happened; false
	// means a result was already recorded.
	Insert(ctx context.Context, r RoundResult) (bool, error)
	ListByAuction(ctx context.Context, auctionID string) ([]RoundResult, error)
}

// UserStore persists registered bidders.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
}
