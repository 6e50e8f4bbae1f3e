package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/roundauction/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memAuctionStore is an in-memory domain.AuctionStore.
type memAuctionStore struct {
	mu       sync.Mutex
	auctions map[string]*domain.Auction
}

func newMemAuctionStore() *memAuctionStore {
	return &memAuctionStore{auctions: make(map[string]*domain.Auction)}
}

func (s *memAuctionStore) Create(_ context.Context, a *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[a.ID]; ok {
		return fmt.Errorf("auction %s: %w", a.ID, domain.ErrAlreadyExists)
	}
	clone := *a
	s.auctions[a.ID] = &clone
	return nil
}

func (s *memAuctionStore) Get(_ context.Context, id string) (*domain.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return nil, fmt.Errorf("auction %s: %w", id, domain.ErrNotFound)
	}
	clone := *a
	return &clone, nil
}

func (s *memAuctionStore) GetActiveRound(ctx context.Context, id string, roundNumber int) (*domain.Auction, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.AuctionStatusActive || a.CurrentRoundNumber != roundNumber {
		return nil, fmt.Errorf("auction %s round %d: %w", id, roundNumber, domain.ErrNotFound)
	}
	return a, nil
}

func (s *memAuctionStore) Update(_ context.Context, a *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[a.ID]; !ok {
		return fmt.Errorf("auction %s: %w", a.ID, domain.ErrNotFound)
	}
	clone := *a
	s.auctions[a.ID] = &clone
	return nil
}

func (s *memAuctionStore) List(_ context.Context) ([]*domain.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Auction, 0, len(s.auctions))
	for _, a := range s.auctions {
		clone := *a
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// memWalletStore is an in-memory domain.WalletStore.
type memWalletStore struct {
	mu      sync.Mutex
	wallets map[string]*domain.Wallet
}

func newMemWalletStore() *memWalletStore {
	return &memWalletStore{wallets: make(map[string]*domain.Wallet)}
}

func (s *memWalletStore) Create(_ context.Context, w *domain.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[w.ID]; ok {
		return fmt.Errorf("wallet %s: %w", w.ID, domain.ErrAlreadyExists)
	}
	clone := *w
	s.wallets[w.ID] = &clone
	return nil
}

func (s *memWalletStore) Get(_ context.Context, id string) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[id]
	if !ok {
		return nil, fmt.Errorf("wallet %s: %w", id, domain.ErrNotFound)
	}
	clone := *w
	return &clone, nil
}

func (s *memWalletStore) Update(_ context.Context, id string, fn func(w *domain.Wallet) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[id]
	if !ok {
		return fmt.Errorf("wallet %s: %w", id, domain.ErrNotFound)
	}
	clone := *w
	if err := fn(&clone); err != nil {
		return err
	}
	s.wallets[id] = &clone
	return nil
}

// memResultStore is an in-memory domain.RoundResultStore with the same
// insert-once behavior as the real one.
type memResultStore struct {
	mu      sync.Mutex
	results map[string]domain.RoundResult
}

func newMemResultStore() *memResultStore {
	return &memResultStore{results: make(map[string]domain.RoundResult)}
}

func resultKey(auctionID string, round int) string {
	return fmt.Sprintf("%s/%d", auctionID, round)
}

func (s *memResultStore) Insert(_ context.Context, r domain.RoundResult) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := resultKey(r.AuctionID, r.RoundNumber)
	if _, ok := s.results[key]; ok {
		return false, nil
	}
	s.results[key] = r
	return true, nil
}

func (s *memResultStore) ListByAuction(_ context.Context, auctionID string) ([]domain.RoundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RoundResult
	for _, r := range s.results {
		if r.AuctionID == auctionID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out, nil
}

// memUserStore is an in-memory domain.UserStore.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*domain.User)}
}

func (s *memUserStore) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("user %s: %w", u.ID, domain.ErrAlreadyExists)
	}
	clone := *u
	s.users[u.ID] = &clone
	return nil
}

func (s *memUserStore) Get(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	clone := *u
	return &clone, nil
}

// scheduleCall records one scheduler invocation.
type scheduleCall struct {
	AuctionID   string
	RoundNumber int
	EndsAt      time.Time
}

// recordScheduler is a domain.RoundScheduler that records calls.
type recordScheduler struct {
	mu          sync.Mutex
	scheduled   []scheduleCall
	rescheduled []scheduleCall
}

func (s *recordScheduler) ScheduleRoundEnd(_ context.Context, auctionID string, roundNumber int, endsAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, scheduleCall{auctionID, roundNumber, endsAt})
	return nil
}

func (s *recordScheduler) RescheduleRoundEnd(_ context.Context, auctionID string, roundNumber int, endsAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rescheduled = append(s.rescheduled, scheduleCall{auctionID, roundNumber, endsAt})
	return nil
}

func (s *recordScheduler) ClaimDue(_ context.Context, _ time.Time, _ int) ([]domain.SettleJob, error) {
	return nil, nil
}

// recordBus is a domain.EventBus that records published events.
type recordBus struct {
	mu     sync.Mutex
	events []domain.AuctionEvent
}

func (b *recordBus) Publish(_ context.Context, event domain.AuctionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordBus) Subscribe(_ context.Context) (<-chan domain.AuctionEvent, error) {
	ch := make(chan domain.AuctionEvent)
	close(ch)
	return ch, nil
}

var (
	_ domain.AuctionStore     = (*memAuctionStore)(nil)
	_ domain.WalletStore      = (*memWalletStore)(nil)
	_ domain.RoundResultStore = (*memResultStore)(nil)
	_ domain.UserStore        = (*memUserStore)(nil)
	_ domain.RoundScheduler   = (*recordScheduler)(nil)
	_ domain.EventBus         = (*recordBus)(nil)
)
