package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alanyoungcy/roundauction/internal/domain"
)

// AuctionStore implements domain.AuctionStore on PostgreSQL.
type AuctionStore struct {
	client *Client
}

var _ domain.AuctionStore = (*AuctionStore)(nil)

// NewAuctionStore creates an AuctionStore backed by the given client.
func NewAuctionStore(client *Client) *AuctionStore {
	return &AuctionStore{client: client}
}

const auctionColumns = `
	id, title, gift_name, status, total_items, rounds_total, items_per_round,
	round_duration_seconds, current_round_number, current_round_ends_at,
	entry_price_amount, entry_price_currency, created_at, updated_at`

// NUMERIC columns are cast to text so they scan losslessly into strings.
const auctionSelectColumns = `
	id, title, gift_name, status, total_items, rounds_total, items_per_round,
	round_duration_seconds, current_round_number, current_round_ends_at,
	entry_price_amount::text, entry_price_currency, created_at, updated_at`

// Create inserts a new auction row.
func (s *AuctionStore) Create(ctx context.Context, a *domain.Auction) error {
	query := `
		INSERT INTO auctions (` + auctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := s.client.Pool().Exec(ctx, query,
		a.ID, a.Title, a.GiftName, string(a.Status),
		a.TotalItems, a.RoundsTotal, a.ItemsPerRound,
		a.RoundDurationSeconds, a.CurrentRoundNumber, a.CurrentRoundEndsAt,
		a.EntryPrice.String(), a.EntryPrice.Currency(),
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("auction %s: %w", a.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert auction: %w", err)
	}
	return nil
}

// Get fetches an auction by id.
func (s *AuctionStore) Get(ctx context.Context, id string) (*domain.Auction, error) {
	query := `SELECT ` + auctionSelectColumns + ` FROM auctions WHERE id = $1`
	return s.fetchOne(ctx, query, id)
}

// GetActiveRound fetches the auction only when it is ACTIVE and its current
// round matches roundNumber.
func (s *AuctionStore) GetActiveRound(ctx context.Context, id string, roundNumber int) (*domain.Auction, error) {
	query := `
		SELECT ` + auctionSelectColumns + `
		FROM auctions
		WHERE id = $1 AND status = $2 AND current_round_number = $3`
	return s.fetchOne(ctx, query, id, string(domain.AuctionStatusActive), roundNumber)
}

// Update rewrites the mutable fields of an auction row.
func (s *AuctionStore) Update(ctx context.Context, a *domain.Auction) error {
	query := `
		UPDATE auctions
		SET status = $2,
			current_round_number = $3,
			current_round_ends_at = $4,
			updated_at = $5
		WHERE id = $1`

	tag, err := s.client.Pool().Exec(ctx, query,
		a.ID, string(a.Status), a.CurrentRoundNumber, a.CurrentRoundEndsAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update auction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("auction %s: %w", a.ID, domain.ErrNotFound)
	}
	return nil
}

// List returns all auctions, newest first.
func (s *AuctionStore) List(ctx context.Context) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionSelectColumns + ` FROM auctions ORDER BY created_at DESC`

	rows, err := s.client.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	return auctions, nil
}

func (s *AuctionStore) fetchOne(ctx context.Context, query string, args ...any) (*domain.Auction, error) {
	rows, err := s.client.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query auction: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query auction: %w", err)
		}
		return nil, fmt.Errorf("auction: %w", domain.ErrNotFound)
	}
	return scanAuction(rows)
}

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	var (
		a           domain.Auction
		status      string
		endsAt      *time.Time
		priceAmount string
		priceCur    string
	)
	err := row.Scan(
		&a.ID, &a.Title, &a.GiftName, &status,
		&a.TotalItems, &a.RoundsTotal, &a.ItemsPerRound,
		&a.RoundDurationSeconds, &a.CurrentRoundNumber, &endsAt,
		&priceAmount, &priceCur, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("auction: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan auction: %w", err)
	}

	a.Status = domain.AuctionStatus(status)
	a.CurrentRoundEndsAt = endsAt
	a.EntryPrice, err = domain.MoneyFromString(priceAmount, priceCur)
	if err != nil {
		return nil, fmt.Errorf("scan auction entry price: %w", err)
	}
	return &a, nil
}
