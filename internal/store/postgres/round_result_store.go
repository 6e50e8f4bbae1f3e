package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/roundauction/internal/domain"
)

// RoundResultStore implements domain.RoundResultStore on PostgreSQL. The
// primary key on (auction_id, round_number) makes inserts idempotent: a
// second settlement of the same round writes nothing.
type RoundResultStore struct {
	client *Client
}

var _ domain.RoundResultStore = (*RoundResultStore)(nil)

// NewRoundResultStore creates a RoundResultStore backed by the given client.
func NewRoundResultStore(client *Client) *RoundResultStore {
	return &RoundResultStore{client: client}
}

type winnerRecord struct {
	Rank        int             `json:"rank"`
	UserID      string          `json:"userId"`
	BidAmount   decimal.Decimal `json:"bidAmount"`
	BidPlacedAt time.Time       `json:"bidPlacedAt"`
}

// Insert writes the result unless one already exists for the same round.
// It reports whether the row was written.
func (s *RoundResultStore) Insert(ctx context.Context, r domain.RoundResult) (bool, error) {
	records := make([]winnerRecord, 0, len(r.Winners))
	for _, w := range r.Winners {
		records = append(records, winnerRecord{
			Rank:        w.Rank,
			UserID:      w.UserID,
			BidAmount:   w.BidAmount,
			BidPlacedAt: w.BidPlacedAt,
		})
	}
	winners, err := json.Marshal(records)
	if err != nil {
		return false, fmt.Errorf("marshal round winners: %w", err)
	}

	query := `
		INSERT INTO round_results (auction_id, round_number, winners, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (auction_id, round_number) DO NOTHING`

	tag, err := s.client.Pool().Exec(ctx, query, r.AuctionID, r.RoundNumber, winners, r.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert round result: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByAuction returns all settled rounds of an auction in round order.
func (s *RoundResultStore) ListByAuction(ctx context.Context, auctionID string) ([]domain.RoundResult, error) {
	query := `
		SELECT auction_id, round_number, winners, created_at
		FROM round_results
		WHERE auction_id = $1
		ORDER BY round_number`

	rows, err := s.client.Pool().Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list round results: %w", err)
	}
	defer rows.Close()

	var results []domain.RoundResult
	for rows.Next() {
		var (
			r       domain.RoundResult
			winners []byte
		)
		if err := rows.Scan(&r.AuctionID, &r.RoundNumber, &winners, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan round result: %w", err)
		}

		var records []winnerRecord
		if err := json.Unmarshal(winners, &records); err != nil {
			return nil, fmt.Errorf("unmarshal round winners: %w", err)
		}
		r.Winners = make([]domain.RoundWinner, 0, len(records))
		for _, rec := range records {
			r.Winners = append(r.Winners, domain.RoundWinner{
				Rank:        rec.Rank,
				UserID:      rec.UserID,
				BidAmount:   rec.BidAmount,
				BidPlacedAt: rec.BidPlacedAt,
			})
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list round results: %w", err)
	}
	return results, nil
}
