package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/roundauction/internal/domain"
)

// BidLedger implements domain.BidLedger on a sorted set per auction keyed
// "auction:{id}:bids" plus a companion hash "auction:{id}:bids:meta". The
// sorted-set score is the bid amount as a float64 and only orders entries
// coarsely: float64 cannot also carry a placement-time tie-break at
// realistic amounts, so equal-score bands are resolved from the hash, which
// holds the exact amount and placement time and is the source of truth for
// both.
type BidLedger struct {
	rdb *redis.Client
}

// NewBidLedger creates a BidLedger backed by the given Client.
func NewBidLedger(c *Client) *BidLedger {
	return &BidLedger{rdb: c.Underlying()}
}

func bidsKey(auctionID string) string {
	return "auction:" + auctionID + ":bids"
}

func bidsMetaKey(auctionID string) string {
	return "auction:" + auctionID + ":bids:meta"
}

// rankingScore converts the exact amount to the sorted-set score. The
// conversion is monotone, so a strictly smaller score always means a
// strictly smaller amount; amounts too close together collapse onto one
// score and are ordered by the metadata instead.
func rankingScore(amount decimal.Decimal) float64 {
	return amount.InexactFloat64()
}

// formatScore renders a score so it parses back to the identical float64.
func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func encodeBidMeta(amount decimal.Decimal, placedAt time.Time) string {
	return amount.String() + "|" + strconv.FormatInt(placedAt.UnixMilli(), 10)
}

func decodeBidMeta(userID, raw string) (domain.Bid, error) {
	amountStr, tsStr, ok := strings.Cut(raw, "|")
	if !ok {
		return domain.Bid{}, fmt.Errorf("redis: malformed bid meta for %s: %q", userID, raw)
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return domain.Bid{}, fmt.Errorf("redis: parse bid amount for %s: %w", userID, err)
	}
	ms, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return domain.Bid{}, fmt.Errorf("redis: parse bid time for %s: %w", userID, err)
	}
	return domain.Bid{
		UserID:   userID,
		Amount:   amount,
		PlacedAt: time.UnixMilli(ms).UTC(),
	}, nil
}

// sortBids orders resolved bids by exact amount descending, then placement
// time ascending, then user id for determinism.
func sortBids(bids []domain.Bid) {
	sort.SliceStable(bids, func(i, j int) bool {
		if c := bids[i].Amount.Cmp(bids[j].Amount); c != 0 {
			return c > 0
		}
		if !bids[i].PlacedAt.Equal(bids[j].PlacedAt) {
			return bids[i].PlacedAt.Before(bids[j].PlacedAt)
		}
		return bids[i].UserID < bids[j].UserID
	})
}

// PlaceBid upserts the user's bid, writing the ranking entry and the exact
// metadata in one transaction so no reader observes one without the other.
func (bl *BidLedger) PlaceBid(ctx context.Context, auctionID, userID string, amount decimal.Decimal, placedAt time.Time) error {
	pipe := bl.rdb.TxPipeline()
	pipe.ZAdd(ctx, bidsKey(auctionID), redis.Z{
		Score:  rankingScore(amount),
		Member: userID,
	})
	pipe.HSet(ctx, bidsMetaKey(auctionID), userID, encodeBidMeta(amount, placedAt))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: place bid %s/%s: %w", auctionID, userID, err)
	}
	return nil
}

// GetUserBid returns the user's current bid from the metadata hash. It
// returns domain.ErrNotFound when the user has no bid in this auction.
func (bl *BidLedger) GetUserBid(ctx context.Context, auctionID, userID string) (domain.Bid, error) {
	raw, err := bl.rdb.HGet(ctx, bidsMetaKey(auctionID), userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Bid{}, domain.ErrNotFound
		}
		return domain.Bid{}, fmt.Errorf("redis: get bid %s/%s: %w", auctionID, userID, err)
	}
	return decodeBidMeta(userID, raw)
}

// GetUserRank returns the user's 0-based descending rank, or
// domain.ErrNotFound when the user has no ranking entry. Entries sharing
// the user's score are ordered by their metadata before the rank within
// the band is assigned.
func (bl *BidLedger) GetUserRank(ctx context.Context, auctionID, userID string) (int, error) {
	key := bidsKey(auctionID)

	score, err := bl.rdb.ZScore(ctx, key, userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("redis: get rank %s/%s: %w", auctionID, userID, err)
	}

	higher, err := bl.rdb.ZCount(ctx, key, "("+formatScore(score), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("redis: get rank %s/%s: %w", auctionID, userID, err)
	}

	band, err := bl.scoreBand(ctx, auctionID, score)
	if err != nil {
		return 0, err
	}
	if len(band) <= 1 {
		return int(higher), nil
	}

	bids, err := bl.resolveBids(ctx, auctionID, band)
	if err != nil {
		return 0, err
	}
	sortBids(bids)
	for i, b := range bids {
		if b.UserID == userID {
			return int(higher) + i, nil
		}
	}
	return 0, fmt.Errorf("redis: get rank %s/%s: entry vanished mid-read: %w", auctionID, userID, domain.ErrNotFound)
}

// GetTopBidders returns up to limit bids in descending ranking order. The
// fetch window is widened to cover the whole score band at the cut so a tie
// straddling the limit is resolved before the list is truncated.
func (bl *BidLedger) GetTopBidders(ctx context.Context, auctionID string, limit int) ([]domain.Bid, error) {
	if limit <= 0 {
		return nil, nil
	}
	key := bidsKey(auctionID)

	window, err := bl.rdb.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: top bidders %s: %w", auctionID, err)
	}
	if len(window) == 0 {
		return nil, nil
	}

	members := make([]string, 0, len(window))
	seen := make(map[string]struct{}, len(window))
	for _, z := range window {
		id, _ := z.Member.(string)
		members = append(members, id)
		seen[id] = struct{}{}
	}

	boundary, err := bl.scoreBand(ctx, auctionID, window[len(window)-1].Score)
	if err != nil {
		return nil, err
	}
	for _, id := range boundary {
		if _, ok := seen[id]; !ok {
			members = append(members, id)
		}
	}

	bids, err := bl.resolveBids(ctx, auctionID, members)
	if err != nil {
		return nil, err
	}
	sortBids(bids)
	if len(bids) > limit {
		bids = bids[:limit]
	}
	return bids, nil
}

// GetBiddersChunk returns one raw page of the ranking structure. Pages
// partition the set completely; callers advance offset by the page size
// they requested and filter on their side.
func (bl *BidLedger) GetBiddersChunk(ctx context.Context, auctionID string, offset, limit int) ([]domain.Bid, error) {
	if limit <= 0 {
		return nil, nil
	}
	members, err := bl.rdb.ZRevRange(ctx, bidsKey(auctionID), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: bidders chunk %s: %w", auctionID, err)
	}
	return bl.resolveBids(ctx, auctionID, members)
}

// RemoveBidders deletes ranking entries and metadata for the given users.
func (bl *BidLedger) RemoveBidders(ctx context.Context, auctionID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	members := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		members[i] = id
	}

	pipe := bl.rdb.TxPipeline()
	pipe.ZRem(ctx, bidsKey(auctionID), members...)
	pipe.HDel(ctx, bidsMetaKey(auctionID), userIDs...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: remove bidders %s: %w", auctionID, err)
	}
	return nil
}

// scoreBand returns every member holding exactly the given score.
func (bl *BidLedger) scoreBand(ctx context.Context, auctionID string, score float64) ([]string, error) {
	s := formatScore(score)
	members, err := bl.rdb.ZRangeByScore(ctx, bidsKey(auctionID), &redis.ZRangeBy{
		Min: s,
		Max: s,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: score band %s: %w", auctionID, err)
	}
	return members, nil
}

// resolveBids loads metadata for ranked members, preserving order. A member
// whose metadata is missing falls back to the amount recovered from the
// ranking score; the placement time is then unknown.
func (bl *BidLedger) resolveBids(ctx context.Context, auctionID string, members []string) ([]domain.Bid, error) {
	if len(members) == 0 {
		return nil, nil
	}

	vals, err := bl.rdb.HMGet(ctx, bidsMetaKey(auctionID), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: bid meta %s: %w", auctionID, err)
	}

	bids := make([]domain.Bid, 0, len(members))
	for i, member := range members {
		raw, ok := vals[i].(string)
		if !ok {
			bid, fbErr := bl.bidFromScore(ctx, auctionID, member)
			if fbErr != nil {
				return nil, fbErr
			}
			bids = append(bids, bid)
			continue
		}
		bid, decErr := decodeBidMeta(member, raw)
		if decErr != nil {
			return nil, decErr
		}
		bids = append(bids, bid)
	}
	return bids, nil
}

func (bl *BidLedger) bidFromScore(ctx context.Context, auctionID, userID string) (domain.Bid, error) {
	score, err := bl.rdb.ZScore(ctx, bidsKey(auctionID), userID).Result()
	if err != nil {
		return domain.Bid{}, fmt.Errorf("redis: bid score fallback %s/%s: %w", auctionID, userID, err)
	}
	return domain.Bid{
		UserID: userID,
		Amount: decimal.NewFromFloat(score),
	}, nil
}

// Compile-time interface check.
var _ domain.BidLedger = (*BidLedger)(nil)
