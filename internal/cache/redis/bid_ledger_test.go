package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/roundauction/internal/domain"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), ClientConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBidLedgerRanking(t *testing.T) {
	ctx := context.Background()
	ledger := NewBidLedger(newTestClient(t))

	const auctionID = "auction-1"
	t1 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(5 * time.Second)

	// Equal amounts: the earlier bid ranks first.
	require.NoError(t, ledger.PlaceBid(ctx, auctionID, "alice", decimal.NewFromInt(100), t1))
	require.NoError(t, ledger.PlaceBid(ctx, auctionID, "bob", decimal.NewFromInt(100), t2))

	top, err := ledger.GetTopBidders(ctx, auctionID, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "alice", top[0].UserID)
	require.Equal(t, "bob", top[1].UserID)

	// The earlier bid still wins when the tie sits exactly on the cut.
	top, err = ledger.GetTopBidders(ctx, auctionID, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	require.Equal(t, "alice", top[0].UserID)

	rank, err := ledger.GetUserRank(ctx, auctionID, "alice")
	require.NoError(t, err)
	require.Equal(t, 0, rank)
	rank, err = ledger.GetUserRank(ctx, auctionID, "bob")
	require.NoError(t, err)
	require.Equal(t, 1, rank)

	// A strictly higher amount outranks both regardless of time.
	require.NoError(t, ledger.PlaceBid(ctx, auctionID, "carol", decimal.NewFromInt(101), t2.Add(time.Minute)))

	top, err = ledger.GetTopBidders(ctx, auctionID, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	require.Equal(t, "carol", top[0].UserID)
	require.Equal(t, "alice", top[1].UserID)
	require.Equal(t, "bob", top[2].UserID)

	rank, err = ledger.GetUserRank(ctx, auctionID, "carol")
	require.NoError(t, err)
	require.Equal(t, 0, rank)
	rank, err = ledger.GetUserRank(ctx, auctionID, "bob")
	require.NoError(t, err)
	require.Equal(t, 2, rank)
}

func TestBidLedgerUpsertReplacesEarlierBid(t *testing.T) {
	ctx := context.Background()
	ledger := NewBidLedger(newTestClient(t))

	const auctionID = "auction-1"
	t1 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.PlaceBid(ctx, auctionID, "alice", decimal.NewFromInt(50), t1))
	require.NoError(t, ledger.PlaceBid(ctx, auctionID, "alice", decimal.NewFromInt(75), t1.Add(time.Second)))

	bid, err := ledger.GetUserBid(ctx, auctionID, "alice")
	require.NoError(t, err)
	require.True(t, bid.Amount.Equal(decimal.NewFromInt(75)))

	top, err := ledger.GetTopBidders(ctx, auctionID, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
}

func TestBidLedgerGetUserBidNotFound(t *testing.T) {
	ctx := context.Background()
	ledger := NewBidLedger(newTestClient(t))

	_, err := ledger.GetUserBid(ctx, "auction-1", "nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = ledger.GetUserRank(ctx, "auction-1", "nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBidLedgerChunkAndRemove(t *testing.T) {
	ctx := context.Background()
	ledger := NewBidLedger(newTestClient(t))

	const auctionID = "auction-1"
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	users := []string{"u1", "u2", "u3", "u4", "u5"}
	for i, u := range users {
		amount := decimal.NewFromInt(int64(100 - i*10))
		require.NoError(t, ledger.PlaceBid(ctx, auctionID, u, amount, base.Add(time.Duration(i)*time.Second)))
	}

	// Page through in descending order. Raw pages partition the set; a
	// short page marks the end.
	chunk, err := ledger.GetBiddersChunk(ctx, auctionID, 0, 2)
	require.NoError(t, err)
	require.Len(t, chunk, 2)
	require.Equal(t, "u1", chunk[0].UserID)
	require.Equal(t, "u2", chunk[1].UserID)

	chunk, err = ledger.GetBiddersChunk(ctx, auctionID, 2, 2)
	require.NoError(t, err)
	require.Len(t, chunk, 2)
	require.Equal(t, "u3", chunk[0].UserID)

	chunk, err = ledger.GetBiddersChunk(ctx, auctionID, 4, 2)
	require.NoError(t, err)
	require.Len(t, chunk, 1)
	require.Equal(t, "u5", chunk[0].UserID)

	// Removal deletes both ranking entry and metadata.
	require.NoError(t, ledger.RemoveBidders(ctx, auctionID, []string{"u1", "u2"}))

	top, err := ledger.GetTopBidders(ctx, auctionID, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	require.Equal(t, "u3", top[0].UserID)

	_, err = ledger.GetUserBid(ctx, auctionID, "u1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBidLedgerScoreFallback(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	ledger := NewBidLedger(client)

	const auctionID = "auction-1"

	// A ranking entry without its metadata; the amount comes back from the
	// score and the placement time stays zero.
	require.NoError(t, client.Underlying().ZAdd(ctx, bidsKey(auctionID), goredis.Z{
		Score:  rankingScore(decimal.NewFromInt(42)),
		Member: "ghost",
	}).Err())

	top, err := ledger.GetTopBidders(ctx, auctionID, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	require.Equal(t, "ghost", top[0].UserID)
	require.True(t, top[0].Amount.Equal(decimal.NewFromInt(42)))
	require.True(t, top[0].PlacedAt.IsZero())
}
