package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDelayQueueScheduleKeepsEarliestDueTime(t *testing.T) {
	ctx := context.Background()
	queue := NewDelayQueue(newTestClient(t))

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, queue.ScheduleRoundEnd(ctx, "auction-1", 1, base))
	// A second schedule for the same round must not move the wake-up.
	require.NoError(t, queue.ScheduleRoundEnd(ctx, "auction-1", 1, base.Add(time.Hour)))

	jobs, err := queue.ClaimDue(ctx, base.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "auction-1", jobs[0].AuctionID)
	require.Equal(t, 1, jobs[0].RoundNumber)
}

func TestDelayQueueClaimDueIsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	queue := NewDelayQueue(newTestClient(t))

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, queue.ScheduleRoundEnd(ctx, "auction-1", 1, base))
	require.NoError(t, queue.ScheduleRoundEnd(ctx, "auction-2", 3, base.Add(time.Second)))
	require.NoError(t, queue.ScheduleRoundEnd(ctx, "auction-3", 1, base.Add(time.Hour)))

	now := base.Add(2 * time.Second)
	jobs, err := queue.ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.Equal(t, "auction-1", jobs[0].AuctionID)
	require.Equal(t, "auction-2", jobs[1].AuctionID)
	require.Equal(t, 3, jobs[1].RoundNumber)

	// Claimed jobs are gone; the future one stays.
	jobs, err = queue.ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	require.Empty(t, jobs)

	jobs, err = queue.ClaimDue(ctx, base.Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "auction-3", jobs[0].AuctionID)
}

func TestDelayQueueClaimDueHonorsLimit(t *testing.T) {
	ctx := context.Background()
	queue := NewDelayQueue(newTestClient(t))

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, queue.ScheduleRoundEnd(ctx, "auction-1", i+1, base.Add(time.Duration(i)*time.Second)))
	}

	now := base.Add(time.Minute)
	jobs, err := queue.ClaimDue(ctx, now, 3)
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	jobs, err = queue.ClaimDue(ctx, now, 3)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
}

func TestDelayQueueRescheduleAddsSupersedingJob(t *testing.T) {
	ctx := context.Background()
	queue := NewDelayQueue(newTestClient(t))

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, queue.ScheduleRoundEnd(ctx, "auction-1", 1, base))
	require.NoError(t, queue.RescheduleRoundEnd(ctx, "auction-1", 1, base.Add(30*time.Second)))

	// The original wake-up fires first.
	jobs, err := queue.ClaimDue(ctx, base.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "auction-1", jobs[0].AuctionID)
	require.Equal(t, 1, jobs[0].RoundNumber)

	// The superseding wake-up, with its nonce suffix, still parses to the
	// same round.
	jobs, err = queue.ClaimDue(ctx, base.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "auction-1", jobs[0].AuctionID)
	require.Equal(t, 1, jobs[0].RoundNumber)
	require.NotEqual(t, settleJobID("auction-1", 1), jobs[0].JobID)
}

func TestParseSettleJob(t *testing.T) {
	job, err := parseSettleJob("settle-round:auction-1:4")
	require.NoError(t, err)
	require.Equal(t, "auction-1", job.AuctionID)
	require.Equal(t, 4, job.RoundNumber)

	_, err = parseSettleJob("something-else:auction-1:4")
	require.Error(t, err)
	_, err = parseSettleJob("settle-round:auction-1:not-a-number")
	require.Error(t, err)
}
