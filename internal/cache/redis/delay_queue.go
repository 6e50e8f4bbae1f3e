package redis

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/roundauction/internal/domain"
)

//go:embed scripts/claim_due.lua
var claimDueLua string

// settleQueueKey is the sorted set holding pending settlement wake-ups,
// scored by due time in Unix milliseconds.
const settleQueueKey = "jobs:settle-round"

// DelayQueue implements domain.RoundScheduler as a durable delayed-job queue
// on a Redis sorted set. Jobs survive process restarts and a Lua claim
// script hands each due job to exactly one worker.
type DelayQueue struct {
	rdb      *redis.Client
	claimDue *redis.Script
}

// NewDelayQueue creates a DelayQueue backed by the given Client.
func NewDelayQueue(c *Client) *DelayQueue {
	return &DelayQueue{
		rdb:      c.Underlying(),
		claimDue: redis.NewScript(claimDueLua),
	}
}

func settleJobID(auctionID string, roundNumber int) string {
	return fmt.Sprintf("settle-round:%s:%d", auctionID, roundNumber)
}

// ScheduleRoundEnd enqueues the wake-up for a round under its canonical job
// id. NX keeps the earliest pending due time when the round was already
// scheduled.
func (q *DelayQueue) ScheduleRoundEnd(ctx context.Context, auctionID string, roundNumber int, endsAt time.Time) error {
	err := q.rdb.ZAddNX(ctx, settleQueueKey, redis.Z{
		Score:  float64(endsAt.UnixMilli()),
		Member: settleJobID(auctionID, roundNumber),
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: schedule round end %s/%d: %w", auctionID, roundNumber, err)
	}
	return nil
}

// RescheduleRoundEnd enqueues a fresh wake-up for an extended round. The job
// id carries a unique suffix so the superseded wake-up is left in place; it
// fires, checks the live deadline, and no-ops.
func (q *DelayQueue) RescheduleRoundEnd(ctx context.Context, auctionID string, roundNumber int, endsAt time.Time) error {
	member := settleJobID(auctionID, roundNumber) + ":" + uuid.New().String()
	err := q.rdb.ZAdd(ctx, settleQueueKey, redis.Z{
		Score:  float64(endsAt.UnixMilli()),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: reschedule round end %s/%d: %w", auctionID, roundNumber, err)
	}
	return nil
}

// ClaimDue atomically removes and returns up to limit due jobs. Members the
// claimer cannot parse are dropped with an error so a poisoned entry cannot
// wedge the queue.
func (q *DelayQueue) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.SettleJob, error) {
	if limit <= 0 {
		return nil, nil
	}

	raw, err := q.claimDue.Run(ctx, q.rdb,
		[]string{settleQueueKey},
		now.UnixMilli(),
		limit,
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("redis: claim due jobs: %w", err)
	}

	jobs := make([]domain.SettleJob, 0, len(raw))
	for _, member := range raw {
		job, parseErr := parseSettleJob(member)
		if parseErr != nil {
			return jobs, parseErr
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// parseSettleJob splits "settle-round:{auctionID}:{round}[:{nonce}]".
func parseSettleJob(member string) (domain.SettleJob, error) {
	parts := strings.Split(member, ":")
	if len(parts) < 3 || parts[0] != "settle-round" {
		return domain.SettleJob{}, fmt.Errorf("redis: malformed settle job %q", member)
	}
	round, err := strconv.Atoi(parts[2])
	if err != nil {
		return domain.SettleJob{}, fmt.Errorf("redis: malformed settle job round %q: %w", member, err)
	}
	return domain.SettleJob{
		JobID:       member,
		AuctionID:   parts[1],
		RoundNumber: round,
	}, nil
}

// Compile-time interface check.
var _ domain.RoundScheduler = (*DelayQueue)(nil)
