package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/owentar/zeta-hackathon/internal/store"
)

const payloadField = "payload"

// Stream owns the Redis connection shared by the queue and health checks.
type Stream struct {
	client *redis.Client
}

func NewStream(url string) (*Stream, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Stream{client: client}, nil
}

func (s *Stream) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Stream) Close() error {
	return s.client.Close()
}

func (s *Stream) Client() *redis.Client {
	return s.client
}

type QueueConfig struct {
	Stream   string
	Group    string
	Consumer string
	// BlockTimeout bounds a single XREADGROUP call so delayed jobs get
	// promoted even when the stream is idle.
	BlockTimeout time.Duration
	// ClaimIdle is how long a delivery may stay pending before another
	// consumer takes it over (crashed worker).
	ClaimIdle time.Duration
	// PromoteBatch caps delayed jobs moved back per Receive.
	PromoteBatch int
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.Stream == "" {
		c.Stream = "agelens:airdrop"
	}
	if c.Group == "" {
		c.Group = "airdrop-workers"
	}
	if c.Consumer == "" {
		c.Consumer = "worker-1"
	}
	if c.BlockTimeout <= 0 {
		c.BlockTimeout = 5 * time.Second
	}
	if c.ClaimIdle <= 0 {
		c.ClaimIdle = 10 * time.Minute
	}
	if c.PromoteBatch <= 0 {
		c.PromoteBatch = 100
	}
	return c
}

func (c QueueConfig) delayedKey() string { return c.Stream + ":delayed" }
func (c QueueConfig) deadKey() string    { return c.Stream + ":dead" }

// promoteScript atomically moves due members of the delayed ZSET back onto
// the stream so two workers never promote the same job twice.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, m in ipairs(due) do
	redis.call('ZREM', KEYS[1], m)
	redis.call('XADD', KEYS[2], '*', 'payload', m)
end
return #due
`)

// StreamQueue implements store.JobQueue on Redis Streams with one consumer
// group. Retries wait in a ZSET scored by due time; dead letters go to a
// separate stream.
type StreamQueue struct {
	client *redis.Client
	cfg    QueueConfig
	now    func() time.Time
}

var _ store.JobQueue = (*StreamQueue)(nil)

func NewStreamQueue(ctx context.Context, s *Stream, cfg QueueConfig) (*StreamQueue, error) {
	cfg = cfg.withDefaults()
	q := &StreamQueue{client: s.client, cfg: cfg, now: time.Now}

	err := q.client.XGroupCreateMkStream(ctx, cfg.Stream, cfg.Group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return nil, fmt.Errorf("create consumer group %s on %s: %w", cfg.Group, cfg.Stream, err)
	}
	return q, nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func (q *StreamQueue) Enqueue(ctx context.Context, payload []byte) (string, error) {
	id, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.cfg.Stream,
		Values: map[string]any{payloadField: string(payload)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", q.cfg.Stream, err)
	}
	return id, nil
}

func (q *StreamQueue) Receive(ctx context.Context) (*store.Delivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := q.promoteDue(ctx); err != nil {
			return nil, err
		}

		d, err := q.claimStale(ctx)
		if err != nil || d != nil {
			return d, err
		}

		res, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.cfg.Group,
			Consumer: q.cfg.Consumer,
			Streams:  []string{q.cfg.Stream, ">"},
			Count:    1,
			Block:    q.cfg.BlockTimeout,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("xreadgroup %s: %w", q.cfg.Stream, err)
		}
		for _, s := range res {
			for _, m := range s.Messages {
				return toDelivery(m), nil
			}
		}
	}
}

func (q *StreamQueue) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(q.now().UnixMilli(), 10)
	err := promoteScript.Run(ctx, q.client,
		[]string{q.cfg.delayedKey(), q.cfg.Stream}, now, q.cfg.PromoteBatch,
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("promote delayed jobs: %w", err)
	}
	return nil
}

func (q *StreamQueue) claimStale(ctx context.Context) (*store.Delivery, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.cfg.Stream,
		Group:    q.cfg.Group,
		Consumer: q.cfg.Consumer,
		MinIdle:  q.cfg.ClaimIdle,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xautoclaim %s: %w", q.cfg.Stream, err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return toDelivery(msgs[0]), nil
}

func toDelivery(m redis.XMessage) *store.Delivery {
	d := &store.Delivery{ID: m.ID}
	switch v := m.Values[payloadField].(type) {
	case string:
		d.Payload = []byte(v)
	case []byte:
		d.Payload = v
	}
	return d
}

func (q *StreamQueue) Ack(ctx context.Context, d *store.Delivery) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAck(ctx, q.cfg.Stream, q.cfg.Group, d.ID)
		pipe.XDel(ctx, q.cfg.Stream, d.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("ack %s: %w", d.ID, err)
	}
	return nil
}

func (q *StreamQueue) RetryLater(ctx context.Context, d *store.Delivery, payload []byte, delay time.Duration) error {
	due := q.now().Add(delay).UnixMilli()
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, q.cfg.delayedKey(), redis.Z{Score: float64(due), Member: string(payload)})
		pipe.XAck(ctx, q.cfg.Stream, q.cfg.Group, d.ID)
		pipe.XDel(ctx, q.cfg.Stream, d.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("schedule retry of %s: %w", d.ID, err)
	}
	return nil
}

func (q *StreamQueue) DeadLetter(ctx context.Context, d *store.Delivery, payload []byte, reason string) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: q.cfg.deadKey(),
			Values: map[string]any{
				payloadField:  string(payload),
				"reason":      reason,
				"original_id": d.ID,
			},
		})
		pipe.XAck(ctx, q.cfg.Stream, q.cfg.Group, d.ID)
		pipe.XDel(ctx, q.cfg.Stream, d.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("dead-letter %s: %w", d.ID, err)
	}
	return nil
}

func (q *StreamQueue) Stats(ctx context.Context) (store.QueueStats, error) {
	var (
		stats   store.QueueStats
		ready   *redis.IntCmd
		delayed *redis.IntCmd
		dead    *redis.IntCmd
		pending *redis.XPendingCmd
	)
	_, err := q.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		ready = pipe.XLen(ctx, q.cfg.Stream)
		delayed = pipe.ZCard(ctx, q.cfg.delayedKey())
		dead = pipe.XLen(ctx, q.cfg.deadKey())
		pending = pipe.XPending(ctx, q.cfg.Stream, q.cfg.Group)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return stats, fmt.Errorf("queue stats: %w", err)
	}
	stats.Delayed = delayed.Val()
	stats.DeadLetter = dead.Val()
	if p := pending.Val(); p != nil {
		stats.Pending = p.Count
	}
	// XLEN counts pending entries too; they are removed only on settle.
	stats.Ready = ready.Val() - stats.Pending
	if stats.Ready < 0 {
		stats.Ready = 0
	}
	return stats, nil
}

// Close is a no-op; the connection belongs to Stream.
func (q *StreamQueue) Close() error { return nil }
