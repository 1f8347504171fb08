package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Config selects the Redis server.
type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NewRedisClient dials and pings Redis.
func NewRedisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     50,
		MinIdleConns: 10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// advanceScript overwrites the snapshot hash only when the incoming
// sequence is newer than both the stored one and the invalidation fence.
//
// KEYS[1] snapshot hash
// ARGV: seq, amount, bidder_name, bidder_email, status, start_at, end_at, ttl_ms
var advanceScript = redis.NewScript(`
local fence = redis.call('HGET', KEYS[1], 'fence')
if fence and tonumber(fence) >= tonumber(ARGV[1]) then
	return 0
end
local cur = redis.call('HGET', KEYS[1], 'seq')
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1],
	'seq', ARGV[1],
	'amount', ARGV[2],
	'bidder_name', ARGV[3],
	'bidder_email', ARGV[4],
	'status', ARGV[5],
	'start_at', ARGV[6],
	'end_at', ARGV[7])
redis.call('PEXPIRE', KEYS[1], ARGV[8])
return 1
`)

// invalidateScript replaces the snapshot with a fence that only ever grows.
//
// KEYS[1] snapshot hash
// ARGV: fence seq, ttl_ms
var invalidateScript = redis.NewScript(`
local fence = ARGV[1]
local prev = redis.call('HGET', KEYS[1], 'fence')
if prev and tonumber(prev) > tonumber(fence) then
	fence = prev
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'fence', fence)
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// BidCache stores the latest bid snapshot of each product in Redis.
type BidCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBidCache(client *redis.Client, ttl time.Duration) *BidCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &BidCache{client: client, ttl: ttl}
}

func snapshotKey(productID uuid.UUID) string {
	return fmt.Sprintf("product:%s:bid", productID)
}

// Advance stores snap unless a snapshot with the same or a newer sequence
// is already cached. It reports whether snap was stored.
func (c *BidCache) Advance(ctx context.Context, snap models.BidSnapshot) (bool, error) {
	res, err := advanceScript.Run(ctx, c.client, []string{snapshotKey(snap.ProductID)},
		snap.Seq,
		snap.CurrentBid.String(),
		snap.BidderName,
		snap.BidderEmail,
		string(snap.Status),
		snap.StartAt.UTC().Format(time.RFC3339Nano),
		snap.EndAt.UTC().Format(time.RFC3339Nano),
		c.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to advance bid snapshot: %w", err)
	}
	return res == 1, nil
}

// Get returns the cached snapshot, or nil when none is cached.
func (c *BidCache) Get(ctx context.Context, productID uuid.UUID) (*models.BidSnapshot, error) {
	fields, err := c.client.HGetAll(ctx, snapshotKey(productID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read bid snapshot: %w", err)
	}
	if _, ok := fields["seq"]; !ok {
		return nil, nil
	}

	seq, err := strconv.ParseInt(fields["seq"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad cached seq %q: %w", fields["seq"], err)
	}
	amount, err := decimal.NewFromString(fields["amount"])
	if err != nil {
		return nil, fmt.Errorf("bad cached amount %q: %w", fields["amount"], err)
	}
	startAt, err := time.Parse(time.RFC3339Nano, fields["start_at"])
	if err != nil {
		return nil, fmt.Errorf("bad cached start %q: %w", fields["start_at"], err)
	}
	endAt, err := time.Parse(time.RFC3339Nano, fields["end_at"])
	if err != nil {
		return nil, fmt.Errorf("bad cached end %q: %w", fields["end_at"], err)
	}

	return &models.BidSnapshot{
		ProductID:   productID,
		CurrentBid:  amount,
		BidderName:  fields["bidder_name"],
		BidderEmail: fields["bidder_email"],
		Seq:         seq,
		Status:      models.ProductStatus(fields["status"]),
		StartAt:     startAt,
		EndAt:       endAt,
	}, nil
}

// Invalidate drops the cached snapshot of a product and refuses later
// fills at or below seq, so a read that raced the change cannot restore
// the old state.
func (c *BidCache) Invalidate(ctx context.Context, productID uuid.UUID, seq int64) error {
	err := invalidateScript.Run(ctx, c.client, []string{snapshotKey(productID)}, seq, c.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("failed to invalidate bid snapshot: %w", err)
	}
	return nil
}

func (c *BidCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
