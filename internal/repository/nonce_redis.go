package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/library-seat-reservation/internal/model"
)

const nonceKeyPrefix = "nonce:"

// createNonceScript writes the hash only when the key is absent and sets
// its TTL in the same step.
var createNonceScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 1 then
		return 0
	end
	redis.call('HSET', KEYS[1], 'seatId', ARGV[1], 'userId', ARGV[2], 'createdAt', ARGV[3], 'used', '0')
	local ttl_ms = tonumber(ARGV[4])
	if ttl_ms > 0 then
		redis.call('PEXPIRE', KEYS[1], ttl_ms)
	end
	return 1
`)

// markUsedScript returns -1 when the nonce is unknown, 0 when it was
// already used and 1 when this call flipped it.
var markUsedScript = redis.NewScript(`
	local used = redis.call('HGET', KEYS[1], 'used')
	if not used then
		return -1
	end
	if used == '1' then
		return 0
	end
	redis.call('HSET', KEYS[1], 'used', '1', 'usedAt', ARGV[1])
	return 1
`)

// RedisNonceRepo keeps one hash per nonce.  Records expire after the
// retention period, after which the token they belong to has lapsed too.
type RedisNonceRepo struct {
	rdb       *redis.Client
	retention time.Duration
	timeout   time.Duration
}

// NewRedisNonceRepo returns a NonceStore over rdb.  A non-positive
// retention keeps records forever.
func NewRedisNonceRepo(rdb *redis.Client, retention, timeout time.Duration) *RedisNonceRepo {
	return &RedisNonceRepo{rdb: rdb, retention: retention, timeout: timeout}
}

func nonceKey(nonce string) string { return nonceKeyPrefix + nonce }

func (r *RedisNonceRepo) Create(ctx context.Context, n model.Nonce) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	created, err := createNonceScript.Run(ctx, r.rdb, []string{nonceKey(n.Nonce)},
		n.SeatID, n.UserID, n.CreatedAt.UTC().Format(time.RFC3339Nano), r.retention.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to create nonce: %w", err)
	}
	if created == 0 {
		return ErrNonceExists
	}
	return nil
}

func (r *RedisNonceRepo) Get(ctx context.Context, nonce string) (*model.Nonce, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	fields, err := r.rdb.HGetAll(ctx, nonceKey(nonce)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to find nonce: %w", err)
	}
	return decodeNonce(nonce, fields)
}

func (r *RedisNonceRepo) MarkUsed(ctx context.Context, nonce string, at time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := markUsedScript.Run(ctx, r.rdb, []string{nonceKey(nonce)},
		at.UTC().Format(time.RFC3339Nano)).Int64()
	if err != nil {
		return fmt.Errorf("failed to mark nonce used: %w", err)
	}
	switch res {
	case 1:
		return nil
	case 0:
		return ErrNonceUsed
	default:
		return ErrNonceNotFound
	}
}

// decodeNonce rebuilds a record from its hash fields.  An empty map is
// what HGETALL returns for a missing key.
func decodeNonce(nonce string, fields map[string]string) (*model.Nonce, error) {
	if len(fields) == 0 {
		return nil, ErrNonceNotFound
	}
	n := &model.Nonce{
		Nonce:  nonce,
		SeatID: fields["seatId"],
		UserID: fields["userId"],
	}
	var err error
	if n.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["createdAt"]); err != nil {
		return nil, fmt.Errorf("failed to decode nonce createdAt: %w", err)
	}
	if n.Used, err = strconv.ParseBool(fields["used"]); err != nil {
		return nil, fmt.Errorf("failed to decode nonce used flag: %w", err)
	}
	if v := fields["usedAt"]; v != "" {
		usedAt, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("failed to decode nonce usedAt: %w", err)
		}
		n.UsedAt = &usedAt
	}
	return n, nil
}
