package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sensacare/vitals/internal/compression"
	"github.com/sensacare/vitals/internal/config"
	"github.com/sensacare/vitals/internal/models"
	"github.com/sensacare/vitals/internal/utils"
)

// RedisStore keeps each user's readings in two keys:
//
//	<prefix>:readings:<user>  ZSET of reading IDs scored by unix milliseconds
//	<prefix>:payload:<user>   HASH of reading ID to framed JSON
//
// Profiles are plain JSON strings under <prefix>:profile:<user>.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	compressor compression.Compressor
}

// NewRedisStore connects and pings the server.
func NewRedisStore(cfg config.RedisConfig, algo compression.Algorithm) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), utils.StorageConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.KeyPrefix, algo)
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string, algo compression.Algorithm) (*RedisStore, error) {
	c, err := compression.GetCompressor(algo)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "vitals"
	}
	return &RedisStore{client: client, prefix: prefix, compressor: c}, nil
}

func (s *RedisStore) readingsKey(userID string) string { return s.prefix + ":readings:" + userID }
func (s *RedisStore) payloadKey(userID string) string  { return s.prefix + ":payload:" + userID }
func (s *RedisStore) profileKey(userID string) string  { return s.prefix + ":profile:" + userID }

func (s *RedisStore) SaveReadings(ctx context.Context, readings []models.VitalReading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	payloads := make([][]byte, len(readings))
	for i, r := range readings {
		raw, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("failed to encode reading %s: %w", r.ID, err)
		}
		framed, err := compression.Pack(s.compressor, raw)
		if err != nil {
			return 0, fmt.Errorf("failed to compress reading %s: %w", r.ID, err)
		}
		payloads[i] = framed
	}

	// Every reading is indexed, not just the new ones: ZADD of an existing
	// member and score is a no-op, and it repairs a payload left unindexed by
	// an earlier failed save. HSETNX decides what counts as stored.
	cmds := make([]*redis.BoolCmd, len(readings))
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, r := range readings {
			cmds[i] = pipe.HSetNX(ctx, s.payloadKey(r.UserID), r.ID, payloads[i])
			pipe.ZAdd(ctx, s.readingsKey(r.UserID), redis.Z{
				Score:  float64(r.Timestamp.UnixMilli()),
				Member: r.ID,
			})
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to store readings: %w", err)
	}

	stored := 0
	for _, cmd := range cmds {
		if cmd.Val() {
			stored++
		}
	}
	return stored, nil
}

func (s *RedisStore) rangeIDs(ctx context.Context, userID string, start, end time.Time) ([]string, error) {
	return s.client.ZRangeByScore(ctx, s.readingsKey(userID), &redis.ZRangeBy{
		Min: strconv.FormatInt(start.UnixMilli(), 10),
		Max: strconv.FormatInt(end.UnixMilli(), 10),
	}).Result()
}

// loadRange returns the readings whose exact timestamp lies in [start, end],
// ordered by timestamp.
func (s *RedisStore) loadRange(ctx context.Context, userID string, start, end time.Time) ([]models.VitalReading, error) {
	ids, err := s.rangeIDs(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to range readings: %w", err)
	}
	out := make([]models.VitalReading, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	values, err := s.client.HMGet(ctx, s.payloadKey(userID), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load readings: %w", err)
	}

	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// Index entry without payload: a concurrent delete.
			continue
		}
		raw, err := compression.Unpack([]byte(str))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress reading %s: %w", ids[i], err)
		}
		var r models.VitalReading
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("failed to decode reading %s: %w", ids[i], err)
		}
		// Scores are millisecond-truncated; recheck against the exact bounds.
		if inRange(r.Timestamp, start, end) {
			out = append(out, r)
		}
	}

	// ZSET ties within a millisecond come back in member order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *RedisStore) QueryReadings(ctx context.Context, userID string, start, end time.Time) ([]models.VitalReading, error) {
	return s.loadRange(ctx, userID, start, end)
}

func (s *RedisStore) DeleteReadings(ctx context.Context, userID string, start, end time.Time) (int, error) {
	readings, err := s.loadRange(ctx, userID, start, end)
	if err != nil {
		return 0, err
	}
	if len(readings) == 0 {
		return 0, nil
	}

	ids := make([]string, len(readings))
	members := make([]interface{}, len(readings))
	for i, r := range readings {
		ids[i] = r.ID
		members[i] = r.ID
	}

	var removed *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, s.readingsKey(userID), members...)
		removed = pipe.HDel(ctx, s.payloadKey(userID), ids...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete readings: %w", err)
	}
	return int(removed.Val()), nil
}

func (s *RedisStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	raw, err := s.client.Get(ctx, s.profileKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	var p models.UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &p, nil
}

func (s *RedisStore) SaveProfile(ctx context.Context, profile models.UserProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := s.client.Set(ctx, s.profileKey(profile.UserID), raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
