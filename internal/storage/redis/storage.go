package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/fourinarow/internal/model"
	"github.com/mcoot/fourinarow/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Game record operations

func (s *Storage) SaveGameRecord(ctx context.Context, record *model.GameRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	score := float64(record.EndedAt.UnixMilli())

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, gameRecordKey(record.ID), data, s.cfg.GameRecordTTL)
	for _, id := range record.Humans() {
		pipe.ZAdd(ctx, playerGamesIndexKey(id), redis.Z{Score: score, Member: string(record.ID)})
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetGameRecord(ctx context.Context, id model.SessionID) (*model.GameRecord, error) {
	data, err := s.client.Get(ctx, gameRecordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameRecordNotFound
		}
		return nil, err
	}

	var record model.GameRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Storage) ListGameRecordsByPlayer(ctx context.Context, player model.PlayerID, limit int) ([]*model.GameRecord, error) {
	limit = storage.NormalizeLimit(limit)

	ids, err := s.client.ZRevRange(ctx, playerGamesIndexKey(player), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.GameRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameRecordKey(model.SessionID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*model.GameRecord, 0, len(values))
	var expired []any
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// record expired; prune the index entry below
			expired = append(expired, ids[i])
			continue
		}
		var record model.GameRecord
		if err := json.Unmarshal([]byte(str), &record); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}

	if len(expired) > 0 {
		s.client.ZRem(ctx, playerGamesIndexKey(player), expired...)
	}
	return records, nil
}

// Player stats operations

func (s *Storage) SavePlayerStats(ctx context.Context, stats *model.PlayerStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, playerStatsKey(stats.Player), data, 0).Err()
}

func (s *Storage) GetPlayerStats(ctx context.Context, player model.PlayerID) (*model.PlayerStats, error) {
	data, err := s.client.Get(ctx, playerStatsKey(player)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var stats model.PlayerStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
