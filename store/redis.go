package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"taskbot/model"
)

const keyPrefix = "taskbot:task:"

// RedisStore keeps records as JSON values, one key per channel, so task
// state survives a restart. Mutations use WATCH so concurrent writers to the
// same record retry instead of clobbering each other.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) (*RedisStore, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient is used by tests that bring their own client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func taskKey(channelID string) string {
	return keyPrefix + channelID
}

func (s *RedisStore) Create(ctx context.Context, rec *model.TaskRecord) error {
	if rec.UserLimit <= 0 {
		return model.ErrInvalidUserLimit
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, taskKey(rec.ChannelID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrDuplicateChannel
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, channelID string) (*model.TaskRecord, error) {
	data, err := s.client.Get(ctx, taskKey(channelID)).Bytes()
	if err == redis.Nil {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec model.TaskRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.ApprovedParticipants == nil {
		rec.ApprovedParticipants = make(map[string]bool)
	}
	return &rec, nil
}

func (s *RedisStore) Remove(ctx context.Context, channelID string) error {
	return s.client.Del(ctx, taskKey(channelID)).Err()
}

func (s *RedisStore) Mutate(ctx context.Context, channelID string, fn func(*model.TaskRecord) error) (*model.TaskRecord, error) {
	key := taskKey(channelID)
	var updated *model.TaskRecord

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return model.ErrNotFound
		}
		if err != nil {
			return err
		}
		var rec model.TaskRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if rec.ApprovedParticipants == nil {
			rec.ApprovedParticipants = make(map[string]bool)
		}
		if err := fn(&rec); err != nil {
			return err
		}
		next, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = &rec
		return nil
	}

	for i := 0; i < 20; i++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("mutate %s: too many watch conflicts", channelID)
}
