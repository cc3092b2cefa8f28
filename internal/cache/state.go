package cache

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"habitus/storage/redis"
)

const checkinStatePrefix = "checkin:state"

// StateKV 把 redis 暴露成 checkin.KV 的键值契约
// 门禁状态 blob 不设 TTL，属于用户的长期数据
type StateKV struct{}

func NewStateKV() *StateKV {
	return &StateKV{}
}

// Get 未命中时返回空串且无错误，适配器据此视为无历史状态
func (s *StateKV) Get(ctx context.Context, key string) (string, error) {
	raw, err := redis.Client().Get(ctx, redis.Key(checkinStatePrefix, key)).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get check-in state: %w", err)
	}
	return raw, nil
}

func (s *StateKV) Set(ctx context.Context, key, value string) error {
	if err := redis.Client().Set(ctx, redis.Key(checkinStatePrefix, key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set check-in state: %w", err)
	}
	return nil
}

// StateKey 统一的用户状态键
func StateKey(userID int64) string {
	return fmt.Sprintf("%d", userID)
}
