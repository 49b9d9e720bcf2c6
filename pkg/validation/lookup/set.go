package lookup

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSet 基于 Redis 集合的成员查询
// 唯一性规则用它判断值是否已被占用
type RedisSet struct {
	client redis.UniversalClient
	key    string
}

// NewRedisSet 创建集合查询
func NewRedisSet(client redis.UniversalClient, key string) *RedisSet {
	return &RedisSet{client: client, key: key}
}

// Key 集合的键
func (s *RedisSet) Key() string {
	return s.key
}

// Contains 值是否在集合中
func (s *RedisSet) Contains(ctx context.Context, value string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key, value).Result()
	if err != nil {
		return false, fmt.Errorf("lookup: sismember %s: %w", s.key, err)
	}
	return ok, nil
}

// Add 向集合添加值
func (s *RedisSet) Add(ctx context.Context, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	if err := s.client.SAdd(ctx, s.key, toArgs(values)...).Err(); err != nil {
		return fmt.Errorf("lookup: sadd %s: %w", s.key, err)
	}
	return nil
}

// Remove 从集合移除值
func (s *RedisSet) Remove(ctx context.Context, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	if err := s.client.SRem(ctx, s.key, toArgs(values)...).Err(); err != nil {
		return fmt.Errorf("lookup: srem %s: %w", s.key, err)
	}
	return nil
}

// Size 集合大小
func (s *RedisSet) Size(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("lookup: scard %s: %w", s.key, err)
	}
	return n, nil
}

func toArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
