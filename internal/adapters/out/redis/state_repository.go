package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/haha-dream/lanyard-bridge/internal/ports/out"
)

const (
	// 已提交指纹的 Key 前缀
	hashKeyPrefix = "lanyard:last_activity_hash:"
	// 群注册表的 Key 前缀
	originsKeyPrefix = "lanyard:group_origins:"
)

// StateRepositoryRedis 指纹与群注册表的 Redis 实现
type StateRepositoryRedis struct {
	client *redis.Client
}

func NewStateRepositoryRedis(client *redis.Client) out.StateRepository {
	return &StateRepositoryRedis{client: client}
}

func (r *StateRepositoryRedis) hashKey(userID string) string {
	return hashKeyPrefix + userID
}

func (r *StateRepositoryRedis) originsKey(userID string) string {
	return originsKeyPrefix + userID
}

func (r *StateRepositoryRedis) GetFingerprint(ctx context.Context, userID string) (string, error) {
	fp, err := r.client.Get(ctx, r.hashKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("get fingerprint: %w", err)
	}
	return fp, nil
}

func (r *StateRepositoryRedis) CommitFingerprint(ctx context.Context, userID, fingerprint string) error {
	if err := r.client.Set(ctx, r.hashKey(userID), fingerprint, 0).Err(); err != nil {
		return fmt.Errorf("commit fingerprint: %w", err)
	}
	return nil
}

func (r *StateRepositoryRedis) GetGroupOrigins(ctx context.Context, userID string) (map[string]string, error) {
	data, err := r.client.Get(ctx, r.originsKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("get group origins: %w", err)
	}

	origins := make(map[string]string)
	if err := json.Unmarshal([]byte(data), &origins); err != nil {
		return nil, fmt.Errorf("unmarshal group origins: %w", err)
	}
	return origins, nil
}

func (r *StateRepositoryRedis) SaveGroupOrigins(ctx context.Context, userID string, origins map[string]string) error {
	data, err := json.Marshal(origins)
	if err != nil {
		return fmt.Errorf("marshal group origins: %w", err)
	}
	if err := r.client.Set(ctx, r.originsKey(userID), string(data), 0).Err(); err != nil {
		return fmt.Errorf("save group origins: %w", err)
	}
	return nil
}
