package out

import (
	"context"

	"github.com/haha-dream/lanyard-bridge/internal/domain/entity"
)

// StateRepository 持久化已提交的内容指纹与群注册表
// 所有 key 都按被跟踪用户隔离，多个引擎实例互不冲突
type StateRepository interface {
	// GetFingerprint 读取已提交的指纹，不存在时返回空串
	GetFingerprint(ctx context.Context, userID string) (string, error)
	// CommitFingerprint 持久化新指纹
	CommitFingerprint(ctx context.Context, userID, fingerprint string) error
	// GetGroupOrigins 读取群注册表（群号 -> 投递目标）
	GetGroupOrigins(ctx context.Context, userID string) (map[string]string, error)
	// SaveGroupOrigins 整体保存群注册表
	SaveGroupOrigins(ctx context.Context, userID string, origins map[string]string) error
}

// GroupSender 把一段文本投递到一个群，由外部消息通道实现
type GroupSender interface {
	SendGroupMessage(ctx context.Context, origin string, text string) error
}

// EventPublisher 状态变更事件发布接口
type EventPublisher interface {
	PublishPresenceChange(ctx context.Context, event *entity.PresenceChangeEvent) error
	Close() error
}
