package in

import (
	"context"
	"time"

	"github.com/haha-dream/lanyard-bridge/internal/domain/entity"
)

// StatusInfo 当前运行状态，供管理接口查询
type StatusInfo struct {
	UserID      string            `json:"user_id"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	LastText    string            `json:"last_text,omitempty"`
	LastPushAt  time.Time         `json:"last_push_at,omitzero"`
	Groups      map[string]string `json:"groups"`
}

// PresenceSyncUseCase 状态同步用例接口
type PresenceSyncUseCase interface {
	// HandlePresence 处理一份新的状态快照：过滤、比对、格式化、推送、提交
	HandlePresence(ctx context.Context, snapshot entity.Snapshot) error
	// RegisterGroup 注册或刷新一个群的投递目标
	RegisterGroup(ctx context.Context, groupID, origin string) error
	// UnregisterGroup 取消一个群的注册
	UnregisterGroup(ctx context.Context, groupID string) error
	// Status 返回当前运行状态
	Status(ctx context.Context) (*StatusInfo, error)
}
