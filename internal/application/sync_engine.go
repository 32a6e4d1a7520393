package application

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/haha-dream/lanyard-bridge/internal/domain/entity"
	"github.com/haha-dream/lanyard-bridge/internal/ports/in"
	"github.com/haha-dream/lanyard-bridge/internal/ports/out"
)

// SyncEngine 状态同步引擎
// 单消费者：所有快照都从传输会话的读循环串行进来，
// 过滤 -> 比对 -> 格式化 -> 先提交后扇出 -> 发布变更事件
type SyncEngine struct {
	userID       string
	enabledKinds map[entity.ActivityKind]struct{}

	store      *PresenceStore
	dispatcher *Dispatcher
	repo       out.StateRepository
	events     out.EventPublisher // 可为 nil，表示不发布变更事件
	logger     *zap.Logger

	mu         sync.RWMutex
	origins    map[string]string // 群号 -> 投递目标
	lastText   string
	lastPushAt time.Time
}

// NewSyncEngine 创建同步引擎
// enableKinds 为空表示不过滤；events 传 nil 时跳过事件发布
func NewSyncEngine(
	userID string,
	enableKinds []int,
	repo out.StateRepository,
	dispatcher *Dispatcher,
	events out.EventPublisher,
	logger *zap.Logger,
) *SyncEngine {
	if logger == nil {
		logger = zap.L()
	}

	enabled := make(map[entity.ActivityKind]struct{}, len(enableKinds))
	for _, k := range enableKinds {
		enabled[entity.ActivityKind(k)] = struct{}{}
	}

	return &SyncEngine{
		userID:       userID,
		enabledKinds: enabled,
		store:        NewPresenceStore(repo, userID),
		dispatcher:   dispatcher,
		repo:         repo,
		events:       events,
		logger:       logger,
		origins:      make(map[string]string),
	}
}

// Start 恢复持久化状态并用配置的群号补种注册表
// seedGroups 里没有显式投递目标的群，投递目标默认取群号本身
func (e *SyncEngine) Start(ctx context.Context, seedGroups []string) error {
	if err := e.store.Load(ctx); err != nil {
		return err
	}

	persisted, err := e.repo.GetGroupOrigins(ctx, e.userID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	for id, origin := range persisted {
		e.origins[id] = origin
	}
	for _, id := range seedGroups {
		if _, ok := e.origins[id]; !ok {
			e.origins[id] = id
		}
	}
	e.mu.Unlock()

	return e.persistOrigins(ctx)
}

// HandlePresence 处理一份新的状态快照
// INIT_STATE 和 PRESENCE_UPDATE 走同一条路径，重连后的首帧不做特殊处理
func (e *SyncEngine) HandlePresence(ctx context.Context, snapshot entity.Snapshot) error {
	// 先过滤再算指纹，被过滤掉的活动不会触发推送也不会出现在文案里
	filtered := snapshot.FilterKinds(e.enabledKinds)

	changed, fingerprint := e.store.Diff(filtered)
	if !changed {
		e.logger.Debug("状态未变化，跳过", zap.String("fingerprint", fingerprint))
		return nil
	}

	oldFingerprint := e.store.Fingerprint()
	text := FormatPresence(filtered)

	// 先提交后扇出：部分群投递失败不会导致同一变更被反复重推
	if err := e.store.Commit(ctx, filtered, fingerprint); err != nil {
		return err
	}

	if err := e.dispatcher.Broadcast(ctx, e.GroupOrigins(), text); err != nil {
		// 按最终一致的约定丢弃失败的投递，只记录
		e.logger.Warn("部分群推送失败", zap.Error(err))
	}

	e.mu.Lock()
	e.lastText = text
	e.lastPushAt = time.Now()
	e.mu.Unlock()

	if e.events != nil {
		event := &entity.PresenceChangeEvent{
			UserID:         e.userID,
			OldFingerprint: oldFingerprint,
			NewFingerprint: fingerprint,
			Text:           text,
			Timestamp:      time.Now(),
		}
		go func() {
			if err := e.events.PublishPresenceChange(context.Background(), event); err != nil {
				e.logger.Error("发布状态变更事件失败", zap.Error(err))
			}
		}()
	}

	return nil
}

// RegisterGroup 注册或刷新一个群的投递目标并持久化
func (e *SyncEngine) RegisterGroup(ctx context.Context, groupID, origin string) error {
	if origin == "" {
		origin = groupID
	}

	e.mu.Lock()
	e.origins[groupID] = origin
	e.mu.Unlock()

	return e.persistOrigins(ctx)
}

// UnregisterGroup 取消一个群的注册并持久化
func (e *SyncEngine) UnregisterGroup(ctx context.Context, groupID string) error {
	e.mu.Lock()
	delete(e.origins, groupID)
	e.mu.Unlock()

	return e.persistOrigins(ctx)
}

// Status 返回当前运行状态
func (e *SyncEngine) Status(ctx context.Context) (*in.StatusInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	groups := make(map[string]string, len(e.origins))
	for id, origin := range e.origins {
		groups[id] = origin
	}

	return &in.StatusInfo{
		UserID:      e.userID,
		Fingerprint: e.store.Fingerprint(),
		LastText:    e.lastText,
		LastPushAt:  e.lastPushAt,
		Groups:      groups,
	}, nil
}

// GroupOrigins 返回注册表的只读副本，扇出期间不持有锁
func (e *SyncEngine) GroupOrigins() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	origins := make(map[string]string, len(e.origins))
	for id, origin := range e.origins {
		origins[id] = origin
	}
	return origins
}

func (e *SyncEngine) persistOrigins(ctx context.Context) error {
	return e.repo.SaveGroupOrigins(ctx, e.userID, e.GroupOrigins())
}
