package application

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/haha-dream/lanyard-bridge/internal/ports/out"
)

// 零宽空格，包在文本两端绕过消息通道的去重过滤
// 只影响投递，不参与指纹计算
const dedupMarker = "​"

// Dispatcher 把状态文本扇出到所有已注册群
// 单个群投递失败只记日志并汇总上报，不影响其余群
type Dispatcher struct {
	sender out.GroupSender
	logger *zap.Logger
}

func NewDispatcher(sender out.GroupSender, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.L()
	}
	return &Dispatcher{sender: sender, logger: logger}
}

// Broadcast 逐群投递，返回所有失败的汇总错误
func (d *Dispatcher) Broadcast(ctx context.Context, origins map[string]string, text string) error {
	if len(origins) == 0 {
		d.logger.Warn("未注册任何群，跳过推送")
		return nil
	}

	payload := dedupMarker + text + dedupMarker

	// 固定顺序投递，行为可预期
	groupIDs := make([]string, 0, len(origins))
	for id := range origins {
		groupIDs = append(groupIDs, id)
	}
	sort.Strings(groupIDs)

	var errs []error
	for _, groupID := range groupIDs {
		if err := d.sender.SendGroupMessage(ctx, origins[groupID], payload); err != nil {
			d.logger.Error("推送到群失败",
				zap.String("group_id", groupID),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("group %s: %w", groupID, err))
			continue
		}
		d.logger.Info("已推送活动更新", zap.String("group_id", groupID))
	}

	return errors.Join(errs...)
}
