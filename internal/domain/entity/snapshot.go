package entity

import "time"

// PresenceStatus 活动集合为空时的兜底状态
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusIdle    PresenceStatus = "idle"
	StatusDND     PresenceStatus = "dnd"
	StatusOffline PresenceStatus = "offline"
)

// Snapshot 某一时刻被跟踪用户的完整状态快照
// 每次更新整体替换，不做原地修改
type Snapshot struct {
	DisplayName string         `json:"display_name"`
	Status      PresenceStatus `json:"status"`
	Activities  []Activity     `json:"activities"`
}

// FilterKinds 按启用的活动类型过滤，返回新快照
// enabled 为空表示不过滤，全部放行
func (s Snapshot) FilterKinds(enabled map[ActivityKind]struct{}) Snapshot {
	if len(enabled) == 0 {
		return s
	}

	filtered := Snapshot{
		DisplayName: s.DisplayName,
		Status:      s.Status,
	}
	for _, a := range s.Activities {
		if _, ok := enabled[a.Kind]; ok {
			filtered.Activities = append(filtered.Activities, a)
		}
	}
	return filtered
}

// PresenceChangeEvent 状态变更事件，推送成功后发布给下游
type PresenceChangeEvent struct {
	UserID         string    `json:"user_id"`
	OldFingerprint string    `json:"old_fingerprint,omitempty"`
	NewFingerprint string    `json:"new_fingerprint"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
}
