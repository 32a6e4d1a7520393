package lanyard

import (
	"encoding/json"
	"fmt"

	"github.com/haha-dream/lanyard-bridge/internal/domain/entity"
)

// wirePresence Lanyard 下发的 presence 载荷
// 只声明需要的字段，时间戳、应用 ID 等易变字段在解码时丢弃，
// 保证只差易变字段的两份载荷解码出相同的快照
type wirePresence struct {
	DiscordUser struct {
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
	} `json:"discord_user"`
	DiscordStatus string         `json:"discord_status"`
	Activities    []wireActivity `json:"activities"`
	Spotify       *wireSpotify   `json:"spotify"`
}

type wireActivity struct {
	Type    int    `json:"type"`
	Name    string `json:"name"`
	Details string `json:"details"`
	State   string `json:"state"`
}

type wireSpotify struct {
	Song   string `json:"song"`
	Artist string `json:"artist"`
}

// decodePresence 把线上载荷转成领域快照
// spotify 字段独立于活动列表下发且信息更全：存在时折叠成第一条「听歌」活动，
// 并丢弃活动列表里重复的 type=2 条目
func decodePresence(raw json.RawMessage) (entity.Snapshot, error) {
	var p wirePresence
	if err := json.Unmarshal(raw, &p); err != nil {
		return entity.Snapshot{}, fmt.Errorf("unmarshal presence: %w", err)
	}

	name := p.DiscordUser.DisplayName
	if name == "" {
		name = p.DiscordUser.Username
	}

	snapshot := entity.Snapshot{
		DisplayName: name,
		Status:      entity.PresenceStatus(p.DiscordStatus),
	}
	if snapshot.Status == "" {
		snapshot.Status = entity.StatusOffline
	}

	if p.Spotify != nil {
		snapshot.Activities = append(snapshot.Activities, entity.Activity{
			Kind:    entity.KindListening,
			Name:    "Spotify",
			Details: p.Spotify.Song,
			State:   p.Spotify.Artist,
		})
	}

	for _, a := range p.Activities {
		if p.Spotify != nil && entity.ActivityKind(a.Type) == entity.KindListening {
			continue
		}
		snapshot.Activities = append(snapshot.Activities, entity.Activity{
			Kind:    entity.ActivityKind(a.Type),
			Name:    a.Name,
			Details: a.Details,
			State:   a.State,
		})
	}

	return snapshot, nil
}
