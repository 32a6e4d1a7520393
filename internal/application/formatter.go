package application

import (
	"fmt"
	"strings"

	"github.com/haha-dream/lanyard-bridge/internal/domain/entity"
)

const (
	// 多个活动之间的连接符
	subjectSeparator = "、"
	// 自定义状态为空时的兜底文案
	defaultCustomText = "自定义状态"
	// 显示名缺失时的兜底
	defaultDisplayName = "Unknown"
	// 活动名缺失时的兜底
	defaultActivityName = "Unknown"
)

// FormatPresence 把一份快照渲染成一行可读文本，纯函数
// 活动集合为空时输出兜底状态行，否则输出「开始……了」句式：
// 第一个活动带「开始」修饰词，相邻同动词的活动只保留第一个动词，
// 自定义状态直接使用原文，不套动词模板
func FormatPresence(s entity.Snapshot) string {
	name := s.DisplayName
	if name == "" {
		name = defaultDisplayName
	}

	if len(s.Activities) == 0 {
		status := s.Status
		if status == "" {
			status = entity.StatusOffline
		}
		return fmt.Sprintf("%s 的 Discord 状态: %s", name, status)
	}

	parts := make([]string, 0, len(s.Activities))
	prevVerb := ""
	for i, a := range s.Activities {
		if a.Kind == entity.KindCustom {
			parts = append(parts, customText(a))
			prevVerb = ""
			continue
		}

		verb := a.Kind.Verb()
		subject := activitySubject(a)
		switch {
		case i == 0:
			parts = append(parts, "开始"+verb+" "+subject)
		case verb != prevVerb:
			parts = append(parts, verb+" "+subject)
		default:
			parts = append(parts, subject)
		}
		prevVerb = verb
	}

	return name + " " + strings.Join(parts, subjectSeparator) + " 了"
}

// activitySubject 单个活动的主语描述
func activitySubject(a entity.Activity) string {
	name := a.Name
	if name == "" {
		name = defaultActivityName
	}

	switch a.Kind {
	case entity.KindListening:
		// 歌曲 - 歌手，字段不全时退回活动名
		if a.Details != "" && a.State != "" {
			return a.Details + " - " + a.State
		}
		return name
	default:
		if a.Details != "" {
			return fmt.Sprintf("%s (%s)", name, a.Details)
		}
		return name
	}
}

func customText(a entity.Activity) string {
	if a.State != "" {
		return a.State
	}
	return defaultCustomText
}
