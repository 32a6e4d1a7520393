package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Fingerprint 计算快照的内容指纹
// 只覆盖语义字段：每条活动的类型、名称、详情、状态，活动为空时再加兜底状态
// 字段间用控制字符分隔，避免拼接歧义
func (s Snapshot) Fingerprint() string {
	h := sha256.New()

	if len(s.Activities) == 0 {
		io.WriteString(h, "status\x00")
		io.WriteString(h, string(s.Status))
	} else {
		for _, a := range s.Activities {
			fmt.Fprintf(h, "%d\x00%s\x00%s\x00%s\x1e", a.Kind, a.Name, a.Details, a.State)
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}
