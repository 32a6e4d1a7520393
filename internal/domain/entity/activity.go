package entity

// ActivityKind 活动类型，取值与 Discord 的 activity type 字段一致
type ActivityKind int

const (
	KindGame      ActivityKind = iota // 玩游戏
	KindStreaming                     // 直播
	KindListening                     // 听歌
	KindWatching                      // 观看
	KindCustom                        // 自定义状态
	KindCompeting                     // 竞技
)

// Verb 返回类型对应的中文动词，未知类型兜底为「捣鼓」
func (k ActivityKind) Verb() string {
	switch k {
	case KindGame:
		return "玩"
	case KindStreaming:
		return "直播"
	case KindListening:
		return "听"
	case KindWatching:
		return "看"
	case KindCompeting:
		return "竞争"
	default:
		return "捣鼓"
	}
}

// Activity 一条并发活动
// 只保留参与指纹和文案的语义字段，时间戳、内部 ID 等易变字段在解码时丢弃
type Activity struct {
	Kind    ActivityKind `json:"kind"`
	Name    string       `json:"name"`
	Details string       `json:"details,omitempty"`
	State   string       `json:"state,omitempty"`
}
