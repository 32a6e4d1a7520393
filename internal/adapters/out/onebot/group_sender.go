package onebot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/haha-dream/lanyard-bridge/internal/ports/out"
)

const defaultTimeout = 10 * time.Second

// Config OneBot HTTP 适配器配置
type Config struct {
	BaseURL     string        // go-cqhttp 等实现的 HTTP 地址
	AccessToken string        // 可选的鉴权 token
	Timeout     time.Duration // 单次发送超时
}

// GroupSenderOneBot 通过 OneBot v11 HTTP API 投递群消息
type GroupSenderOneBot struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

func NewGroupSenderOneBot(cfg Config) (out.GroupSender, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("onebot: BaseURL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &GroupSenderOneBot{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

type sendGroupMsgRequest struct {
	GroupID int64  `json:"group_id"`
	Message string `json:"message"`
}

type apiResponse struct {
	Status  string `json:"status"`
	Retcode int    `json:"retcode"`
	Msg     string `json:"msg"`
}

// SendGroupMessage 调用 send_group_msg，origin 即群号
func (s *GroupSenderOneBot) SendGroupMessage(ctx context.Context, origin string, text string) error {
	groupID, err := strconv.ParseInt(origin, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid group origin %q: %w", origin, err)
	}

	body, err := json.Marshal(sendGroupMsgRequest{GroupID: groupID, Message: text})
	if err != nil {
		return fmt.Errorf("marshal send_group_msg: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/send_group_msg", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.accessToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send_group_msg: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("send_group_msg: unexpected status %d", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Retcode != 0 {
		return fmt.Errorf("send_group_msg: retcode=%d msg=%s", apiResp.Retcode, apiResp.Msg)
	}

	return nil
}
