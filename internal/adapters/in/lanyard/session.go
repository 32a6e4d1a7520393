package lanyard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/haha-dream/lanyard-bridge/internal/ports/in"
)

// Lanyard 协议操作码
const (
	OpEvent      = 0 // 事件信封（INIT_STATE / PRESENCE_UPDATE）
	OpHello      = 1 // 服务端下发心跳间隔
	OpInitialize = 2 // 订阅被跟踪用户
	OpHeartbeat  = 3 // 心跳保活
)

// 事件名
const (
	EventInitState      = "INIT_STATE"
	EventPresenceUpdate = "PRESENCE_UPDATE"
)

// SessionState 会话状态机
type SessionState string

const (
	StateDisconnected  SessionState = "disconnected"   // 未连接
	StateConnecting    SessionState = "connecting"     // 建连中
	StateAwaitingHello SessionState = "awaiting_hello" // 等待 Hello
	StateSubscribing   SessionState = "subscribing"    // 发送订阅中
	StateActive        SessionState = "active"         // 正常收发
)

const (
	// 写超时
	writeWait = 10 * time.Second
	// 建连握手超时
	dialTimeout = 15 * time.Second
	// 单帧最大尺寸
	maxMessageSize = 512 * 1024
	// 重连退避下限与上限
	minBackoff = time.Second
	maxBackoff = time.Minute
	// 连接存活超过该时长即视为一次稳定连接，退避归位
	sustainedConnDuration = time.Minute
	// Hello 未给出间隔时的心跳兜底值
	defaultHeartbeatInterval = 30 * time.Second
)

// frame 线上帧
type frame struct {
	Op int             `json:"op"`
	T  string          `json:"t,omitempty"`
	D  json.RawMessage `json:"d,omitempty"`
}

type helloData struct {
	HeartbeatInterval int `json:"heartbeat_interval"` // 毫秒
}

type subscribeData struct {
	SubscribeToIDs []string `json:"subscribe_to_ids"`
}

// Session 一条到 Lanyard 的 WebSocket 会话
// 持有连接、驱动心跳、断线后无限重连；读循环单线程调用用例，保证事件顺序
type Session struct {
	url     string
	userID  string
	usecase in.PresenceSyncUseCase
	dialer  *websocket.Dialer
	logger  *zap.Logger

	mu      sync.Mutex // 保护 conn 写入与状态切换
	conn    *websocket.Conn
	state   SessionState
	hbEvery time.Duration
}

// NewSession 创建会话，url 为空时使用官方端点
func NewSession(url, userID string, usecase in.PresenceSyncUseCase, logger *zap.Logger) *Session {
	if url == "" {
		url = "wss://api.lanyard.rest/socket"
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Session{
		url:     url,
		userID:  userID,
		usecase: usecase,
		dialer:  &websocket.Dialer{HandshakeTimeout: dialTimeout},
		logger:  logger,
		state:   StateDisconnected,
		hbEvery: defaultHeartbeatInterval,
	}
}

// State 返回当前会话状态
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run 阻塞运行会话直到 ctx 取消
// 每次连接断开后按退避重连，退避从 minBackoff 翻倍涨到 maxBackoff，
// 单次连接存活超过 sustainedConnDuration 后归位
func (s *Session) Run(ctx context.Context) error {
	backoff := minBackoff

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		startedAt := time.Now()
		err := s.connectAndListen(ctx)
		s.setState(StateDisconnected)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if time.Since(startedAt) >= sustainedConnDuration {
			backoff = minBackoff
		}

		s.logger.Error("WebSocket 连接中断，准备重连",
			zap.Error(err),
			zap.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// connectAndListen 建立一次连接并消费帧，连接断开时返回
func (s *Session) connectAndListen(ctx context.Context) error {
	s.setState(StateConnecting)

	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	conn.SetReadLimit(maxMessageSize)

	s.mu.Lock()
	s.conn = conn
	s.state = StateAwaitingHello
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()
	}()

	// ctx 取消时主动关连接，解除读阻塞
	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stopWatch:
		}
	}()

	s.logger.Info("已连接到 Lanyard", zap.String("url", s.url))

	// 首帧必须是 Hello，带心跳间隔；随后立即订阅
	var hello frame
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if hello.Op != OpHello {
		return fmt.Errorf("expected hello (op=%d), got op=%d", OpHello, hello.Op)
	}

	interval := defaultHeartbeatInterval
	var hd helloData
	if err := json.Unmarshal(hello.D, &hd); err == nil && hd.HeartbeatInterval > 0 {
		interval = time.Duration(hd.HeartbeatInterval) * time.Millisecond
	}

	s.mu.Lock()
	s.hbEvery = interval
	s.state = StateSubscribing
	s.mu.Unlock()

	if err := s.sendFrame(OpInitialize, subscribeData{SubscribeToIDs: []string{s.userID}}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.setState(StateActive)
	s.logger.Info("已订阅用户",
		zap.String("user_id", s.userID),
		zap.Duration("heartbeat_interval", interval))

	// 心跳定时器归本会话所有，每次成功发送后重置
	// 发送失败关掉连接，读循环随之退出并触发重连
	hbStop := make(chan struct{})
	defer close(hbStop)
	go s.heartbeatLoop(conn, interval, hbStop)

	for {
		// 读和解码分开：坏帧只丢弃，连接层错误才退出读循环触发重连
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("read frame: %w", err)
			}
			return err
		}

		var f frame
		if err := json.Unmarshal(message, &f); err != nil {
			s.logger.Error("丢弃无法解析的帧", zap.Error(err))
			continue
		}
		s.handleFrame(ctx, f)
	}
}

// heartbeatLoop 按服务端指定的间隔发送心跳
func (s *Session) heartbeatLoop(conn *websocket.Conn, interval time.Duration, stop <-chan struct{}) {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			if err := s.sendFrame(OpHeartbeat, nil); err != nil {
				s.logger.Error("发送心跳失败", zap.Error(err))
				conn.Close()
				return
			}
			s.logger.Debug("已发送心跳")
			timer.Reset(interval)
		}
	}
}

// sendFrame 序列化并写一个帧，写操作串行化
func (s *Session) sendFrame(op int, data any) error {
	f := struct {
		Op int `json:"op"`
		D  any `json:"d,omitempty"`
	}{Op: op, D: data}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("connection closed")
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(f)
}

// handleFrame 处理一个入站帧
// 坏帧只丢弃并记日志，会话保持 Active
func (s *Session) handleFrame(ctx context.Context, f frame) {
	if f.Op != OpEvent {
		s.logger.Debug("忽略非事件帧", zap.Int("op", f.Op))
		return
	}

	var raw json.RawMessage
	switch f.T {
	case EventInitState:
		// INIT_STATE 的载荷是 用户ID -> presence 的字典
		var states map[string]json.RawMessage
		if err := json.Unmarshal(f.D, &states); err != nil {
			s.logger.Error("解析 INIT_STATE 失败", zap.Error(err))
			return
		}
		var ok bool
		if raw, ok = states[s.userID]; !ok {
			for _, v := range states {
				raw = v
				break
			}
		}
		if raw == nil {
			s.logger.Debug("INIT_STATE 载荷为空，丢弃")
			return
		}
	case EventPresenceUpdate:
		raw = f.D
	default:
		s.logger.Debug("忽略未知事件", zap.String("event", f.T))
		return
	}

	snapshot, err := decodePresence(raw)
	if err != nil {
		s.logger.Error("解析 presence 载荷失败", zap.Error(err))
		return
	}

	if err := s.usecase.HandlePresence(ctx, snapshot); err != nil {
		s.logger.Error("处理状态快照失败", zap.Error(err))
	}
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
