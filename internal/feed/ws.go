package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/liqbot/gomm/pkg/logger"
	"github.com/liqbot/gomm/pkg/syncgroup"
)

// SnapshotHandler BBO 更新回调
type SnapshotHandler func(bid, ask float64)

// MarketWebSocket 市场行情 WebSocket 客户端（直接回调，信号驱动重连）
type MarketWebSocket struct {
	url    string
	market string

	conn   *websocket.Conn
	mu     sync.RWMutex
	closed bool

	reconnectC     chan struct{}
	reconnectCount int
	maxReconnects  int
	reconnectDelay time.Duration
	loopsStarted   bool

	ctx    context.Context
	cancel context.CancelFunc
	sg     *syncgroup.SyncGroup

	handlersMu sync.RWMutex
	handlers   []SnapshotHandler
}

// NewMarketWebSocket 创建市场行情 WebSocket 客户端
func NewMarketWebSocket(url, market string) *MarketWebSocket {
	return &MarketWebSocket{
		url:            url,
		market:         market,
		reconnectC:     make(chan struct{}, 1), // 缓冲1，避免阻塞
		maxReconnects:  10,
		reconnectDelay: 5 * time.Second,
		sg:             syncgroup.NewSyncGroup(),
	}
}

// OnSnapshot 注册 BBO 更新回调
func (m *MarketWebSocket) OnSnapshot(handler SnapshotHandler) {
	m.handlersMu.Lock()
	m.handlers = append(m.handlers, handler)
	m.handlersMu.Unlock()
}

// subscribeMessage 订阅消息
type subscribeMessage struct {
	Method string   `json:"method"`
	Topics []string `json:"topics"`
	ID     int      `json:"id"`
}

// orderbookMessage 行情推送消息（只取 top-of-book）
type orderbookMessage struct {
	Data *struct {
		Bids [][]json.Number `json:"bids"`
		Asks [][]json.Number `json:"asks"`
	} `json:"data"`
}

// Connect 连接并订阅 orderbook.<market>
func (m *MarketWebSocket) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.conn != nil && !m.closed {
		m.conn.Close()
		m.conn = nil
	}
	// ctx 只在首次连接时建立，重连复用，Close 时统一取消
	if m.ctx == nil {
		m.ctx, m.cancel = context.WithCancel(ctx)
	}
	m.closed = false
	m.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 30 * time.Second,
	}

	conn, _, err := dialer.Dial(m.url, nil)
	if err != nil {
		return fmt.Errorf("连接行情 WebSocket 失败: %w", err)
	}

	sub := subscribeMessage{
		Method: "subscribe",
		Topics: []string{"orderbook." + m.market},
		ID:     1,
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("发送订阅消息失败: %w", err)
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	logger.Infof("行情 WebSocket 已连接: %s (market=%s)", m.url, m.market)

	// 重连循环只启动一次；readLoop 每条连接各启动一个
	m.mu.Lock()
	if !m.loopsStarted {
		m.loopsStarted = true
		m.sg.Add(func() { m.reconnectLoop() })
		m.sg.Run()
	}
	m.mu.Unlock()
	go m.readLoop(conn)

	return nil
}

// readLoop 读取一条连接上的消息并分发 top-of-book 更新。
// 每条连接对应一个 readLoop；连接被替换或关闭后退出。
func (m *MarketWebSocket) readLoop(conn *websocket.Conn) {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			m.mu.RLock()
			stale := m.closed || m.conn != conn
			m.mu.RUnlock()
			if stale {
				// 主动关闭或连接已被重连替换，不触发重连
				return
			}
			logger.Warnf("行情 WebSocket 读取失败: %v", err)
			m.signalReconnect()
			return
		}

		var msg orderbookMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Debugf("解析行情消息失败: %v", err)
			continue
		}
		if msg.Data == nil || len(msg.Data.Bids) == 0 || len(msg.Data.Asks) == 0 {
			continue
		}
		if len(msg.Data.Bids[0]) == 0 || len(msg.Data.Asks[0]) == 0 {
			continue
		}

		bid, errB := msg.Data.Bids[0][0].Float64()
		ask, errA := msg.Data.Asks[0][0].Float64()
		if errB != nil || errA != nil || bid <= 0 || ask <= 0 {
			continue
		}

		m.handlersMu.RLock()
		handlers := m.handlers
		m.handlersMu.RUnlock()
		for _, h := range handlers {
			h(bid, ask)
		}
	}
}

// signalReconnect 发出重连信号（非阻塞）
func (m *MarketWebSocket) signalReconnect() {
	select {
	case m.reconnectC <- struct{}{}:
	default:
	}
}

// reconnectLoop 信号驱动的重连循环
func (m *MarketWebSocket) reconnectLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.reconnectC:
		}

		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return
		}
		m.reconnectCount++
		count := m.reconnectCount
		m.mu.Unlock()

		if count > m.maxReconnects {
			logger.Errorf("行情 WebSocket 重连次数超限（%d 次），放弃", m.maxReconnects)
			return
		}

		delay := time.Duration(count) * m.reconnectDelay
		logger.Infof("行情 WebSocket %v 后重连（第 %d/%d 次）", delay, count, m.maxReconnects)

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(delay):
		}

		if err := m.Connect(m.ctx); err != nil {
			logger.Warnf("行情 WebSocket 重连失败: %v", err)
			m.signalReconnect()
		} else {
			m.mu.Lock()
			m.reconnectCount = 0
			m.mu.Unlock()
		}
	}
}

// Close 关闭连接并停止所有 goroutine
func (m *MarketWebSocket) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	conn := m.conn
	m.conn = nil
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}
