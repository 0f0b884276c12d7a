package feed

import (
	"context"
	"sync"
	"time"

	"github.com/liqbot/gomm/internal/domain"
	"github.com/liqbot/gomm/internal/ports"
)

// DefaultMaxSnapshotAge 缓存快照的默认新鲜度阈值
const DefaultMaxSnapshotAge = 3 * time.Second

// Feed 市场数据源：优先读取 WS 推送维护的 BestBook 缓存，
// 缓存过旧或尚未就绪时回退到 REST 快照查询。
type Feed struct {
	market string
	rest   ports.SnapshotSource
	book   *BestBook
	ws     *MarketWebSocket
	maxAge time.Duration

	handlersMu sync.RWMutex
	handlers   []func(*domain.Snapshot)
}

// New 创建市场数据源。wsURL 为空时只使用 REST 轮询。
func New(market string, rest ports.SnapshotSource, wsURL string) *Feed {
	f := &Feed{
		market: market,
		rest:   rest,
		book:   NewBestBook(),
		maxAge: DefaultMaxSnapshotAge,
	}
	if wsURL != "" {
		f.ws = NewMarketWebSocket(wsURL, market)
	}
	return f
}

// OnBBO 注册 BBO 推送回调（引擎的带外重定价入口挂在这里）
func (f *Feed) OnBBO(handler func(*domain.Snapshot)) {
	f.handlersMu.Lock()
	f.handlers = append(f.handlers, handler)
	f.handlersMu.Unlock()
}

// Start 启动 WS 订阅（如配置）。推送更新 BestBook 并依次触发 OnBBO 回调。
func (f *Feed) Start(ctx context.Context) error {
	if f.ws == nil {
		return nil
	}
	f.ws.OnSnapshot(func(bid, ask float64) {
		f.book.Update(bid, ask)
		snap := f.book.Load()
		if snap == nil {
			return
		}
		f.handlersMu.RLock()
		handlers := f.handlers
		f.handlersMu.RUnlock()
		for _, h := range handlers {
			h(snap)
		}
	})
	return f.ws.Connect(ctx)
}

// GetSnapshot 返回当前 top-of-book 快照
func (f *Feed) GetSnapshot(ctx context.Context, market string) (*domain.Snapshot, error) {
	if f.book.IsFresh(f.maxAge) {
		return f.book.Load(), nil
	}
	snap, err := f.rest.GetSnapshot(ctx, market)
	if err != nil {
		return nil, err
	}
	if snap.Valid() {
		f.book.Update(snap.Bid, snap.Ask)
	}
	return snap, nil
}

// Close 关闭 WS 连接
func (f *Feed) Close() error {
	if f.ws != nil {
		return f.ws.Close()
	}
	return nil
}
