package feed

import (
	"sync/atomic"
	"time"

	"github.com/liqbot/gomm/internal/domain"
)

// BestBook 提供锁自由的 top-of-book 快照缓存。
//
// 目标：
// - 高频写入（WS）与高频读取（引擎 tick）解耦
// - 读取时拿到一致快照（bid/ask/时间戳不会互相撕裂）
//
// 重要：Reset 必须原地重置，不能通过替换 *BestBook 指针来 reset，
// 因为引擎会缓存 BestBook 指针。
type BestBook struct {
	snap atomic.Pointer[domain.Snapshot]
}

// NewBestBook 创建空的 top-of-book 缓存
func NewBestBook() *BestBook {
	return &BestBook{}
}

// Update 发布一份新的快照（整体替换，保证一致性）
func (b *BestBook) Update(bid, ask float64) {
	if b == nil || bid <= 0 || ask <= 0 {
		return
	}
	b.snap.Store(&domain.Snapshot{
		Bid:        bid,
		Ask:        ask,
		ObservedAt: time.Now(),
	})
}

// Load 返回最近一次发布的快照（可能为 nil）
func (b *BestBook) Load() *domain.Snapshot {
	if b == nil {
		return nil
	}
	return b.snap.Load()
}

// IsFresh 检查缓存快照是否在 maxAge 以内
func (b *BestBook) IsFresh(maxAge time.Duration) bool {
	s := b.Load()
	if s == nil || s.ObservedAt.IsZero() {
		return false
	}
	return time.Since(s.ObservedAt) <= maxAge
}

// Reset 清空缓存（原地）
func (b *BestBook) Reset() {
	if b == nil {
		return
	}
	b.snap.Store(nil)
}
