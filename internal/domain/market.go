package domain

import (
	"time"
)

// Market 市场信息
type Market struct {
	Symbol string // 市场符号，例如 UBTC/USDC
}

// Snapshot 市场快照（top-of-book）
// 每个决策周期临时持有，不跨 tick 保留
type Snapshot struct {
	Bid        float64   // 最优买价
	Ask        float64   // 最优卖价
	ObservedAt time.Time // 观察时间
}

// Mid 返回中间价（最优买卖价的平均）
func (s *Snapshot) Mid() float64 {
	return (s.Bid + s.Ask) / 2
}

// Valid 检查快照是否可用于决策
func (s *Snapshot) Valid() bool {
	return s != nil && s.Bid > 0 && s.Ask > 0 && s.Bid <= s.Ask
}
