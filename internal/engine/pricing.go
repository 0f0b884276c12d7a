package engine

import (
	"math"

	"github.com/liqbot/gomm/internal/domain"
)

// QuoteIntent 是 sizing/pricing 策略为当前 tick 产生的报价意图。
// 不持久化：由引擎立即消费。
type QuoteIntent struct {
	Side  domain.Side
	Price float64
	Size  float64
	Level int // 0 = 主报价，1..N = 额外卖单层级
}

// quoteForSide 生成某一侧的主报价：buy = mid*(1-spread)，sell = mid*(1+spread)
func (e *Engine) quoteForSide(side domain.Side, mid float64) QuoteIntent {
	var price float64
	if side == domain.SideBuy {
		price = mid * (1 - e.cfg.Spread)
	} else {
		price = mid * (1 + e.cfg.Spread)
	}
	size := e.clampNotional(price, e.sizeFor(price))
	return QuoteIntent{Side: side, Price: price, Size: size}
}

// extraSellQuote 生成第 level 层（1..N）的额外卖单报价，价格在主卖价之上按点差逐层抬高。
// 额外层级独立 sizing，不挤占主报价的数量。
func (e *Engine) extraSellQuote(level int, mid float64) QuoteIntent {
	price := mid * (1 + e.cfg.Spread*float64(level+1))
	size := e.clampNotional(price, e.sizeFor(price))
	return QuoteIntent{Side: domain.SideSell, Price: price, Size: size, Level: level}
}

// sizeFor 计算目标下单数量（基础资产），尚未做名义金额钳制
func (e *Engine) sizeFor(price float64) float64 {
	c := &e.cfg
	switch {
	case c.SizeMin > 0:
		// 基础资产模式：区间内随机取值，保留 6 位小数
		return round6(c.SizeMin + e.rnd.Float64()*(c.SizeMax-c.SizeMin))
	case c.USDOrderSize > 0:
		return round6(c.USDOrderSize / price)
	default:
		usd := c.USDSizeMin + e.rnd.Float64()*(c.USDSizeMax-c.USDSizeMin)
		return round6(usd / price)
	}
}

// clampNotional 把订单钳制到 [minUsdOrderSize, maxUsdOrderSize] 名义金额范围内。
// 越界的意图被钳到边界，而不是丢弃；永远不会超过配置的最大值。
func (e *Engine) clampNotional(price, size float64) float64 {
	if price <= 0 {
		return size
	}
	notional := price * size
	if notional < e.cfg.MinUSDOrderSize {
		return e.cfg.MinUSDOrderSize / price
	}
	if notional > e.cfg.MaxUSDOrderSize {
		return e.cfg.MaxUSDOrderSize / price
	}
	return size
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
