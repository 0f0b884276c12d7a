package engine

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/liqbot/gomm/internal/domain"
	"github.com/liqbot/gomm/internal/ports"
	"github.com/liqbot/gomm/pkg/logger"
	"github.com/liqbot/gomm/pkg/orderbook"
)

// Engine 单市场流动性做市引擎。
//
// 持有 Order Book State 与配置，所有决策入口（tick 与 BBO 推送）
// 通过同一把互斥锁串行化：同一市场上不存在并发的 tick 与 BBO 处理。
type Engine struct {
	cfg     Config
	market  string
	gateway ports.Gateway
	feed    ports.SnapshotSource

	book *orderbook.ActiveOrderBook

	mu  sync.Mutex
	rnd *rand.Rand

	// referencePrice: 参考价。配置了 referencePrice 时在构造期确定，
	// 否则取引擎看到的首个快照 mid。用于判断市场是否处于下跌状态（额外卖单层级）。
	referencePrice float64

	startOrderPlaced bool

	// runCtx 在 Run 内设置，供 BBO 入口的网关调用使用
	runCtx context.Context
}

// New 创建引擎。配置非法时返回错误。
func New(cfg Config, market string, gateway ports.Gateway, feed ports.SnapshotSource) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:            cfg,
		market:         market,
		gateway:        gateway,
		feed:           feed,
		book:           orderbook.NewActiveOrderBook(market),
		rnd:            rand.New(rand.NewSource(time.Now().UnixNano())),
		referencePrice: cfg.ReferencePrice,
		runCtx:         context.Background(),
	}, nil
}

// Book 返回引擎的本地订单簿（只读用途：监控/关闭流程）
func (e *Engine) Book() *orderbook.ActiveOrderBook {
	return e.book
}

// Run 启动引擎：先做启动对账，然后按 checkInterval 周期 tick，阻塞直到 ctx 取消。
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.runCtx = ctx
	e.mu.Unlock()

	if err := e.Reconcile(ctx); err != nil {
		return err
	}

	e.placeStartOrderOnce(ctx)

	logger.Infof("引擎已启动: market=%s spread=%v checkInterval=%v", e.market, e.cfg.Spread, e.cfg.CheckInterval())

	ticker := time.NewTicker(e.cfg.CheckInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick 执行一个完整决策周期：重定价/过期检查、成交同步、补挂报价。
func (e *Engine) Tick(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.feed.GetSnapshot(ctx, e.market)
	if err != nil {
		logger.Warnf("获取市场快照失败: %v", err)
		return
	}
	if !snap.Valid() {
		logger.Debugf("快照不可用（bid=%v ask=%v），跳过本次 tick", snap.Bid, snap.Ask)
		return
	}

	e.noteReference(snap)

	e.repriceAll(ctx, snap, true)
	e.syncFills(ctx, snap)
	e.ensureQuotes(ctx, snap)
}

// OnBBO 是 BBO 推送的带外入口：只做漂移检查（不含过期检查），
// 与 tick 共用同一把锁，不会并发进入决策逻辑。
func (e *Engine) OnBBO(snap *domain.Snapshot) {
	if !e.cfg.DynamicRepriceOnBBO {
		return
	}
	if !snap.Valid() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.noteReference(snap)
	e.repriceAll(e.runCtx, snap, false)
}

// noteReference 记录参考价（首个有效快照的 mid）
func (e *Engine) noteReference(snap *domain.Snapshot) {
	if e.referencePrice == 0 {
		e.referencePrice = snap.Mid()
		logger.Infof("参考价已确定: %v", e.referencePrice)
	}
}

// repriceAll 对所有本地订单评估两个独立触发条件，任一命中则撤单重挂：
//  1. 漂移触发：|mid - placementPrice| / placementPrice >= repriceThreshold
//  2. 过期触发（仅 tick 路径）：订单年龄 >= maxOrderAge 且绝对漂移 >= priceExpiryThreshold
func (e *Engine) repriceAll(ctx context.Context, snap *domain.Snapshot, includeAge bool) {
	mid := snap.Mid()
	now := time.Now()

	for _, order := range e.book.Orders() {
		if !order.IsResting() {
			continue
		}
		triggered, reason := e.evaluate(order, mid, now, includeAge)
		if !triggered {
			continue
		}
		logger.Infof("订单 %s 触发 %s: side=%s placementPrice=%v mid=%v age=%v",
			order.OrderID, reason, order.Side, order.PlacementPrice, mid, order.Age(now).Round(time.Second))
		e.cancelAndReplace(ctx, order, snap)
	}
}

// evaluate 评估单个订单的撤挂触发条件
func (e *Engine) evaluate(order *domain.Order, mid float64, now time.Time, includeAge bool) (bool, string) {
	drift := math.Abs(mid - order.PlacementPrice)
	if order.PlacementPrice > 0 && drift/order.PlacementPrice >= e.cfg.RepriceThreshold {
		return true, "reprice"
	}
	// 过期需要双条件同时成立：只变老不撤，只漂移不够也不撤
	if includeAge && order.Age(now) >= e.cfg.MaxOrderAge() && drift >= e.cfg.PriceExpiryThreshold {
		return true, "expire"
	}
	return false, ""
}

// cancelAndReplace 撤销订单并在同侧同层级重挂新报价。
//
// 撤单失败：订单状态原样保留（既不 untrack 也不认为已撤），下个 tick 重新评估。
// 撤单成功但重挂失败：订单已移除、未补挂（状态一致，不臆造幽灵订单），
// 下个 tick 的 ensureQuotes 会补上。
func (e *Engine) cancelAndReplace(ctx context.Context, order *domain.Order, snap *domain.Snapshot) {
	order.Status = domain.OrderStatusCancelRequested
	if err := e.gateway.CancelOrder(ctx, order.OrderID, e.market); err != nil {
		order.Status = domain.OrderStatusResting
		logger.Warnf("撤单失败（下个 tick 重试）: id=%s err=%v", order.OrderID, err)
		return
	}
	e.book.Untrack(order.OrderID)

	var intent QuoteIntent
	if order.Side == domain.SideSell && order.Level > 0 {
		intent = e.extraSellQuote(order.Level, snap.Mid())
	} else {
		intent = e.quoteForSide(order.Side, snap.Mid())
	}
	e.placeQuote(ctx, intent, snap)
}

// placeQuote 执行一个报价意图：下单并登记到本地订单簿
func (e *Engine) placeQuote(ctx context.Context, intent QuoteIntent, snap *domain.Snapshot) {
	orderID, err := e.gateway.PlaceOrder(ctx, e.market, intent.Side, intent.Price, intent.Size)
	if err != nil {
		logger.Warnf("下单失败（下个 tick 重试）: side=%s price=%v size=%v err=%v",
			intent.Side, intent.Price, intent.Size, err)
		return
	}

	order := &domain.Order{
		OrderID:        orderID,
		Market:         e.market,
		Side:           intent.Side,
		Price:          intent.Price,
		Size:           intent.Size,
		PlacementPrice: snap.Mid(),
		PlacedAt:       time.Now(),
		Status:         domain.OrderStatusResting,
		Level:          intent.Level,
	}
	if err := e.book.Track(order); err != nil {
		logger.Errorf("登记订单失败: %v", err)
		return
	}
	logger.Infof("已挂单: id=%s side=%s level=%d price=%v size=%v notional=%.2f",
		orderID, intent.Side, intent.Level, intent.Price, intent.Size, order.Notional())
}

// syncFills 对照交易所挂单列表检测成交：本地 resting 但交易所已不存在的订单视为成交，
// 随即在相反方向按当前点差补一笔同等数量的报价（兑现一次往返）。
func (e *Engine) syncFills(ctx context.Context, snap *domain.Snapshot) {
	open, err := e.gateway.OpenOrders(ctx)
	if err != nil {
		logger.Warnf("查询挂单失败，跳过成交同步: %v", err)
		return
	}

	openSet := make(map[string]struct{}, len(open))
	for _, o := range open {
		openSet[o.OrderID] = struct{}{}
	}

	for _, order := range e.book.Orders() {
		if !order.IsResting() {
			continue
		}
		if _, stillOpen := openSet[order.OrderID]; stillOpen {
			continue
		}
		filled, ok := e.book.MarkFilled(order.OrderID)
		if !ok {
			continue
		}
		logger.Infof("订单成交: id=%s side=%s price=%v size=%v",
			filled.OrderID, filled.Side, filled.Price, filled.Size)

		// 反向报价，数量沿用成交订单（仍做名义金额钳制）
		intent := e.quoteForSide(filled.Side.Opposite(), snap.Mid())
		intent.Size = e.clampNotional(intent.Price, filled.Size)
		e.placeQuote(ctx, intent, snap)
	}
}

// ensureQuotes 确保两侧主报价存在；市场处于下跌状态时再补齐额外卖单层级
func (e *Engine) ensureQuotes(ctx context.Context, snap *domain.Snapshot) {
	mid := snap.Mid()

	if !e.hasRestingLevel(domain.SideBuy, 0) {
		e.placeQuote(ctx, e.quoteForSide(domain.SideBuy, mid), snap)
	}
	if !e.hasRestingLevel(domain.SideSell, 0) {
		e.placeQuote(ctx, e.quoteForSide(domain.SideSell, mid), snap)
	}

	// 额外卖单层级：仅当参考价已知且当前 mid 低于参考价（保守规则）
	if e.cfg.ExtraSellLevels > 0 && e.referencePrice > 0 && mid < e.referencePrice {
		for level := 1; level <= e.cfg.ExtraSellLevels; level++ {
			if !e.hasRestingLevel(domain.SideSell, level) {
				e.placeQuote(ctx, e.extraSellQuote(level, mid), snap)
			}
		}
	}
}

func (e *Engine) hasRestingLevel(side domain.Side, level int) bool {
	for _, order := range e.book.FindBySide(side) {
		if order.Level == level && order.IsResting() {
			return true
		}
	}
	return false
}

// placeStartOrderOnce 下一次性启动测试单（如配置）。绕过 sizing 策略，只尝试一次。
func (e *Engine) placeStartOrderOnce(ctx context.Context) {
	if !e.cfg.HasStartOrder() || e.startOrderPlaced {
		return
	}
	e.startOrderPlaced = true

	e.mu.Lock()
	defer e.mu.Unlock()

	orderID, err := e.gateway.PlaceOrder(ctx, e.market, domain.SideBuy, e.cfg.StartOrderPrice, e.cfg.StartOrderSize)
	if err != nil {
		logger.Warnf("启动测试单下单失败（不重试）: %v", err)
		return
	}
	order := &domain.Order{
		OrderID:        orderID,
		Market:         e.market,
		Side:           domain.SideBuy,
		Price:          e.cfg.StartOrderPrice,
		Size:           e.cfg.StartOrderSize,
		PlacementPrice: e.cfg.StartOrderPrice,
		PlacedAt:       time.Now(),
		Status:         domain.OrderStatusResting,
	}
	if err := e.book.Track(order); err != nil {
		logger.Errorf("登记启动测试单失败: %v", err)
		return
	}
	logger.Infof("启动测试单已挂: id=%s price=%v size=%v", orderID, order.Price, order.Size)
}
