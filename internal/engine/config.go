package engine

import (
	"fmt"
	"time"
)

// Config: 单市场流动性做市引擎配置。
//
// 运行期间不可变。sizing 二选一：
//   - 基础资产数量区间 [sizeMin, sizeMax]（每次下单在区间内随机取值）
//   - USD 名义金额（usdOrderSize 单值，或 [usdSizeMin, usdSizeMax] 区间），
//     换算为基础资产数量 = usd / 当前价格
//
// 无论哪种方式，最终订单都必须满足 minUsdOrderSize <= price*size <= maxUsdOrderSize，
// 越界的订单会被钳到边界值，而不是被丢弃。
type Config struct {
	// ====== sizing ======
	SizeMin float64 `yaml:"sizeMin" json:"sizeMin"`
	SizeMax float64 `yaml:"sizeMax" json:"sizeMax"`

	USDSizeMin   float64 `yaml:"usdSizeMin" json:"usdSizeMin"`
	USDSizeMax   float64 `yaml:"usdSizeMax" json:"usdSizeMax"`
	USDOrderSize float64 `yaml:"usdOrderSize" json:"usdOrderSize"`

	// MinUSDOrderSize / MaxUSDOrderSize: 订单名义金额（USD）的硬边界（默认 20 / 50）。
	MinUSDOrderSize float64 `yaml:"minUsdOrderSize" json:"minUsdOrderSize"`
	MaxUSDOrderSize float64 `yaml:"maxUsdOrderSize" json:"maxUsdOrderSize"`

	// ====== 报价 ======
	// Spread: 报价点差（小数）。buy = mid*(1-spread)，sell = mid*(1+spread)。
	Spread float64 `yaml:"spread" json:"spread"`

	// ExtraSellLevels: 额外卖单层级数（默认 0）。
	// 仅当已知参考价且当前 mid 低于参考价时才挂出，用于价格回升时分批兑现。
	ExtraSellLevels int `yaml:"extraSellLevels" json:"extraSellLevels"`

	// ReferencePrice: 参考价（可选）。为 0 时取引擎启动后首个快照的 mid。
	ReferencePrice float64 `yaml:"referencePrice" json:"referencePrice"`

	// ====== 重定价 / 过期 ======
	// RepriceThreshold: 漂移重定价阈值（小数）。默认 2*spread：
	// 市场相对下单时的 mid 移动超过两倍点差时撤单重挂，兼顾跟价与避免频繁撤改。
	RepriceThreshold float64 `yaml:"repriceThreshold" json:"repriceThreshold"`

	// MaxOrderAgeSeconds: 订单最大存活时间（秒，默认 60）。
	// 注意：过期需要同时满足「绝对漂移 >= priceExpiryThreshold」，
	// 单纯变老但价格仍然合适的订单不会被撤。
	MaxOrderAgeSeconds int `yaml:"maxOrderAgeSeconds" json:"maxOrderAgeSeconds"`

	// PriceExpiryThreshold: 过期判断的绝对价格漂移阈值（价格单位，默认 500）。
	PriceExpiryThreshold float64 `yaml:"priceExpiryThreshold" json:"priceExpiryThreshold"`

	// DynamicRepriceOnBBO: BBO 推送到达时立即做一次漂移检查（不含过期检查），
	// 不等下一个 tick。
	DynamicRepriceOnBBO bool `yaml:"dynamicRepriceOnBbo" json:"dynamicRepriceOnBbo"`

	// ====== tick ======
	// CheckIntervalSeconds: tick 间隔（秒，默认 5）。
	CheckIntervalSeconds int `yaml:"checkIntervalSeconds" json:"checkIntervalSeconds"`

	// SettleWaitMs: 启动对账时 bulk-cancel 与查询之间的等待（毫秒，默认 500）。
	SettleWaitMs int `yaml:"settleWaitMs" json:"settleWaitMs"`

	// ====== 一次性启动测试单（可选）======
	// 显式指定 price/size，绕过 sizing 策略，引擎启动时只下一次。
	StartOrderPrice float64 `yaml:"startOrderPrice" json:"startOrderPrice"`
	StartOrderSize  float64 `yaml:"startOrderSize" json:"startOrderSize"`
}

// Validate 校验配置并填充默认值。配置非法时返回错误（构造阶段 fail fast）。
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config 不能为空")
	}

	if c.Spread <= 0 {
		return fmt.Errorf("spread 必须 > 0")
	}

	// sizing 模式检查
	baseMode := c.SizeMin > 0 || c.SizeMax > 0
	usdRangeMode := c.USDSizeMin > 0 || c.USDSizeMax > 0
	usdSingleMode := c.USDOrderSize > 0

	switch {
	case baseMode:
		if c.SizeMin <= 0 || c.SizeMax <= 0 {
			return fmt.Errorf("sizeMin/sizeMax 必须同时 > 0")
		}
		if c.SizeMin > c.SizeMax {
			return fmt.Errorf("sizeMin(%v) 不能大于 sizeMax(%v)", c.SizeMin, c.SizeMax)
		}
		if usdRangeMode || usdSingleMode {
			return fmt.Errorf("基础资产 sizing 与 USD sizing 不能同时配置")
		}
	case usdSingleMode:
		if usdRangeMode {
			return fmt.Errorf("usdOrderSize 与 usdSizeMin/usdSizeMax 不能同时配置")
		}
	case usdRangeMode:
		if c.USDSizeMin <= 0 || c.USDSizeMax <= 0 {
			return fmt.Errorf("usdSizeMin/usdSizeMax 必须同时 > 0")
		}
		if c.USDSizeMin > c.USDSizeMax {
			return fmt.Errorf("usdSizeMin(%v) 不能大于 usdSizeMax(%v)", c.USDSizeMin, c.USDSizeMax)
		}
	default:
		return fmt.Errorf("必须配置 sizing：sizeMin/sizeMax 或 usdOrderSize 或 usdSizeMin/usdSizeMax")
	}

	// defaults
	if c.MinUSDOrderSize <= 0 {
		c.MinUSDOrderSize = 20
	}
	if c.MaxUSDOrderSize <= 0 {
		c.MaxUSDOrderSize = 50
	}
	if c.MinUSDOrderSize > c.MaxUSDOrderSize {
		return fmt.Errorf("minUsdOrderSize(%v) 不能大于 maxUsdOrderSize(%v)", c.MinUSDOrderSize, c.MaxUSDOrderSize)
	}

	if c.RepriceThreshold <= 0 {
		c.RepriceThreshold = 2 * c.Spread
	}
	if c.MaxOrderAgeSeconds <= 0 {
		c.MaxOrderAgeSeconds = 60
	}
	if c.PriceExpiryThreshold <= 0 {
		c.PriceExpiryThreshold = 500
	}
	if c.CheckIntervalSeconds <= 0 {
		c.CheckIntervalSeconds = 5
	}
	if c.SettleWaitMs <= 0 {
		c.SettleWaitMs = 500
	}

	if c.ExtraSellLevels < 0 {
		return fmt.Errorf("extraSellLevels 不能为负")
	}
	if c.ReferencePrice < 0 {
		return fmt.Errorf("referencePrice 不能为负")
	}

	// 启动测试单：price/size 要么都配置，要么都不配置
	if (c.StartOrderPrice > 0) != (c.StartOrderSize > 0) {
		return fmt.Errorf("startOrderPrice 与 startOrderSize 必须同时配置")
	}

	return nil
}

// MaxOrderAge 返回订单最大存活时间
func (c *Config) MaxOrderAge() time.Duration {
	return time.Duration(c.MaxOrderAgeSeconds) * time.Second
}

// CheckInterval 返回 tick 间隔
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

// SettleWait 返回对账等待时间
func (c *Config) SettleWait() time.Duration {
	return time.Duration(c.SettleWaitMs) * time.Millisecond
}

// HasStartOrder 是否配置了一次性启动测试单
func (c *Config) HasStartOrder() bool {
	return c.StartOrderPrice > 0 && c.StartOrderSize > 0
}
