package engine

import (
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{
		Spread:  0.0004,
		SizeMin: 0.0002,
		SizeMax: 0.0004,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}

	if cfg.MinUSDOrderSize != 20 {
		t.Fatalf("MinUSDOrderSize got=%v want=20", cfg.MinUSDOrderSize)
	}
	if cfg.MaxUSDOrderSize != 50 {
		t.Fatalf("MaxUSDOrderSize got=%v want=50", cfg.MaxUSDOrderSize)
	}
	if cfg.MaxOrderAge() != 60*time.Second {
		t.Fatalf("MaxOrderAge got=%v want=60s", cfg.MaxOrderAge())
	}
	if cfg.PriceExpiryThreshold != 500 {
		t.Fatalf("PriceExpiryThreshold got=%v want=500", cfg.PriceExpiryThreshold)
	}
	// 默认 repriceThreshold = 2*spread
	if cfg.RepriceThreshold != 2*0.0004 {
		t.Fatalf("RepriceThreshold got=%v want=%v", cfg.RepriceThreshold, 2*0.0004)
	}
	if cfg.CheckInterval() != 5*time.Second {
		t.Fatalf("CheckInterval got=%v want=5s", cfg.CheckInterval())
	}
}

func TestConfigInvalid(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"no spread", Config{SizeMin: 1, SizeMax: 2}},
		{"no sizing", Config{Spread: 0.001}},
		{"inverted size bounds", Config{Spread: 0.001, SizeMin: 2, SizeMax: 1}},
		{"inverted usd bounds", Config{Spread: 0.001, USDSizeMin: 40, USDSizeMax: 30}},
		{"mixed sizing modes", Config{Spread: 0.001, SizeMin: 1, SizeMax: 2, USDOrderSize: 30}},
		{"crossed notional bounds", Config{Spread: 0.001, USDOrderSize: 30, MinUSDOrderSize: 60, MaxUSDOrderSize: 50}},
		{"start order missing size", Config{Spread: 0.001, USDOrderSize: 30, StartOrderPrice: 90000}},
		{"negative extra levels", Config{Spread: 0.001, USDOrderSize: 30, ExtraSellLevels: -1}},
	}

	for _, tc := range cases {
		cfg := tc.cfg
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestConfigExplicitRepriceThresholdKept(t *testing.T) {
	cfg := Config{Spread: 0.0004, USDOrderSize: 30, RepriceThreshold: 0.005}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if cfg.RepriceThreshold != 0.005 {
		t.Fatalf("explicit repriceThreshold overridden: %v", cfg.RepriceThreshold)
	}
}
