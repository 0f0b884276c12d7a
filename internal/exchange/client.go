package exchange

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/liqbot/gomm/internal/domain"
	"github.com/liqbot/gomm/pkg/ratelimit"
)

// Client is a minimal signed JSON-RPC client for Hyperliquid spot trading.
// It implements ports.Gateway and ports.SnapshotSource.
type Client struct {
	http    *resty.Client
	rpcURL  string
	signer  *Signer
	limiter *ratelimit.TokenBucket
}

// Options configures the exchange client.
type Options struct {
	RPCURL     string
	Address    string
	PrivateKey string // hex, with or without 0x prefix

	// RateLimit: max requests per second (default 10, burst 20).
	RateLimit int
}

// NewClient builds the RPC client. Fails fast on an invalid private key.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.RPCURL) == "" {
		return nil, errors.New("exchange: rpc url is required")
	}

	signer, err := NewSigner(opts.Address, opts.PrivateKey)
	if err != nil {
		return nil, err
	}

	rate := opts.RateLimit
	if rate <= 0 {
		rate = 10
	}

	// resty picks up HTTP(S)_PROXY from the environment automatically.
	http := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &Client{
		http:    http,
		rpcURL:  opts.RPCURL,
		signer:  signer,
		limiter: ratelimit.NewTokenBucket(2*rate, rate),
	}, nil
}

// Address returns the account address used for signing.
func (c *Client) Address() string {
	return c.signer.Address()
}

type rpcRequest struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
	ID     int            `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// call signs the params, posts the request and decodes result into out (may be nil).
func (c *Client) call(ctx context.Context, method string, params map[string]any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	signature, timestamp, err := c.signer.SignPayload(method, params)
	if err != nil {
		return errors.Wrapf(err, "sign %s", method)
	}

	signed := make(map[string]any, len(params)+2)
	for k, v := range params {
		signed[k] = v
	}
	signed["signature"] = signature
	signed["timestamp"] = timestamp

	var rpcResp rpcResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(rpcRequest{Method: method, Params: signed, ID: 1}).
		SetResult(&rpcResp).
		Post(c.rpcURL)
	if err != nil {
		return errors.Wrapf(err, "rpc %s", method)
	}
	if resp.IsError() {
		return errors.Errorf("rpc %s: http %d: %s", method, resp.StatusCode(), resp.String())
	}
	if len(rpcResp.Error) > 0 && string(rpcResp.Error) != "null" {
		return errors.Errorf("rpc %s: %s", method, string(rpcResp.Error))
	}
	if out != nil && len(rpcResp.Result) > 0 && string(rpcResp.Result) != "null" {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return errors.Wrapf(err, "decode %s result", method)
		}
	}
	return nil
}

// amount renders a float as an exact decimal JSON number (no float formatting artifacts).
func amount(v float64) json.Number {
	return json.Number(decimal.NewFromFloat(v).String())
}

// PlaceOrder places a limit order and returns the exchange order id.
func (c *Client) PlaceOrder(ctx context.Context, market string, side domain.Side, price, size float64) (string, error) {
	params := map[string]any{
		"market":        market,
		"side":          string(side),
		"price":         amount(price),
		"size":          amount(size),
		"sender":        c.signer.Address(),
		"clientOrderId": uuid.NewString(),
	}
	var result struct {
		OrderID string `json:"orderId"`
	}
	if err := c.call(ctx, "placeSpotOrder", params, &result); err != nil {
		return "", err
	}
	if result.OrderID == "" {
		return "", errors.New("placeSpotOrder: empty orderId in result")
	}
	return result.OrderID, nil
}

// CancelOrder cancels a single resting order.
func (c *Client) CancelOrder(ctx context.Context, orderID string, market string) error {
	params := map[string]any{
		"orderId": orderID,
		"market":  market,
		"sender":  c.signer.Address(),
	}
	return c.call(ctx, "cancelSpotOrder", params, nil)
}

// CancelAllOrders bulk-cancels every open order of the account, across all markets.
func (c *Client) CancelAllOrders(ctx context.Context) error {
	params := map[string]any{
		"sender": c.signer.Address(),
	}
	return c.call(ctx, "cancelAllSpotOrders", params, nil)
}

type openOrderResult struct {
	OrderID string  `json:"orderId"`
	Market  string  `json:"market"`
	Side    string  `json:"side"`
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
}

// OpenOrders lists the account's currently open orders (all markets).
func (c *Client) OpenOrders(ctx context.Context) ([]*domain.Order, error) {
	params := map[string]any{
		"sender": c.signer.Address(),
	}
	var result []openOrderResult
	if err := c.call(ctx, "getOpenSpotOrders", params, &result); err != nil {
		return nil, err
	}

	orders := make([]*domain.Order, 0, len(result))
	for _, r := range result {
		orders = append(orders, &domain.Order{
			OrderID: r.OrderID,
			Market:  r.Market,
			Side:    domain.Side(strings.ToLower(r.Side)),
			Price:   r.Price,
			Size:    r.Size,
			Status:  domain.OrderStatusResting,
		})
	}
	return orders, nil
}

type snapshotResult struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}

// GetSnapshot fetches the current top-of-book for a market.
func (c *Client) GetSnapshot(ctx context.Context, market string) (*domain.Snapshot, error) {
	params := map[string]any{
		"market": market,
		"sender": c.signer.Address(),
	}
	var result snapshotResult
	if err := c.call(ctx, "getSpotSnapshot", params, &result); err != nil {
		return nil, err
	}
	return &domain.Snapshot{
		Bid:        result.Bid,
		Ask:        result.Ask,
		ObservedAt: time.Now(),
	}, nil
}
