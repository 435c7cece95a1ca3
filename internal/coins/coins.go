// Package coins mints creation coins through the coin service and reads
// token balances from the chain over JSON-RPC.
package coins

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"

	"dailymint/internal/apperr"
	"dailymint/internal/breaker"
)

const (
	DefaultChainID  = 8453
	TokenDecimals   = 18
	coinProvider    = "coin_api"
	chainProvider   = "chain_rpc"
	maxResponseSize = 1 << 20
)

// CoinRequest describes a coin to deploy for one creation.
type CoinRequest struct {
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	URI             string `json:"uri"`
	PayoutRecipient string `json:"payoutRecipient"`
	ChainID         int64  `json:"chainId"`
}

type CoinResult struct {
	Address string `json:"address"`
	TxHash  string `json:"txHash,omitempty"`
}

// Minter deploys coins.
type Minter interface {
	CreateCoin(ctx context.Context, req CoinRequest) (CoinResult, error)
}

// BalanceReader reads ERC-20 balances.
type BalanceReader interface {
	BalanceOf(ctx context.Context, token, holder string) (decimal.Decimal, error)
}

type Config struct {
	CoinAPIURL string
	CoinAPIKey string
	RPCURL     string
	ChainID    int64
	Timeout    time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	breakers   *breaker.Manager
	logger     *zap.Logger
	rpcID      atomic.Int64
}

func NewClient(cfg Config, breakers *breaker.Manager, logger *zap.Logger) *Client {
	if cfg.ChainID == 0 {
		cfg.ChainID = DefaultChainID
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if breakers == nil {
		breakers = breaker.NewManager(breaker.DefaultConfig(), logger)
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breakers:   breakers,
		logger:     logger.With(zap.String("component", "coins")),
	}
}

func (c *Client) ChainID() int64 { return c.cfg.ChainID }

// CreateCoin asks the coin service to deploy a coin and returns its address.
func (c *Client) CreateCoin(ctx context.Context, req CoinRequest) (CoinResult, error) {
	if c.cfg.CoinAPIURL == "" {
		return CoinResult{}, apperr.Upstream(coinProvider, errors.New("coin service not configured"))
	}
	if req.ChainID == 0 {
		req.ChainID = c.cfg.ChainID
	}
	if !IsAddress(req.PayoutRecipient) {
		return CoinResult{}, apperr.Validation("payout recipient %q is not an address", req.PayoutRecipient)
	}
	return breaker.Do(ctx, c.breakers, coinProvider, func(ctx context.Context) (CoinResult, error) {
		body, err := json.Marshal(req)
		if err != nil {
			return CoinResult{}, fmt.Errorf("marshal coin request: %w", err)
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.CoinAPIURL, bytes.NewReader(body))
		if err != nil {
			return CoinResult{}, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.cfg.CoinAPIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.cfg.CoinAPIKey)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return CoinResult{}, apperr.Upstream(coinProvider, err)
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return CoinResult{}, apperr.Upstream(coinProvider, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.logger.Error("coin creation failed", zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))
			return CoinResult{}, apperr.Upstream(coinProvider, fmt.Errorf("status %d", resp.StatusCode))
		}

		res := CoinResult{
			Address: firstString(raw, "address", "coinAddress", "data.address"),
			TxHash:  firstString(raw, "txHash", "hash", "data.txHash"),
		}
		if !IsAddress(res.Address) {
			return CoinResult{}, apperr.Upstream(coinProvider, errors.New("response carries no coin address"))
		}
		return res, nil
	})
}

// BalanceOf calls balanceOf(holder) on the token contract and returns the
// amount scaled by TokenDecimals.
func (c *Client) BalanceOf(ctx context.Context, token, holder string) (decimal.Decimal, error) {
	if c.cfg.RPCURL == "" {
		return decimal.Zero, apperr.Upstream(chainProvider, errors.New("chain rpc not configured"))
	}
	if !IsAddress(token) {
		return decimal.Zero, apperr.Validation("token %q is not an address", token)
	}
	if !IsAddress(holder) {
		return decimal.Zero, apperr.Validation("holder %q is not an address", holder)
	}
	data := BalanceOfCallData(holder)

	return breaker.Do(ctx, c.breakers, chainProvider, func(ctx context.Context) (decimal.Decimal, error) {
		result, err := c.rpc(ctx, "eth_call", []any{
			map[string]string{"to": token, "data": data},
			"latest",
		})
		if err != nil {
			return decimal.Zero, err
		}
		raw, err := ParseHexQuantity(result.String())
		if err != nil {
			return decimal.Zero, apperr.Upstream(chainProvider, err)
		}
		return decimal.NewFromBigInt(raw, -TokenDecimals), nil
	})
}

func (c *Client) rpc(ctx context.Context, method string, params []any) (gjson.Result, error) {
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      c.rpcID.Add(1),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("marshal rpc: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RPCURL, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, apperr.Upstream(chainProvider, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return gjson.Result{}, apperr.Upstream(chainProvider, err)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, apperr.Upstream(chainProvider, fmt.Errorf("%s: status %d", method, resp.StatusCode))
	}
	if e := gjson.GetBytes(raw, "error"); e.Exists() {
		return gjson.Result{}, apperr.Upstream(chainProvider, fmt.Errorf("%s: rpc error %d: %s", method, e.Get("code").Int(), e.Get("message").String()))
	}
	return gjson.GetBytes(raw, "result"), nil
}

// BalanceOfCallData encodes balanceOf(address) for holder.
func BalanceOfCallData(holder string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte("balanceOf(address)"))
	selector := h.Sum(nil)[:4]
	addr := strings.ToLower(strings.TrimPrefix(holder, "0x"))
	return "0x" + hex.EncodeToString(selector) + strings.Repeat("0", 64-len(addr)) + addr
}

// ParseHexQuantity decodes a 0x-prefixed hex quantity. "0x" alone is zero.
func ParseHexQuantity(s string) (*big.Int, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, fmt.Errorf("not a hex quantity: %q", s)
	}
	digits := s[2:]
	if digits == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return nil, fmt.Errorf("not a hex quantity: %q", s)
	}
	return v, nil
}

// IsAddress reports whether s looks like a 20-byte hex address.
func IsAddress(s string) bool {
	if len(s) != 42 || !(strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}

// Symbol derives a ticker from a title: up to six uppercase letters or digits.
func Symbol(title string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(title) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == 6 {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "DAILY"
	}
	return b.String()
}

func firstString(raw []byte, paths ...string) string {
	for _, p := range paths {
		if v := gjson.GetBytes(raw, p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
