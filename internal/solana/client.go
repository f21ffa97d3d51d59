// Package solana is a thin typed client for the subset of the Solana
// JSON-RPC interface the tracker needs. Loosely-typed node payloads are
// decoded and validated here; nothing above this package sees raw JSON.
package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/b9b4ymiN/botwallet/internal/metrics"
)

// ChainClient abstracts the RPC surface for testing.
type ChainClient interface {
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
	GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error)
	GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]TokenAccount, error)
	GetBalance(ctx context.Context, address string) (int64, error)
	GetAccountInfo(ctx context.Context, address string) ([]byte, error)
}

// Client talks to one RPC endpoint. A shared token-bucket limiter bounds the
// aggregate request rate across all concurrent scans; pass nil to disable.
type Client struct {
	httpClient *http.Client
	rpcURL     string
	requestID  atomic.Int64
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates an RPC client for the given endpoint.
func NewClient(rpcURL string, limiter *rate.Limiter, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		rpcURL:     rpcURL,
		limiter:    limiter,
		logger:     logger,
	}
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req := request{
		JSONRPC: "2.0",
		ID:      int(c.requestID.Add(1)),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.RPCCallsTotal.WithLabelValues(method, "network_error").Inc()
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RPCCallsTotal.WithLabelValues(method, "network_error").Inc()
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.RPCCallsTotal.WithLabelValues(method, fmt.Sprintf("http_%d", resp.StatusCode)).Inc()
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		metrics.RPCCallsTotal.WithLabelValues(method, "decode_error").Inc()
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		metrics.RPCCallsTotal.WithLabelValues(method, "rpc_error").Inc()
		return nil, rpcResp.Error
	}

	metrics.RPCCallsTotal.WithLabelValues(method, "ok").Inc()
	return rpcResp.Result, nil
}

// GetTransaction fetches one confirmed transaction by signature. Returns
// (nil, nil) when the node no longer has it.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"commitment":                     "confirmed",
			"maxSupportedTransactionVersion": 0,
		},
	}
	result, err := c.call(ctx, "getTransaction", params)
	if err != nil {
		return nil, fmt.Errorf("getTransaction(%s): %w", signature, err)
	}
	if string(result) == "null" {
		return nil, nil
	}

	var raw rawTransaction
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("getTransaction(%s): decode: %w", signature, err)
	}

	tx := &Transaction{
		Slot:      raw.Slot,
		BlockTime: raw.BlockTime,
		Meta:      raw.Meta,
	}
	for _, k := range raw.Transaction.Message.AccountKeys {
		tx.AccountKeys = append(tx.AccountKeys, k.Pubkey)
	}
	return tx, nil
}

// GetSignaturesForAddress returns up to limit signatures for an account,
// newest first (node ordering).
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000 // RPC page cap
	}
	params := []interface{}{
		address,
		map[string]interface{}{"commitment": "confirmed", "limit": limit},
	}
	result, err := c.call(ctx, "getSignaturesForAddress", params)
	if err != nil {
		return nil, fmt.Errorf("getSignaturesForAddress(%s): %w", address, err)
	}

	var sigs []SignatureInfo
	if err := json.Unmarshal(result, &sigs); err != nil {
		return nil, fmt.Errorf("getSignaturesForAddress(%s): decode: %w", address, err)
	}
	return sigs, nil
}

// GetTokenAccountsByOwner returns the owner's token accounts for one mint.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]TokenAccount, error) {
	params := []interface{}{
		owner,
		map[string]interface{}{"mint": mint},
		map[string]interface{}{"encoding": "jsonParsed", "commitment": "confirmed"},
	}
	result, err := c.call(ctx, "getTokenAccountsByOwner", params)
	if err != nil {
		return nil, fmt.Errorf("getTokenAccountsByOwner(%s): %w", owner, err)
	}

	var raw rawTokenAccounts
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("getTokenAccountsByOwner(%s): decode: %w", owner, err)
	}

	accounts := make([]TokenAccount, 0, len(raw.Value))
	for _, v := range raw.Value {
		accounts = append(accounts, TokenAccount{
			Pubkey:   v.Pubkey,
			UIAmount: v.Account.Data.Parsed.Info.TokenAmount.Value(),
		})
	}
	return accounts, nil
}

// GetBalance returns the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, address string) (int64, error) {
	params := []interface{}{
		address,
		map[string]interface{}{"commitment": "confirmed"},
	}
	result, err := c.call(ctx, "getBalance", params)
	if err != nil {
		return 0, fmt.Errorf("getBalance(%s): %w", address, err)
	}

	var raw rawBalance
	if err := json.Unmarshal(result, &raw); err != nil {
		return 0, fmt.Errorf("getBalance(%s): decode: %w", address, err)
	}
	return raw.Value, nil
}

// GetAccountInfo returns the raw account data, or nil when the account does
// not exist.
func (c *Client) GetAccountInfo(ctx context.Context, address string) ([]byte, error) {
	params := []interface{}{
		address,
		map[string]interface{}{"encoding": "base64", "commitment": "confirmed"},
	}
	result, err := c.call(ctx, "getAccountInfo", params)
	if err != nil {
		return nil, fmt.Errorf("getAccountInfo(%s): %w", address, err)
	}

	var raw rawAccountInfo
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("getAccountInfo(%s): decode: %w", address, err)
	}
	if raw.Value == nil || len(raw.Value.Data) == 0 {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(raw.Value.Data[0])
	if err != nil {
		return nil, fmt.Errorf("getAccountInfo(%s): base64: %w", address, err)
	}
	return data, nil
}
