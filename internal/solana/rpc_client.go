package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements ChainReader using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ ChainReader = (*HTTPClient)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// GetTransaction retrieves a transaction by signature with parsed instruction
// payloads. Returns (nil, nil) when the transaction is not found.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result *getTransactionResult
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}

	if result == nil || (result.Slot == 0 && result.BlockTime == nil) {
		// Transaction not found
		return nil, nil
	}

	tx := &Transaction{
		Slot:      result.Slot,
		Signature: signature,
	}

	if result.BlockTime != nil {
		tx.BlockTime = *result.BlockTime
	}

	if result.Meta != nil {
		tx.Meta = &TransactionMeta{
			Err:         result.Meta.Err,
			LogMessages: result.Meta.LogMessages,
		}
	}

	if result.Transaction != nil && result.Transaction.Message != nil {
		tx.Message = convertMessage(result.Transaction.Message)
	}

	return tx, nil
}

// convertMessage maps the raw jsonParsed message into the domain shape.
func convertMessage(raw *getTransactionMessage) *TransactionMessage {
	msg := &TransactionMessage{}

	for _, key := range raw.AccountKeys {
		msg.AccountKeys = append(msg.AccountKeys, key.Pubkey)
	}

	for _, ins := range raw.Instructions {
		instruction := Instruction{
			ProgramID: ins.ProgramID,
			Accounts:  ins.Accounts,
		}
		if transfer := parseTokenPayload(ins.Parsed); transfer != nil {
			instruction.Parsed = transfer
		}
		msg.Instructions = append(msg.Instructions, instruction)
	}

	return msg
}

// parseTokenPayload extracts a parsed SPL token payload, if present.
// The "parsed" field is an object for instructions the provider understands
// and a base58 string (or absent) otherwise.
func parseTokenPayload(raw json.RawMessage) *ParsedTransfer {
	if len(raw) == 0 {
		return nil
	}

	var payload struct {
		Type string `json:"type"`
		Info struct {
			Amount      string `json:"amount"`
			TokenAmount *struct {
				Amount string `json:"amount"`
			} `json:"tokenAmount"`
			Source      string `json:"source"`
			Destination string `json:"destination"`
			Authority   string `json:"authority"`
			Mint        string `json:"mint"`
		} `json:"info"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		// Not an object (e.g. memo program data); treat as unparsed.
		return nil
	}
	if payload.Type == "" {
		return nil
	}

	transfer := &ParsedTransfer{
		Type:        payload.Type,
		Source:      payload.Info.Source,
		Destination: payload.Info.Destination,
		Authority:   payload.Info.Authority,
		Mint:        payload.Info.Mint,
	}

	// transfer carries info.amount; transferChecked nests it in tokenAmount.
	amountStr := payload.Info.Amount
	if amountStr == "" && payload.Info.TokenAmount != nil {
		amountStr = payload.Info.TokenAmount.Amount
	}
	if amountStr != "" {
		if amount, err := strconv.ParseInt(amountStr, 10, 64); err == nil {
			transfer.Amount = amount
		}
	}

	return transfer
}

// getTransactionResult is the raw RPC response for getTransaction.
type getTransactionResult struct {
	Slot        int64               `json:"slot"`
	BlockTime   *int64              `json:"blockTime"`
	Meta        *getTransactionMeta `json:"meta"`
	Transaction *getTransactionTx   `json:"transaction"`
}

type getTransactionMeta struct {
	Err         interface{} `json:"err"`
	LogMessages []string    `json:"logMessages"`
}

type getTransactionTx struct {
	Message *getTransactionMessage `json:"message"`
}

type getTransactionMessage struct {
	AccountKeys  []getAccountKey  `json:"accountKeys"`
	Instructions []getInstruction `json:"instructions"`
}

// getAccountKey is one jsonParsed account key entry.
type getAccountKey struct {
	Pubkey string `json:"pubkey"`
}

type getInstruction struct {
	ProgramID string          `json:"programId"`
	Accounts  []string        `json:"accounts,omitempty"`
	Parsed    json.RawMessage `json:"parsed,omitempty"`
}

// GetSignaturesForAddress retrieves up to limit signatures referencing an
// address, newest first.
func (c *HTTPClient) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	params := []interface{}{address}
	if limit > 0 {
		params = append(params, map[string]interface{}{"limit": limit})
	}

	var result []getSignaturesResult
	if err := c.call(ctx, "getSignaturesForAddress", params, &result); err != nil {
		return nil, err
	}

	sigs := make([]SignatureInfo, len(result))
	for i, r := range result {
		sigs[i] = SignatureInfo{
			Signature: r.Signature,
			Slot:      r.Slot,
			BlockTime: r.BlockTime,
			Err:       r.Err,
		}
	}

	return sigs, nil
}

// getSignaturesResult is the raw RPC response item for getSignaturesForAddress.
type getSignaturesResult struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}

// GetSignatureStatus retrieves the confirmation status of a signature,
// searching the full transaction history. Returns (nil, nil) when the
// signature is unknown.
func (c *HTTPClient) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	params := []interface{}{
		[]string{signature},
		map[string]interface{}{"searchTransactionHistory": true},
	}

	var result getSignatureStatusesResult
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}

	if len(result.Value) == 0 || result.Value[0] == nil {
		return nil, nil
	}

	v := result.Value[0]
	return &SignatureStatus{
		Slot:               v.Slot,
		Confirmations:      v.Confirmations,
		ConfirmationStatus: v.ConfirmationStatus,
		Err:                v.Err,
	}, nil
}

// getSignatureStatusesResult is the raw RPC response for getSignatureStatuses.
type getSignatureStatusesResult struct {
	Value []*getSignatureStatusValue `json:"value"`
}

type getSignatureStatusValue struct {
	Slot               int64       `json:"slot"`
	Confirmations      *int        `json:"confirmations"`
	ConfirmationStatus string      `json:"confirmationStatus"`
	Err                interface{} `json:"err"`
}
