package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// rpcServer answers every JSON-RPC call with the supplied result payload.
func rpcServer(t *testing.T, result string, gotMethod *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if gotMethod != nil {
			*gotMethod = req.Method
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  json.RawMessage(result),
		})
	}))
}

func testClient(url string) *HTTPClient {
	return NewHTTPClient(url, WithMaxRetries(2), WithRetryDelay(time.Millisecond))
}

func TestGetTransaction_Parsed(t *testing.T) {
	result := `{
		"slot": 12345,
		"blockTime": 1700000000,
		"meta": {"err": null, "logMessages": ["Program log: ok"]},
		"transaction": {"message": {
			"accountKeys": [
				{"pubkey": "Payer111"},
				{"pubkey": "Dest111"}
			],
			"instructions": [
				{
					"programId": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
					"accounts": ["Src111", "Dest111", "Auth111"],
					"parsed": {"type": "transfer", "info": {
						"amount": "50000000",
						"source": "Src111",
						"destination": "Dest111",
						"authority": "Auth111"
					}}
				},
				{
					"programId": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
					"accounts": ["A", "B"],
					"parsed": {"type": "transferChecked", "info": {
						"tokenAmount": {"amount": "77"},
						"source": "A",
						"destination": "B",
						"mint": "Mint111"
					}}
				},
				{
					"programId": "Memo111",
					"parsed": "c29tZSBtZW1v"
				}
			]
		}}
	}`
	var method string
	srv := rpcServer(t, result, &method)
	defer srv.Close()

	tx, err := testClient(srv.URL).GetTransaction(context.Background(), "sig-1")
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if method != "getTransaction" {
		t.Errorf("method = %q", method)
	}
	if tx == nil || tx.Slot != 12345 || tx.BlockTime != 1700000000 {
		t.Fatalf("tx = %+v", tx)
	}
	if tx.Meta == nil || tx.Meta.Err != nil {
		t.Errorf("meta = %+v", tx.Meta)
	}
	if len(tx.Message.AccountKeys) != 2 || tx.Message.AccountKeys[0] != "Payer111" {
		t.Errorf("accountKeys = %v", tx.Message.AccountKeys)
	}
	if len(tx.Message.Instructions) != 3 {
		t.Fatalf("instructions = %d", len(tx.Message.Instructions))
	}

	first := tx.Message.Instructions[0].Parsed
	if first == nil || first.Type != "transfer" || first.Amount != 50000000 || first.Destination != "Dest111" {
		t.Errorf("first parsed = %+v", first)
	}
	second := tx.Message.Instructions[1].Parsed
	if second == nil || second.Type != "transferChecked" || second.Amount != 77 || second.Mint != "Mint111" {
		t.Errorf("second parsed = %+v", second)
	}
	if tx.Message.Instructions[2].Parsed != nil {
		t.Errorf("memo instruction should be unparsed")
	}
}

func TestGetTransaction_NotFound(t *testing.T) {
	srv := rpcServer(t, `null`, nil)
	defer srv.Close()

	tx, err := testClient(srv.URL).GetTransaction(context.Background(), "sig-missing")
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if tx != nil {
		t.Errorf("Expected nil for unknown signature, got %+v", tx)
	}
}

func TestGetTransaction_RPCErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"invalid params"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).GetTransaction(context.Background(), "sig-1")
	if err == nil {
		t.Fatal("Expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("Expected 1 call for an RPC error, got %d", got)
	}
}

func TestCall_RateLimitRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":[]}`))
	}))
	defer srv.Close()

	sigs, err := testClient(srv.URL).GetSignaturesForAddress(context.Background(), "Addr111", 5)
	if err != nil {
		t.Fatalf("GetSignaturesForAddress failed: %v", err)
	}
	if len(sigs) != 0 {
		t.Errorf("sigs = %v", sigs)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("Expected 2 calls, got %d", got)
	}
}

func TestGetSignaturesForAddress(t *testing.T) {
	result := `[
		{"signature": "sig-2", "slot": 200, "blockTime": 1700000100, "err": null},
		{"signature": "sig-1", "slot": 100, "blockTime": 1700000000, "err": {"InstructionError": [0, "Custom"]}}
	]`
	var method string
	srv := rpcServer(t, result, &method)
	defer srv.Close()

	sigs, err := testClient(srv.URL).GetSignaturesForAddress(context.Background(), "Addr111", 2)
	if err != nil {
		t.Fatalf("GetSignaturesForAddress failed: %v", err)
	}
	if method != "getSignaturesForAddress" {
		t.Errorf("method = %q", method)
	}
	if len(sigs) != 2 {
		t.Fatalf("sigs = %v", sigs)
	}
	if sigs[0].Signature != "sig-2" || sigs[0].Slot != 200 || sigs[0].Err != nil {
		t.Errorf("sigs[0] = %+v", sigs[0])
	}
	if sigs[1].Err == nil {
		t.Errorf("sigs[1] should carry an error")
	}
}

func TestGetSignatureStatus(t *testing.T) {
	result := `{"value": [{"slot": 300, "confirmations": null, "confirmationStatus": "finalized", "err": null}]}`
	srv := rpcServer(t, result, nil)
	defer srv.Close()

	st, err := testClient(srv.URL).GetSignatureStatus(context.Background(), "sig-1")
	if err != nil {
		t.Fatalf("GetSignatureStatus failed: %v", err)
	}
	if st == nil || st.Slot != 300 || st.ConfirmationStatus != "finalized" || st.Confirmations != nil {
		t.Errorf("status = %+v", st)
	}
}

func TestGetSignatureStatus_Unknown(t *testing.T) {
	srv := rpcServer(t, `{"value": [null]}`, nil)
	defer srv.Close()

	st, err := testClient(srv.URL).GetSignatureStatus(context.Background(), "sig-missing")
	if err != nil {
		t.Fatalf("GetSignatureStatus failed: %v", err)
	}
	if st != nil {
		t.Errorf("Expected nil status, got %+v", st)
	}
}
