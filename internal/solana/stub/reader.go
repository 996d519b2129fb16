package stub

import (
	"context"

	"cryptotax/internal/solana"
)

// ChainReader implements solana.ChainReader for testing.
type ChainReader struct {
	Transactions map[string]*solana.Transaction
	Signatures   map[string][]solana.SignatureInfo
	Statuses     map[string]*solana.SignatureStatus

	// Err, when set, is returned by every method to simulate an
	// unreachable RPC endpoint.
	Err error
}

// NewChainReader creates a new stub chain reader.
func NewChainReader() *ChainReader {
	return &ChainReader{
		Transactions: make(map[string]*solana.Transaction),
		Signatures:   make(map[string][]solana.SignatureInfo),
		Statuses:     make(map[string]*solana.SignatureStatus),
	}
}

// GetTransaction retrieves a transaction from the stub store.
// Returns (nil, nil) when absent, matching the HTTP client contract.
func (r *ChainReader) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Transactions[signature], nil
}

// GetSignaturesForAddress retrieves signatures for an address from the stub store.
func (r *ChainReader) GetSignaturesForAddress(_ context.Context, address string, limit int) ([]solana.SignatureInfo, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	sigs := r.Signatures[address]
	if limit > 0 && limit < len(sigs) {
		return sigs[:limit], nil
	}
	return sigs, nil
}

// GetSignatureStatus retrieves a signature status from the stub store.
func (r *ChainReader) GetSignatureStatus(_ context.Context, signature string) (*solana.SignatureStatus, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Statuses[signature], nil
}

// AddTransaction adds a transaction to the stub store.
func (r *ChainReader) AddTransaction(tx *solana.Transaction) {
	r.Transactions[tx.Signature] = tx
}

// AddSignatures adds signatures for an address to the stub store.
func (r *ChainReader) AddSignatures(address string, sigs []solana.SignatureInfo) {
	r.Signatures[address] = sigs
}

// Verify interface compliance at compile time.
var _ solana.ChainReader = (*ChainReader)(nil)
