package solana

import "context"

// Well-known Solana program ids.
const (
	// TokenProgramID is the SPL token program.
	TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

	// AssociatedTokenProgramID is the SPL associated-token-account program.
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
)

// ChainReader defines read access to the Solana ledger.
type ChainReader interface {
	// GetTransaction retrieves a transaction by signature.
	// Returns (nil, nil) if the transaction is not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetSignaturesForAddress retrieves up to limit signatures referencing
	// an address, newest first.
	GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error)

	// GetSignatureStatus retrieves the confirmation status of a signature.
	// Returns (nil, nil) if the signature is unknown to the cluster.
	GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error)
}

// Transaction represents a Solana transaction with parsed instruction data.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err         interface{} // non-nil when the transaction failed on-chain
	LogMessages []string
}

// TransactionMessage contains the resolved message of a transaction.
type TransactionMessage struct {
	AccountKeys  []string
	Instructions []Instruction
}

// HasAccountKey reports whether pubkey appears among the message account keys.
func (m *TransactionMessage) HasAccountKey(pubkey string) bool {
	for _, key := range m.AccountKeys {
		if key == pubkey {
			return true
		}
	}
	return false
}

// Instruction is a single instruction of a transaction message.
// Parsed is nil when the RPC provider could not supply a parsed payload
// (common on devnet/test validators); Accounts is then the only view into
// the instruction's participants.
type Instruction struct {
	ProgramID string
	Accounts  []string
	Parsed    *ParsedTransfer
}

// ParsedTransfer is the parsed payload of an SPL token instruction.
// Amount is in base units; for instruction types other than transfer and
// transferChecked the amount is zero.
type ParsedTransfer struct {
	Type        string // "transfer", "transferChecked", ...
	Amount      int64
	Source      string
	Destination string
	Authority   string
	Mint        string // transferChecked only
}

// IsTransfer reports whether the instruction moves tokens.
func (p *ParsedTransfer) IsTransfer() bool {
	return p.Type == "transfer" || p.Type == "transferChecked"
}

// SignatureInfo describes one entry of getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignatureStatus describes the cluster confirmation state of a signature.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int
	ConfirmationStatus string // "processed", "confirmed", "finalized"
	Err                interface{}
}
