package payment

import (
	"context"
	"fmt"
	"time"

	"cryptotax/internal/observability"
	"cryptotax/internal/solana"
)

// Outcome is the result of verifying a payment transaction on-chain.
type Outcome string

// Verification outcomes.
const (
	// OutcomeVerified means a parsed transfer satisfied every check.
	OutcomeVerified Outcome = "verified"

	// OutcomeVerifiedUnparsed means the RPC provider supplied no parsed
	// instruction data, but a token-program instruction touches the expected
	// destination account. Disabled in strict mode.
	OutcomeVerifiedUnparsed Outcome = "verified_unparsed"

	// OutcomeNotFound means the signature is unknown to the cluster.
	OutcomeNotFound Outcome = "not_found"

	// OutcomeTxFailed means the transaction landed but failed on-chain.
	OutcomeTxFailed Outcome = "tx_failed"

	// OutcomeRecipientMissing means neither the recipient wallet nor its
	// token account appears in the transaction.
	OutcomeRecipientMissing Outcome = "recipient_missing"

	// OutcomeReferenceMissing means the reference account does not appear
	// in the transaction.
	OutcomeReferenceMissing Outcome = "reference_missing"

	// OutcomeNoTransfer means no token transfer to the expected destination
	// was found.
	OutcomeNoTransfer Outcome = "no_transfer"

	// OutcomeAmountTooLow means a transfer was found but for less than the
	// expected amount.
	OutcomeAmountTooLow Outcome = "amount_too_low"
)

// Accepted reports whether the outcome counts as a successful payment.
func (o Outcome) Accepted() bool {
	return o == OutcomeVerified || o == OutcomeVerifiedUnparsed
}

// Expected describes what the verified transaction must contain.
type Expected struct {
	Recipient string // merchant wallet (owner of the destination ATA)
	Reference string // per-payment reference pubkey
	Mint      string // accepted token mint
	Amount    int64  // minimum amount in base units
}

// Verifier checks candidate transactions against a payment request.
type Verifier struct {
	reader solana.ChainReader

	// Strict disables the unparsed-instruction fallback, requiring a fully
	// parsed transfer to accept a payment.
	Strict bool
}

// NewVerifier creates a Verifier over a chain reader.
func NewVerifier(reader solana.ChainReader) *Verifier {
	return &Verifier{reader: reader}
}

// Verify fetches the transaction and runs the check chain. The returned
// error is non-nil only for infrastructure failures (RPC unreachable);
// every on-chain condition maps to an Outcome. The first transfer matching
// the destination decides the result; amounts are never aggregated across
// instructions and the comparison is >= (overpaying is accepted).
func (v *Verifier) Verify(ctx context.Context, signature string, exp Expected) (Outcome, error) {
	start := time.Now()
	defer func() {
		observability.RecordVerificationDuration(time.Since(start).Seconds())
	}()

	tx, err := v.reader.GetTransaction(ctx, signature)
	if err != nil {
		return "", fmt.Errorf("get transaction %s: %w", signature, err)
	}
	if tx == nil {
		return OutcomeNotFound, nil
	}
	if tx.Meta != nil && tx.Meta.Err != nil {
		return OutcomeTxFailed, nil
	}
	if tx.Message == nil {
		return OutcomeNoTransfer, nil
	}

	// The transfer lands on the recipient's associated token account, not
	// the wallet itself. Accept either appearing among the account keys.
	ata, err := solana.DeriveAssociatedTokenAccount(exp.Recipient, exp.Mint)
	if err != nil {
		return "", fmt.Errorf("derive token account for %s: %w", exp.Recipient, err)
	}

	if !tx.Message.HasAccountKey(exp.Recipient) && !tx.Message.HasAccountKey(ata) {
		return OutcomeRecipientMissing, nil
	}
	if !tx.Message.HasAccountKey(exp.Reference) {
		return OutcomeReferenceMissing, nil
	}

	for _, ins := range tx.Message.Instructions {
		// Only token-program instructions count: a jsonParsed system-program
		// SOL transfer also reports type "transfer" with the wallet as its
		// destination, and must not decide the result.
		if ins.ProgramID != solana.TokenProgramID {
			continue
		}
		p := ins.Parsed
		if p == nil || !p.IsTransfer() {
			continue
		}
		if p.Destination != ata && p.Destination != exp.Recipient {
			continue
		}
		// transferChecked carries the mint; plain transfer does not.
		if p.Mint != "" && p.Mint != exp.Mint {
			continue
		}
		if p.Amount >= exp.Amount {
			return OutcomeVerified, nil
		}
		return OutcomeAmountTooLow, nil
	}

	if !v.Strict {
		// Some providers return token instructions without parsed payloads.
		// A token-program instruction whose accounts include the expected
		// destination is taken as the transfer.
		for _, ins := range tx.Message.Instructions {
			if ins.ProgramID != solana.TokenProgramID || ins.Parsed != nil {
				continue
			}
			for _, acc := range ins.Accounts {
				if acc == ata {
					return OutcomeVerifiedUnparsed, nil
				}
			}
		}
	}

	return OutcomeNoTransfer, nil
}
