package payment

import (
	"fmt"
	"net/url"
	"strings"

	"cryptotax/internal/domain"
)

// Request is a constructed Solana Pay payment request.
type Request struct {
	URL             string
	Reference       string
	Mint            string
	AmountBaseUnits int64
}

// RequestParams are the inputs for BuildRequest.
type RequestParams struct {
	Recipient   string
	AmountCents int64
	Token       domain.TokenType
	Network     Network
	Label       string
	Message     string
}

// BuildRequest constructs a Solana Pay transfer-request URL of the form
//
//	solana:<recipient>?amount=<decimal>&spl-token=<mint>&reference=<ref>&label=...&message=...
//
// The amount is expressed in human token units with trailing zeros trimmed.
// A fresh reference key is generated per call.
func BuildRequest(p RequestParams) (*Request, error) {
	if p.Recipient == "" {
		return nil, fmt.Errorf("recipient is required")
	}
	if p.AmountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d cents", p.AmountCents)
	}

	mint, err := TokenMint(p.Token, p.Network)
	if err != nil {
		return nil, err
	}
	decimals, err := TokenDecimals(p.Token, p.Network)
	if err != nil {
		return nil, err
	}

	reference := GenerateReference()

	q := url.Values{}
	q.Set("amount", formatAmount(p.AmountCents))
	q.Set("spl-token", mint)
	q.Set("reference", reference)
	if p.Label != "" {
		q.Set("label", p.Label)
	}
	if p.Message != "" {
		q.Set("message", p.Message)
	}

	return &Request{
		URL:             fmt.Sprintf("solana:%s?%s", p.Recipient, q.Encode()),
		Reference:       reference,
		Mint:            mint,
		AmountBaseUnits: BaseUnits(p.AmountCents, decimals),
	}, nil
}

// formatAmount renders cents as a decimal dollar amount with trailing zeros
// trimmed ("25", "25.5", "0.99").
func formatAmount(cents int64) string {
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
