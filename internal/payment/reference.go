// Package payment implements Solana Pay request construction, on-chain
// verification and the payment confirmation state machine.
package payment

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// GenerateReference returns a unique base58-encoded public key used as the
// reference account of a payment request. The key never signs anything; it
// only tags the transaction so it can be found by address lookup.
//
// Panics if the system entropy source fails.
func GenerateReference() string {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("payment: generate reference key: %v", err))
	}
	return base58.Encode(pub)
}
