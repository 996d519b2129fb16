package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// DeriveAssociatedTokenAccount derives the canonical associated token account
// address for an (owner, mint) pair. The derivation is the standard
// find-program-address over the seeds [owner, token program, mint] under the
// associated-token program: the first bump (counting down from 255) whose
// SHA-256 digest is not a valid ed25519 curve point wins.
func DeriveAssociatedTokenAccount(owner, mint string) (string, error) {
	ownerBytes, err := base58.Decode(owner)
	if err != nil {
		return "", fmt.Errorf("decode owner %q: %w", owner, err)
	}
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint %q: %w", mint, err)
	}
	tokenProgram, err := base58.Decode(TokenProgramID)
	if err != nil {
		return "", fmt.Errorf("decode token program id: %w", err)
	}
	ataProgram, err := base58.Decode(AssociatedTokenProgramID)
	if err != nil {
		return "", fmt.Errorf("decode associated token program id: %w", err)
	}

	addr := findProgramAddress([][]byte{ownerBytes, tokenProgram, mintBytes}, ataProgram)
	if addr == "" {
		return "", fmt.Errorf("no off-curve address for owner %s mint %s", owner, mint)
	}
	return addr, nil
}

// findProgramAddress derives a Program Derived Address using the Solana
// algorithm: concatenate seeds with a bump byte, append the program id and
// the "ProgramDerivedAddress" marker, SHA-256 it, and keep the first digest
// that falls off the ed25519 curve.
func findProgramAddress(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}

// isOnCurve reports whether point is a valid ed25519 curve point.
func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
