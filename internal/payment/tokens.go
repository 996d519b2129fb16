package payment

import (
	"fmt"

	"cryptotax/internal/domain"
)

// Network selects the token mint table.
type Network string

// Supported networks.
const (
	NetworkMainnet Network = "mainnet"
	NetworkDevnet  Network = "devnet"
)

// ParseNetwork validates a network name from configuration.
func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case NetworkMainnet, NetworkDevnet:
		return Network(s), nil
	}
	return "", fmt.Errorf("unknown network %q", s)
}

// tokenInfo describes one accepted SPL token on one network.
type tokenInfo struct {
	mint     string
	decimals int
}

// mintTable maps network and token type to the accepted mint.
// Devnet has no canonical USDT issue, so only USDC is listed there.
var mintTable = map[Network]map[domain.TokenType]tokenInfo{
	NetworkMainnet: {
		domain.TokenTypeUSDC: {mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", decimals: 6},
		domain.TokenTypeUSDT: {mint: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", decimals: 6},
	},
	NetworkDevnet: {
		domain.TokenTypeUSDC: {mint: "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU", decimals: 6},
	},
}

// TokenMint returns the mint address for a token on a network.
func TokenMint(token domain.TokenType, network Network) (string, error) {
	table, ok := mintTable[network]
	if !ok {
		return "", fmt.Errorf("unknown network %q", network)
	}
	info, ok := table[token]
	if !ok {
		return "", fmt.Errorf("token %s not available on %s", token, network)
	}
	return info.mint, nil
}

// TokenDecimals returns the decimal precision of a token on a network.
func TokenDecimals(token domain.TokenType, network Network) (int, error) {
	table, ok := mintTable[network]
	if !ok {
		return 0, fmt.Errorf("unknown network %q", network)
	}
	info, ok := table[token]
	if !ok {
		return 0, fmt.Errorf("token %s not available on %s", token, network)
	}
	return info.decimals, nil
}

// BaseUnits converts a USD amount in cents to token base units.
// One cent equals 10^(decimals-2) base units for dollar-pegged tokens.
func BaseUnits(amountCents int64, decimals int) int64 {
	units := amountCents
	for i := 0; i < decimals-2; i++ {
		units *= 10
	}
	return units
}
