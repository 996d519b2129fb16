package payment

import (
	"testing"

	"cryptotax/internal/domain"
)

func TestTokenMint(t *testing.T) {
	tests := []struct {
		name    string
		token   domain.TokenType
		network Network
		want    string
		wantErr bool
	}{
		{"usdc mainnet", domain.TokenTypeUSDC, NetworkMainnet, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", false},
		{"usdt mainnet", domain.TokenTypeUSDT, NetworkMainnet, "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", false},
		{"usdc devnet", domain.TokenTypeUSDC, NetworkDevnet, "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU", false},
		{"usdt devnet unavailable", domain.TokenTypeUSDT, NetworkDevnet, "", true},
		{"unknown token", domain.TokenType("DOGE"), NetworkMainnet, "", true},
		{"unknown network", domain.TokenTypeUSDC, Network("testnet"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TokenMint(tt.token, tt.network)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("TokenMint failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Mint mismatch: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBaseUnits(t *testing.T) {
	tests := []struct {
		cents    int64
		decimals int
		want     int64
	}{
		{5000, 6, 50000000}, // $50 → 50 USDC base units
		{1, 6, 10000},       // 1 cent
		{2550, 6, 25500000}, // $25.50
		{100, 2, 100},       // degenerate 2-decimal token
	}

	for _, tt := range tests {
		if got := BaseUnits(tt.cents, tt.decimals); got != tt.want {
			t.Errorf("BaseUnits(%d, %d) = %d, want %d", tt.cents, tt.decimals, got, tt.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{5000, "50"},
		{2550, "25.5"},
		{2599, "25.99"},
		{99, "0.99"},
		{1, "0.01"},
		{100, "1"},
	}

	for _, tt := range tests {
		if got := formatAmount(tt.cents); got != tt.want {
			t.Errorf("formatAmount(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestParseNetwork(t *testing.T) {
	if n, err := ParseNetwork("mainnet"); err != nil || n != NetworkMainnet {
		t.Errorf("ParseNetwork(mainnet) = %v, %v", n, err)
	}
	if n, err := ParseNetwork("devnet"); err != nil || n != NetworkDevnet {
		t.Errorf("ParseNetwork(devnet) = %v, %v", n, err)
	}
	if _, err := ParseNetwork("testnet"); err == nil {
		t.Error("Expected error for testnet")
	}
}
