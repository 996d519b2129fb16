// Package analysis coordinates remote query executions for paid orders and
// turns their results into report artifacts.
package analysis

import (
	"time"

	"cryptotax/internal/dune"
)

// QuerySpec describes one configured analytics query.
type QuerySpec struct {
	Name        string
	QueryID     int64
	BuildParams func(wallet string, now time.Time) []dune.Parameter
}

// Default query ids.
const (
	DefiActivityQueryID   = 6022401
	TokenTransfersQueryID = 6022882
)

// DefaultQueries returns the standard wallet-analysis query set.
// Parameter names match the saved query definitions ("startime" included).
func DefaultQueries() []QuerySpec {
	return []QuerySpec{
		{
			Name:    "defi_activity",
			QueryID: DefiActivityQueryID,
			BuildParams: func(wallet string, _ time.Time) []dune.Parameter {
				return []dune.Parameter{
					{Name: "wallet", Value: wallet},
					{Name: "after_time", Value: "2024-01-01 00:00:00"},
				}
			},
		},
		{
			Name:    "token_transfers",
			QueryID: TokenTransfersQueryID,
			BuildParams: func(wallet string, _ time.Time) []dune.Parameter {
				return []dune.Parameter{
					{Name: "wallet", Value: wallet},
					{Name: "startime", Value: "2025-01-01 00:00:00"},
					{Name: "endtime", Value: "2025-12-31 23:59:59"},
				}
			},
		},
	}
}
