package domain

import "github.com/shopspring/decimal"

// Holding is the follower's current position in one instrument. The amount is
// the sum of all processed buys minus all processed sells since the ledger was
// created; it is the single source of truth consulted before any sell.
type Holding struct {
	Symbol string
	Amount decimal.Decimal
}

// ProcessedKind tells which identifier namespace a processed-trade row
// belongs to. Lead trade ids and follower order ids are minted by the same
// exchange, so the ledger keeps them distinguishable.
type ProcessedKind string

const (
	KindLeadTrade     ProcessedKind = "lead"
	KindFollowerOrder ProcessedKind = "follower"
)

// ProcessedTrade is an append-only fact: the order identified by OrderID has
// been fully handled and must never be acted on again.
type ProcessedTrade struct {
	OrderID     string
	Kind        ProcessedKind
	Symbol      string
	Amount      decimal.Decimal
	Side        Side
	ProcessedAt int64 // Unix microseconds
}
