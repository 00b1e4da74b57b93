package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies ledger entries.
type TransactionType string

const (
	TxJoin         TransactionType = "join"
	TxContribution TransactionType = "contribution"
	TxPayout       TransactionType = "payout"
)

// Transaction is an immutable, append-only ledger entry. SettlementRef is an
// opaque reference set by the external payment rail (e.g. an on-chain hash);
// the core stores it verbatim and never generates one.
type Transaction struct {
	ID            string          `json:"id" db:"id"`
	Type          TransactionType `json:"type" db:"type"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Timestamp     time.Time       `json:"timestamp" db:"created_at"`
	Address       string          `json:"address" db:"address"`
	SettlementRef string          `json:"settlementReference,omitempty" db:"settlement_ref"`
}
