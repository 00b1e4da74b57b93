// Package ledger maintains a group's append-only transaction log and the pot
// value derived from it.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pasacoin/pasanaku-server/internal/domain"
)

// RecordJoin appends a zero-amount join transaction.
func RecordJoin(g *domain.Group, address string, now time.Time) *domain.Transaction {
	tx := &domain.Transaction{
		ID:        uuid.New().String(),
		Type:      domain.TxJoin,
		Amount:    decimal.Zero,
		Timestamp: now,
		Address:   address,
	}
	g.Transactions = append(g.Transactions, tx)
	return tx
}

// RecordContribution validates and appends a contribution transaction,
// increasing the pot by the contributed amount. The participant's paid mark
// is the registry's concern; this function only checks it.
func RecordContribution(g *domain.Group, address string, amount decimal.Decimal, settlementRef string, now time.Time) (*domain.Transaction, error) {
	if g.Status != domain.StatusActive {
		return nil, domain.ErrNotActive
	}
	p := g.Participant(address)
	if p == nil {
		return nil, domain.ErrUnknownParticipant
	}
	if !amount.Equal(g.ContributionAmount) {
		return nil, domain.ErrAmountMismatch
	}
	if p.Status == domain.ParticipantPaid {
		return nil, domain.ErrAlreadyContributed
	}

	tx := &domain.Transaction{
		ID:            uuid.New().String(),
		Type:          domain.TxContribution,
		Amount:        amount,
		Timestamp:     now,
		Address:       address,
		SettlementRef: settlementRef,
	}
	g.Transactions = append(g.Transactions, tx)
	g.CurrentPot = g.CurrentPot.Add(amount)
	return tx, nil
}

// RecordPayout appends a payout transaction for the full pot and zeroes it.
func RecordPayout(g *domain.Group, address, settlementRef string, now time.Time) *domain.Transaction {
	tx := &domain.Transaction{
		ID:            uuid.New().String(),
		Type:          domain.TxPayout,
		Amount:        g.CurrentPot,
		Timestamp:     now,
		Address:       address,
		SettlementRef: settlementRef,
	}
	g.Transactions = append(g.Transactions, tx)
	g.CurrentPot = decimal.Zero
	return tx
}

// CycleContributions sums the contribution transactions recorded since the
// last payout. At all times this equals Group.CurrentPot; storage round-trip
// and engine tests verify the invariant.
func CycleContributions(g *domain.Group) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range g.Transactions {
		switch tx.Type {
		case domain.TxContribution:
			sum = sum.Add(tx.Amount)
		case domain.TxPayout:
			sum = decimal.Zero
		}
	}
	return sum
}
