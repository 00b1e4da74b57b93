package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// GroupStatus is the lifecycle state of a group. Transitions are monotonic:
// open -> active -> completed, never backward.
type GroupStatus string

const (
	StatusOpen      GroupStatus = "open"
	StatusActive    GroupStatus = "active"
	StatusCompleted GroupStatus = "completed"
)

// PayoutType determines how payout turns are assigned.
type PayoutType string

const (
	PayoutFixed  PayoutType = "fixed"  // payout order equals join order
	PayoutRandom PayoutType = "random" // one-time random permutation at activation
)

// Frequency is the contribution cadence. It only drives the advisory
// NextPaymentDue timestamp; the core never validates it against wall-clock.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// NextDue returns the next advisory payment deadline counted from now.
func (f Frequency) NextDue(now time.Time) time.Time {
	switch f {
	case FrequencyWeekly:
		return now.AddDate(0, 0, 7)
	case FrequencyBiweekly:
		return now.AddDate(0, 0, 14)
	default:
		return now.AddDate(0, 1, 0)
	}
}

// Group is the canonical record of one pooled contribution group.
// Amounts are denominated in the pooled stable-value currency; fiat
// conversion is entirely the exchange-rate feed's concern.
type Group struct {
	ID                 string          `json:"id" db:"id"`
	Name               string          `json:"name" db:"name"`
	CreatorAddress     string          `json:"creatorAddress" db:"creator_address"`
	ContributionAmount decimal.Decimal `json:"contributionAmount" db:"contribution_amount"`
	Capacity           int             `json:"capacity" db:"capacity"`
	Frequency          Frequency       `json:"frequency" db:"frequency"`
	PayoutType         PayoutType      `json:"payoutType" db:"payout_type"`
	IsPublic           bool            `json:"isPublic" db:"is_public"`
	Status             GroupStatus     `json:"status" db:"status"`
	CurrentCycle       int             `json:"currentCycle" db:"current_cycle"`
	CurrentPot         decimal.Decimal `json:"currentPot" db:"current_pot"`
	Participants       []*Participant  `json:"participants" db:"-"`
	Transactions       []*Transaction  `json:"transactions" db:"-"`
	NextPaymentDue     *time.Time      `json:"nextPaymentDue,omitempty" db:"next_payment_due"`
	CreatedAt          time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time       `json:"updatedAt" db:"updated_at"`
}

// MaxCycles is the number of payout cycles: one per member.
func (g *Group) MaxCycles() int {
	return g.Capacity
}

// Participant returns the participant with the given address, or nil.
func (g *Group) Participant(address string) *Participant {
	for _, p := range g.Participants {
		if p.Address == address {
			return p
		}
	}
	return nil
}

// IsMember reports whether the address belongs to this group.
func (g *Group) IsMember(address string) bool {
	return g.Participant(address) != nil
}

// Clone returns a deep copy. Stores hand out clones so that callers can
// mutate freely and a failed operation never leaks partial state.
func (g *Group) Clone() *Group {
	clone := *g
	clone.Participants = make([]*Participant, len(g.Participants))
	for i, p := range g.Participants {
		cp := *p
		clone.Participants[i] = &cp
	}
	clone.Transactions = make([]*Transaction, len(g.Transactions))
	for i, tx := range g.Transactions {
		ct := *tx
		clone.Transactions[i] = &ct
	}
	if g.NextPaymentDue != nil {
		due := *g.NextPaymentDue
		clone.NextPaymentDue = &due
	}
	return &clone
}
