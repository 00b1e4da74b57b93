// Package registry manages a group's participant roster: membership,
// per-cycle contribution status, and payout-turn assignment.
package registry

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/pasacoin/pasanaku-server/internal/domain"
)

// Add appends a new participant with pending status. For fixed-payout groups
// the turn number equals the join position; for random groups it stays
// unassigned until activation.
func Add(g *domain.Group, address string) (*domain.Participant, error) {
	if g.IsMember(address) {
		return nil, domain.ErrAlreadyMember
	}
	if len(g.Participants) >= g.Capacity {
		return nil, domain.ErrGroupFull
	}

	p := &domain.Participant{
		Address: address,
		Status:  domain.ParticipantPending,
	}
	if g.PayoutType == domain.PayoutFixed {
		p.Turn = domain.AssignedTurn(len(g.Participants) + 1)
	}
	g.Participants = append(g.Participants, p)
	return p, nil
}

// AssignRandomTurns assigns a uniformly random permutation of 1..capacity to
// the participants of a random-payout group. It is invoked exactly once, at
// the transition to active. The shuffle is driven by crypto/rand so no single
// participant can predict or influence the order.
func AssignRandomTurns(g *domain.Group) error {
	if g.PayoutType != domain.PayoutRandom {
		return fmt.Errorf("assign random turns: group %s has payout type %s", g.ID, g.PayoutType)
	}
	if len(g.Participants) != g.Capacity {
		return fmt.Errorf("assign random turns: group %s has %d of %d participants", g.ID, len(g.Participants), g.Capacity)
	}
	for _, p := range g.Participants {
		if p.Turn.Assigned() {
			return fmt.Errorf("assign random turns: participant %s already has a turn", p.Address)
		}
	}

	turns := make([]int, g.Capacity)
	for i := range turns {
		turns[i] = i + 1
	}
	if err := shuffle(turns); err != nil {
		return fmt.Errorf("assign random turns: %w", err)
	}
	for i, p := range g.Participants {
		p.Turn = domain.AssignedTurn(turns[i])
	}
	return nil
}

// shuffle performs a Fisher-Yates shuffle using crypto/rand.
func shuffle(s []int) error {
	for i := len(s) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}
		j := int(n.Int64())
		s[i], s[j] = s[j], s[i]
	}
	return nil
}

// MarkPaid records that the participant has contributed in the current cycle.
func MarkPaid(g *domain.Group, address string) error {
	p := g.Participant(address)
	if p == nil {
		return domain.ErrUnknownParticipant
	}
	if p.Status == domain.ParticipantPaid {
		return domain.ErrAlreadyContributed
	}
	p.Status = domain.ParticipantPaid
	return nil
}

// MarkReceived flips the recipient's per-cycle status to received and sets
// the lifetime has-received record.
func MarkReceived(g *domain.Group, address string) error {
	p := g.Participant(address)
	if p == nil {
		return domain.ErrUnknownParticipant
	}
	p.Status = domain.ParticipantReceived
	p.HasReceived = true
	return nil
}

// ResetForNextCycle returns every participant to pending. The recipient's
// lifetime record survives in HasReceived; their per-cycle received status is
// reapplied by the engine after the reset.
func ResetForNextCycle(g *domain.Group) {
	for _, p := range g.Participants {
		p.Status = domain.ParticipantPending
	}
}

// PaidCount returns the number of participants who have contributed in the
// current cycle.
func PaidCount(g *domain.Group) int {
	n := 0
	for _, p := range g.Participants {
		if p.Status == domain.ParticipantPaid {
			n++
		}
	}
	return n
}

// AllPaid reports whether every participant, including the cycle's eventual
// recipient, has contributed.
func AllPaid(g *domain.Group) bool {
	return PaidCount(g) == len(g.Participants)
}
