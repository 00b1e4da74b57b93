// Package rotation determines which participant is entitled to the payout of
// a given cycle. Turn numbers are unique by construction; the functions here
// still reject any state where that invariant is violated.
package rotation

import (
	"fmt"

	"github.com/pasacoin/pasanaku-server/internal/domain"
)

// RecipientForCycle returns the participant whose turn number is
// cycleIndex+1. It fails with ErrNoRecipientAssigned when turns have not yet
// been assigned (group not active, or random assignment pending).
func RecipientForCycle(g *domain.Group, cycleIndex int) (*domain.Participant, error) {
	if err := ValidateTurns(g); err != nil {
		return nil, err
	}

	want := cycleIndex + 1
	for _, p := range g.Participants {
		if n, ok := p.Turn.Value(); ok && n == want {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no participant holds turn %d in group %s: %w", want, g.ID, domain.ErrNoRecipientAssigned)
}

// ValidateTurns checks that every participant holds a turn number and that
// the assigned set is exactly {1..capacity}.
func ValidateTurns(g *domain.Group) error {
	seen := make(map[int]string, len(g.Participants))
	for _, p := range g.Participants {
		n, ok := p.Turn.Value()
		if !ok {
			return domain.ErrNoRecipientAssigned
		}
		if n < 1 || n > g.Capacity {
			return fmt.Errorf("turn %d for %s outside 1..%d in group %s", n, p.Address, g.Capacity, g.ID)
		}
		if other, dup := seen[n]; dup {
			return fmt.Errorf("turn %d held by both %s and %s in group %s", n, other, p.Address, g.ID)
		}
		seen[n] = p.Address
	}
	if len(seen) != g.Capacity {
		return domain.ErrNoRecipientAssigned
	}
	return nil
}
