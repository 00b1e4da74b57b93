package rotation

import (
	"errors"
	"testing"

	"github.com/pasacoin/pasanaku-server/internal/domain"
)

func fullGroup() *domain.Group {
	return &domain.Group{
		ID:       "g1",
		Capacity: 3,
		Status:   domain.StatusActive,
		Participants: []*domain.Participant{
			{Address: "alice", Turn: domain.AssignedTurn(2)},
			{Address: "bob", Turn: domain.AssignedTurn(1)},
			{Address: "carol", Turn: domain.AssignedTurn(3)},
		},
	}
}

func TestRecipientForCycle(t *testing.T) {
	g := fullGroup()

	tests := []struct {
		cycle int
		want  string
	}{
		{0, "bob"},
		{1, "alice"},
		{2, "carol"},
	}
	for _, tt := range tests {
		p, err := RecipientForCycle(g, tt.cycle)
		if err != nil {
			t.Fatalf("cycle %d: %v", tt.cycle, err)
		}
		if p.Address != tt.want {
			t.Errorf("cycle %d: expected %s, got %s", tt.cycle, tt.want, p.Address)
		}
	}
}

func TestRecipientForCycleUnassigned(t *testing.T) {
	g := fullGroup()
	g.Participants[1].Turn = domain.TurnNumber{}

	_, err := RecipientForCycle(g, 0)
	if !errors.Is(err, domain.ErrNoRecipientAssigned) {
		t.Errorf("expected ErrNoRecipientAssigned, got %v", err)
	}
}

func TestValidateTurnsRejectsDuplicates(t *testing.T) {
	g := fullGroup()
	g.Participants[2].Turn = domain.AssignedTurn(1)

	if err := ValidateTurns(g); err == nil {
		t.Error("expected error for duplicate turn numbers")
	}
	if _, err := RecipientForCycle(g, 0); err == nil {
		t.Error("expected recipient lookup to reject duplicate turns")
	}
}

func TestValidateTurnsRejectsOutOfRange(t *testing.T) {
	g := fullGroup()
	g.Participants[0].Turn = domain.AssignedTurn(4)

	if err := ValidateTurns(g); err == nil {
		t.Error("expected error for out-of-range turn")
	}
}

func TestValidateTurnsAcceptsCompleteAssignment(t *testing.T) {
	if err := ValidateTurns(fullGroup()); err != nil {
		t.Errorf("expected valid assignment, got %v", err)
	}
}
