package domain

import (
	"encoding/json"
	"fmt"
)

// TurnNumber is a participant's fixed position in the payout rotation.
// The zero value means "unassigned" (random groups before activation).
// Once assigned, a turn number is never changed.
type TurnNumber struct {
	n int
}

// AssignedTurn returns a TurnNumber holding n. n must be >= 1.
func AssignedTurn(n int) TurnNumber {
	return TurnNumber{n: n}
}

// Assigned reports whether a turn number has been assigned.
func (t TurnNumber) Assigned() bool {
	return t.n > 0
}

// Value returns the assigned turn number, or ok=false when unassigned.
func (t TurnNumber) Value() (int, bool) {
	return t.n, t.n > 0
}

// MarshalJSON renders an unassigned turn as JSON null.
func (t TurnNumber) MarshalJSON() ([]byte, error) {
	if t.n == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(t.n)
}

// UnmarshalJSON accepts either null or a positive integer.
func (t *TurnNumber) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.n = 0
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("turn number must be positive, got %d", n)
	}
	t.n = n
	return nil
}
