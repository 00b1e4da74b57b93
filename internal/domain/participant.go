package domain

// ParticipantStatus tracks a member's standing within the current cycle.
// "received" is set on the cycle's recipient at payout and lasts until
// they contribute again; the lifetime has-received record lives in
// Participant.HasReceived so it survives later cycles.
type ParticipantStatus string

const (
	ParticipantPending  ParticipantStatus = "pending"
	ParticipantPaid     ParticipantStatus = "paid"
	ParticipantReceived ParticipantStatus = "received"
)

// Participant is one member of a group. Address is unique within the group;
// join order is the slice order in Group.Participants.
type Participant struct {
	Address     string            `json:"address" db:"address"`
	Status      ParticipantStatus `json:"status" db:"status"`
	Turn        TurnNumber        `json:"turnNumber"`
	HasReceived bool              `json:"hasReceived" db:"has_received"`
}
