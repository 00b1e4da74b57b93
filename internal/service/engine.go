// Package service implements the group lifecycle engine: the state machine
// that owns group creation, joining, contribution accounting, and payout
// rotation. All mutating operations on one group run in a single critical
// section of load -> validate -> apply -> persist; domain events are emitted
// only after a successful persist.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pasacoin/pasanaku-server/internal/domain"
	"github.com/pasacoin/pasanaku-server/internal/ledger"
	"github.com/pasacoin/pasanaku-server/internal/registry"
	"github.com/pasacoin/pasanaku-server/internal/rotation"
	"github.com/pasacoin/pasanaku-server/internal/storage"
)

const (
	// MinCapacity and MaxCapacity bound the participant count fixed at
	// creation.
	MinCapacity = 2
	MaxCapacity = 20
)

// CreateGroupParams are the caller-supplied fields for a new group.
type CreateGroupParams struct {
	Name               string
	ContributionAmount decimal.Decimal
	Capacity           int
	Frequency          domain.Frequency
	PayoutType         domain.PayoutType
	IsPublic           bool
}

// Engine is the group lifecycle engine.
type Engine struct {
	store storage.Storage
	sink  domain.Sink
	locks *groupLocks
}

// New creates an Engine backed by the given store, publishing domain events
// to sink. sink may be nil when no event consumer is wired (tests).
func New(store storage.Storage, sink domain.Sink) *Engine {
	return &Engine{
		store: store,
		sink:  sink,
		locks: newGroupLocks(),
	}
}

// CreateGroup validates params, creates a group in open status with the
// creator as its first participant, and records the creator's join.
func (e *Engine) CreateGroup(ctx context.Context, creator string, params CreateGroupParams) (*domain.Group, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("name is required: %w", domain.ErrInvalidInput)
	}
	if !params.ContributionAmount.IsPositive() {
		return nil, fmt.Errorf("contribution amount must be positive: %w", domain.ErrInvalidInput)
	}
	if params.Capacity < MinCapacity || params.Capacity > MaxCapacity {
		return nil, fmt.Errorf("capacity must be between %d and %d: %w", MinCapacity, MaxCapacity, domain.ErrInvalidInput)
	}
	switch params.Frequency {
	case domain.FrequencyWeekly, domain.FrequencyBiweekly, domain.FrequencyMonthly:
	default:
		return nil, fmt.Errorf("unknown frequency %q: %w", params.Frequency, domain.ErrInvalidInput)
	}
	switch params.PayoutType {
	case domain.PayoutFixed, domain.PayoutRandom:
	default:
		return nil, fmt.Errorf("unknown payout type %q: %w", params.PayoutType, domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	group := &domain.Group{
		ID:                 uuid.New().String(),
		Name:               params.Name,
		CreatorAddress:     creator,
		ContributionAmount: params.ContributionAmount,
		Capacity:           params.Capacity,
		Frequency:          params.Frequency,
		PayoutType:         params.PayoutType,
		IsPublic:           params.IsPublic,
		Status:             domain.StatusOpen,
		CurrentCycle:       0,
		CurrentPot:         decimal.Zero,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if _, err := registry.Add(group, creator); err != nil {
		return nil, err
	}
	ledger.RecordJoin(group, creator, now)

	if err := e.store.CreateGroup(ctx, group); err != nil {
		return nil, err
	}
	groupsCreated.Inc()
	slog.Info("Group created",
		"group_id", group.ID, "name", group.Name, "creator", creator,
		"capacity", group.Capacity, "payout_type", group.PayoutType)

	e.emit(group, domain.EventGroupCreated, map[string]any{"creator": creator}, now)
	return group, nil
}

// JoinGroup adds the caller to an open group. When membership reaches
// capacity the group activates: random turns are assigned if applicable and
// the first payment deadline is set.
func (e *Engine) JoinGroup(ctx context.Context, groupID, address string) (*domain.Group, error) {
	unlock := e.locks.acquire(groupID)
	defer unlock()

	group, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Status != domain.StatusOpen {
		return nil, domain.ErrNotOpen
	}
	if _, err := registry.Add(group, address); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ledger.RecordJoin(group, address, now)

	activated := len(group.Participants) == group.Capacity
	if activated {
		group.Status = domain.StatusActive
		if group.PayoutType == domain.PayoutRandom {
			if err := registry.AssignRandomTurns(group); err != nil {
				return nil, err
			}
		}
		if err := rotation.ValidateTurns(group); err != nil {
			return nil, err
		}
		due := group.Frequency.NextDue(now)
		group.NextPaymentDue = &due
	}
	group.UpdatedAt = now

	if err := e.store.UpdateGroup(ctx, group); err != nil {
		return nil, err
	}
	slog.Info("Member joined",
		"group_id", group.ID, "address", address,
		"members", len(group.Participants), "capacity", group.Capacity)

	e.emit(group, domain.EventMemberJoined, map[string]any{"address": address}, now)
	if activated {
		slog.Info("Group activated", "group_id", group.ID, "payout_type", group.PayoutType)
		e.emit(group, domain.EventGroupActivated, nil, now)
	}
	return group, nil
}

// Contribute records the caller's contribution for the current cycle.
func (e *Engine) Contribute(ctx context.Context, groupID, address string, amount decimal.Decimal, settlementRef string) (*domain.Group, error) {
	unlock := e.locks.acquire(groupID)
	defer unlock()

	group, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if _, err := ledger.RecordContribution(group, address, amount, settlementRef, now); err != nil {
		return nil, err
	}
	if err := registry.MarkPaid(group, address); err != nil {
		return nil, err
	}
	group.UpdatedAt = now

	if err := e.store.UpdateGroup(ctx, group); err != nil {
		return nil, err
	}
	contributionsTotal.Inc()
	slog.Info("Contribution recorded",
		"group_id", group.ID, "address", address, "amount", amount.String(),
		"pot", group.CurrentPot.String(), "paid", registry.PaidCount(group))

	e.emit(group, domain.EventContributionRecorded,
		map[string]any{"address": address, "amount": amount.String()}, now)
	if registry.AllPaid(group) {
		recipient, err := rotation.RecipientForCycle(group, group.CurrentCycle)
		if err != nil {
			slog.Error("Cycle complete but recipient lookup failed", "group_id", group.ID, "error", err)
		} else {
			e.emit(group, domain.EventPayoutReady,
				map[string]any{"recipient": recipient.Address, "cycle": group.CurrentCycle}, now)
		}
	}
	return group, nil
}

// ClaimPayout pays the full pot to the cycle's designated recipient,
// advances the cycle, and completes the group after the final cycle.
// It returns the updated group and the payout amount.
func (e *Engine) ClaimPayout(ctx context.Context, groupID, address, settlementRef string) (*domain.Group, decimal.Decimal, error) {
	unlock := e.locks.acquire(groupID)
	defer unlock()

	group, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if group.Status != domain.StatusActive {
		return nil, decimal.Zero, domain.ErrNotActive
	}

	recipient, err := rotation.RecipientForCycle(group, group.CurrentCycle)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if recipient.Address != address {
		return nil, decimal.Zero, domain.ErrNotRecipient
	}
	if !registry.AllPaid(group) {
		return nil, decimal.Zero, domain.ErrCycleIncomplete
	}

	now := time.Now().UTC()
	payout := ledger.RecordPayout(group, address, settlementRef, now)
	registry.ResetForNextCycle(group)
	if err := registry.MarkReceived(group, address); err != nil {
		return nil, decimal.Zero, err
	}
	group.CurrentCycle++

	completed := group.CurrentCycle == group.MaxCycles()
	if completed {
		group.Status = domain.StatusCompleted
		group.NextPaymentDue = nil
	} else {
		due := group.Frequency.NextDue(now)
		group.NextPaymentDue = &due
	}
	group.UpdatedAt = now

	if err := e.store.UpdateGroup(ctx, group); err != nil {
		return nil, decimal.Zero, err
	}
	payoutsTotal.Inc()
	slog.Info("Payout claimed",
		"group_id", group.ID, "recipient", address, "amount", payout.Amount.String(),
		"cycle", group.CurrentCycle, "completed", completed)

	e.emit(group, domain.EventPayoutClaimed,
		map[string]any{"recipient": address, "amount": payout.Amount.String()}, now)
	if completed {
		slog.Info("Group completed", "group_id", group.ID)
		e.emit(group, domain.EventGroupCompleted, nil, now)
	}
	return group, payout.Amount, nil
}

// GetGroup returns a group with its roster and transaction log.
func (e *Engine) GetGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	return e.store.GetGroup(ctx, groupID)
}

// ExploreGroups returns public groups that are still open for joining.
// This is a derived view over the canonical records, not a separate list.
func (e *Engine) ExploreGroups(ctx context.Context) ([]*domain.Group, error) {
	return e.store.ListPublicOpenGroups(ctx)
}

// MyGroups returns the groups the address participates in.
func (e *Engine) MyGroups(ctx context.Context, address string) ([]*domain.Group, error) {
	return e.store.ListGroupsByMember(ctx, address)
}

// emit publishes a domain event to the sink, if one is wired. Events are
// only emitted after a successful persist, never speculatively.
func (e *Engine) emit(group *domain.Group, kind domain.EventKind, payload map[string]any, ts time.Time) {
	if e.sink == nil {
		return
	}
	recipients := make([]string, len(group.Participants))
	for i, p := range group.Participants {
		recipients[i] = p.Address
	}
	e.sink.Emit(domain.Event{
		Kind:       kind,
		GroupID:    group.ID,
		GroupName:  group.Name,
		Recipients: recipients,
		Payload:    payload,
		Timestamp:  ts,
	})
}
