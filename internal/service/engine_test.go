package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pasacoin/pasanaku-server/internal/domain"
	"github.com/pasacoin/pasanaku-server/internal/ledger"
	"github.com/pasacoin/pasanaku-server/internal/storage/memory"
)

// recordingSink captures emitted events synchronously for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordingSink) Emit(ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) kinds() []domain.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]domain.EventKind, len(s.events))
	for i, ev := range s.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func (s *recordingSink) has(kind domain.EventKind) bool {
	for _, k := range s.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func defaultParams() CreateGroupParams {
	return CreateGroupParams{
		Name:               "Vecinos",
		ContributionAmount: decimal.NewFromInt(100),
		Capacity:           3,
		Frequency:          domain.FrequencyMonthly,
		PayoutType:         domain.PayoutFixed,
		IsPublic:           true,
	}
}

func newEngine(t *testing.T) (*Engine, *memory.Store, *recordingSink) {
	t.Helper()
	store := memory.New()
	sink := &recordingSink{}
	return New(store, sink), store, sink
}

// activatedGroup creates a capacity-3 fixed group and fills it.
func activatedGroup(t *testing.T, e *Engine) *domain.Group {
	t.Helper()
	ctx := context.Background()
	g, err := e.CreateGroup(ctx, "alice", defaultParams())
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	for _, addr := range []string{"bob", "carol"} {
		if g, err = e.JoinGroup(ctx, g.ID, addr); err != nil {
			t.Fatalf("JoinGroup(%s) failed: %v", addr, err)
		}
	}
	return g
}

func contributeAll(t *testing.T, e *Engine, groupID string, addrs ...string) *domain.Group {
	t.Helper()
	var g *domain.Group
	var err error
	for _, addr := range addrs {
		g, err = e.Contribute(context.Background(), groupID, addr, decimal.NewFromInt(100), "")
		if err != nil {
			t.Fatalf("Contribute(%s) failed: %v", addr, err)
		}
	}
	return g
}

func TestCreateGroupValidation(t *testing.T) {
	e, _, _ := newEngine(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateGroupParams)
	}{
		{"empty name", func(p *CreateGroupParams) { p.Name = "" }},
		{"zero amount", func(p *CreateGroupParams) { p.ContributionAmount = decimal.Zero }},
		{"negative amount", func(p *CreateGroupParams) { p.ContributionAmount = decimal.NewFromInt(-5) }},
		{"capacity too small", func(p *CreateGroupParams) { p.Capacity = 1 }},
		{"capacity too large", func(p *CreateGroupParams) { p.Capacity = 21 }},
		{"bad frequency", func(p *CreateGroupParams) { p.Frequency = "daily" }},
		{"bad payout type", func(p *CreateGroupParams) { p.PayoutType = "lottery" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := defaultParams()
			tt.mutate(&params)
			_, err := e.CreateGroup(ctx, "alice", params)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

// Scenario A: creator auto-joins with turn 1; two more joins activate the
// group at cycle 0.
func TestActivationAtCapacity(t *testing.T) {
	e, _, sink := newEngine(t)
	ctx := context.Background()

	g, err := e.CreateGroup(ctx, "alice", defaultParams())
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if g.Status != domain.StatusOpen {
		t.Errorf("expected open, got %s", g.Status)
	}
	if n, _ := g.Participants[0].Turn.Value(); n != 1 {
		t.Errorf("creator turn: expected 1, got %d", n)
	}
	if len(g.Transactions) != 1 || g.Transactions[0].Type != domain.TxJoin {
		t.Error("expected a single join transaction for the creator")
	}

	g, err = e.JoinGroup(ctx, g.ID, "bob")
	if err != nil {
		t.Fatalf("JoinGroup(bob) failed: %v", err)
	}
	if g.Status != domain.StatusOpen {
		t.Errorf("expected still open at 2/3, got %s", g.Status)
	}

	g, err = e.JoinGroup(ctx, g.ID, "carol")
	if err != nil {
		t.Fatalf("JoinGroup(carol) failed: %v", err)
	}
	if g.Status != domain.StatusActive {
		t.Errorf("expected active at capacity, got %s", g.Status)
	}
	if g.CurrentCycle != 0 {
		t.Errorf("expected cycle 0, got %d", g.CurrentCycle)
	}
	if g.NextPaymentDue == nil {
		t.Error("expected next payment due to be set at activation")
	}
	if !sink.has(domain.EventGroupActivated) {
		t.Errorf("expected GroupActivated event, got %v", sink.kinds())
	}
}

// Idempotence/rejection: a second join by the same address fails with
// AlreadyMember and changes nothing.
func TestJoinTwiceRejected(t *testing.T) {
	e, store, _ := newEngine(t)
	ctx := context.Background()

	g, _ := e.CreateGroup(ctx, "alice", defaultParams())
	if _, err := e.JoinGroup(ctx, g.ID, "bob"); err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	before := snapshot(t, store, g.ID)

	_, err := e.JoinGroup(ctx, g.ID, "bob")
	if !errors.Is(err, domain.ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
	if after := snapshot(t, store, g.ID); after != before {
		t.Error("persisted state changed on rejected join")
	}
}

func TestJoinFailures(t *testing.T) {
	e, _, _ := newEngine(t)
	ctx := context.Background()

	if _, err := e.JoinGroup(ctx, "missing", "bob"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	g := activatedGroup(t, e)
	if _, err := e.JoinGroup(ctx, g.ID, "dave"); !errors.Is(err, domain.ErrNotOpen) {
		t.Errorf("expected ErrNotOpen for active group, got %v", err)
	}
}

// Scenario B: after all three contribute, the pot holds 300 and everyone is
// paid.
func TestContributionsFillPot(t *testing.T) {
	e, _, sink := newEngine(t)
	g := activatedGroup(t, e)

	g = contributeAll(t, e, g.ID, "alice", "bob", "carol")

	if !g.CurrentPot.Equal(decimal.NewFromInt(300)) {
		t.Errorf("pot: expected 300, got %s", g.CurrentPot)
	}
	for _, p := range g.Participants {
		if p.Status != domain.ParticipantPaid {
			t.Errorf("participant %s: expected paid, got %s", p.Address, p.Status)
		}
	}
	if !ledger.CycleContributions(g).Equal(g.CurrentPot) {
		t.Error("pot does not equal sum of cycle contributions")
	}
	if !sink.has(domain.EventPayoutReady) {
		t.Errorf("expected PayoutReady event, got %v", sink.kinds())
	}
}

func TestContributeBeforeActiveRejected(t *testing.T) {
	e, _, _ := newEngine(t)
	ctx := context.Background()

	g, _ := e.CreateGroup(ctx, "alice", defaultParams())
	_, err := e.Contribute(ctx, g.ID, "alice", decimal.NewFromInt(100), "")
	if !errors.Is(err, domain.ErrNotActive) {
		t.Errorf("expected ErrNotActive, got %v", err)
	}
}

// Atomicity under failure: a rejected contribution leaves the persisted
// group byte-for-byte identical.
func TestContributeAmountMismatchLeavesStateUntouched(t *testing.T) {
	e, store, _ := newEngine(t)
	g := activatedGroup(t, e)
	before := snapshot(t, store, g.ID)

	_, err := e.Contribute(context.Background(), g.ID, "alice", decimal.NewFromInt(50), "")
	if !errors.Is(err, domain.ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}
	if after := snapshot(t, store, g.ID); after != before {
		t.Error("persisted state changed on rejected contribution")
	}
}

func TestContributeTwiceRejected(t *testing.T) {
	e, _, _ := newEngine(t)
	g := activatedGroup(t, e)
	ctx := context.Background()

	if _, err := e.Contribute(ctx, g.ID, "alice", decimal.NewFromInt(100), ""); err != nil {
		t.Fatalf("first contribution failed: %v", err)
	}
	_, err := e.Contribute(ctx, g.ID, "alice", decimal.NewFromInt(100), "")
	if !errors.Is(err, domain.ErrAlreadyContributed) {
		t.Errorf("expected ErrAlreadyContributed, got %v", err)
	}
}

func TestContributeUnknownParticipant(t *testing.T) {
	e, _, _ := newEngine(t)
	g := activatedGroup(t, e)

	_, err := e.Contribute(context.Background(), g.ID, "mallory", decimal.NewFromInt(100), "")
	if !errors.Is(err, domain.ErrUnknownParticipant) {
		t.Errorf("expected ErrUnknownParticipant, got %v", err)
	}
}

// Scenario C: turn-1 participant claims; pot zeroes, cycle advances, their
// status flips to received and the rest reset to pending.
func TestClaimPayout(t *testing.T) {
	e, _, sink := newEngine(t)
	g := activatedGroup(t, e)
	contributeAll(t, e, g.ID, "alice", "bob", "carol")

	g, amount, err := e.ClaimPayout(context.Background(), g.ID, "alice", "0xsettled")
	if err != nil {
		t.Fatalf("ClaimPayout failed: %v", err)
	}
	if !amount.Equal(decimal.NewFromInt(300)) {
		t.Errorf("payout: expected 300, got %s", amount)
	}
	if !g.CurrentPot.IsZero() {
		t.Errorf("pot must be zero after payout, got %s", g.CurrentPot)
	}
	if g.CurrentCycle != 1 {
		t.Errorf("cycle: expected 1, got %d", g.CurrentCycle)
	}

	alice := g.Participant("alice")
	if alice.Status != domain.ParticipantReceived || !alice.HasReceived {
		t.Errorf("alice: expected received status with lifetime record, got %s/%v", alice.Status, alice.HasReceived)
	}
	for _, addr := range []string{"bob", "carol"} {
		if p := g.Participant(addr); p.Status != domain.ParticipantPending {
			t.Errorf("%s: expected pending, got %s", addr, p.Status)
		}
	}

	last := g.Transactions[len(g.Transactions)-1]
	if last.Type != domain.TxPayout || last.SettlementRef != "0xsettled" {
		t.Errorf("expected payout transaction with settlement ref, got %s/%q", last.Type, last.SettlementRef)
	}
	if !sink.has(domain.EventPayoutClaimed) {
		t.Errorf("expected PayoutClaimed event, got %v", sink.kinds())
	}
}

// Scenario D: a non-recipient claiming a complete cycle fails with
// NotRecipient and changes nothing.
func TestClaimByNonRecipientRejected(t *testing.T) {
	e, store, _ := newEngine(t)
	g := activatedGroup(t, e)
	contributeAll(t, e, g.ID, "alice", "bob", "carol")
	before := snapshot(t, store, g.ID)

	_, _, err := e.ClaimPayout(context.Background(), g.ID, "bob", "")
	if !errors.Is(err, domain.ErrNotRecipient) {
		t.Fatalf("expected ErrNotRecipient, got %v", err)
	}
	if after := snapshot(t, store, g.ID); after != before {
		t.Error("persisted state changed on rejected claim")
	}
}

func TestClaimIncompleteCycleRejected(t *testing.T) {
	e, _, _ := newEngine(t)
	g := activatedGroup(t, e)
	contributeAll(t, e, g.ID, "alice", "bob")

	_, _, err := e.ClaimPayout(context.Background(), g.ID, "alice", "")
	if !errors.Is(err, domain.ErrCycleIncomplete) {
		t.Errorf("expected ErrCycleIncomplete, got %v", err)
	}
}

func TestClaimBeforeActiveRejected(t *testing.T) {
	e, _, _ := newEngine(t)
	ctx := context.Background()
	g, _ := e.CreateGroup(ctx, "alice", defaultParams())

	_, _, err := e.ClaimPayout(ctx, g.ID, "alice", "")
	if !errors.Is(err, domain.ErrNotActive) {
		t.Errorf("expected ErrNotActive, got %v", err)
	}
}

// Scenario E: a full rotation completes the group and freezes mutations.
// Also covers status monotonicity and strictly increasing cycles.
func TestFullRotationCompletesGroup(t *testing.T) {
	e, _, sink := newEngine(t)
	g := activatedGroup(t, e)
	ctx := context.Background()
	order := []string{"alice", "bob", "carol"} // fixed mode: join order

	prevCycle := -1
	for round, recipient := range order {
		g = contributeAll(t, e, g.ID, "alice", "bob", "carol")
		if g.CurrentCycle <= prevCycle {
			t.Fatalf("cycle did not increase: %d after %d", g.CurrentCycle, prevCycle)
		}
		prevCycle = g.CurrentCycle

		var err error
		g, _, err = e.ClaimPayout(ctx, g.ID, recipient, "")
		if err != nil {
			t.Fatalf("round %d: ClaimPayout(%s) failed: %v", round, recipient, err)
		}
	}

	if g.Status != domain.StatusCompleted {
		t.Errorf("expected completed, got %s", g.Status)
	}
	if g.CurrentCycle != g.MaxCycles() {
		t.Errorf("expected cycle %d, got %d", g.MaxCycles(), g.CurrentCycle)
	}
	if g.NextPaymentDue != nil {
		t.Error("completed group must not have a payment deadline")
	}
	for _, p := range g.Participants {
		if !p.HasReceived {
			t.Errorf("%s never received a payout", p.Address)
		}
	}
	if !sink.has(domain.EventGroupCompleted) {
		t.Errorf("expected GroupCompleted event, got %v", sink.kinds())
	}

	// Completed groups freeze all mutating operations.
	if _, err := e.Contribute(ctx, g.ID, "alice", decimal.NewFromInt(100), ""); !errors.Is(err, domain.ErrNotActive) {
		t.Errorf("expected ErrNotActive after completion, got %v", err)
	}
	if _, _, err := e.ClaimPayout(ctx, g.ID, "alice", ""); !errors.Is(err, domain.ErrNotActive) {
		t.Errorf("expected ErrNotActive after completion, got %v", err)
	}
	if _, err := e.JoinGroup(ctx, g.ID, "dave"); !errors.Is(err, domain.ErrNotOpen) {
		t.Errorf("expected ErrNotOpen after completion, got %v", err)
	}
}

// A participant who already received still contributes in later cycles.
func TestRecipientStillContributesNextCycle(t *testing.T) {
	e, _, _ := newEngine(t)
	g := activatedGroup(t, e)
	ctx := context.Background()

	contributeAll(t, e, g.ID, "alice", "bob", "carol")
	if _, _, err := e.ClaimPayout(ctx, g.ID, "alice", ""); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	g, err := e.Contribute(ctx, g.ID, "alice", decimal.NewFromInt(100), "")
	if err != nil {
		t.Fatalf("previous recipient's contribution failed: %v", err)
	}
	alice := g.Participant("alice")
	if alice.Status != domain.ParticipantPaid {
		t.Errorf("expected paid, got %s", alice.Status)
	}
	if !alice.HasReceived {
		t.Error("lifetime has-received record lost")
	}
}

func TestRandomModeAssignsTurnsAtActivation(t *testing.T) {
	e, _, _ := newEngine(t)
	ctx := context.Background()

	params := defaultParams()
	params.PayoutType = domain.PayoutRandom
	g, err := e.CreateGroup(ctx, "alice", params)
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if g.Participants[0].Turn.Assigned() {
		t.Error("random group must not assign turns before activation")
	}

	for _, addr := range []string{"bob", "carol"} {
		if g, err = e.JoinGroup(ctx, g.ID, addr); err != nil {
			t.Fatalf("join failed: %v", err)
		}
	}

	seen := make(map[int]bool)
	for _, p := range g.Participants {
		n, ok := p.Turn.Value()
		if !ok {
			t.Fatalf("participant %s unassigned after activation", p.Address)
		}
		if seen[n] {
			t.Fatalf("duplicate turn %d", n)
		}
		seen[n] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected turns {1,2,3}, got %v", seen)
	}
}

// A persistence failure surfaces as Transient and leaves nothing behind;
// the group lock is released so a retry can succeed.
func TestTransientSaveFailureIsRetryable(t *testing.T) {
	e, store, _ := newEngine(t)
	g := activatedGroup(t, e)
	ctx := context.Background()

	store.FailWrites = true
	_, err := e.Contribute(ctx, g.ID, "alice", decimal.NewFromInt(100), "")
	if !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}

	loaded, err := store.GetGroup(ctx, g.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !loaded.CurrentPot.IsZero() {
		t.Errorf("pot leaked on failed persist: %s", loaded.CurrentPot)
	}

	store.FailWrites = false
	if _, err := e.Contribute(ctx, g.ID, "alice", decimal.NewFromInt(100), ""); err != nil {
		t.Fatalf("retry after transient failure failed: %v", err)
	}
}

// Concurrent contributions on one group serialize: each address succeeds
// exactly once and the pot equals capacity * amount.
func TestConcurrentContributionsSerialize(t *testing.T) {
	store := memory.New()
	e := New(store, nil)
	ctx := context.Background()

	params := defaultParams()
	params.Capacity = 10
	g, err := e.CreateGroup(ctx, "member-0", params)
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	addrs := []string{"member-0"}
	for i := 1; i < 10; i++ {
		addr := fmt.Sprintf("member-%d", i)
		addrs = append(addrs, addr)
		if _, err := e.JoinGroup(ctx, g.ID, addr); err != nil {
			t.Fatalf("join %s failed: %v", addr, err)
		}
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(addrs)*2)
	for _, addr := range addrs {
		// Two racing attempts per address: exactly one must win.
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(addr string) {
				defer wg.Done()
				_, err := e.Contribute(ctx, g.ID, addr, decimal.NewFromInt(100), "")
				errCh <- err
			}(addr)
		}
	}
	wg.Wait()
	close(errCh)

	var ok, rejected int
	for err := range errCh {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrAlreadyContributed):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 10 || rejected != 10 {
		t.Errorf("expected 10 successes and 10 rejections, got %d/%d", ok, rejected)
	}

	final, _ := store.GetGroup(ctx, g.ID)
	if !final.CurrentPot.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("pot: expected 1000, got %s", final.CurrentPot)
	}
	if !ledger.CycleContributions(final).Equal(final.CurrentPot) {
		t.Error("pot does not equal sum of cycle contributions")
	}
}

func TestDerivedViews(t *testing.T) {
	e, _, _ := newEngine(t)
	ctx := context.Background()

	pub, _ := e.CreateGroup(ctx, "alice", defaultParams())
	private := defaultParams()
	private.Name = "Familia"
	private.IsPublic = false
	if _, err := e.CreateGroup(ctx, "alice", private); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	explore, err := e.ExploreGroups(ctx)
	if err != nil {
		t.Fatalf("ExploreGroups failed: %v", err)
	}
	if len(explore) != 1 || explore[0].ID != pub.ID {
		t.Errorf("explore view: expected only the public open group, got %d", len(explore))
	}

	mine, err := e.MyGroups(ctx, "alice")
	if err != nil {
		t.Fatalf("MyGroups failed: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("my-groups view: expected 2, got %d", len(mine))
	}
	if other, _ := e.MyGroups(ctx, "bob"); len(other) != 0 {
		t.Errorf("bob has no groups, got %d", len(other))
	}
}

// snapshot serializes the persisted group so tests can compare full state
// before and after a rejected operation.
func snapshot(t *testing.T, store *memory.Store, groupID string) string {
	t.Helper()
	g, err := store.GetGroup(context.Background(), groupID)
	if err != nil {
		t.Fatalf("snapshot load failed: %v", err)
	}
	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("snapshot marshal failed: %v", err)
	}
	return string(data)
}
