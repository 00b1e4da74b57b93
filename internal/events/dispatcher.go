// Package events fans domain events out to persisted per-address
// notifications. Delivery is asynchronous and fire-and-forget: a slow or
// failing dispatcher never blocks or fails the emitting operation.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pasacoin/pasanaku-server/internal/domain"
	"github.com/pasacoin/pasanaku-server/internal/storage"
)

// Dispatcher consumes domain events on a buffered channel and writes one
// notification row per recipient address.
type Dispatcher struct {
	store storage.Storage
	ch    chan domain.Event
	done  chan struct{}
}

// NewDispatcher creates a dispatcher and starts its consumer goroutine.
func NewDispatcher(store storage.Storage, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{
		store: store,
		ch:    make(chan domain.Event, buffer),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

// Emit implements domain.Sink. It never blocks: when the buffer is full the
// event is dropped with a warning, since notifications are advisory.
func (d *Dispatcher) Emit(ev domain.Event) {
	select {
	case d.ch <- ev:
	default:
		slog.Warn("Event buffer full, dropping event", "kind", ev.Kind, "group_id", ev.GroupID)
	}
}

// Close stops the consumer after draining buffered events.
func (d *Dispatcher) Close() {
	close(d.ch)
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.ch {
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev domain.Event) {
	kind, message := render(ev)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, address := range ev.Recipients {
		n := &domain.Notification{
			ID:        uuid.New().String(),
			Address:   address,
			GroupID:   ev.GroupID,
			Kind:      kind,
			Message:   message,
			CreatedAt: ev.Timestamp,
		}
		if err := d.store.CreateNotification(ctx, n); err != nil {
			slog.Warn("Failed to persist notification",
				"kind", ev.Kind, "group_id", ev.GroupID, "address", address, "error", err)
		}
	}
}

// render maps an event to a notification severity and message.
func render(ev domain.Event) (domain.NotificationKind, string) {
	switch ev.Kind {
	case domain.EventMemberJoined:
		return domain.NotificationInfo,
			fmt.Sprintf("%v joined %s", ev.Payload["address"], ev.GroupName)
	case domain.EventGroupActivated:
		return domain.NotificationSuccess,
			fmt.Sprintf("%s is full and now active; the first cycle has started", ev.GroupName)
	case domain.EventContributionRecorded:
		return domain.NotificationInfo,
			fmt.Sprintf("%v contributed %v to %s", ev.Payload["address"], ev.Payload["amount"], ev.GroupName)
	case domain.EventPayoutReady:
		return domain.NotificationSuccess,
			fmt.Sprintf("All contributions are in for %s; %v can claim the pot", ev.GroupName, ev.Payload["recipient"])
	case domain.EventPayoutClaimed:
		return domain.NotificationSuccess,
			fmt.Sprintf("%v received the %v pot from %s", ev.Payload["recipient"], ev.Payload["amount"], ev.GroupName)
	case domain.EventGroupCompleted:
		return domain.NotificationSuccess,
			fmt.Sprintf("%s has completed: every member has received a payout", ev.GroupName)
	default:
		return domain.NotificationInfo, fmt.Sprintf("%s: %s", ev.GroupName, ev.Kind)
	}
}
