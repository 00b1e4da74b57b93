package storage

import (
	"context"

	"github.com/pasacoin/pasanaku-server/internal/domain"
)

// Storage defines the persistence boundary for groups and notifications.
// Implementations must be safe for concurrent use and must hand out
// independent copies: mutating a returned group never changes stored state
// until UpdateGroup persists it. A successful write is visible to the next
// reader (read-your-writes).
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// Groups
	CreateGroup(ctx context.Context, group *domain.Group) error
	GetGroup(ctx context.Context, id string) (*domain.Group, error)
	// UpdateGroup replaces the group's full state: core fields, roster, and
	// any transactions appended since the last persist. The transaction log
	// itself is append-only; existing entries are never rewritten.
	UpdateGroup(ctx context.Context, group *domain.Group) error
	// ListPublicOpenGroups returns joinable public groups, newest first.
	ListPublicOpenGroups(ctx context.Context) ([]*domain.Group, error)
	// ListGroupsByMember returns groups the address participates in,
	// newest first.
	ListGroupsByMember(ctx context.Context, address string) ([]*domain.Group, error)

	// Notifications
	CreateNotification(ctx context.Context, n *domain.Notification) error
	ListNotifications(ctx context.Context, address string) ([]*domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id, address string) error
	MarkAllNotificationsRead(ctx context.Context, address string) error
}
