// Package memory provides an in-memory implementation of the storage
// interface for testing.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pasacoin/pasanaku-server/internal/domain"
)

// Store is an in-memory implementation of storage.Storage.
type Store struct {
	mu sync.RWMutex

	groups        map[string]*domain.Group        // key: group ID
	notifications map[string]*domain.Notification // key: notification ID

	// FailWrites makes every mutating call return ErrTransient. Tests use it
	// to verify that failed persists leave no observable state behind.
	FailWrites bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		groups:        make(map[string]*domain.Group),
		notifications: make(map[string]*domain.Notification),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateGroup(ctx context.Context, group *domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return domain.ErrTransient
	}
	if _, ok := s.groups[group.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.groups[group.ID] = group.Clone()
	return nil
}

func (s *Store) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	group, ok := s.groups[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return group.Clone(), nil
}

func (s *Store) UpdateGroup(ctx context.Context, group *domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return domain.ErrTransient
	}
	if _, ok := s.groups[group.ID]; !ok {
		return domain.ErrNotFound
	}
	s.groups[group.ID] = group.Clone()
	return nil
}

func (s *Store) ListPublicOpenGroups(ctx context.Context) ([]*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var groups []*domain.Group
	for _, g := range s.groups {
		if g.IsPublic && g.Status == domain.StatusOpen {
			groups = append(groups, g.Clone())
		}
	}
	sortByCreatedAtDesc(groups)
	return groups, nil
}

func (s *Store) ListGroupsByMember(ctx context.Context, address string) ([]*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var groups []*domain.Group
	for _, g := range s.groups {
		if g.IsMember(address) {
			groups = append(groups, g.Clone())
		}
	}
	sortByCreatedAtDesc(groups)
	return groups, nil
}

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return domain.ErrTransient
	}
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, address string) ([]*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []*domain.Notification
	for _, n := range s.notifications {
		if n.Address == address {
			cp := *n
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.Address != address {
		return domain.ErrNotFound
	}
	n.Read = true
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.notifications {
		if n.Address == address {
			n.Read = true
		}
	}
	return nil
}

func sortByCreatedAtDesc(groups []*domain.Group) {
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].CreatedAt.After(groups[j].CreatedAt)
	})
}
