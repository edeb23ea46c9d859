// Package store declares the persistence ports of the thrift ledger and the
// unit of work that binds them to one atomic boundary.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ahorro/internal/custody"
	"ahorro/internal/thrift/models"
	id "ahorro/pkg/domain"
)

// GroupStore persists group ledgers. Find* return sentinel.ErrNotFound when the
// group does not exist.
type GroupStore interface {
	Create(ctx context.Context, group *models.Group) error
	Find(ctx context.Context, groupID id.GroupID) (*models.Group, error)
	// FindForUpdate loads the group and holds it for the rest of the unit of work.
	FindForUpdate(ctx context.Context, groupID id.GroupID) (*models.Group, error)
	Update(ctx context.Context, group *models.Group) error
}

// MemberStore persists member ledgers at their (group, member) slot.
// Create returns sentinel.ErrConflict when the slot is occupied.
type MemberStore interface {
	Create(ctx context.Context, member *models.Member) error
	Find(ctx context.Context, key id.MemberKey) (*models.Member, error)
	Update(ctx context.Context, member *models.Member) error
	ListByGroup(ctx context.Context, groupID id.GroupID) ([]*models.Member, error)
}

// EventStore appends ledger events to the outbox.
type EventStore interface {
	Append(ctx context.Context, event models.Event) error
}

// OutboxReader is what the relay needs from the outbox.
type OutboxReader interface {
	Pending(ctx context.Context, limit int) ([]models.Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Stores is the set of stores visible inside a unit of work. Every write made
// through them commits or rolls back together.
type Stores struct {
	Groups   GroupStore
	Members  MemberStore
	Accounts custody.Ledger
	Events   EventStore
}

// UnitOfWork runs fn atomically with respect to group. fn must use the ctx it
// is given so postgres stores pick up the transaction.
type UnitOfWork interface {
	RunInTx(ctx context.Context, group id.GroupID, fn func(ctx context.Context, s Stores) error) error
}
