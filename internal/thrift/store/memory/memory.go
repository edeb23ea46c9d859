// Package memory is the in-process thrift store. A single mutex serializes
// units of work and writes are staged until fn succeeds, so a failed operation
// leaves no trace.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	custodymem "ahorro/internal/custody/memory"
	"ahorro/internal/thrift/models"
	"ahorro/internal/thrift/store"
	id "ahorro/pkg/domain"
	dErrors "ahorro/pkg/domain-errors"
	"ahorro/pkg/platform/sentinel"
)

// defaultTxTimeout bounds a unit of work when the caller set no deadline.
const defaultTxTimeout = 5 * time.Second

// Store holds every thrift record in memory.
type Store struct {
	mu      sync.Mutex
	timeout time.Duration
	ledger  *custodymem.Ledger

	data struct {
		sync.RWMutex
		groups      map[id.GroupID]models.Group
		members     map[id.MemberKey]models.Member
		memberOrder map[id.GroupID][]id.Principal
		events      []models.Event
	}
}

var (
	_ store.UnitOfWork   = (*Store)(nil)
	_ store.OutboxReader = (*Store)(nil)
)

type Option func(*Store)

// WithTimeout overrides the default unit of work deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// WithLedger shares an existing token ledger, e.g. one seeded by a test.
func WithLedger(l *custodymem.Ledger) Option {
	return func(s *Store) {
		s.ledger = l
	}
}

func New(opts ...Option) *Store {
	s := &Store{timeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(s)
	}
	if s.ledger == nil {
		s.ledger = custodymem.NewLedger()
	}
	s.data.groups = make(map[id.GroupID]models.Group)
	s.data.members = make(map[id.MemberKey]models.Member)
	s.data.memberOrder = make(map[id.GroupID][]id.Principal)
	return s
}

// Ledger exposes the token ledger backing the store.
func (s *Store) Ledger() *custodymem.Ledger {
	return s.ledger
}

func (s *Store) RunInTx(ctx context.Context, _ id.GroupID, fn func(ctx context.Context, s store.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	tx := newTx(s)
	if err := fn(ctx, tx.stores()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted before commit")
	}
	tx.commit()
	return nil
}

// Pending returns committed events not yet relayed, oldest first.
func (s *Store) Pending(_ context.Context, limit int) ([]models.Event, error) {
	s.data.RLock()
	defer s.data.RUnlock()
	var out []models.Event
	for _, e := range s.data.events {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.data.Lock()
	defer s.data.Unlock()
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, i := range ids {
		want[i] = struct{}{}
	}
	for i := range s.data.events {
		if _, ok := want[s.data.events[i].ID]; ok && s.data.events[i].PublishedAt == nil {
			published := at
			s.data.events[i].PublishedAt = &published
		}
	}
	return nil
}

// tx stages writes made during one unit of work.
type tx struct {
	base       *Store
	accounts   *custodymem.Staged
	groups     map[id.GroupID]models.Group
	members    map[id.MemberKey]models.Member
	newMembers []id.MemberKey
	events     []models.Event
}

func newTx(base *Store) *tx {
	return &tx{
		base:     base,
		accounts: base.ledger.Stage(),
		groups:   make(map[id.GroupID]models.Group),
		members:  make(map[id.MemberKey]models.Member),
	}
}

func (t *tx) stores() store.Stores {
	return store.Stores{
		Groups:   groupStore{t},
		Members:  memberStore{t},
		Accounts: t.accounts,
		Events:   eventStore{t},
	}
}

func (t *tx) commit() {
	t.accounts.Commit()

	d := &t.base.data
	d.Lock()
	defer d.Unlock()
	for k, g := range t.groups {
		d.groups[k] = g
	}
	for k, m := range t.members {
		d.members[k] = m
	}
	for _, k := range t.newMembers {
		d.memberOrder[k.Group] = append(d.memberOrder[k.Group], k.Member)
	}
	d.events = append(d.events, t.events...)
}

func (t *tx) group(groupID id.GroupID) (models.Group, bool) {
	if g, ok := t.groups[groupID]; ok {
		return g, true
	}
	t.base.data.RLock()
	defer t.base.data.RUnlock()
	g, ok := t.base.data.groups[groupID]
	return g, ok
}

func (t *tx) member(key id.MemberKey) (models.Member, bool) {
	if m, ok := t.members[key]; ok {
		return m, true
	}
	t.base.data.RLock()
	defer t.base.data.RUnlock()
	m, ok := t.base.data.members[key]
	return m, ok
}

type groupStore struct{ t *tx }

func (s groupStore) Create(_ context.Context, group *models.Group) error {
	if _, ok := s.t.group(group.ID); ok {
		return fmt.Errorf("group %s: %w", group.ID, sentinel.ErrConflict)
	}
	s.t.groups[group.ID] = cloneGroup(*group)
	return nil
}

func (s groupStore) Find(_ context.Context, groupID id.GroupID) (*models.Group, error) {
	g, ok := s.t.group(groupID)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := cloneGroup(g)
	return &c, nil
}

// FindForUpdate is Find; the store-wide lock already holds the group.
func (s groupStore) FindForUpdate(ctx context.Context, groupID id.GroupID) (*models.Group, error) {
	return s.Find(ctx, groupID)
}

func (s groupStore) Update(_ context.Context, group *models.Group) error {
	if _, ok := s.t.group(group.ID); !ok {
		return sentinel.ErrNotFound
	}
	s.t.groups[group.ID] = cloneGroup(*group)
	return nil
}

type memberStore struct{ t *tx }

func (s memberStore) Create(_ context.Context, member *models.Member) error {
	key := member.Key()
	if _, ok := s.t.member(key); ok {
		return fmt.Errorf("%s: %w", key, sentinel.ErrConflict)
	}
	s.t.members[key] = *member
	s.t.newMembers = append(s.t.newMembers, key)
	return nil
}

func (s memberStore) Find(_ context.Context, key id.MemberKey) (*models.Member, error) {
	m, ok := s.t.member(key)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &m, nil
}

func (s memberStore) Update(_ context.Context, member *models.Member) error {
	key := member.Key()
	if _, ok := s.t.member(key); !ok {
		return sentinel.ErrNotFound
	}
	s.t.members[key] = *member
	return nil
}

func (s memberStore) ListByGroup(_ context.Context, groupID id.GroupID) ([]*models.Member, error) {
	s.t.base.data.RLock()
	order := append([]id.Principal(nil), s.t.base.data.memberOrder[groupID]...)
	s.t.base.data.RUnlock()
	for _, k := range s.t.newMembers {
		if k.Group == groupID {
			order = append(order, k.Member)
		}
	}

	out := make([]*models.Member, 0, len(order))
	for _, p := range order {
		m, ok := s.t.member(id.MemberKey{Group: groupID, Member: p})
		if !ok {
			continue
		}
		out = append(out, &m)
	}
	return out, nil
}

type eventStore struct{ t *tx }

func (s eventStore) Append(_ context.Context, event models.Event) error {
	s.t.events = append(s.t.events, event)
	return nil
}

func cloneGroup(g models.Group) models.Group {
	g.CycleOrder = append([]id.Principal(nil), g.CycleOrder...)
	return g
}
