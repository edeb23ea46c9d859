package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ahorro/internal/custody"
	"ahorro/internal/thrift/models"
	"ahorro/internal/thrift/store"
	id "ahorro/pkg/domain"
	dErrors "ahorro/pkg/domain-errors"
	"ahorro/pkg/platform/sentinel"
)

type StoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
	group *models.Group
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
	g, err := models.NewGroup(id.NewGroupID(), "admin", 0, 250, []id.Principal{"alice", "bob"}, 1000, "USDC", 0, time.Now())
	s.Require().NoError(err)
	s.group = g
}

func (s *StoreSuite) run(fn func(ctx context.Context, st store.Stores) error) error {
	return s.store.RunInTx(s.ctx, s.group.ID, fn)
}

func (s *StoreSuite) TestCommit() {
	s.Run("writes are visible after a successful unit of work", func() {
		s.Require().NoError(s.run(func(ctx context.Context, st store.Stores) error {
			if err := st.Groups.Create(ctx, s.group); err != nil {
				return err
			}
			return st.Members.Create(ctx, models.NewMember(s.group.ID, "alice", time.Now()))
		}))

		s.Require().NoError(s.run(func(ctx context.Context, st store.Stores) error {
			g, err := st.Groups.Find(ctx, s.group.ID)
			s.Require().NoError(err)
			s.Equal(s.group.CycleOrder, g.CycleOrder)

			members, err := st.Members.ListByGroup(ctx, s.group.ID)
			s.Require().NoError(err)
			s.Require().Len(members, 1)
			s.Equal(id.Principal("alice"), members[0].Member)
			return nil
		}))
	})
}

func (s *StoreSuite) TestRollback() {
	boom := errors.New("boom")

	err := s.run(func(ctx context.Context, st store.Stores) error {
		s.Require().NoError(st.Groups.Create(ctx, s.group))
		s.Require().NoError(st.Accounts.Open(ctx, custody.Account{Address: "alice-wallet", Owner: "alice", Asset: "USDC"}))
		s.Require().NoError(st.Events.Append(ctx, models.NewEvent(s.group.ID, models.EventGroupCreated, "admin", time.Now())))
		return boom
	})
	s.Require().ErrorIs(err, boom)

	s.Require().NoError(s.run(func(ctx context.Context, st store.Stores) error {
		_, err := st.Groups.Find(ctx, s.group.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = st.Accounts.Get(ctx, "alice-wallet")
		s.ErrorIs(err, sentinel.ErrNotFound)
		return nil
	}))

	pending, err := s.store.Pending(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *StoreSuite) TestMemberSlots() {
	s.Require().NoError(s.run(func(ctx context.Context, st store.Stores) error {
		s.Require().NoError(st.Groups.Create(ctx, s.group))
		s.Require().NoError(st.Members.Create(ctx, models.NewMember(s.group.ID, "bob", time.Now())))
		s.Require().NoError(st.Members.Create(ctx, models.NewMember(s.group.ID, "alice", time.Now())))
		return nil
	}))

	s.Run("duplicate slot conflicts", func() {
		err := s.run(func(ctx context.Context, st store.Stores) error {
			return st.Members.Create(ctx, models.NewMember(s.group.ID, "bob", time.Now()))
		})
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("list preserves join order", func() {
		s.Require().NoError(s.run(func(ctx context.Context, st store.Stores) error {
			members, err := st.Members.ListByGroup(ctx, s.group.ID)
			s.Require().NoError(err)
			s.Require().Len(members, 2)
			s.Equal(id.Principal("bob"), members[0].Member)
			s.Equal(id.Principal("alice"), members[1].Member)
			return nil
		}))
	})

	s.Run("returned copies do not alias stored state", func() {
		s.Require().NoError(s.run(func(ctx context.Context, st store.Stores) error {
			m, err := st.Members.Find(ctx, id.MemberKey{Group: s.group.ID, Member: "bob"})
			s.Require().NoError(err)
			m.TotalContributed = 99
			return nil
		}))
		s.Require().NoError(s.run(func(ctx context.Context, st store.Stores) error {
			m, err := st.Members.Find(ctx, id.MemberKey{Group: s.group.ID, Member: "bob"})
			s.Require().NoError(err)
			s.Zero(m.TotalContributed)
			return nil
		}))
	})
}

func (s *StoreSuite) TestOutbox() {
	var appended []uuid.UUID
	s.Require().NoError(s.run(func(ctx context.Context, st store.Stores) error {
		for i := 0; i < 3; i++ {
			e := models.NewEvent(s.group.ID, models.EventMemberJoined, "alice", time.Now())
			appended = append(appended, e.ID)
			s.Require().NoError(st.Events.Append(ctx, e))
		}
		return nil
	}))

	pending, err := s.store.Pending(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(appended[0], pending[0].ID)

	s.Require().NoError(s.store.MarkPublished(s.ctx, []uuid.UUID{pending[0].ID, pending[1].ID}, time.Now()))

	pending, err = s.store.Pending(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(appended[2], pending[0].ID)
}

func (s *StoreSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	called := false
	err := s.store.RunInTx(ctx, s.group.ID, func(context.Context, store.Stores) error {
		called = true
		return nil
	})
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	s.False(called)
}

func (s *StoreSuite) TestSerializesUnitsOfWork() {
	s.Require().NoError(s.run(func(ctx context.Context, st store.Stores) error {
		s.Require().NoError(st.Groups.Create(ctx, s.group))
		return st.Members.Create(ctx, models.NewMember(s.group.ID, "alice", time.Now()))
	}))

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.run(func(ctx context.Context, st store.Stores) error {
				m, err := st.Members.Find(ctx, id.MemberKey{Group: s.group.ID, Member: "alice"})
				if err != nil {
					return err
				}
				if err := m.RecordContribution(1); err != nil {
					return err
				}
				return st.Members.Update(ctx, m)
			})
		}()
	}
	wg.Wait()

	s.Require().NoError(s.run(func(ctx context.Context, st store.Stores) error {
		m, err := st.Members.Find(ctx, id.MemberKey{Group: s.group.ID, Member: "alice"})
		s.Require().NoError(err)
		s.Equal(uint64(workers), m.TotalContributed)
		return nil
	}))
}
