//go:build integration

package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ahorro/internal/custody"
	custodypg "ahorro/internal/custody/postgres"
	"ahorro/internal/thrift/models"
	"ahorro/internal/thrift/service"
	"ahorro/internal/thrift/store"
	"ahorro/internal/thrift/store/postgres"
	id "ahorro/pkg/domain"
	dErrors "ahorro/pkg/domain-errors"
	"ahorro/pkg/platform/sentinel"
	"ahorro/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
	ledger   *custodypg.Ledger
	service  *service.Service
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.Migrate(s.ctx, s.postgres.Pool))
	s.store = postgres.New(s.postgres.Pool)
	s.ledger = custodypg.NewLedger(s.postgres.Pool)
	s.service = service.New(s.store, custody.Blake2bDeriver{},
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(s.ctx, "ledger_outbox", "thrift_members", "thrift_groups", "token_accounts")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) wallet(owner id.Principal, balance uint64) id.Address {
	addr := id.Address(owner.String() + "-wallet")
	s.Require().NoError(s.ledger.Open(s.ctx, custody.Account{Address: addr, Owner: owner, Asset: "USDC"}))
	s.Require().NoError(s.ledger.Mint(s.ctx, addr, balance))
	return addr
}

func (s *PostgresStoreSuite) balance(addr id.Address) uint64 {
	acct, err := s.ledger.Get(s.ctx, addr)
	s.Require().NoError(err)
	return acct.Balance
}

func (s *PostgresStoreSuite) createGroup(order ...id.Principal) *models.Group {
	g, err := s.service.CreateGroup(s.ctx, models.CreateGroupRequest{
		Authority: "admin", InsuranceBPS: 250, CycleOrder: order, ContributionAmount: 1000, Asset: "USDC",
	})
	s.Require().NoError(err)
	return g
}

// TestRoundTrip verifies every group field survives storage, including pool proofs.
func (s *PostgresStoreSuite) TestRoundTrip() {
	g := s.createGroup("alice", "bob", "alice")

	var found *models.Group
	s.Require().NoError(s.store.RunInTx(s.ctx, g.ID, func(ctx context.Context, st store.Stores) error {
		var err error
		found, err = st.Groups.Find(ctx, g.ID)
		return err
	}))
	s.Equal(g.CycleOrder, found.CycleOrder)
	s.Equal(g.GroupPool, found.GroupPool)
	s.Equal(g.InsurancePool, found.InsurancePool)
	s.Equal(g.ContributionAmount, found.ContributionAmount)
	s.Equal(uint32(3), found.TotalCycles)

	addr, err := found.GroupPool.Proof.Address()
	s.Require().NoError(err)
	s.Equal(found.GroupPool.Address, addr)
}

// TestFullCycle runs the four-member example against postgres.
func (s *PostgresStoreSuite) TestFullCycle() {
	members := []id.Principal{"alice", "bob", "carol", "dave"}
	g := s.createGroup(members...)
	wallets := map[id.Principal]id.Address{}
	for _, m := range members {
		_, err := s.service.JoinGroup(s.ctx, models.JoinGroupRequest{Group: g.ID, Member: m, Signer: m})
		s.Require().NoError(err)
		wallets[m] = s.wallet(m, 1000)
		_, err = s.service.MakeContribution(s.ctx, models.ContributionRequest{Group: g.ID, Member: m, FundingAccount: wallets[m]})
		s.Require().NoError(err)
	}
	s.Equal(uint64(3900), s.balance(g.GroupPool.Address))
	s.Equal(uint64(100), s.balance(g.InsurancePool.Address))

	receipt, err := s.service.DisbursePayout(s.ctx, models.PayoutRequest{
		Group: g.ID, Caller: "admin", Recipient: "alice", RecipientAccount: wallets["alice"],
	})
	s.Require().NoError(err)
	s.Equal(uint64(3900), receipt.Amount)
	s.Equal(uint32(1), receipt.NextCycleIndex)
	s.Equal(uint64(3900), s.balance(wallets["alice"]))

	listed, err := s.service.ListMembers(s.ctx, g.ID)
	s.Require().NoError(err)
	s.Require().Len(listed, 4)
	s.Equal(id.Principal("alice"), listed[0].Member)

	pending, err := s.store.Pending(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(pending, 1+4+4+1)
}

// TestRollbackOnFailedTransfer verifies a failed second transfer leaves no
// partial debit or ledger update behind.
func (s *PostgresStoreSuite) TestRollbackOnFailedTransfer() {
	g := s.createGroup("alice")
	_, err := s.service.JoinGroup(s.ctx, models.JoinGroupRequest{Group: g.ID, Member: "alice", Signer: "alice"})
	s.Require().NoError(err)
	w := s.wallet("alice", 980)

	_, err = s.service.MakeContribution(s.ctx, models.ContributionRequest{Group: g.ID, Member: "alice", FundingAccount: w})
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds), "got %v", err)
	s.Equal(uint64(980), s.balance(w))
	s.Zero(s.balance(g.GroupPool.Address))

	m, err := s.service.GetMember(s.ctx, g.ID, "alice")
	s.Require().NoError(err)
	s.Zero(m.TotalContributed)
}

// TestDuplicateJoin verifies the (group, member) primary key rejects a second slot.
func (s *PostgresStoreSuite) TestDuplicateJoin() {
	g := s.createGroup("alice")
	member := models.NewMember(g.ID, "alice", time.Now())
	s.Require().NoError(s.store.RunInTx(s.ctx, g.ID, func(ctx context.Context, st store.Stores) error {
		return st.Members.Create(ctx, member)
	}))
	err := s.store.RunInTx(s.ctx, g.ID, func(ctx context.Context, st store.Stores) error {
		return st.Members.Create(ctx, member)
	})
	s.ErrorIs(err, sentinel.ErrConflict)
}

// TestConcurrentPayouts verifies the group row lock admits exactly one payout
// per cycle when callers race.
func (s *PostgresStoreSuite) TestConcurrentPayouts() {
	g := s.createGroup("alice")
	w := s.wallet("alice", 0)

	const goroutines = 20
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		exhausted atomic.Int32
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.DisbursePayout(s.ctx, models.PayoutRequest{
				Group: g.ID, Caller: "admin", Recipient: "alice", RecipientAccount: w,
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case dErrors.HasCode(err, dErrors.CodeInvalidState):
				exhausted.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), succeeded.Load())
	s.Equal(int32(goroutines-1), exhausted.Load())
}

// TestOutboxMarkPublished verifies published events leave the pending set.
func (s *PostgresStoreSuite) TestOutboxMarkPublished() {
	s.createGroup("alice")
	pending, err := s.store.Pending(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(models.EventGroupCreated, pending[0].Kind)

	s.Require().NoError(s.store.MarkPublished(s.ctx, []uuid.UUID{pending[0].ID}, time.Now()))

	pending, err = s.store.Pending(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)
}
