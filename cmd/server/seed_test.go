package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ahorro/internal/custody"
	"ahorro/internal/platform/config"
	"ahorro/internal/thrift/models"
	"ahorro/internal/thrift/service"
	"ahorro/internal/thrift/store/memory"
	id "ahorro/pkg/domain"
	dErrors "ahorro/pkg/domain-errors"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestSeedAccounts_FundsWalletsOnce(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	accounts := []config.DevAccount{
		{Owner: "alice", Asset: "USDC", Balance: 5000},
		{Owner: "bob", Asset: "USDC", Balance: 0},
	}

	require.NoError(t, seedAccounts(ctx, st.Ledger(), accounts, quiet))
	require.NoError(t, seedAccounts(ctx, st.Ledger(), accounts, quiet))

	alice, err := st.Ledger().Get(ctx, "alice-USDC")
	require.NoError(t, err)
	assert.Equal(t, id.Principal("alice"), alice.Owner)
	assert.Equal(t, uint64(5000), alice.Balance)

	bob, err := st.Ledger().Get(ctx, "bob-USDC")
	require.NoError(t, err)
	assert.Zero(t, bob.Balance)
}

func TestSeedAccounts_RejectsPoolOwner(t *testing.T) {
	st := memory.New()
	err := seedAccounts(context.Background(), st.Ledger(), []config.DevAccount{
		{Owner: "pool:0123", Asset: "USDC", Balance: 100},
	}, quiet)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

// TestSeedAccounts_MemoryLedgerCanContribute runs a contribution and payout on
// a fresh in-memory deployment using only seeded wallets.
func TestSeedAccounts_MemoryLedgerCanContribute(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, seedAccounts(ctx, st.Ledger(), []config.DevAccount{
		{Owner: "alice", Asset: "USDC", Balance: 1000},
	}, quiet))

	svc := service.New(st, custody.Blake2bDeriver{}, service.WithLogger(quiet))
	g, err := svc.CreateGroup(ctx, models.CreateGroupRequest{
		Authority: "admin", InsuranceBPS: 250, CycleOrder: []id.Principal{"alice"},
		ContributionAmount: 1000, Asset: "USDC",
	})
	require.NoError(t, err)
	_, err = svc.JoinGroup(ctx, models.JoinGroupRequest{Group: g.ID, Member: "alice", Signer: "alice"})
	require.NoError(t, err)

	wallet := devAddress("alice", "USDC")
	_, err = svc.MakeContribution(ctx, models.ContributionRequest{Group: g.ID, Member: "alice", FundingAccount: wallet})
	require.NoError(t, err)
	receipt, err := svc.DisbursePayout(ctx, models.PayoutRequest{
		Group: g.ID, Caller: "admin", Recipient: "alice", RecipientAccount: wallet,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(975), receipt.Amount)
}
