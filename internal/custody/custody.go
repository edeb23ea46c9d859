// Package custody models the custodial pools a thrift group holds funds in and
// the token ledger that moves balances between accounts.
//
// The thrift service never moves funds itself. It decides source, destination
// and amount, then hands a Transfer to a Ledger. Pools are token accounts owned
// by a control identity derived from the group id and a namespace; the Proof
// recorded at creation is the only way to sign for that identity.
package custody

//go:generate mockgen -source=custody.go -destination=mocks/mocks.go -package=mocks Ledger

import (
	"context"
	"fmt"
	"math/bits"

	id "ahorro/pkg/domain"
	"ahorro/pkg/platform/sentinel"
)

// Account is a balance-holding token account.
type Account struct {
	Address id.Address
	Owner   id.Principal
	Asset   id.AssetID
	Balance uint64
}

// Transfer is a single debit/credit instruction. Signer must own From.
type Transfer struct {
	From   id.Address
	To     id.Address
	Amount uint64
	Signer id.Principal
}

// Ledger moves fungible balances between accounts.
//
// Errors are sentinel values from pkg/platform/sentinel:
//   - ErrNotFound when either account is missing
//   - ErrConflict when Open targets an existing address
//   - ErrUnauthorizedSigner when Signer does not own From
//   - ErrAssetMismatch when From and To hold different assets
//   - ErrInsufficientFunds when From cannot cover Amount
//   - ErrOverflow when To cannot absorb Amount
type Ledger interface {
	Open(ctx context.Context, account Account) error
	Get(ctx context.Context, address id.Address) (*Account, error)
	Transfer(ctx context.Context, t Transfer) error
}

// Apply validates t against the current state of its two accounts and returns
// both with the transfer applied. Self-transfers leave the balance unchanged.
// Ledger implementations share it so every backend enforces the same rules.
func Apply(from, to Account, t Transfer) (Account, Account, error) {
	if from.Owner != t.Signer {
		return Account{}, Account{}, fmt.Errorf("signer %s for %s: %w", t.Signer, t.From, sentinel.ErrUnauthorizedSigner)
	}
	if from.Asset != to.Asset {
		return Account{}, Account{}, fmt.Errorf("%s to %s: %w", from.Asset, to.Asset, sentinel.ErrAssetMismatch)
	}
	if from.Balance < t.Amount {
		return Account{}, Account{}, fmt.Errorf("debit %d from %s: %w", t.Amount, t.From, sentinel.ErrInsufficientFunds)
	}
	if from.Address == to.Address {
		return from, to, nil
	}
	credited, carry := bits.Add64(to.Balance, t.Amount, 0)
	if carry != 0 {
		return Account{}, Account{}, fmt.Errorf("credit %d to %s: %w", t.Amount, t.To, sentinel.ErrOverflow)
	}
	from.Balance -= t.Amount
	to.Balance = credited
	return from, to, nil
}
