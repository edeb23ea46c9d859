// Package memory provides an in-process token ledger for tests and single-node
// deployments. Writes can be staged and committed as a unit.
package memory

import (
	"context"
	"fmt"
	"math/bits"
	"sync"

	"ahorro/internal/custody"
	id "ahorro/pkg/domain"
	"ahorro/pkg/platform/sentinel"
)

// Ledger holds token accounts in a map guarded by a RWMutex.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[id.Address]custody.Account
}

var _ custody.Ledger = (*Ledger)(nil)

func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[id.Address]custody.Account)}
}

func (l *Ledger) Open(ctx context.Context, account custody.Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return open(l.accounts, account)
}

func (l *Ledger) Get(_ context.Context, address id.Address) (*custody.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[address]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &acct, nil
}

func (l *Ledger) Transfer(_ context.Context, t custody.Transfer) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	from, to, err := resolve(l.lookup, t)
	if err != nil {
		return err
	}
	l.accounts[from.Address] = from
	l.accounts[to.Address] = to
	return nil
}

// Mint credits amount to an existing account. It stands in for the asset
// issuer and is used for seeding balances.
func (l *Ledger) Mint(_ context.Context, address id.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[address]
	if !ok {
		return sentinel.ErrNotFound
	}
	sum, carry := bits.Add64(acct.Balance, amount, 0)
	if carry != 0 {
		return sentinel.ErrOverflow
	}
	acct.Balance = sum
	l.accounts[address] = acct
	return nil
}

// Stage returns a view whose writes are kept aside until Commit.
// The caller must serialize Commit against other writers of the same accounts.
func (l *Ledger) Stage() *Staged {
	return &Staged{base: l, writes: make(map[id.Address]custody.Account)}
}

func (l *Ledger) lookup(address id.Address) (custody.Account, bool) {
	acct, ok := l.accounts[address]
	return acct, ok
}

// Staged is a copy-on-write view over a Ledger.
type Staged struct {
	base   *Ledger
	writes map[id.Address]custody.Account
}

var _ custody.Ledger = (*Staged)(nil)

func (s *Staged) Open(_ context.Context, account custody.Account) error {
	if _, ok := s.lookup(account.Address); ok {
		return fmt.Errorf("open %s: %w", account.Address, sentinel.ErrConflict)
	}
	s.writes[account.Address] = account
	return nil
}

func (s *Staged) Get(_ context.Context, address id.Address) (*custody.Account, error) {
	acct, ok := s.lookup(address)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &acct, nil
}

func (s *Staged) Transfer(_ context.Context, t custody.Transfer) error {
	from, to, err := resolve(s.lookup, t)
	if err != nil {
		return err
	}
	s.writes[from.Address] = from
	s.writes[to.Address] = to
	return nil
}

// Commit applies staged writes to the base ledger.
func (s *Staged) Commit() {
	s.base.mu.Lock()
	defer s.base.mu.Unlock()
	for addr, acct := range s.writes {
		s.base.accounts[addr] = acct
	}
	s.writes = make(map[id.Address]custody.Account)
}

func (s *Staged) lookup(address id.Address) (custody.Account, bool) {
	if acct, ok := s.writes[address]; ok {
		return acct, true
	}
	s.base.mu.RLock()
	defer s.base.mu.RUnlock()
	return s.base.lookup(address)
}

func open(accounts map[id.Address]custody.Account, account custody.Account) error {
	if _, ok := accounts[account.Address]; ok {
		return fmt.Errorf("open %s: %w", account.Address, sentinel.ErrConflict)
	}
	accounts[account.Address] = account
	return nil
}

func resolve(lookup func(id.Address) (custody.Account, bool), t custody.Transfer) (custody.Account, custody.Account, error) {
	from, ok := lookup(t.From)
	if !ok {
		return custody.Account{}, custody.Account{}, fmt.Errorf("source %s: %w", t.From, sentinel.ErrNotFound)
	}
	to, ok := lookup(t.To)
	if !ok {
		return custody.Account{}, custody.Account{}, fmt.Errorf("destination %s: %w", t.To, sentinel.ErrNotFound)
	}
	return custody.Apply(from, to, t)
}
