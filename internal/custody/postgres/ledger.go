// Package postgres stores token accounts in PostgreSQL.
//
// Balances are NUMERIC(20,0) so the full uint64 domain fits; they cross the
// driver boundary as text to avoid signed-integer truncation.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ahorro/internal/custody"
	"ahorro/internal/platform/postgres"
	id "ahorro/pkg/domain"
	"ahorro/pkg/platform/sentinel"
	txcontext "ahorro/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Ledger is a pgx-backed custody.Ledger. When ctx carries a transaction every
// statement joins it; otherwise Transfer opens its own.
type Ledger struct {
	pool *pgxpool.Pool
}

var _ custody.Ledger = (*Ledger)(nil)

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) Open(ctx context.Context, account custody.Account) error {
	_, err := postgres.Execer(ctx, l.pool).Exec(ctx, `
		INSERT INTO token_accounts (address, owner, asset, balance)
		VALUES ($1, $2, $3, $4::numeric)
	`, account.Address, account.Owner, account.Asset, strconv.FormatUint(account.Balance, 10))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("open %s: %w", account.Address, sentinel.ErrConflict)
		}
		return fmt.Errorf("open token account: %w", err)
	}
	return nil
}

func (l *Ledger) Get(ctx context.Context, address id.Address) (*custody.Account, error) {
	row := postgres.Execer(ctx, l.pool).QueryRow(ctx, `
		SELECT address, owner, asset, balance::text
		FROM token_accounts
		WHERE address = $1
	`, address)
	acct, err := scanAccount(row)
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// Transfer locks both accounts in address order, applies custody.Apply, and
// writes the new balances.
func (l *Ledger) Transfer(ctx context.Context, t custody.Transfer) error {
	if tx, ok := txcontext.From(ctx); ok {
		return transfer(ctx, tx, t)
	}
	return pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		return transfer(ctx, tx, t)
	})
}

func transfer(ctx context.Context, exec postgres.Executor, t custody.Transfer) error {
	rows, err := exec.Query(ctx, `
		SELECT address, owner, asset, balance::text
		FROM token_accounts
		WHERE address = ANY($1)
		ORDER BY address
		FOR UPDATE
	`, []string{string(t.From), string(t.To)})
	if err != nil {
		return fmt.Errorf("lock token accounts: %w", err)
	}
	locked := make(map[id.Address]custody.Account, 2)
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			rows.Close()
			return err
		}
		locked[acct.Address] = *acct
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock token accounts: %w", err)
	}

	from, ok := locked[t.From]
	if !ok {
		return fmt.Errorf("source %s: %w", t.From, sentinel.ErrNotFound)
	}
	to, ok := locked[t.To]
	if !ok {
		return fmt.Errorf("destination %s: %w", t.To, sentinel.ErrNotFound)
	}
	from, to, err = custody.Apply(from, to, t)
	if err != nil {
		return err
	}
	if from.Address == to.Address {
		return nil
	}

	for _, acct := range []custody.Account{from, to} {
		if _, err := exec.Exec(ctx, `
			UPDATE token_accounts SET balance = $2::numeric WHERE address = $1
		`, acct.Address, strconv.FormatUint(acct.Balance, 10)); err != nil {
			return fmt.Errorf("update balance of %s: %w", acct.Address, err)
		}
	}
	return nil
}

// Mint credits amount to an existing account on behalf of the asset issuer.
func (l *Ledger) Mint(ctx context.Context, address id.Address, amount uint64) error {
	tag, err := postgres.Execer(ctx, l.pool).Exec(ctx, `
		UPDATE token_accounts SET balance = balance + $2::numeric
		WHERE address = $1 AND balance + $2::numeric <= $3::numeric
	`, address, strconv.FormatUint(amount, 10), strconv.FormatUint(math.MaxUint64, 10))
	if err != nil {
		return fmt.Errorf("mint into %s: %w", address, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := l.Get(ctx, address); err != nil {
			return err
		}
		return fmt.Errorf("mint into %s: %w", address, sentinel.ErrOverflow)
	}
	return nil
}

func scanAccount(row pgx.Row) (*custody.Account, error) {
	var (
		acct    custody.Account
		balance string
	)
	if err := row.Scan(&acct.Address, &acct.Owner, &acct.Asset, &balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan token account: %w", err)
	}
	v, err := strconv.ParseUint(balance, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	acct.Balance = v
	return &acct, nil
}
