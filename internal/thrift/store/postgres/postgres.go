// Package postgres is the PostgreSQL thrift store. A unit of work is one pgx
// transaction carried in the context; every store joins it through Execer.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ahorro/internal/custody"
	custodypg "ahorro/internal/custody/postgres"
	"ahorro/internal/platform/postgres"
	"ahorro/internal/thrift/models"
	"ahorro/internal/thrift/store"
	id "ahorro/pkg/domain"
	dErrors "ahorro/pkg/domain-errors"
	"ahorro/pkg/platform/sentinel"
	txcontext "ahorro/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

const (
	uniqueViolation  = "23505"
	defaultTxTimeout = 5 * time.Second
)

// Migrate creates the thrift tables when they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply thrift schema: %w", err)
	}
	return nil
}

// Store implements store.UnitOfWork and store.OutboxReader over a pgx pool.
type Store struct {
	pool    *pgxpool.Pool
	stores  store.Stores
	timeout time.Duration
}

var (
	_ store.UnitOfWork   = (*Store)(nil)
	_ store.OutboxReader = (*Store)(nil)
)

func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:    pool,
		timeout: defaultTxTimeout,
		stores: store.Stores{
			Groups:   &GroupStore{pool: pool},
			Members:  &MemberStore{pool: pool},
			Accounts: custodypg.NewLedger(pool),
			Events:   &EventStore{pool: pool},
		},
	}
}

func (s *Store) RunInTx(ctx context.Context, _ id.GroupID, fn func(ctx context.Context, st store.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(txcontext.WithTx(ctx, tx), s.stores)
	})
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction timed out")
	}
	return err
}

// Stores returns stores that run outside any unit of work.
func (s *Store) Stores() store.Stores {
	return s.stores
}

// GroupStore persists groups in thrift_groups.
type GroupStore struct {
	pool *pgxpool.Pool
}

const selectGroup = `
	SELECT id::text, authority, model_type, insurance_bps, cycle_order,
	       current_cycle_index, total_cycles, asset, contribution_amount::text,
	       group_pool, group_pool_bump, insurance_pool, insurance_pool_bump, created_at
	FROM thrift_groups
	WHERE id = $1::uuid`

func (s *GroupStore) Create(ctx context.Context, g *models.Group) error {
	_, err := postgres.Execer(ctx, s.pool).Exec(ctx, `
		INSERT INTO thrift_groups (
			id, authority, model_type, insurance_bps, cycle_order,
			current_cycle_index, total_cycles, asset, contribution_amount,
			group_pool, group_pool_bump, insurance_pool, insurance_pool_bump, created_at
		) VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10, $11, $12, $13, $14)
	`,
		g.ID.String(), g.Authority.String(), int16(g.ModelType), int32(g.InsuranceBPS), principalsToText(g.CycleOrder),
		int64(g.CurrentCycleIndex), int64(g.TotalCycles), g.Asset.String(), strconv.FormatUint(g.ContributionAmount, 10),
		g.GroupPool.Address.String(), int16(g.GroupPool.Proof.Bump),
		g.InsurancePool.Address.String(), int16(g.InsurancePool.Proof.Bump), g.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("group %s: %w", g.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

func (s *GroupStore) Find(ctx context.Context, groupID id.GroupID) (*models.Group, error) {
	return scanGroup(postgres.Execer(ctx, s.pool).QueryRow(ctx, selectGroup, groupID.String()))
}

func (s *GroupStore) FindForUpdate(ctx context.Context, groupID id.GroupID) (*models.Group, error) {
	return scanGroup(postgres.Execer(ctx, s.pool).QueryRow(ctx, selectGroup+" FOR UPDATE", groupID.String()))
}

// Update writes the cycle pointer, the only mutable group field.
func (s *GroupStore) Update(ctx context.Context, g *models.Group) error {
	tag, err := postgres.Execer(ctx, s.pool).Exec(ctx, `
		UPDATE thrift_groups SET current_cycle_index = $2 WHERE id = $1::uuid
	`, g.ID.String(), int64(g.CurrentCycleIndex))
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanGroup(row pgx.Row) (*models.Group, error) {
	var (
		g                                   models.Group
		rawID, authority, asset, amount     string
		groupPool, insurancePool            string
		modelType, groupBump, insuranceBump int16
		bps                                 int32
		order                               []string
		cycle, total                        int64
	)
	err := row.Scan(&rawID, &authority, &modelType, &bps, &order, &cycle, &total, &asset, &amount,
		&groupPool, &groupBump, &insurancePool, &insuranceBump, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan group: %w", err)
	}
	parsed, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse group id: %w", err)
	}
	contribution, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse contribution amount %q: %w", amount, err)
	}

	g.ID = id.GroupID(parsed)
	g.Authority = id.Principal(authority)
	g.ModelType = uint8(modelType)
	g.InsuranceBPS = uint16(bps)
	g.CycleOrder = textToPrincipals(order)
	g.CurrentCycleIndex = uint32(cycle)
	g.TotalCycles = uint32(total)
	g.Asset = id.AssetID(asset)
	g.ContributionAmount = contribution
	g.GroupPool = custody.Pool{
		Address: id.Address(groupPool),
		Proof:   custody.Proof{Namespace: custody.NamespaceGroupPool, Group: g.ID, Bump: uint8(groupBump)},
	}
	g.InsurancePool = custody.Pool{
		Address: id.Address(insurancePool),
		Proof:   custody.Proof{Namespace: custody.NamespaceInsurancePool, Group: g.ID, Bump: uint8(insuranceBump)},
	}
	return &g, nil
}

// MemberStore persists member ledgers in thrift_members.
type MemberStore struct {
	pool *pgxpool.Pool
}

func (s *MemberStore) Create(ctx context.Context, m *models.Member) error {
	_, err := postgres.Execer(ctx, s.pool).Exec(ctx, `
		INSERT INTO thrift_members (group_id, member, total_contributed, has_received_payout, joined_at)
		VALUES ($1::uuid, $2, $3::numeric, $4, $5)
	`, m.Group.String(), m.Member.String(), strconv.FormatUint(m.TotalContributed, 10), m.HasReceivedPayout, m.JoinedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", m.Key(), sentinel.ErrConflict)
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// Find locks the member row for the rest of the transaction.
func (s *MemberStore) Find(ctx context.Context, key id.MemberKey) (*models.Member, error) {
	row := postgres.Execer(ctx, s.pool).QueryRow(ctx, `
		SELECT group_id::text, member, total_contributed::text, has_received_payout, joined_at
		FROM thrift_members
		WHERE group_id = $1::uuid AND member = $2
		FOR UPDATE
	`, key.Group.String(), key.Member.String())
	return scanMember(row)
}

func (s *MemberStore) Update(ctx context.Context, m *models.Member) error {
	tag, err := postgres.Execer(ctx, s.pool).Exec(ctx, `
		UPDATE thrift_members
		SET total_contributed = $3::numeric, has_received_payout = $4
		WHERE group_id = $1::uuid AND member = $2
	`, m.Group.String(), m.Member.String(), strconv.FormatUint(m.TotalContributed, 10), m.HasReceivedPayout)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *MemberStore) ListByGroup(ctx context.Context, groupID id.GroupID) ([]*models.Member, error) {
	rows, err := postgres.Execer(ctx, s.pool).Query(ctx, `
		SELECT group_id::text, member, total_contributed::text, has_received_payout, joined_at
		FROM thrift_members
		WHERE group_id = $1::uuid
		ORDER BY seq
	`, groupID.String())
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

func scanMember(row pgx.Row) (*models.Member, error) {
	var (
		m                     models.Member
		rawGroup, member, sum string
	)
	if err := row.Scan(&rawGroup, &member, &sum, &m.HasReceivedPayout, &m.JoinedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan member: %w", err)
	}
	parsed, err := uuid.Parse(rawGroup)
	if err != nil {
		return nil, fmt.Errorf("parse member group id: %w", err)
	}
	total, err := strconv.ParseUint(sum, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse total contributed %q: %w", sum, err)
	}
	m.Group = id.GroupID(parsed)
	m.Member = id.Principal(member)
	m.TotalContributed = total
	return &m, nil
}

// EventStore appends to ledger_outbox.
type EventStore struct {
	pool *pgxpool.Pool
}

func (s *EventStore) Append(ctx context.Context, e models.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = postgres.Execer(ctx, s.pool).Exec(ctx, `
		INSERT INTO ledger_outbox (id, group_id, kind, payload, occurred_at)
		VALUES ($1::uuid, $2::uuid, $3, $4::jsonb, $5)
	`, e.ID.String(), e.Group.String(), string(e.Kind), string(payload), e.OccurredAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Pending returns unpublished events in append order. limit <= 0 means all.
func (s *Store) Pending(ctx context.Context, limit int) ([]models.Event, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT payload::text
		FROM ledger_outbox
		WHERE published_at IS NULL
		ORDER BY seq
		LIMIT $1
	`, lim)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan outbox: %w", err)
		}
		var e models.Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("decode outbox event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	return events, nil
}

func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, u := range ids {
		raw[i] = u.String()
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE ledger_outbox SET published_at = $2
		WHERE id = ANY($1::uuid[]) AND published_at IS NULL
	`, raw, at)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func principalsToText(ps []id.Principal) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}

func textToPrincipals(ss []string) []id.Principal {
	out := make([]id.Principal, len(ss))
	for i, s := range ss {
		out[i] = id.Principal(s)
	}
	return out
}
