package models

import (
	"time"

	"ahorro/internal/custody"
	id "ahorro/pkg/domain"
	dErrors "ahorro/pkg/domain-errors"
)

const (
	// MaxInsuranceBPS caps the insurance skim at 10%.
	MaxInsuranceBPS uint16 = 1_000
	// BPSDenominator is one whole in basis points.
	BPSDenominator uint64 = 10_000
	// DefaultMaxMembers bounds cycle order length.
	DefaultMaxMembers = 32
)

// Group is the aggregate root of a thrift group ledger.
//
// Invariants:
//   - InsuranceBPS <= MaxInsuranceBPS
//   - TotalCycles == len(CycleOrder) and CycleOrder is non-empty
//   - 0 <= CurrentCycleIndex <= TotalCycles; TotalCycles is terminal
//   - Authority, ModelType, InsuranceBPS, CycleOrder, Asset, ContributionAmount
//     and both pools are fixed at creation
//
// ModelType is stored for future payout variants and never branched on.
type Group struct {
	ID                 id.GroupID
	Authority          id.Principal
	ModelType          uint8
	InsuranceBPS       uint16
	CycleOrder         []id.Principal
	CurrentCycleIndex  uint32
	TotalCycles        uint32
	Asset              id.AssetID
	ContributionAmount uint64
	GroupPool          custody.Pool
	InsurancePool      custody.Pool
	CreatedAt          time.Time
}

// NewGroup validates configuration and returns a group at cycle 0.
// Pools are attached by the caller once derived.
func NewGroup(groupID id.GroupID, authority id.Principal, modelType uint8, bps uint16,
	cycleOrder []id.Principal, amount uint64, asset id.AssetID, maxMembers int, now time.Time) (*Group, error) {
	if bps > MaxInsuranceBPS {
		return nil, dErrors.New(dErrors.CodeInvalidConfiguration, "insurance bps must be at most 1000")
	}
	if authority.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authority is required")
	}
	if authority.IsControl() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authority cannot be a pool identity")
	}
	if asset == "" {
		return nil, dErrors.New(dErrors.CodeInvalidConfiguration, "asset is required")
	}
	if len(cycleOrder) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidConfiguration, "cycle order cannot be empty")
	}
	if maxMembers <= 0 {
		maxMembers = DefaultMaxMembers
	}
	if len(cycleOrder) > maxMembers {
		return nil, dErrors.New(dErrors.CodeInvalidConfiguration, "cycle order exceeds maximum membership")
	}
	for _, p := range cycleOrder {
		if p.IsZero() {
			return nil, dErrors.New(dErrors.CodeInvalidConfiguration, "cycle order contains an empty identity")
		}
		if p.IsControl() {
			return nil, dErrors.New(dErrors.CodeInvalidConfiguration, "cycle order contains a pool identity")
		}
	}

	order := make([]id.Principal, len(cycleOrder))
	copy(order, cycleOrder)
	return &Group{
		ID:                 groupID,
		Authority:          authority,
		ModelType:          modelType,
		InsuranceBPS:       bps,
		CycleOrder:         order,
		CurrentCycleIndex:  0,
		TotalCycles:        uint32(len(order)),
		Asset:              asset,
		ContributionAmount: amount,
		CreatedAt:          now,
	}, nil
}

// Exhausted reports whether every scheduled payout has been made.
func (g *Group) Exhausted() bool {
	return g.CurrentCycleIndex >= g.TotalCycles
}

// CurrentRecipient returns the member scheduled for the current cycle.
func (g *Group) CurrentRecipient() (id.Principal, error) {
	if int(g.CurrentCycleIndex) >= len(g.CycleOrder) {
		return "", dErrors.New(dErrors.CodeInvalidState, "all cycles have been paid out")
	}
	return g.CycleOrder[g.CurrentCycleIndex], nil
}

// Schedules reports whether p appears in the cycle order.
func (g *Group) Schedules(p id.Principal) bool {
	for _, m := range g.CycleOrder {
		if m == p {
			return true
		}
	}
	return false
}

// AdvanceCycle moves the pointer to the next cycle. Call after the payout
// transfer succeeded.
func (g *Group) AdvanceCycle() error {
	if g.Exhausted() {
		return dErrors.New(dErrors.CodeInvalidState, "all cycles have been paid out")
	}
	next := g.CurrentCycleIndex + 1
	if next < g.CurrentCycleIndex {
		return dErrors.New(dErrors.CodeArithmeticOverflow, "cycle index overflow")
	}
	g.CurrentCycleIndex = next
	return nil
}

// Split returns the skim routed to the insurance pool and the remainder routed
// to the group pool for one contribution.
func (g *Group) Split() (Split, error) {
	return SplitContribution(g.ContributionAmount, g.InsuranceBPS)
}
