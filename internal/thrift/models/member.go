package models

import (
	"math/bits"
	"time"

	id "ahorro/pkg/domain"
	dErrors "ahorro/pkg/domain-errors"
)

// Member is a member's ledger within one group, stored at the deterministic
// slot (Group, Member).
//
// HasReceivedPayout is written false at join and not maintained by any
// operation yet; payouts are tracked by Group.CurrentCycleIndex.
type Member struct {
	Group             id.GroupID
	Member            id.Principal
	TotalContributed  uint64
	HasReceivedPayout bool
	JoinedAt          time.Time
}

func NewMember(group id.GroupID, member id.Principal, now time.Time) *Member {
	return &Member{
		Group:             group,
		Member:            member,
		TotalContributed:  0,
		HasReceivedPayout: false,
		JoinedAt:          now,
	}
}

func (m *Member) Key() id.MemberKey {
	return id.MemberKey{Group: m.Group, Member: m.Member}
}

// BelongsTo reports whether the ledger is the (group, member) slot.
func (m *Member) BelongsTo(group id.GroupID, member id.Principal) bool {
	return m.Group == group && m.Member == member
}

// RecordContribution adds amount to the running total.
func (m *Member) RecordContribution(amount uint64) error {
	sum, carry := bits.Add64(m.TotalContributed, amount, 0)
	if carry != 0 {
		return dErrors.New(dErrors.CodeArithmeticOverflow, "total contributed overflow")
	}
	m.TotalContributed = sum
	return nil
}
