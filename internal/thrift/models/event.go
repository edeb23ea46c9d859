package models

import (
	"time"

	"github.com/google/uuid"

	id "ahorro/pkg/domain"
)

// EventKind names a committed ledger mutation.
type EventKind string

const (
	EventGroupCreated     EventKind = "group_created"
	EventMemberJoined     EventKind = "member_joined"
	EventContributionMade EventKind = "contribution_made"
	EventPayoutDisbursed  EventKind = "payout_disbursed"
	EventInsurancePayout  EventKind = "insurance_payout"
)

// Event is appended in the same unit of work as the mutation it records and
// relayed to the event stream afterwards. For payouts Subject is the owner of
// Account, the address that was credited.
type Event struct {
	ID          uuid.UUID    `json:"id"`
	Group       id.GroupID   `json:"group_id"`
	Kind        EventKind    `json:"kind"`
	Actor       id.Principal `json:"actor"`
	Subject     id.Principal `json:"subject,omitempty"`
	Account     id.Address   `json:"account,omitempty"`
	Amount      uint64       `json:"amount"`
	Cycle       uint32       `json:"cycle"`
	OccurredAt  time.Time    `json:"occurred_at"`
	PublishedAt *time.Time   `json:"-"`
}

func NewEvent(group id.GroupID, kind EventKind, actor id.Principal, now time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Group:      group,
		Kind:       kind,
		Actor:      actor,
		OccurredAt: now,
	}
}
