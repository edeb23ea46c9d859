package models

import (
	id "ahorro/pkg/domain"
)

// CreateGroupRequest configures a new thrift group. Authority is the caller.
type CreateGroupRequest struct {
	Authority          id.Principal
	ModelType          uint8
	InsuranceBPS       uint16
	CycleOrder         []id.Principal
	ContributionAmount uint64
	Asset              id.AssetID
}

// JoinGroupRequest admits Member. Signer is the authenticated caller and must
// equal Member. Asset, when set, must match the group's asset.
type JoinGroupRequest struct {
	Group  id.GroupID
	Member id.Principal
	Signer id.Principal
	Asset  id.AssetID
}

// ContributionRequest pays one fixed contribution from FundingAccount.
type ContributionRequest struct {
	Group          id.GroupID
	Member         id.Principal
	FundingAccount id.Address
}

// PayoutRequest disburses the group pool to the current cycle's recipient.
type PayoutRequest struct {
	Group            id.GroupID
	Caller           id.Principal
	Recipient        id.Principal
	RecipientAccount id.Address
}

// InsurancePayoutRequest pays Amount out of the insurance pool at the
// authority's discretion.
type InsurancePayoutRequest struct {
	Group            id.GroupID
	Caller           id.Principal
	Amount           uint64
	Recipient        id.Principal
	RecipientAccount id.Address
}

// ContributionReceipt reports how a contribution was routed.
type ContributionReceipt struct {
	Split
	TotalContributed uint64
}

// PayoutReceipt reports a completed cycle payout.
type PayoutReceipt struct {
	Recipient      id.Principal
	Amount         uint64
	Cycle          uint32
	NextCycleIndex uint32
}

// GroupView is a group together with its live pool balances.
type GroupView struct {
	Group                *Group
	GroupPoolBalance     uint64
	InsurancePoolBalance uint64
	NextRecipient        id.Principal
	Exhausted            bool
}
