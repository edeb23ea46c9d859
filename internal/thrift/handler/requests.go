package handler

import (
	"time"

	"ahorro/internal/custody"
	"ahorro/internal/thrift/models"
	id "ahorro/pkg/domain"
	dErrors "ahorro/pkg/domain-errors"
)

type createGroupRequest struct {
	ModelType          uint8    `json:"model_type"`
	InsuranceBPS       uint16   `json:"insurance_bps"`
	CycleOrder         []string `json:"cycle_order"`
	ContributionAmount uint64   `json:"contribution_amount"`
	Asset              string   `json:"asset"`
}

// toModel keeps blank cycle entries and a missing asset for the group
// constructor, which rejects them as configuration errors.
func (r *createGroupRequest) toModel(caller id.Principal) (models.CreateGroupRequest, error) {
	order := make([]id.Principal, len(r.CycleOrder))
	for i, raw := range r.CycleOrder {
		if raw == "" {
			continue
		}
		p, err := id.ParsePrincipal(raw)
		if err != nil {
			return models.CreateGroupRequest{}, dErrors.New(dErrors.CodeBadRequest, "invalid cycle_order entry")
		}
		order[i] = p
	}
	var asset id.AssetID
	if r.Asset != "" {
		a, err := id.ParseAssetID(r.Asset)
		if err != nil {
			return models.CreateGroupRequest{}, err
		}
		asset = a
	}
	return models.CreateGroupRequest{
		Authority:          caller,
		ModelType:          r.ModelType,
		InsuranceBPS:       r.InsuranceBPS,
		CycleOrder:         order,
		ContributionAmount: r.ContributionAmount,
		Asset:              asset,
	}, nil
}

type joinGroupRequest struct {
	Member string `json:"member,omitempty"`
	Asset  string `json:"asset,omitempty"`
}

type contributionRequest struct {
	FundingAccount string `json:"funding_account"`
}

type payoutRequest struct {
	Recipient        string `json:"recipient"`
	RecipientAccount string `json:"recipient_account"`
}

type insurancePayoutRequest struct {
	Amount           uint64 `json:"amount"`
	Recipient        string `json:"recipient"`
	RecipientAccount string `json:"recipient_account"`
}

func parseRecipient(recipient, account string) (id.Principal, id.Address, error) {
	p, err := id.ParsePrincipal(recipient)
	if err != nil {
		return "", "", err
	}
	a, err := id.ParseAddress(account)
	if err != nil {
		return "", "", err
	}
	return p, a, nil
}

type poolResponse struct {
	Address string `json:"address"`
	Bump    uint8  `json:"bump"`
}

type groupResponse struct {
	ID                   string       `json:"id"`
	Authority            string       `json:"authority"`
	ModelType            uint8        `json:"model_type"`
	InsuranceBPS         uint16       `json:"insurance_bps"`
	CycleOrder           []string     `json:"cycle_order"`
	CurrentCycleIndex    uint32       `json:"current_cycle_index"`
	TotalCycles          uint32       `json:"total_cycles"`
	Asset                string       `json:"asset"`
	ContributionAmount   uint64       `json:"contribution_amount"`
	GroupPool            poolResponse `json:"group_pool"`
	InsurancePool        poolResponse `json:"insurance_pool"`
	CreatedAt            time.Time    `json:"created_at"`
	GroupPoolBalance     *uint64      `json:"group_pool_balance,omitempty"`
	InsurancePoolBalance *uint64      `json:"insurance_pool_balance,omitempty"`
	NextRecipient        string       `json:"next_recipient,omitempty"`
	Exhausted            bool         `json:"exhausted"`
}

func toGroupResponse(g *models.Group) groupResponse {
	order := make([]string, len(g.CycleOrder))
	for i, p := range g.CycleOrder {
		order[i] = p.String()
	}
	resp := groupResponse{
		ID:                 g.ID.String(),
		Authority:          g.Authority.String(),
		ModelType:          g.ModelType,
		InsuranceBPS:       g.InsuranceBPS,
		CycleOrder:         order,
		CurrentCycleIndex:  g.CurrentCycleIndex,
		TotalCycles:        g.TotalCycles,
		Asset:              g.Asset.String(),
		ContributionAmount: g.ContributionAmount,
		GroupPool:          toPoolResponse(g.GroupPool),
		InsurancePool:      toPoolResponse(g.InsurancePool),
		CreatedAt:          g.CreatedAt,
		Exhausted:          g.Exhausted(),
	}
	if next, err := g.CurrentRecipient(); err == nil {
		resp.NextRecipient = next.String()
	}
	return resp
}

func toGroupViewResponse(v *models.GroupView) groupResponse {
	resp := toGroupResponse(v.Group)
	resp.GroupPoolBalance = &v.GroupPoolBalance
	resp.InsurancePoolBalance = &v.InsurancePoolBalance
	return resp
}

func toPoolResponse(p custody.Pool) poolResponse {
	return poolResponse{Address: p.Address.String(), Bump: p.Proof.Bump}
}

type memberResponse struct {
	GroupID           string    `json:"group_id"`
	Member            string    `json:"member"`
	TotalContributed  uint64    `json:"total_contributed"`
	HasReceivedPayout bool      `json:"has_received_payout"`
	JoinedAt          time.Time `json:"joined_at"`
}

func toMemberResponse(m *models.Member) memberResponse {
	return memberResponse{
		GroupID:           m.Group.String(),
		Member:            m.Member.String(),
		TotalContributed:  m.TotalContributed,
		HasReceivedPayout: m.HasReceivedPayout,
		JoinedAt:          m.JoinedAt,
	}
}

type memberListResponse struct {
	Members []memberResponse `json:"members"`
}

type contributionResponse struct {
	ToGroupPool      uint64 `json:"to_group_pool"`
	ToInsurancePool  uint64 `json:"to_insurance_pool"`
	TotalContributed uint64 `json:"total_contributed"`
}

type payoutResponse struct {
	Recipient      string `json:"recipient"`
	Amount         uint64 `json:"amount"`
	Cycle          uint32 `json:"cycle"`
	NextCycleIndex uint32 `json:"next_cycle_index"`
}
