package service

import (
	"context"
	"errors"

	"ahorro/internal/custody"
	"ahorro/internal/thrift/metrics"
	"ahorro/internal/thrift/models"
	"ahorro/internal/thrift/store"
	id "ahorro/pkg/domain"
	dErrors "ahorro/pkg/domain-errors"
	"ahorro/pkg/platform/sentinel"
	"ahorro/pkg/platform/strings"
	"ahorro/pkg/requestcontext"
)

// CreateGroup configures a group, derives its two pools and opens their token
// accounts. No funds move.
func (s *Service) CreateGroup(ctx context.Context, req models.CreateGroupRequest) (_ *models.Group, err error) {
	groupID := id.NewGroupID()
	ctx, finish := s.begin(ctx, metrics.OpCreateGroup, groupID)
	defer func() { finish(err) }()

	now := requestcontext.Now(ctx)
	group, err := models.NewGroup(groupID, req.Authority, req.ModelType, req.InsuranceBPS,
		req.CycleOrder, req.ContributionAmount, req.Asset, s.maxMembers, now)
	if err != nil {
		return nil, err
	}
	if repeated := strings.Repeated(group.CycleOrder); len(repeated) > 0 {
		s.logger.WarnContext(ctx, "cycle order schedules a member more than once",
			"group_id", groupID.String(),
			"cycles", len(group.CycleOrder),
			"repeated", repeated,
		)
	}

	group.GroupPool, err = s.deriver.Derive(custody.NamespaceGroupPool, groupID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive group pool")
	}
	group.InsurancePool, err = s.deriver.Derive(custody.NamespaceInsurancePool, groupID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive insurance pool")
	}

	event := models.NewEvent(groupID, models.EventGroupCreated, group.Authority, now)
	event.Amount = group.ContributionAmount

	err = s.uow.RunInTx(ctx, groupID, func(ctx context.Context, st store.Stores) error {
		if err := st.Groups.Create(ctx, group); err != nil {
			return translate(err, "failed to store group")
		}
		for _, pool := range []custody.Pool{group.GroupPool, group.InsurancePool} {
			account := custody.Account{
				Address: pool.Address,
				Owner:   custody.ControlIdentity(pool.Address),
				Asset:   group.Asset,
			}
			if err := st.Accounts.Open(ctx, account); err != nil {
				return translate(err, "failed to open pool account")
			}
		}
		return st.Events.Append(ctx, event)
	})
	if err != nil {
		return nil, translate(err, "failed to create group")
	}
	s.logEvent(ctx, event)
	return group, nil
}

// JoinGroup allocates the caller's member ledger. No funds move.
func (s *Service) JoinGroup(ctx context.Context, req models.JoinGroupRequest) (_ *models.Member, err error) {
	ctx, finish := s.begin(ctx, metrics.OpJoinGroup, req.Group)
	defer func() { finish(err) }()

	if req.Member.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "member is required")
	}
	if req.Signer != req.Member {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "signer does not match member")
	}
	if req.Member.IsControl() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "pool identities cannot join a group")
	}

	now := requestcontext.Now(ctx)
	member := models.NewMember(req.Group, req.Member, now)
	event := models.NewEvent(req.Group, models.EventMemberJoined, req.Signer, now)
	event.Subject = req.Member

	err = s.uow.RunInTx(ctx, req.Group, func(ctx context.Context, st store.Stores) error {
		group, err := st.Groups.FindForUpdate(ctx, req.Group)
		if err != nil {
			return translate(err, "group")
		}
		if req.Asset != "" && req.Asset != group.Asset {
			return dErrors.New(dErrors.CodeAssetMismatch, "asset does not match the group asset")
		}
		if s.requireScheduledMember && !group.Schedules(req.Member) {
			return dErrors.New(dErrors.CodeUnauthorized, "member is not in the cycle order")
		}
		if err := st.Members.Create(ctx, member); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "member has already joined the group")
			}
			return translate(err, "failed to store member")
		}
		return st.Events.Append(ctx, event)
	})
	if err != nil {
		return nil, translate(err, "failed to join group")
	}
	s.logEvent(ctx, event)
	return member, nil
}

// MakeContribution pays the group's fixed contribution out of the member's
// funding account, split between the group and insurance pools.
func (s *Service) MakeContribution(ctx context.Context, req models.ContributionRequest) (_ *models.ContributionReceipt, err error) {
	ctx, finish := s.begin(ctx, metrics.OpContribute, req.Group)
	defer func() { finish(err) }()

	var (
		receipt models.ContributionReceipt
		event   models.Event
	)
	err = s.uow.RunInTx(ctx, req.Group, func(ctx context.Context, st store.Stores) error {
		group, err := st.Groups.FindForUpdate(ctx, req.Group)
		if err != nil {
			return translate(err, "group")
		}
		member, err := st.Members.Find(ctx, id.MemberKey{Group: req.Group, Member: req.Member})
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeUnauthorized, "member has not joined the group")
			}
			return translate(err, "failed to load member")
		}
		if !member.BelongsTo(group.ID, req.Member) {
			return dErrors.New(dErrors.CodeUnauthorized, "member ledger does not belong to this group and member")
		}

		// Pools only pay out through their proof, never as a funding source.
		if req.FundingAccount.IsPool() ||
			req.FundingAccount == group.GroupPool.Address || req.FundingAccount == group.InsurancePool.Address {
			return dErrors.New(dErrors.CodeUnauthorized, "funding account cannot be a pool")
		}
		funding, err := requireAccount(ctx, st.Accounts, req.FundingAccount, group.Asset)
		if err != nil {
			return err
		}
		if funding.Owner.IsControl() {
			return dErrors.New(dErrors.CodeUnauthorized, "funding account is controlled by a pool")
		}
		for _, addr := range []id.Address{group.GroupPool.Address, group.InsurancePool.Address} {
			if err := requireAsset(ctx, st.Accounts, addr, group.Asset); err != nil {
				return err
			}
		}

		split, err := group.Split()
		if err != nil {
			return err
		}
		transfers := []custody.Transfer{
			{From: req.FundingAccount, To: group.GroupPool.Address, Amount: split.ToGroupPool, Signer: req.Member},
			{From: req.FundingAccount, To: group.InsurancePool.Address, Amount: split.ToInsurancePool, Signer: req.Member},
		}
		for _, t := range transfers {
			if err := st.Accounts.Transfer(ctx, t); err != nil {
				return translate(err, "contribution transfer failed")
			}
		}

		if err := member.RecordContribution(group.ContributionAmount); err != nil {
			return err
		}
		if err := st.Members.Update(ctx, member); err != nil {
			return translate(err, "failed to update member")
		}

		event = models.NewEvent(group.ID, models.EventContributionMade, req.Member, requestcontext.Now(ctx))
		event.Amount = group.ContributionAmount
		event.Cycle = group.CurrentCycleIndex
		receipt = models.ContributionReceipt{Split: split, TotalContributed: member.TotalContributed}
		return st.Events.Append(ctx, event)
	})
	if err != nil {
		return nil, translate(err, "failed to make contribution")
	}
	if s.metrics != nil {
		s.metrics.RecordContribution(receipt.ToGroupPool, receipt.ToInsurancePool)
	}
	s.logEvent(ctx, event)
	return &receipt, nil
}

// DisbursePayout moves the entire group pool balance to the current cycle's
// recipient and advances the cycle.
func (s *Service) DisbursePayout(ctx context.Context, req models.PayoutRequest) (_ *models.PayoutReceipt, err error) {
	ctx, finish := s.begin(ctx, metrics.OpDisburse, req.Group)
	defer func() { finish(err) }()

	var (
		receipt models.PayoutReceipt
		event   models.Event
	)
	err = s.uow.RunInTx(ctx, req.Group, func(ctx context.Context, st store.Stores) error {
		group, err := st.Groups.FindForUpdate(ctx, req.Group)
		if err != nil {
			return translate(err, "group")
		}
		if err := s.policy.AuthorizeAdmin(ctx, group, req.Caller); err != nil {
			return err
		}
		expected, err := group.CurrentRecipient()
		if err != nil {
			return err
		}
		if req.Recipient != expected {
			return dErrors.New(dErrors.CodeUnauthorized, "recipient is not scheduled for the current cycle")
		}

		dest, err := requireAccount(ctx, st.Accounts, req.RecipientAccount, group.Asset)
		if err != nil {
			return err
		}
		if dest.Owner != req.Recipient {
			return dErrors.New(dErrors.CodeUnauthorized, "recipient account is not owned by the recipient")
		}
		pool, err := requireAccount(ctx, st.Accounts, group.GroupPool.Address, group.Asset)
		if err != nil {
			return err
		}

		amount := pool.Balance
		if err := s.transferOut(ctx, st.Accounts, group.GroupPool, amount, dest.Address); err != nil {
			return err
		}
		cycle := group.CurrentCycleIndex
		if err := group.AdvanceCycle(); err != nil {
			return err
		}
		if err := st.Groups.Update(ctx, group); err != nil {
			return translate(err, "failed to update group")
		}

		event = models.NewEvent(group.ID, models.EventPayoutDisbursed, req.Caller, requestcontext.Now(ctx))
		event.Subject = dest.Owner
		event.Account = dest.Address
		event.Amount = amount
		event.Cycle = cycle
		receipt = models.PayoutReceipt{
			Recipient:      req.Recipient,
			Amount:         amount,
			Cycle:          cycle,
			NextCycleIndex: group.CurrentCycleIndex,
		}
		return st.Events.Append(ctx, event)
	})
	if err != nil {
		return nil, translate(err, "failed to disburse payout")
	}
	if s.metrics != nil {
		s.metrics.RecordPayout(receipt.Amount)
	}
	s.logEvent(ctx, event)
	return &receipt, nil
}

// FallbackInsurancePayout pays amount out of the insurance pool at the
// administrator's discretion. Recipient eligibility and cycle state are not
// checked; an amount the pool cannot cover fails the transfer.
func (s *Service) FallbackInsurancePayout(ctx context.Context, req models.InsurancePayoutRequest) (err error) {
	ctx, finish := s.begin(ctx, metrics.OpInsurancePayout, req.Group)
	defer func() { finish(err) }()

	var event models.Event
	err = s.uow.RunInTx(ctx, req.Group, func(ctx context.Context, st store.Stores) error {
		group, err := st.Groups.FindForUpdate(ctx, req.Group)
		if err != nil {
			return translate(err, "group")
		}
		if err := s.policy.AuthorizeAdmin(ctx, group, req.Caller); err != nil {
			return err
		}
		dest, err := requireAccount(ctx, st.Accounts, req.RecipientAccount, group.Asset)
		if err != nil {
			return err
		}
		if err := s.transferOut(ctx, st.Accounts, group.InsurancePool, req.Amount, dest.Address); err != nil {
			return err
		}

		event = models.NewEvent(group.ID, models.EventInsurancePayout, req.Caller, requestcontext.Now(ctx))
		event.Subject = dest.Owner
		event.Account = dest.Address
		event.Amount = req.Amount
		event.Cycle = group.CurrentCycleIndex
		return st.Events.Append(ctx, event)
	})
	if err != nil {
		return translate(err, "failed to pay out insurance")
	}
	if s.metrics != nil {
		s.metrics.RecordInsurancePayout(req.Amount)
	}
	if s.logger != nil && req.Recipient != "" && req.Recipient != event.Subject {
		s.logger.WarnContext(ctx, "insurance payout credited an account not owned by the declared recipient",
			"group_id", req.Group.String(),
			"declared_recipient", req.Recipient.String(),
			"account_owner", event.Subject.String(),
		)
	}
	s.logEvent(ctx, event)
	return nil
}

// GetGroup returns the group with its live pool balances.
func (s *Service) GetGroup(ctx context.Context, groupID id.GroupID) (*models.GroupView, error) {
	var view models.GroupView
	err := s.uow.RunInTx(ctx, groupID, func(ctx context.Context, st store.Stores) error {
		group, err := st.Groups.Find(ctx, groupID)
		if err != nil {
			return translate(err, "group")
		}
		groupPool, err := st.Accounts.Get(ctx, group.GroupPool.Address)
		if err != nil {
			return translate(err, "group pool account")
		}
		insurancePool, err := st.Accounts.Get(ctx, group.InsurancePool.Address)
		if err != nil {
			return translate(err, "insurance pool account")
		}
		view = models.GroupView{
			Group:                group,
			GroupPoolBalance:     groupPool.Balance,
			InsurancePoolBalance: insurancePool.Balance,
			Exhausted:            group.Exhausted(),
		}
		if next, err := group.CurrentRecipient(); err == nil {
			view.NextRecipient = next
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "failed to load group")
	}
	return &view, nil
}

func (s *Service) GetMember(ctx context.Context, groupID id.GroupID, member id.Principal) (*models.Member, error) {
	var found *models.Member
	err := s.uow.RunInTx(ctx, groupID, func(ctx context.Context, st store.Stores) error {
		m, err := st.Members.Find(ctx, id.MemberKey{Group: groupID, Member: member})
		if err != nil {
			return translate(err, "member")
		}
		found = m
		return nil
	})
	if err != nil {
		return nil, translate(err, "failed to load member")
	}
	return found, nil
}

// ListMembers returns the group's members in join order.
func (s *Service) ListMembers(ctx context.Context, groupID id.GroupID) ([]*models.Member, error) {
	var members []*models.Member
	err := s.uow.RunInTx(ctx, groupID, func(ctx context.Context, st store.Stores) error {
		if _, err := st.Groups.Find(ctx, groupID); err != nil {
			return translate(err, "group")
		}
		var err error
		members, err = st.Members.ListByGroup(ctx, groupID)
		if err != nil {
			return translate(err, "failed to list members")
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "failed to list members")
	}
	return members, nil
}

// transferOut moves amount out of a derived pool, signed by the pool's proof.
func (s *Service) transferOut(ctx context.Context, ledger custody.Ledger, pool custody.Pool, amount uint64, dest id.Address) error {
	auth, err := pool.Proof.AuthorizeTransfer(pool.Address, amount, dest)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, "pool proof rejected")
	}
	err = ledger.Transfer(ctx, custody.Transfer{
		From:   auth.Pool,
		To:     auth.Destination,
		Amount: auth.Amount,
		Signer: auth.Signer,
	})
	return translate(err, "pool transfer failed")
}

func requireAccount(ctx context.Context, ledger custody.Ledger, addr id.Address, asset id.AssetID) (*custody.Account, error) {
	acct, err := ledger.Get(ctx, addr)
	if err != nil {
		return nil, translate(err, "token account "+addr.String())
	}
	if acct.Asset != asset {
		return nil, dErrors.New(dErrors.CodeAssetMismatch, "token account "+addr.String()+" does not hold the group asset")
	}
	return acct, nil
}

func requireAsset(ctx context.Context, ledger custody.Ledger, addr id.Address, asset id.AssetID) error {
	_, err := requireAccount(ctx, ledger, addr, asset)
	return err
}
