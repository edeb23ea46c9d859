package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ahorro/internal/platform/config"
	"ahorro/internal/platform/middleware"
	"ahorro/internal/thrift/models"
	id "ahorro/pkg/domain"
	dErrors "ahorro/pkg/domain-errors"
	"ahorro/pkg/platform/httputil"
	"ahorro/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the thrift operations exposed over HTTP.
type Service interface {
	CreateGroup(ctx context.Context, req models.CreateGroupRequest) (*models.Group, error)
	JoinGroup(ctx context.Context, req models.JoinGroupRequest) (*models.Member, error)
	MakeContribution(ctx context.Context, req models.ContributionRequest) (*models.ContributionReceipt, error)
	DisbursePayout(ctx context.Context, req models.PayoutRequest) (*models.PayoutReceipt, error)
	FallbackInsurancePayout(ctx context.Context, req models.InsurancePayoutRequest) error
	GetGroup(ctx context.Context, groupID id.GroupID) (*models.GroupView, error)
	GetMember(ctx context.Context, groupID id.GroupID, member id.Principal) (*models.Member, error)
	ListMembers(ctx context.Context, groupID id.GroupID) ([]*models.Member, error)
}

// Handler serves the /groups API.
type Handler struct {
	service   Service
	logger    *slog.Logger
	validator middleware.TokenValidator
	responses middleware.ResponseStore
}

// New creates a thrift Handler. responses backs Idempotency-Key replay.
func New(service Service, logger *slog.Logger, validator middleware.TokenValidator, responses middleware.ResponseStore) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		validator: validator,
		responses: responses,
	}
}

// Register registers the thrift routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/groups", func(gr chi.Router) {
		gr.Use(middleware.RequestID)
		gr.Use(middleware.RequestTime)
		gr.Use(middleware.RequireAuth(h.validator, h.logger))
		gr.Use(middleware.Idempotency(h.responses, config.IdempotencyTTL, h.logger))

		gr.Post("/", h.handleCreateGroup)
		gr.Get("/{groupID}", h.handleGetGroup)
		gr.Post("/{groupID}/members", h.handleJoinGroup)
		gr.Get("/{groupID}/members", h.handleListMembers)
		gr.Get("/{groupID}/members/{member}", h.handleGetMember)
		gr.Post("/{groupID}/contributions", h.handleContribution)
		gr.Post("/{groupID}/payouts", h.handlePayout)
		gr.Post("/{groupID}/insurance-payouts", h.handleInsurancePayout)
	})
}

func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[createGroupRequest](w, r, h.logger)
	if !ok {
		return
	}
	create, err := req.toModel(requestcontext.Principal(ctx))
	if err != nil {
		h.fail(w, r, "create group", err)
		return
	}

	group, err := h.service.CreateGroup(ctx, create)
	if err != nil {
		h.fail(w, r, "create group", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toGroupResponse(group))
}

func (h *Handler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetGroup(r.Context(), groupID)
	if err != nil {
		h.fail(w, r, "get group", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toGroupViewResponse(view))
}

func (h *Handler) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	body := &joinGroupRequest{}
	if r.ContentLength != 0 {
		if body, ok = httputil.DecodeJSON[joinGroupRequest](w, r, h.logger); !ok {
			return
		}
	}

	caller := requestcontext.Principal(ctx)
	join := models.JoinGroupRequest{Group: groupID, Member: caller, Signer: caller}
	if body.Member != "" {
		member, err := id.ParsePrincipal(body.Member)
		if err != nil {
			h.fail(w, r, "join group", err)
			return
		}
		join.Member = member
	}
	if body.Asset != "" {
		asset, err := id.ParseAssetID(body.Asset)
		if err != nil {
			h.fail(w, r, "join group", err)
			return
		}
		join.Asset = asset
	}

	member, err := h.service.JoinGroup(ctx, join)
	if err != nil {
		h.fail(w, r, "join group", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toMemberResponse(member))
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	members, err := h.service.ListMembers(r.Context(), groupID)
	if err != nil {
		h.fail(w, r, "list members", err)
		return
	}
	resp := memberListResponse{Members: make([]memberResponse, 0, len(members))}
	for _, m := range members {
		resp.Members = append(resp.Members, toMemberResponse(m))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetMember(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	member, err := id.ParsePrincipal(chi.URLParam(r, "member"))
	if err != nil {
		h.fail(w, r, "get member", err)
		return
	}
	m, err := h.service.GetMember(r.Context(), groupID, member)
	if err != nil {
		h.fail(w, r, "get member", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toMemberResponse(m))
}

func (h *Handler) handleContribution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[contributionRequest](w, r, h.logger)
	if !ok {
		return
	}
	funding, err := id.ParseAddress(req.FundingAccount)
	if err != nil {
		h.fail(w, r, "make contribution", err)
		return
	}

	receipt, err := h.service.MakeContribution(ctx, models.ContributionRequest{
		Group:          groupID,
		Member:         requestcontext.Principal(ctx),
		FundingAccount: funding,
	})
	if err != nil {
		h.fail(w, r, "make contribution", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, contributionResponse{
		ToGroupPool:      receipt.ToGroupPool,
		ToInsurancePool:  receipt.ToInsurancePool,
		TotalContributed: receipt.TotalContributed,
	})
}

func (h *Handler) handlePayout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[payoutRequest](w, r, h.logger)
	if !ok {
		return
	}
	recipient, account, err := parseRecipient(req.Recipient, req.RecipientAccount)
	if err != nil {
		h.fail(w, r, "disburse payout", err)
		return
	}

	receipt, err := h.service.DisbursePayout(ctx, models.PayoutRequest{
		Group:            groupID,
		Caller:           requestcontext.Principal(ctx),
		Recipient:        recipient,
		RecipientAccount: account,
	})
	if err != nil {
		h.fail(w, r, "disburse payout", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payoutResponse{
		Recipient:      receipt.Recipient.String(),
		Amount:         receipt.Amount,
		Cycle:          receipt.Cycle,
		NextCycleIndex: receipt.NextCycleIndex,
	})
}

func (h *Handler) handleInsurancePayout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[insurancePayoutRequest](w, r, h.logger)
	if !ok {
		return
	}
	recipient, account, err := parseRecipient(req.Recipient, req.RecipientAccount)
	if err != nil {
		h.fail(w, r, "insurance payout", err)
		return
	}

	err = h.service.FallbackInsurancePayout(ctx, models.InsurancePayoutRequest{
		Group:            groupID,
		Caller:           requestcontext.Principal(ctx),
		Amount:           req.Amount,
		Recipient:        recipient,
		RecipientAccount: account,
	})
	if err != nil {
		h.fail(w, r, "insurance payout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) groupID(w http.ResponseWriter, r *http.Request) (id.GroupID, bool) {
	groupID, err := id.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		h.fail(w, r, "parse group id", err)
		return id.GroupID{}, false
	}
	return groupID, true
}

// fail logs err at a level matching who is at fault and writes it.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, op+" rejected",
			"request_id", requestcontext.RequestID(ctx),
			"code", string(dErrors.CodeOf(err)),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

// Health reports liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}
