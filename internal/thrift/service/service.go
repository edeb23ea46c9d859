package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ahorro/internal/custody"
	"ahorro/internal/thrift/metrics"
	"ahorro/internal/thrift/models"
	"ahorro/internal/thrift/store"
	id "ahorro/pkg/domain"
	dErrors "ahorro/pkg/domain-errors"
	"ahorro/pkg/requestcontext"
)

const tracerName = "ahorro/internal/thrift/service"

// AdminPolicy decides whether caller may act as administrator of group.
//
// The default, SingleAuthority, makes the group's Authority the only principal
// who can disburse payouts and spend insurance. There is no quorum or dispute
// path behind it.
type AdminPolicy interface {
	AuthorizeAdmin(ctx context.Context, group *models.Group, caller id.Principal) error
}

// SingleAuthority admits exactly the group's Authority.
type SingleAuthority struct{}

func (SingleAuthority) AuthorizeAdmin(_ context.Context, group *models.Group, caller id.Principal) error {
	if caller.IsZero() || caller != group.Authority {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the group authority")
	}
	return nil
}

// Service runs the contribution and disbursement state machine. Every mutating
// operation executes in one unit of work locked on the group.
type Service struct {
	uow                    store.UnitOfWork
	deriver                custody.Deriver
	policy                 AdminPolicy
	logger                 *slog.Logger
	metrics                *metrics.Metrics
	tracer                 trace.Tracer
	maxMembers             int
	requireScheduledMember bool
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithPolicy replaces the SingleAuthority admin policy.
func WithPolicy(p AdminPolicy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithMaxMembers bounds the cycle order length. Non-positive values keep the default.
func WithMaxMembers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxMembers = n
		}
	}
}

// WithRequireScheduledMember rejects joins from identities absent from the
// cycle order. Off by default: any identity may join and contribute.
func WithRequireScheduledMember(enabled bool) Option {
	return func(s *Service) {
		s.requireScheduledMember = enabled
	}
}

// New constructs a Service.
func New(uow store.UnitOfWork, deriver custody.Deriver, opts ...Option) *Service {
	s := &Service{
		uow:        uow,
		deriver:    deriver,
		policy:     SingleAuthority{},
		logger:     slog.Default(),
		maxMembers: models.DefaultMaxMembers,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// begin opens a span for op and returns a finish func that records the
// outcome on the span and in metrics.
func (s *Service) begin(ctx context.Context, op string, group id.GroupID) (context.Context, func(error)) {
	start := time.Now()
	attrs := []attribute.KeyValue{attribute.String("thrift.operation", op)}
	if !group.IsNil() {
		attrs = append(attrs, attribute.String("thrift.group_id", group.String()))
	}
	ctx, span := s.tracer.Start(ctx, "thrift."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		}
		span.End()
		if s.metrics != nil {
			s.metrics.ObserveOperation(op, start, err)
		}
	}
}

func (s *Service) logEvent(ctx context.Context, e models.Event) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, string(e.Kind),
		"request_id", requestcontext.RequestID(ctx),
		"group_id", e.Group.String(),
		"actor", e.Actor.String(),
		"subject", e.Subject.String(),
		"account", e.Account.String(),
		"amount", e.Amount,
		"cycle", e.Cycle,
	)
}
