package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"ahorro/internal/custody"
	custodypg "ahorro/internal/custody/postgres"
	jwttoken "ahorro/internal/jwt_token"
	"ahorro/internal/platform/config"
	"ahorro/internal/platform/httpserver"
	"ahorro/internal/platform/logger"
	"ahorro/internal/platform/middleware"
	"ahorro/internal/platform/postgres"
	"ahorro/internal/platform/redis"
	"ahorro/internal/thrift/handler"
	"ahorro/internal/thrift/metrics"
	"ahorro/internal/thrift/outbox"
	"ahorro/internal/thrift/service"
	"ahorro/internal/thrift/store"
	"ahorro/internal/thrift/store/memory"
	thriftpg "ahorro/internal/thrift/store/postgres"
	id "ahorro/pkg/domain"
)

const (
	tokenAudience   = "ahorro-api"
	shutdownTimeout = 10 * time.Second
	topicPartitions = 3
)

// ledgerStore is a unit of work whose committed events can be relayed.
type ledgerStore interface {
	store.UnitOfWork
	store.OutboxReader
}

// main wires high-level dependencies, exposes the HTTP router, and runs the
// outbox relay next to it. Business logic lives in internal/thrift.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(cfg, os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		return
	}

	if err := run(cfg, log); err != nil {
		log.Error("ahorro stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	ledger, accounts, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	if err := seedAccounts(ctx, accounts, cfg.DevAccounts, log); err != nil {
		return err
	}

	responses, closeResponses, err := openResponseStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeResponses()

	svc := service.New(ledger, custody.Blake2bDeriver{},
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithMaxMembers(cfg.Thrift.MaxMembers),
		service.WithRequireScheduledMember(cfg.Thrift.RequireScheduledMember),
	)
	validator := jwttoken.NewPrincipalValidator(jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, tokenAudience))

	r := chi.NewRouter()
	r.Get("/healthz", handler.Health)
	r.Handle("/metrics", promhttp.Handler())
	handler.New(svc, log, validator, responses).Register(r)
	srv := httpserver.New(cfg.Addr, r)

	var relay *outbox.Relay
	if len(cfg.Kafka.Brokers) > 0 {
		client, err := outbox.NewKafkaClient(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer client.Close()
		if err := outbox.EnsureTopic(ctx, client, cfg.Kafka.Topic, topicPartitions, 1); err != nil {
			return err
		}
		relay = outbox.New(ledger, client,
			outbox.WithLogger(log),
			outbox.WithTopic(cfg.Kafka.Topic),
			outbox.WithPollInterval(cfg.Outbox.PollInterval),
			outbox.WithBatchSize(cfg.Outbox.BatchSize),
			outbox.WithPublishedHook(m.RecordPublished),
		)
	} else {
		log.Warn("KAFKA_BROKERS not set; ledger events stay in the outbox")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting ahorro", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if relay != nil {
		g.Go(func() error {
			log.Info("outbox relay started", "topic", cfg.Kafka.Topic)
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

// openStore uses Postgres when DATABASE_URL is set and the in-memory store
// otherwise. The returned seeder writes to the same token ledger.
func openStore(ctx context.Context, cfg config.Server, log *slog.Logger) (ledgerStore, accountSeeder, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set; using in-memory ledger")
		if len(cfg.DevAccounts) == 0 {
			log.Warn("DEV_ACCOUNTS not set; only pool accounts exist, so contributions and payouts will fail")
		}
		st := memory.New()
		return st, st.Ledger(), func() {}, nil
	}

	pool, err := postgres.New(ctx, log, cfg.DatabaseURL, postgres.DefaultPoolConfig())
	if err != nil {
		return nil, nil, nil, err
	}
	if err := thriftpg.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	return thriftpg.New(pool), custodypg.NewLedger(pool), pool.Close, nil
}

func openResponseStore(ctx context.Context, cfg config.Server, log *slog.Logger) (middleware.ResponseStore, func(), error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Warn("REDIS_URL not set; idempotency keys are kept in memory")
		return middleware.NewMemoryResponseStore(), func() {}, nil
	}
	return redis.NewResponseCache(client.Client, ""), func() { _ = client.Close() }, nil
}

// issueToken prints a signed access token for local use:
//
//	ahorro token -principal alice -ttl 1h
func issueToken(cfg config.Server, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	principal := fs.String("principal", "", "caller identity")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := id.ParsePrincipal(*principal)
	if err != nil {
		return err
	}
	token, err := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, tokenAudience).GenerateAccessToken(p, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
