package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"brokerage/internal/document"
	"brokerage/internal/events"
	"brokerage/internal/identity"
	identitymemory "brokerage/internal/identity/store/memory"
	identitypostgres "brokerage/internal/identity/store/postgres"
	jwttoken "brokerage/internal/jwt_token"
	"brokerage/internal/kyc"
	kycmemory "brokerage/internal/kyc/store/memory"
	kycpostgres "brokerage/internal/kyc/store/postgres"
	"brokerage/internal/objectstore/filesystem"
	"brokerage/internal/onboarding"
	"brokerage/internal/platform/config"
	"brokerage/internal/platform/metrics"
	"brokerage/internal/platform/postgres"
	"brokerage/internal/platform/redis"
	"brokerage/internal/profile"
	profilememory "brokerage/internal/profile/store/memory"
	profilepostgres "brokerage/internal/profile/store/postgres"
	ratelimitmw "brokerage/internal/ratelimit/middleware"
	"brokerage/internal/ratelimit/models"
	"brokerage/internal/ratelimit/store/bucket"
	"brokerage/internal/staging"
	stagingmemory "brokerage/internal/staging/store/memory"
	stagingredis "brokerage/internal/staging/store/redis"
	"brokerage/internal/transaction"
	txmemory "brokerage/internal/transaction/store/memory"
	txpostgres "brokerage/internal/transaction/store/postgres"
	httptransport "brokerage/internal/transport/http"
)

// infra holds the connections and stores selected by configuration.
type infra struct {
	mode         string
	db           *sql.DB
	redis        *redis.Client
	kafka        *events.KafkaPublisher
	publisher    events.Publisher
	staging      staging.Store
	credentials  identity.CredentialStore
	profiles     profile.Store
	kyc          kyc.Store
	transactions transaction.Store
	objects      *filesystem.Store
}

func buildInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{mode: "memory"}

	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		in.db = db
		if err := postgres.Migrate(ctx, db); err != nil {
			in.Close()
			return nil, err
		}
		in.mode = "postgres"
		in.credentials = identitypostgres.New(db)
		in.profiles = profilepostgres.New(db)
		in.kyc = kycpostgres.New(db)
		in.transactions = txpostgres.New(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		in.credentials = identitymemory.New()
		in.profiles = profilememory.New()
		in.kyc = kycmemory.New()
		in.transactions = txmemory.New()
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	if client != nil {
		in.redis = client
		in.staging = stagingredis.New(client.Client, cfg.Staging.SessionTTL)
	} else {
		in.staging = stagingmemory.New(cfg.Staging.SessionTTL)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := events.NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			in.Close()
			return nil, err
		}
		in.kafka = kafka
		if err := kafka.EnsureTopic(ctx, 3); err != nil {
			log.Warn("could not ensure event topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		in.publisher = kafka
	} else {
		in.publisher = events.NewLogPublisher(log)
	}

	objects, err := filesystem.New(cfg.Documents.StoreRoot, cfg.Documents.PublicBaseURL)
	if err != nil {
		in.Close()
		return nil, err
	}
	for _, name := range cfg.Documents.Buckets {
		if err := objects.CreateBucket(name); err != nil {
			in.Close()
			return nil, fmt.Errorf("create bucket %s: %w", name, err)
		}
	}
	in.objects = objects
	return in, nil
}

func (in *infra) healthChecks() []httptransport.HealthCheck {
	var checks []httptransport.HealthCheck
	if in.db != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "postgres", Check: in.db.PingContext})
	}
	if in.redis != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "redis", Check: in.redis.Health})
	}
	return checks
}

func (in *infra) Close() {
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}

type app struct {
	handler *httptransport.Handler
}

func buildApp(cfg config.Config, log *slog.Logger, m *metrics.Metrics, in *infra) (*app, error) {
	provider, err := identity.NewLocal(in.credentials,
		identity.WithLogger(log),
		identity.WithMinSecretLength(cfg.Session.MinSecretLength),
	)
	if err != nil {
		return nil, err
	}
	profiles, err := profile.New(in.profiles, profile.WithLogger(log))
	if err != nil {
		return nil, err
	}
	ingester, err := document.New(in.objects, cfg.Documents.Buckets,
		document.WithLogger(log),
		document.WithMetrics(m),
		document.WithMaxBytes(cfg.Documents.MaxBytes),
	)
	if err != nil {
		return nil, err
	}
	kycService, err := kyc.New(in.kyc,
		kyc.WithLogger(log),
		kyc.WithMetrics(m),
		kyc.WithPublisher(in.publisher),
	)
	if err != nil {
		return nil, err
	}
	orchestrator, err := onboarding.New(in.staging, provider, profiles, ingester, kycService,
		onboarding.WithLogger(log),
		onboarding.WithMetrics(m),
		onboarding.WithPublisher(in.publisher),
	)
	if err != nil {
		return nil, err
	}
	transactions, err := transaction.New(in.transactions, ingester,
		transaction.WithLogger(log),
		transaction.WithMetrics(m),
		transaction.WithPublisher(in.publisher),
		transaction.WithModeAliases(cfg.Payments.ModeAliases()),
	)
	if err != nil {
		return nil, err
	}

	var buckets ratelimitmw.BucketStore = bucket.New()
	if in.redis != nil {
		buckets = bucket.NewRedis(in.redis.Client)
	}
	limiter := ratelimitmw.New(buckets, log,
		ratelimitmw.WithDisabled(cfg.RateLimit.Disabled),
		ratelimitmw.WithMetrics(m),
		ratelimitmw.WithLimit(models.ClassIdentity, models.Limit{Requests: cfg.RateLimit.IdentityRequests, Window: cfg.RateLimit.Window}),
		ratelimitmw.WithLimit(models.ClassLogin, models.Limit{Requests: cfg.RateLimit.LoginRequests, Window: cfg.RateLimit.Window}),
	)

	sessions := jwttoken.NewJWTService(cfg.Session.SigningKey, cfg.Session.Issuer, cfg.Session.TokenTTL)
	handler := httptransport.New(orchestrator, transactions, sessions,
		jwttoken.NewJWTServiceAdapter(sessions), log, cfg.Documents.MaxBytes+(1<<20),
		httptransport.WithRateLimiter(limiter))
	return &app{handler: handler}, nil
}
