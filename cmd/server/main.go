package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	announcementhandler "cityconnect/internal/announcement/handler"
	announcementmetrics "cityconnect/internal/announcement/metrics"
	announcementservice "cityconnect/internal/announcement/service"
	billinghandler "cityconnect/internal/billing/handler"
	billingmetrics "cityconnect/internal/billing/metrics"
	billingservice "cityconnect/internal/billing/service"
	complainthandler "cityconnect/internal/complaint/handler"
	complaintmetrics "cityconnect/internal/complaint/metrics"
	complaintservice "cityconnect/internal/complaint/service"
	emergencyhandler "cityconnect/internal/emergency/handler"
	emergencymetrics "cityconnect/internal/emergency/metrics"
	emergencyservice "cityconnect/internal/emergency/service"
	feedbackhandler "cityconnect/internal/feedback/handler"
	feedbackmetrics "cityconnect/internal/feedback/metrics"
	feedbackservice "cityconnect/internal/feedback/service"
	"cityconnect/internal/identity"
	"cityconnect/internal/identity/revocation"
	jobhandler "cityconnect/internal/job/handler"
	jobmetrics "cityconnect/internal/job/metrics"
	jobservice "cityconnect/internal/job/service"
	"cityconnect/internal/notify"
	"cityconnect/internal/platform/config"
	"cityconnect/internal/platform/httpserver"
	"cityconnect/internal/platform/logger"
	"cityconnect/internal/platform/metrics"
	platformredis "cityconnect/internal/platform/redis"
	"cityconnect/internal/policy"
	policymetrics "cityconnect/internal/policy/metrics"
	ratelimitmetrics "cityconnect/internal/ratelimit/metrics"
	ratelimit "cityconnect/internal/ratelimit/middleware"
	"cityconnect/internal/ratelimit/store/bucket"
	httptransport "cityconnect/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cityconnect: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policyCfg, err := policy.ParseConfig(cfg.Policy.ComplaintDepartmentScope, cfg.Policy.CitizenAnnouncementScope)
	if err != nil {
		return err
	}
	kernel := policy.NewKernel(policyCfg)

	st, err := openStores(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeWithLog(log, "store", st.close)

	healthChecks := map[string]httptransport.HealthCheck{"store": st.health}

	var revocations identity.RevocationChecker = revocation.NewInMemoryTRL()
	var buckets ratelimit.BucketStore = bucket.NewInMemoryBucketStore()
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		revocations = revocation.NewRedisTRL(redisClient.Client)
		buckets = bucket.NewRedisBucketStore(redisClient.Client)
		healthChecks["redis"] = redisClient.Health
		defer closeWithLog(log, "redis", redisClient.Close)
	}
	limiter := ratelimit.New(buckets, ratelimit.Limits{
		Read:   cfg.RateLimit.ReadPerWindow,
		Write:  cfg.RateLimit.WritePerWindow,
		Window: cfg.RateLimit.Window,
	}, log,
		ratelimit.WithMetrics(ratelimitmetrics.New()),
		ratelimit.WithDisabled(!cfg.RateLimit.Enabled),
	)

	var publisher notify.Publisher = notify.NewLogPublisher(log)
	if cfg.KafkaEnabled() {
		if err := notify.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
			return err
		}
		kafka, err := notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		if err := kafka.Ping(ctx); err != nil {
			_ = kafka.Close(context.Background())
			return fmt.Errorf("kafka ping: %w", err)
		}
		publisher = kafka
		healthChecks["kafka"] = kafka.Ping
		defer closeWithLog(log, "kafka", func() error {
			flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			return kafka.Close(flushCtx)
		})
	}

	policyMetrics := policymetrics.New()
	complaints := complaintservice.New(st.complaints, kernel,
		complaintservice.WithLogger(log),
		complaintservice.WithMetrics(complaintmetrics.New()),
		complaintservice.WithPolicyMetrics(policyMetrics),
		complaintservice.WithPublisher(publisher),
	)
	billing := billingservice.New(st.bills, kernel,
		billingservice.WithLogger(log),
		billingservice.WithMetrics(billingmetrics.New()),
		billingservice.WithPolicyMetrics(policyMetrics),
		billingservice.WithPublisher(publisher),
	)
	announcements := announcementservice.New(st.announcements, kernel,
		announcementservice.WithLogger(log),
		announcementservice.WithMetrics(announcementmetrics.New()),
		announcementservice.WithPolicyMetrics(policyMetrics),
		announcementservice.WithPublisher(publisher),
	)
	feedback := feedbackservice.New(st.feedback, kernel,
		feedbackservice.WithLogger(log),
		feedbackservice.WithMetrics(feedbackmetrics.New()),
		feedbackservice.WithPolicyMetrics(policyMetrics),
		feedbackservice.WithPublisher(publisher),
	)
	jobs := jobservice.New(st.jobs, kernel,
		jobservice.WithLogger(log),
		jobservice.WithMetrics(jobmetrics.New()),
		jobservice.WithPolicyMetrics(policyMetrics),
		jobservice.WithPublisher(publisher),
	)
	emergency := emergencyservice.New(publisher, kernel,
		emergencyservice.WithLogger(log),
		emergencyservice.WithMetrics(emergencymetrics.New()),
		emergencyservice.WithPolicyMetrics(policyMetrics),
	)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Metrics:        metrics.New(),
		MetricsHandler: promhttp.Handler(),
		Verifier:       identity.NewVerifier(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience),
		Revocations:    revocations,
		RequestTimeout: cfg.RequestTimeout,
		RateLimit:      limiter.RateLimit(),
		HealthChecks:   healthChecks,
		Handlers: []httptransport.Registrar{
			complainthandler.New(complaints, log),
			billinghandler.New(billing, log),
			announcementhandler.New(announcements, log),
			feedbackhandler.New(feedback, log),
			jobhandler.New(jobs, log),
			emergencyhandler.New(emergency, log),
		},
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting cityconnect",
			"addr", cfg.Addr,
			"store", cfg.Store.Driver,
			"complaint_scope", string(policyCfg.ComplaintScope),
			"citizen_announcements", string(policyCfg.CitizenAnnouncements),
			"kafka", cfg.KafkaEnabled(),
			"redis", redisClient != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down", "timeout", cfg.ShutdownTimeout.String())
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func closeWithLog(log *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Error("failed to close "+name, "error", err)
	}
}
