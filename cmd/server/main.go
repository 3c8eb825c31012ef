// cmd/server/main.go
package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	g "github.com/mahabubulhasibshawon/coffeeshop-pos/internal/adapters/grpc"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/adapters/rabbitmq"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/adapters/redis"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/adapters/repository"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/adapters/rest"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/application"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/config"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/metrics"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/ports"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/pkg/auth"
)

var logger = loggo.GetLogger("pos")

const healthInterval = 15 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Criticalf("%s", errors.ErrorStack(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Trace(err)
	}
	if err := loggo.ConfigureLoggers(cfg.LogLevel); err != nil {
		return errors.Annotate(err, "configuring loggers")
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return errors.Annotate(err, "failed to connect to DB")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return errors.Annotate(err, "failed to ping DB")
	}
	if err := repository.Migrate(ctx, db); err != nil {
		return errors.Trace(err)
	}
	if err := repository.Seed(ctx, db, repository.SeedOptions{Demo: cfg.SeedDemo}); err != nil {
		return errors.Trace(err)
	}
	repo := repository.NewPostgresRepository(db)

	cache := redis.NewCache(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		return errors.Annotate(err, "failed to connect to Redis")
	}

	var events ports.EventPublisher = rabbitmq.NopPublisher{}
	probes := []g.Probe{
		{Service: "postgres", Check: repo.Ping},
		{Service: "redis", Check: cache.Ping},
	}
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.Dial(cfg.RabbitURL)
		if err != nil {
			return errors.Trace(err)
		}
		defer pub.Close()
		events = pub
		probes = append(probes, g.Probe{Service: "rabbitmq", Check: pub.Ping})
	} else {
		logger.Warningf("RABBITMQ_URL not set, domain events are dropped")
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector()
	registry.MustRegister(collector, collectors.NewGoCollector(), collectors.NewDBStatsCollector(db, "pos"))

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL, nil)
	authSvc := application.NewAuthService(repo, cache, tokens, nil)
	orderSvc := application.NewOrderService(repo, repo, cache, events, nil, collector)
	shiftSvc := application.NewShiftService(repo, cache, cache, events, collector, application.ShiftConfig{
		Duration: cfg.ShiftDuration,
		TokenTTL: cfg.JWTTTL,
	})
	defer shiftSvc.Close()
	if err := shiftSvc.Restore(ctx); err != nil {
		return errors.Annotate(err, "restoring running shifts")
	}
	if cfg.PaymentServerKey == "" {
		logger.Warningf("PAYMENT_SERVER_KEY not set, payment notifications are rejected")
	}

	router := rest.NewRouter(rest.Services{
		Auth:    authSvc,
		Users:   application.NewUserService(repo, authSvc),
		Menu:    application.NewMenuService(repo, cache),
		Orders:  orderSvc,
		Shifts:  shiftSvc,
		Payment: application.NewPaymentService(orderSvc, cfg.PaymentServerKey, nil),
		Reports: application.NewReportService(repo, repo, repo, repo, nil),
	}, rest.Config{
		Env:               cfg.Env,
		CORSOrigins:       cfg.CORSOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		Metrics:           collector,
		Gatherer:          registry,
	})
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ops := g.NewServer(authSvc, probes, nil)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return errors.Annotate(err, "failed to listen")
	}
	go ops.Run(ctx, healthInterval)

	errc := make(chan error, 2)
	go func() {
		if err := ops.Serve(lis); err != nil {
			errc <- errors.Annotate(err, "serving gRPC")
		}
	}()
	go func() {
		logger.Infof("HTTP server listening on :%s (%s)", cfg.Port, cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- errors.Annotate(err, "serving HTTP")
		}
	}()

	select {
	case <-ctx.Done():
		logger.Infof("shutting down")
	case err = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		logger.Warningf("HTTP shutdown: %v", serr)
	}
	ops.Shutdown()
	return err
}
