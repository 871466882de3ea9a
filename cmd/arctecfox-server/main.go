package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/arctecfox/internal/arctecfox/auth"
	"github.com/gartstein/arctecfox/internal/arctecfox/cache"
	"github.com/gartstein/arctecfox/internal/arctecfox/config"
	"github.com/gartstein/arctecfox/internal/arctecfox/controller"
	gorm "github.com/gartstein/arctecfox/internal/arctecfox/db"
	"github.com/gartstein/arctecfox/internal/arctecfox/events"
	"github.com/gartstein/arctecfox/internal/arctecfox/handlers"
	"github.com/gartstein/arctecfox/internal/arctecfox/planapi"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// healthCheckInterval is how often the database and redis are pinged to
// drive the health status.
const healthCheckInterval = 15 * time.Second

func main() {
	logger := initLogger()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	cfg, err := config.Load(os.Getenv("ARCTECFOX_CONFIG"), ".env")
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := connectDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	producer := initProducer(cfg, logger)
	defer producer.Close()

	redisClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, logger)
	if err := redisClient.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, authenticated requests will be rejected until it is reachable", zap.Error(err))
	}
	defer redisClient.Close()

	provider := auth.NewProvider(
		repo,
		auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		auth.NewRevocationList(redisClient),
		logger,
	)
	profileSvc := controller.NewProfileService(repo, provider, producer, logger)

	api := handlers.NewAPIHandler(provider, profileSvc, repo, initPlanAPI(ctx, cfg, logger), logger)

	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger)
	server.MonitorDependencies(healthCheckInterval, repo.Ping, redisClient.Ping)
	if err := server.RegisterHTTPGateway(
		ctx,
		[]grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
		api,
		cfg.CORSOrigins,
	); err != nil {
		logger.Fatal("Failed to register HTTP gateway", zap.Error(err))
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

// connectDatabase retries the initial connection while the database starts.
func connectDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.Repository, error) {
	dbConf := &gorm.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = time.Minute

	var repo *gorm.Repository
	err := backoff.RetryNotify(func() error {
		var err error
		repo, err = gorm.NewRepository(dbConf)
		return err
	}, policy, func(err error, wait time.Duration) {
		logger.Warn("database not ready", zap.Error(err), zap.Duration("retry_in", wait))
	})
	return repo, err
}

type eventProducer interface {
	Produce(events.Event)
	Close()
}

type nopProducer struct{ events.Nop }

func (nopProducer) Close() {}

func initProducer(cfg *config.Config, logger *zap.Logger) eventProducer {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("no Kafka brokers configured, events are disabled")
		return nopProducer{}
	}
	producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
	if err != nil {
		logger.Warn("Kafka unavailable, events are disabled", zap.Error(err))
		return nopProducer{}
	}
	return producer
}

// initPlanAPI returns nil when no model key is configured.
func initPlanAPI(ctx context.Context, cfg *config.Config, logger *zap.Logger) http.Handler {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, plan generation is disabled")
		return nil
	}
	generator, err := planapi.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Fatal("failed to initialize plan generator", zap.Error(err))
	}
	var opts []planapi.Option
	if cfg.RequestLog != "" {
		opts = append(opts, planapi.WithRequestLog(planapi.NewRequestLog(cfg.RequestLog)))
	}
	return planapi.NewHandler(generator, logger, opts...)
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Servers stopped properly")
}
