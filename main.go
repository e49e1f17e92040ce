package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"mailprobe/config"
	"mailprobe/store"
	"mailprobe/verifier"
	"mailprobe/worker"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Warnf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Reputation persists to redis when enabled; otherwise the engine runs
	// with in-memory reputation only.
	var sink verifier.ReputationSink
	var redisSink *store.RedisReputationSink
	if config.AppConfig.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     config.AppConfig.Redis.Address,
			Password: config.AppConfig.Redis.Password,
			DB:       config.AppConfig.Redis.DB,
		})
		redisSink = store.NewRedisReputationSink(client, 0)
		sink = redisSink
	}

	cfg := verifier.DefaultConfig()
	cfg.BatchWorkers = config.AppConfig.BatchWorkers
	cfg.Probe.Port = config.AppConfig.ProbePort
	cfg.Probe.MaxConcurrent = config.AppConfig.ProbeMaxConcurrent
	cfg.Probe.SenderPool = []string{config.AppConfig.ProbeSender}
	cfg.Probe.HELOHosts = []string{config.AppConfig.ProbeHELOHost}
	cfg.Policy.DisposablePenalty = config.AppConfig.DisposablePenalty
	cfg.Policy.RoleBasedPenalty = config.AppConfig.RoleBasedPenalty
	cfg.Policy.CatchAllPenalty = config.AppConfig.CatchAllPenalty
	cfg.Policy.ValidThreshold = config.AppConfig.ValidThreshold

	engine := verifier.New(cfg, nil, nil, sink, logger)

	if redisSink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		snapshot, err := redisSink.LoadAll(ctx)
		cancel()
		if err != nil {
			logger.Warnf("Restoring domain reputation failed: %v", err)
		} else if len(snapshot) > 0 {
			engine.Reputation().Restore(snapshot)
			logger.Infof("Restored reputation for %d domains", len(snapshot))
		}
	}

	records := store.NewEmailRecordStore(config.DB)
	verifyWorker := worker.NewVerifyWorker(
		config.DB, engine, records, logger,
		config.AppConfig.WorkerInterval, config.AppConfig.ProbeTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go verifyWorker.Start(ctx)

	logger.Info("mailprobe started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	cancel()
}
