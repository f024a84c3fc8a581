package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/victor-igor/wacrm-backend/internal/config"
	"github.com/victor-igor/wacrm-backend/internal/db"
	"github.com/victor-igor/wacrm-backend/internal/gateway"
	"github.com/victor-igor/wacrm-backend/internal/logger"
	"github.com/victor-igor/wacrm-backend/internal/queue"
	"github.com/victor-igor/wacrm-backend/internal/repository"
	"github.com/victor-igor/wacrm-backend/internal/service"
)

// The worker owns the delivery pipeline: a dispatcher loop that turns due
// campaigns into queued send jobs, and a consumer that pushes each job
// through the WhatsApp gateway and records the attempt.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	zlog, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zlog.Sync()

	conn, err := db.Open(cfg)
	if err != nil {
		zlog.Fatal("database connect failed", zap.Error(err))
	}
	defer conn.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	contactRepo := &repository.ContactRepository{DB: conn}
	logRepo := &repository.CampaignLogRepository{DB: conn}

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer cache.Close()
	}

	broker, err := queue.Dial(cfg.AMQPURL)
	if err != nil {
		zlog.Fatal("broker connect failed", zap.Error(err))
	}
	defer broker.Close()

	resolver := &service.AudienceResolver{
		Campaigns: campaignRepo,
		Contacts:  contactRepo,
		Logs:      logRepo,
		Cache:     cache,
		Logger:    zlog,
	}
	dispatcher := &service.Dispatcher{
		Campaigns: campaignRepo,
		Resolver:  resolver,
		Evaluator: service.NewScheduleEvaluator(),
		Publisher: broker,
		Queue:     cfg.SendQueue,
		BatchSize: cfg.DispatchBatch,
		Logger:    zlog,
	}
	sendWorker := &service.SendWorker{
		Campaigns:     campaignRepo,
		Logs:          logRepo,
		Gateway:       gateway.NewWhatsAppClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey),
		InstanceToken: cfg.InstanceToken,
		Logger:        zlog,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stop := dispatcher.Start(ctx, cfg.DispatchInterval)
	defer stop()

	go func() {
		err := broker.Consume(cfg.SendQueue, func(body []byte) error {
			var job service.SendJob
			if err := json.Unmarshal(body, &job); err != nil {
				zlog.Warn("dropping malformed send job", zap.Error(err))
				return nil
			}
			return sendWorker.Process(ctx, job)
		})
		if err != nil {
			zlog.Error("consumer stopped", zap.Error(err))
			cancel()
		}
	}()

	zlog.Info("worker running",
		zap.String("queue", cfg.SendQueue),
		zap.Duration("dispatch_interval", cfg.DispatchInterval))
	<-ctx.Done()
	zlog.Info("worker shutting down")
}
