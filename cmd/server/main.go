package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/victor-igor/wacrm-backend/internal/config"
	"github.com/victor-igor/wacrm-backend/internal/db"
	"github.com/victor-igor/wacrm-backend/internal/handler"
	"github.com/victor-igor/wacrm-backend/internal/logger"
	"github.com/victor-igor/wacrm-backend/internal/repository"
	"github.com/victor-igor/wacrm-backend/internal/service"
	"github.com/victor-igor/wacrm-backend/internal/storage"
)

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

	resolver := &service.AudienceResolver{
		Campaigns: campaignRepo,
		Contacts:  contactRepo,
		Logs:      logRepo,
		Cache:     cache,
		Logger:    zlog,
	}
	campaignService := service.NewCampaignService(campaignRepo, zlog)
	reportService := &service.ReportService{Campaigns: campaignRepo, Logs: logRepo}

	campaignHandler := &handler.CampaignHandler{Service: campaignService}
	reportHandler := &handler.ReportHandler{Reports: reportService, Resolver: resolver}
	contactHandler := &handler.ContactHandler{Repo: contactRepo}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Actor-Id"},
	}))

	r.Route("/campaigns", func(r chi.Router) {
		r.Post("/", campaignHandler.Create)
		r.Get("/", campaignHandler.List)
		r.Get("/{id}", campaignHandler.Get)
		r.Put("/{id}", campaignHandler.Update)
		r.Delete("/{id}", campaignHandler.Delete)
		r.Post("/{id}/status", campaignHandler.ToggleStatus)
		r.Get("/{id}/report", reportHandler.Report)
		r.Get("/{id}/audience/preview", reportHandler.AudiencePreview)
	})
	r.Get("/contacts", contactHandler.List)

	if cfg.MediaBucket != "" {
		store, err := storage.NewMediaStore(context.Background(), cfg.MediaBucket, cfg.MediaRegion, cfg.MediaPublicURL)
		if err != nil {
			zlog.Fatal("media store init failed", zap.Error(err))
		}
		mediaHandler := &handler.MediaHandler{Store: store}
		r.Post("/media", mediaHandler.Upload)
	}

	zlog.Info("server listening", zap.String("addr", cfg.HTTPAddr))
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
