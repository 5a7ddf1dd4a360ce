package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/geovista/projects-backend/config"
	"github.com/geovista/projects-backend/internal/assets"
	"github.com/geovista/projects-backend/internal/auth"
	"github.com/geovista/projects-backend/internal/bootstrap"
	"github.com/geovista/projects-backend/internal/jobs"
	"github.com/geovista/projects-backend/internal/projects"
)

const serviceName = "projects-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	db, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: cfg.Database.DSN})
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	repo := projects.NewRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// The key set must be populated before the first request; rotation
	// is handled by the scheduled refresh.
	keys := auth.NewKeySetCache(cfg.Auth.JWKSURL())
	if err := keys.Refresh(ctx); err != nil {
		log.Fatalf("initial key set fetch failed: %v", err)
	}
	log.Printf("Loaded %d signing keys from %s", keys.Len(), cfg.Auth.JWKSURL())
	verifier := auth.NewVerifier(keys, cfg.Auth.ClientID, cfg.Auth.Issuer())

	s3Client, err := bootstrap.NewS3Client(ctx, cfg.S3)
	if err != nil {
		log.Fatalf("s3 client: %v", err)
	}
	store := assets.NewS3Store(s3Client, cfg.S3.Bucket)
	reconciler := assets.NewReconciler(store, cfg.S3.TempPrefix, cfg.S3.SavedPrefix)

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("parse redis url: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	tracker := assets.NewUploadTracker(redisClient, cfg.Jobs.TempAssetTTL)

	svc := projects.NewService(repo, reconciler)

	scheduler := jobs.NewScheduler(keys, assets.NewSweeper(store, tracker, cfg.S3.TempPrefix))
	if err := scheduler.Start(cfg.Jobs.KeyRefreshSpec, cfg.Jobs.SweepSpec); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	defer scheduler.Stop()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
		CORSOrigin:  cfg.App.CORSOrigin,
		DB:          db,
		Verifier:    verifier,
		ProjectSvc:  svc,
		AssetStore:  store,
		Tracker:     tracker,
		TempPrefix:  cfg.S3.TempPrefix,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("%s listening on :%s", serviceName, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
