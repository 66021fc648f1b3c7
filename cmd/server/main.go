package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Brownie44l1/digit-api/internal/config"
	"github.com/Brownie44l1/digit-api/internal/handlers"
	"github.com/Brownie44l1/digit-api/internal/middleware"
	"github.com/Brownie44l1/digit-api/internal/model"
	"github.com/Brownie44l1/digit-api/internal/upload"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

func setupLogging(cfg *config.Config) {
	if cfg.IsDev() {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(new(logrus.JSONFormatter))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	setupLogging(cfg)

	logrus.WithFields(logrus.Fields{
		"model":    cfg.Model.Path,
		"metadata": cfg.Model.MetadataPath,
	}).Info("Loading model")

	modelServer, err := model.NewServer(cfg.Model.Path, cfg.Model.MetadataPath, cfg.Model.RuntimeLib)
	if err != nil {
		logrus.Fatalf("Failed to initialize model server: %v", err)
	}
	defer modelServer.Close()

	classifier := model.NewClassifier(modelServer, modelServer.Metadata.Classes)
	store := upload.NewStore(cfg.Upload.Dir, cfg.Upload.KeepFiles)
	handler := handlers.NewHandler(classifier, modelServer.Metadata, store, handlers.Limits{
		MaxBytes:     cfg.Upload.MaxBytes,
		MaxDimension: cfg.Upload.MaxDimension,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.Origins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           middleware.Logger(middleware.Recovery(corsHandler.Handler(handler.Routes()))),
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server failed: %v", err)
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":        cfg.Server.Port,
		"environment": cfg.Server.Environment,
		"classes":     modelServer.Metadata.Classes,
		"upload_dir":  store.Dir(),
		"keep_files":  cfg.Upload.KeepFiles,
	}).Info("Server started")
	logrus.Info("Endpoints: GET|POST / (upload form), GET /health, POST /predict, GET /metrics")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Info("Server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Error during shutdown: %v", err)
	}
}
