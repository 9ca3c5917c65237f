// Command api runs the HTTP server.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"savinggrace-backend/domain/entities"
	"savinggrace-backend/infrastructure/config"
	"savinggrace-backend/infrastructure/directory"
	dynamostore "savinggrace-backend/infrastructure/persistence/dynamodb"
	"savinggrace-backend/infrastructure/storage"
	"savinggrace-backend/interfaces/http/rest"
	"savinggrace-backend/pkg/auth"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}

	store := dynamostore.NewStore(dynamodb.NewFromConfig(awsCfg), cfg.TableName, logger)
	planner := dynamostore.NewPlanner(store, plannerIndexes(cfg), logger)

	deps := rest.Deps{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Planner:   planner,
		Directory: directory.NewStatic(logger),
		Validator: auth.NewJWTValidator(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience),
	}
	if cfg.ReceiptsBucket != "" {
		deps.Blobs = storage.NewS3BlobStore(s3.NewFromConfig(awsCfg), cfg.ReceiptsBucket, logger)
	}

	server := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      rest.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}

func plannerIndexes(cfg *config.Config) dynamostore.Indexes {
	return dynamostore.Indexes{
		Relation: dynamostore.IndexRef{
			Name:   cfg.Indexes.ByDonor,
			PKAttr: entities.AttrGSI1PK,
			SKAttr: entities.AttrGSI1SK,
		},
		Date: dynamostore.IndexRef{
			Name:   cfg.Indexes.ByDate,
			PKAttr: entities.AttrGSI2PK,
			SKAttr: entities.AttrGSI2SK,
		},
		Expiration: dynamostore.IndexRef{
			Name:   cfg.Indexes.ByExpiration,
			PKAttr: entities.AttrGSI3PK,
			SKAttr: entities.AttrGSI3SK,
		},
	}
}
