// Command lambda runs the HTTP surface behind API Gateway.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"

	"savinggrace-backend/domain/entities"
	"savinggrace-backend/infrastructure/config"
	"savinggrace-backend/infrastructure/directory"
	dynamostore "savinggrace-backend/infrastructure/persistence/dynamodb"
	"savinggrace-backend/infrastructure/storage"
	"savinggrace-backend/interfaces/http/rest"
	"savinggrace-backend/pkg/auth"
)

var adapter *chiadapter.ChiLambdaV2

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}

	store := dynamostore.NewStore(dynamodb.NewFromConfig(awsCfg), cfg.TableName, logger)
	planner := dynamostore.NewPlanner(store, dynamostore.Indexes{
		Relation: dynamostore.IndexRef{Name: cfg.Indexes.ByDonor, PKAttr: entities.AttrGSI1PK, SKAttr: entities.AttrGSI1SK},
		Date:     dynamostore.IndexRef{Name: cfg.Indexes.ByDate, PKAttr: entities.AttrGSI2PK, SKAttr: entities.AttrGSI2SK},
		Expiration: dynamostore.IndexRef{
			Name:   cfg.Indexes.ByExpiration,
			PKAttr: entities.AttrGSI3PK,
			SKAttr: entities.AttrGSI3SK,
		},
	}, logger)

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

	adapter = chiadapter.NewV2(rest.NewRouter(deps))
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return adapter.ProxyWithContextV2(ctx, req)
}

func main() {
	lambda.Start(handler)
}
