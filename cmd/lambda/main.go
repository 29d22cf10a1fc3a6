// cmd/lambda/main.go
package main

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/your-org/jewelry-backend/internal/app"
	"github.com/your-org/jewelry-backend/internal/config"
	"github.com/your-org/jewelry-backend/internal/pkg/logger"
)

// API Gateway gives up at 29s
const requestTimeout = 25 * time.Second

var adapter *ginadapter.GinLambda

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logg := logger.New(cfg)

	// Cold start; migrations run from the server binary
	a, err := app.Build(context.Background(), cfg, logg, app.Options{RequestTimeout: requestTimeout})
	if err != nil {
		logg.WithError(err).Fatal("failed to build application")
	}
	adapter = ginadapter.New(a.Router)
}

func handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return adapter.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(handler)
}
