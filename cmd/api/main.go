package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/karmagully/checkout-backend/internal/aws"
	"github.com/karmagully/checkout-backend/internal/config"
	"github.com/karmagully/checkout-backend/internal/gateway"
	"github.com/karmagully/checkout-backend/internal/handlers"
	"github.com/karmagully/checkout-backend/internal/metrics"
	"github.com/karmagully/checkout-backend/internal/notify"
	"github.com/karmagully/checkout-backend/internal/orders"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterPaymentRoutes(r, cfg)

	return r
}

func main() {
	appCfg := config.Load()

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	// The gateway is optional: without keys the create-order endpoint
	// returns a configuration error but everything else keeps working.
	gw, err := gateway.New(appCfg.RazorpayKeyID, appCfg.RazorpayKeySecret, appCfg.GatewayTimeout)
	if err != nil {
		log.Printf("razorpay keys not set; create-order will return gateway_not_configured")
	}

	cfg := handlers.HandlerConfig{
		Store:         orders.NewStore(clients.DynamoDB, appCfg.OrdersTable, appCfg.ProviderOrderIndex),
		Gateway:       gw,
		Notify:        notify.NewPublisher(clients.SQS, appCfg.NotifyQueueURL),
		Metrics:       metrics.NewEmitter(clients.CloudWatch, appCfg.MetricsNamespace),
		KeySecret:     appCfg.RazorpayKeySecret,
		WebhookSecret: appCfg.RazorpayWebhookSecret,
	}

	r := setupRouter(cfg)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":8080"
		log.Printf("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		// the adapter handles proxying; use adapter.ProxyWithContext for proper context propagation
		return adapter.ProxyWithContext(ctx, req)
	})
}
