package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the API and notifier need from the environment.
// Razorpay credentials are optional: endpoints that need them return a
// configuration error instead of failing at startup, so the rest of the
// API stays usable.
type Config struct {
	OrdersTable           string
	ProviderOrderIndex    string
	NotifyQueueURL        string
	NotifyURL             string
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	GatewayTimeout        time.Duration
	MetricsNamespace      string
}

// Load reads configuration from the environment, loading a .env file first
// if one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		OrdersTable:           getEnv("ORDERS_TABLE", "orders"),
		ProviderOrderIndex:    getEnv("PROVIDER_ORDER_INDEX", "razorpay_order_id-index"),
		NotifyQueueURL:        os.Getenv("NOTIFY_QUEUE_URL"),
		NotifyURL:             os.Getenv("NOTIFY_URL"),
		RazorpayKeyID:         os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		GatewayTimeout:        getDuration("GATEWAY_TIMEOUT", 15*time.Second),
		MetricsNamespace:      getEnv("METRICS_NAMESPACE", "Checkout"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
