package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	ServicePort int
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
	Detection   DetectionConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// RabbitMQConfig holds RabbitMQ connection and queue settings
type RabbitMQConfig struct {
	URL               string
	IngestExchange    string
	IngestQueue       string
	IngestRoutingKey  string
	WorkerExchange    string
	AnomalyRoutingKey string
	SummaryRoutingKey string
	DLQQueue          string
	PrefetchCount     int
}

// DetectionConfig holds spike detection settings
type DetectionConfig struct {
	WindowSize      int
	AnomalyQuantile float64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "txn-spike-worker"),
		ServicePort: getEnvAsInt("SERVICE_PORT", 8082),
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:               getEnv("RABBITMQ_URL", ""),
			IngestExchange:    getEnv("RABBITMQ_INGEST_EXCHANGE", "txn-spike.ingest.exchange"),
			IngestQueue:       getEnv("RABBITMQ_INGEST_QUEUE", "txn-spike.ingest.queue"),
			IngestRoutingKey:  getEnv("RABBITMQ_INGEST_ROUTING_KEY", "transaction.batch.raw"),
			WorkerExchange:    getEnv("RABBITMQ_WORKER_EXCHANGE", "txn-spike.worker.events.exchange"),
			AnomalyRoutingKey: getEnv("RABBITMQ_ANOMALY_ROUTING_KEY", "transaction.spike.flagged"),
			SummaryRoutingKey: getEnv("RABBITMQ_SUMMARY_ROUTING_KEY", "transaction.batch.scored"),
			DLQQueue:          getEnv("RABBITMQ_DLQ_QUEUE", "txn-spike.ingest.dlq"),
			PrefetchCount:     getEnvAsInt("RABBITMQ_PREFETCH", 10),
		},
		Detection: DetectionConfig{
			WindowSize:      getEnvAsInt("DETECTION_WINDOW_SIZE", 5),
			AnomalyQuantile: getEnvAsFloat("DETECTION_ANOMALY_QUANTILE", 0.99),
		},
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}
	if cfg.Detection.WindowSize < 1 {
		return nil, fmt.Errorf("DETECTION_WINDOW_SIZE must be a positive integer, got %d", cfg.Detection.WindowSize)
	}
	if cfg.Detection.AnomalyQuantile <= 0 || cfg.Detection.AnomalyQuantile >= 1 {
		return nil, fmt.Errorf("DETECTION_ANOMALY_QUANTILE must be in (0,1), got %g", cfg.Detection.AnomalyQuantile)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
