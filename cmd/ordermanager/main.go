package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"tradeflow/internal/di"
	"tradeflow/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s brokers=%v threshold=%.2f", cfg.Environment, cfg.Kafka.Brokers, cfg.Order.ConfidenceThreshold)

	app, err := di.InitializeOrderManager(cfg)
	if err != nil {
		log.Fatalf("order manager initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("order manager error: %v", err)
		os.Exit(1)
	}
}
