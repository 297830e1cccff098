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

	// local development convenience; missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s brokers=%v window=%s", cfg.Environment, cfg.Kafka.Brokers, cfg.Window.Size)

	app, err := di.InitializeProcessor(cfg)
	if err != nil {
		log.Fatalf("processor initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("processor error: %v", err)
		os.Exit(1)
	}
}
