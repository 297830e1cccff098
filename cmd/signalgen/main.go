package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tradeflow/internal/generator"
	"tradeflow/pkg/config"
	pkgkafka "tradeflow/pkg/kafka"
	"tradeflow/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	seed := flag.Int64("seed", 0, "random seed (0 = time-based)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if len(cfg.Generator.Symbols) == 0 {
		log.Fatal("generator.symbols must not be empty")
	}

	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		log.Fatalf("kafka producer init failed: %v", err)
	}
	defer producer.Close()

	gen := generator.New(generator.Config{
		Symbols:    cfg.Generator.Symbols,
		Timeframes: cfg.Generator.Timeframes,
		RatePerSec: cfg.Generator.RatePerSec,
		Duration:   cfg.Generator.Duration,
		BasePrices: cfg.Generator.BasePrices,
		Topics:     cfg.SignalTopics(),
	}, producer, l, *seed)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := gen.Run(ctx); err != nil && err != context.Canceled {
		log.Printf("generator error: %v", err)
		os.Exit(1)
	}
}
