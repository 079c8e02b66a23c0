package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"dayplanner/internal/app"
	"dayplanner/internal/config"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg)
	if err := a.Init(ctx); err != nil {
		log.Fatalf("initializing app: %v", err)
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("running app: %v", err)
	}
}
