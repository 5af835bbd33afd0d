package main

import (
	"context"
	"log"

	"github.com/bloomlabs/bloom/internal/server/config"
	"github.com/bloomlabs/bloom/internal/worker"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := worker.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
