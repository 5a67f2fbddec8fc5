package main

import (
	"context"
	"log"

	"github.com/MrSnakeDoc/curator/internal/app"
	"github.com/MrSnakeDoc/curator/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ invalid configuration: %v", err)
	}

	ctx := context.Background()
	if err := app.New(ctx, cfg).Run(ctx); err != nil {
		log.Fatalf("❌ curator failed: %v", err)
	}
}
