package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/layer-3/pqauth/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to $PQAUTH_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	app := NewApp(cfg)

	if err := app.Start(context.Background()); err != nil {
		log.Printf("Failed to start app: %v", err)
		os.Exit(1)
	}

	<-app.Done()

	if err := app.Stop(context.Background()); err != nil {
		log.Printf("Failed to stop app gracefully: %v", err)
		os.Exit(1)
	}
}
