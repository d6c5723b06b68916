package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/vutto/internal/logging"
	"github.com/dmitrijs2005/vutto/internal/server"
	"github.com/dmitrijs2005/vutto/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewTextLogger(os.Stdout, cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		os.Exit(1)
	}

}
