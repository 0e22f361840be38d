package main

import (
	"context"
	"log"
	"os"

	"smarthome-gauges/internal/collector"
	"smarthome-gauges/internal/config"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := collector.BuildLogger(cfg, nil)
	c, err := collector.New(cfg, logger)
	if err != nil {
		logger.Error("gauge server initialization failed", "error", err)
		os.Exit(1)
	}

	if err := c.Run(context.Background()); err != nil {
		logger.Error("gauge server runtime failed", "error", err)
		os.Exit(1)
	}
}
