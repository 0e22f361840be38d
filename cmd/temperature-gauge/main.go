package main

import (
	"context"
	"log"
	"os"

	"smarthome-gauges/internal/config"
	"smarthome-gauges/internal/device"
	"smarthome-gauges/internal/logging"
)

func main() {
	cfg, err := config.LoadDevice()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogJSON, os.Stderr)
	m, err := device.NewThermometerMachine(cfg.GaugeName, cfg.InitialTemperature)
	if err != nil {
		logger.Error("temperature gauge initialization failed", "error", err)
		os.Exit(1)
	}

	if err := device.RunConsole(context.Background(), cfg, m, os.Stdin, os.Stdout, logger); err != nil {
		logger.Error("temperature gauge runtime failed", "error", err)
		os.Exit(1)
	}
}
