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

	// stdout carries the operator dialogue
	logger := logging.New(cfg.LogLevel, cfg.LogJSON, os.Stderr)
	m, err := device.NewFireAlarmMachine(cfg.GaugeName)
	if err != nil {
		logger.Error("fire alarm initialization failed", "error", err)
		os.Exit(1)
	}

	if err := device.RunConsole(context.Background(), cfg, m, os.Stdin, os.Stdout, logger); err != nil {
		logger.Error("fire alarm runtime failed", "error", err)
		os.Exit(1)
	}
}
