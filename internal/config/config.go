package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"smarthome-gauges/internal/gauge"
)

type ForwardMode string

const (
	ForwardNone      ForwardMode = ""
	ForwardGRPC      ForwardMode = "grpc"
	ForwardWebSocket ForwardMode = "websocket"
	ForwardNATS      ForwardMode = "nats"
)

const (
	DefaultReadBufferSize   = 1024
	DefaultNATSSubject      = "gauges.events"
	DefaultGRPCMethod       = "/gauges.v1.Collector/StreamGauges"
	maxFrameBufferSize      = 1 << 20
	envFileKey              = "GAUGE_ENV_FILE"
	defaultShutdownTimeout  = 10 * time.Second
	defaultReportInterval   = 5 * time.Second
	defaultDialTimeout      = 3 * time.Second
	defaultInitialTempValue = 36.0
)

type Server struct {
	ListenAddress   string
	ListenPort      string
	ReadBufferSize  int
	MaxConnections  int
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
	AdminAddr       string
	ForwardMode     ForwardMode
	ForwardGRPCAddr string
	ForwardGRPCPath string
	ForwardWSURL    string
	ForwardNATSURL  string
	ForwardSubject  string
	ForwardToken    string
	LogLevel        string
	LogJSON         bool
}

type Device struct {
	GaugeName          string
	TargetAddress      string
	ReportInterval     time.Duration
	DialTimeout        time.Duration
	InitialTemperature float32
	LogLevel           string
	LogJSON            bool
}

// ListenAddr joins address and port into a host:port string.
func (s Server) ListenAddr() string {
	return net.JoinHostPort(s.ListenAddress, s.ListenPort)
}

func LoadServer() (Server, error) {
	if err := loadEnvFile(); err != nil {
		return Server{}, err
	}

	cfg := Server{
		ListenAddress:   env("GAUGE_SERVER_ADDRESS", ""),
		ListenPort:      env("GAUGE_SERVER_PORT", ""),
		ReadBufferSize:  envInt("GAUGE_READ_BUFFER_SIZE", DefaultReadBufferSize),
		MaxConnections:  envInt("GAUGE_MAX_CONNECTIONS", 0),
		ReadTimeout:     envDuration("GAUGE_READ_TIMEOUT", 0),
		ShutdownTimeout: envDuration("GAUGE_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		AdminAddr:       env("GAUGE_ADMIN_ADDR", ""),
		ForwardMode:     ForwardMode(strings.ToLower(env("GAUGE_FORWARD_MODE", ""))),
		ForwardGRPCAddr: env("GAUGE_FORWARD_GRPC_ADDR", ""),
		ForwardGRPCPath: env("GAUGE_FORWARD_GRPC_METHOD", DefaultGRPCMethod),
		ForwardWSURL:    env("GAUGE_FORWARD_WS_URL", ""),
		ForwardNATSURL:  env("GAUGE_FORWARD_NATS_URL", ""),
		ForwardSubject:  env("GAUGE_FORWARD_NATS_SUBJECT", DefaultNATSSubject),
		ForwardToken:    env("GAUGE_FORWARD_TOKEN", ""),
		LogLevel:        strings.ToLower(env("GAUGE_LOG_LEVEL", "info")),
		LogJSON:         envBool("GAUGE_LOG_JSON", false),
	}

	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c Server) Validate() error {
	if c.ListenAddress == "" {
		return errors.New("GAUGE_SERVER_ADDRESS is required")
	}
	if c.ListenPort == "" {
		return errors.New("GAUGE_SERVER_PORT is required")
	}
	if p, err := strconv.Atoi(c.ListenPort); err != nil || p < 0 || p > 65535 {
		return fmt.Errorf("GAUGE_SERVER_PORT %q is not a valid port", c.ListenPort)
	}
	if c.ReadBufferSize <= 0 || c.ReadBufferSize > maxFrameBufferSize {
		return fmt.Errorf("GAUGE_READ_BUFFER_SIZE must be in 1..%d", maxFrameBufferSize)
	}
	if c.MaxConnections < 0 {
		return errors.New("GAUGE_MAX_CONNECTIONS must be >= 0")
	}
	if c.ReadTimeout < 0 {
		return errors.New("GAUGE_READ_TIMEOUT must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("GAUGE_SHUTDOWN_TIMEOUT must be > 0")
	}
	switch c.ForwardMode {
	case ForwardNone:
	case ForwardGRPC:
		if c.ForwardGRPCAddr == "" {
			return errors.New("GAUGE_FORWARD_GRPC_ADDR is required for grpc mode")
		}
		if strings.TrimSpace(c.ForwardGRPCPath) == "" {
			return errors.New("GAUGE_FORWARD_GRPC_METHOD is required for grpc mode")
		}
	case ForwardWebSocket:
		if c.ForwardWSURL == "" {
			return errors.New("GAUGE_FORWARD_WS_URL is required for websocket mode")
		}
	case ForwardNATS:
		if c.ForwardNATSURL == "" {
			return errors.New("GAUGE_FORWARD_NATS_URL is required for nats mode")
		}
		if c.ForwardSubject == "" {
			return errors.New("GAUGE_FORWARD_NATS_SUBJECT is required for nats mode")
		}
	default:
		return fmt.Errorf("unsupported forward mode %q", c.ForwardMode)
	}
	return nil
}

func LoadDevice() (Device, error) {
	if err := loadEnvFile(); err != nil {
		return Device{}, err
	}

	cfg := Device{
		GaugeName:          env("GAUGE_NAME", ""),
		TargetAddress:      env("GAUGE_TARGET_ADDRESS", ""),
		ReportInterval:     envDuration("GAUGE_REPORT_INTERVAL", defaultReportInterval),
		DialTimeout:        envDuration("GAUGE_DIAL_TIMEOUT", defaultDialTimeout),
		InitialTemperature: envFloat32("GAUGE_INITIAL_TEMPERATURE", defaultInitialTempValue),
		LogLevel:           strings.ToLower(env("GAUGE_LOG_LEVEL", "info")),
		LogJSON:            envBool("GAUGE_LOG_JSON", false),
	}

	if err := cfg.Validate(); err != nil {
		return Device{}, err
	}
	return cfg, nil
}

func (c Device) Validate() error {
	if c.GaugeName == "" {
		return errors.New("GAUGE_NAME is required")
	}
	if err := gauge.ValidateName(c.GaugeName); err != nil {
		return fmt.Errorf("GAUGE_NAME: %w", err)
	}
	if c.TargetAddress == "" {
		return errors.New("GAUGE_TARGET_ADDRESS is required")
	}
	if _, _, err := net.SplitHostPort(c.TargetAddress); err != nil {
		return fmt.Errorf("GAUGE_TARGET_ADDRESS: %w", err)
	}
	if c.ReportInterval <= 0 {
		return errors.New("GAUGE_REPORT_INTERVAL must be > 0")
	}
	if c.DialTimeout <= 0 {
		return errors.New("GAUGE_DIAL_TIMEOUT must be > 0")
	}
	return nil
}

// loadEnvFile preloads GAUGE_ENV_FILE if set. Variables already present in the
// process environment win over the file.
func loadEnvFile() error {
	path := strings.TrimSpace(os.Getenv(envFileKey))
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", envFileKey, err)
	}
	return nil
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envFloat32(key string, fallback float32) float32 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
