package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/simple-scanmatch/internal/config"
)

type appConfig struct {
	ControlAddr     string
	NotifyAddr      string
	HTTPAddr        string
	StationFile     string
	Defaults        config.Station
	MaxScanConns    int
	ScanReadTimeout time.Duration
	NotifyTimeout   time.Duration
	NATSURL         string
	OutcomeSubject  string
	AutoStart       bool
	LogLevel        slog.Level
}

func LoadConfig() (appConfig, error) {
	cfg := appConfig{
		ControlAddr:    getenv("CONTROL_ADDR", "127.0.0.1:9999"),
		NotifyAddr:     getenv("NOTIFY_ADDR", "127.0.0.1:9998"),
		HTTPAddr:       os.Getenv("HTTP_ADDR"),
		StationFile:    getenv("STATION_CONFIG_FILE", "./data/station.env"),
		NATSURL:        os.Getenv("NATS_URL"),
		OutcomeSubject: getenv("OUTCOME_SUBJECT", "scans.outcomes"),
		AutoStart:      getenvBool("AUTOSTART", true),
		Defaults: config.Station{
			IP:      getenv("SCAN_IP", "192.168.0.116"),
			LogFile: getenv("AUDIT_LOG", "./data/scan_log.db"),
		},
	}
	if _, set := os.LookupEnv("HTTP_ADDR"); !set {
		cfg.HTTPAddr = ":9997"
	}

	port, err := parsePositiveInt(getenv("SCAN_PORT", "25251"), "SCAN_PORT")
	if err != nil {
		return appConfig{}, err
	}
	cfg.Defaults.Port = port

	conns, err := parsePositiveInt(getenv("MAX_SCAN_CONNS", "16"), "MAX_SCAN_CONNS")
	if err != nil {
		return appConfig{}, err
	}
	cfg.MaxScanConns = conns

	readTimeout, err := time.ParseDuration(getenv("SCAN_READ_TIMEOUT", "30s"))
	if err != nil {
		return appConfig{}, fmt.Errorf("invalid SCAN_READ_TIMEOUT: %w", err)
	}
	cfg.ScanReadTimeout = readTimeout

	notifyTimeout, err := time.ParseDuration(getenv("NOTIFY_TIMEOUT", "2s"))
	if err != nil {
		return appConfig{}, fmt.Errorf("invalid NOTIFY_TIMEOUT: %w", err)
	}
	cfg.NotifyTimeout = notifyTimeout

	level, err := parseLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		return appConfig{}, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

func parsePositiveInt(value string, name string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero (got %d)", name, v)
	}
	return v, nil
}

func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(value))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", value, err)
	}
	return level, nil
}

func getenvBool(key string, defaultValue bool) bool {
	val := getenv(key, "")
	if val == "" {
		return defaultValue
	}
	return val == "true"
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
