package main

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"CONTROL_ADDR", "NOTIFY_ADDR", "SCAN_IP", "SCAN_PORT", "AUDIT_LOG", "MAX_SCAN_CONNS", "SCAN_READ_TIMEOUT", "NOTIFY_TIMEOUT", "NATS_URL", "AUTOSTART", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.ControlAddr != "127.0.0.1:9999" || cfg.NotifyAddr != "127.0.0.1:9998" {
		t.Fatalf("unexpected control/notify addresses: %s %s", cfg.ControlAddr, cfg.NotifyAddr)
	}
	if cfg.Defaults.IP != "192.168.0.116" || cfg.Defaults.Port != 25251 {
		t.Fatalf("unexpected station defaults: %+v", cfg.Defaults)
	}
	if cfg.MaxScanConns != 16 || cfg.ScanReadTimeout != 30*time.Second || cfg.NotifyTimeout != 2*time.Second {
		t.Fatalf("unexpected intake limits: %+v", cfg)
	}
	if !cfg.AutoStart {
		t.Fatal("autostart should default to true")
	}
	if cfg.NATSURL != "" {
		t.Fatalf("NATS should be disabled by default, got %s", cfg.NATSURL)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected log level: %v", cfg.LogLevel)
	}
}

func TestLoadConfigHTTPAddrCanBeDisabled(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.HTTPAddr != "" {
		t.Fatalf("expected empty HTTP_ADDR to disable the API, got %q", cfg.HTTPAddr)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SCAN_PORT", "4001")
	t.Setenv("AUTOSTART", "false")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SCAN_READ_TIMEOUT", "250ms")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Defaults.Port != 4001 || cfg.AutoStart || cfg.LogLevel != slog.LevelDebug || cfg.ScanReadTimeout != 250*time.Millisecond {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadConfigInvalidPort(t *testing.T) {
	t.Setenv("SCAN_PORT", "not-a-number")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for invalid SCAN_PORT")
	}
}

func TestLoadConfigInvalidConns(t *testing.T) {
	t.Setenv("MAX_SCAN_CONNS", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for zero MAX_SCAN_CONNS")
	}
}

func TestLoadConfigInvalidLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unknown LOG_LEVEL")
	}
}
