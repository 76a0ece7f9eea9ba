package config

import (
	"strings"
	"testing"
)

func TestLoadFailsWithoutRequiredURLs(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("REALTIME_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load succeeded without required URLs")
	}
	if !strings.Contains(err.Error(), "API_BASE_URL") || !strings.Contains(err.Error(), "REALTIME_URL") {
		t.Errorf("error = %q, want both missing vars named", err)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:8080")
	t.Setenv("REALTIME_URL", "ws://localhost:8081/ws")
	t.Setenv("PORT", "9999")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Realtime.URL != "ws://localhost:8081/ws" {
		t.Errorf("Realtime.URL = %q", cfg.Realtime.URL)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("Port = %q", cfg.Server.Port)
	}
	if cfg.Redis.DB != 3 {
		t.Errorf("Redis.DB = %d", cfg.Redis.DB)
	}
}

func TestLoadServerSkipsURLRequirement(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("REALTIME_URL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "*")

	cfg := LoadServer()
	if cfg.Server.CORSAllowedOrigins != "*" {
		t.Errorf("CORSAllowedOrigins = %q", cfg.Server.CORSAllowedOrigins)
	}
}
