package config

import (
	"testing"
	"time"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := loadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Addr)
	}
}

func TestLoadServerConfigExplicitAddr(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")

	cfg, err := loadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" {
		t.Fatalf("expected explicit addr, got %s", cfg.Addr)
	}
}

func TestLoadRelayConfig(t *testing.T) {
	t.Setenv("RELAY_DEV_MODE", "false")
	t.Setenv("RELAY_ALLOWED_ORIGINS", "https://a.test, https://b.test ,")
	t.Setenv("RELAY_TYPING_DELAY_MS", "200")
	t.Setenv("RELAY_LOG_COLLECTION", "custom_logs")

	cfg, err := loadRelayConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.TypingDelay != 200*time.Millisecond {
		t.Fatalf("expected 200ms delay, got %v", cfg.TypingDelay)
	}
	if cfg.LogCollection != "custom_logs" {
		t.Fatalf("expected custom_logs, got %s", cfg.LogCollection)
	}
}

func TestOriginAllowed(t *testing.T) {
	cfg := RelayConfig{AllowedOrigins: []string{"https://widget.acme.test"}}

	if !cfg.OriginAllowed("https://widget.acme.test") {
		t.Fatal("expected configured origin to be allowed")
	}
	if !cfg.OriginAllowed("HTTPS://WIDGET.ACME.TEST") {
		t.Fatal("expected origin match to be case-insensitive")
	}
	if cfg.OriginAllowed("https://evil.test") {
		t.Fatal("expected unknown origin to be rejected")
	}
	if cfg.OriginAllowed("") {
		t.Fatal("expected empty origin to be rejected")
	}

	dev := RelayConfig{DevMode: true}
	if !dev.OriginAllowed("https://anything.test") {
		t.Fatal("expected dev mode to bypass the allowlist")
	}
}

func TestAIConfigEnabled(t *testing.T) {
	cases := []struct {
		name string
		cfg  AIConfig
		want bool
	}{
		{"api key", AIConfig{APIKey: "k", Model: "m"}, true},
		{"ak/sk pair", AIConfig{AccessKey: "a", SecretKey: "s", Model: "m"}, true},
		{"missing model", AIConfig{APIKey: "k"}, false},
		{"partial pair", AIConfig{AccessKey: "a", Model: "m"}, false},
		{"empty", AIConfig{}, false},
	}
	for _, tc := range cases {
		if got := tc.cfg.Enabled(); got != tc.want {
			t.Errorf("%s: Enabled() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
