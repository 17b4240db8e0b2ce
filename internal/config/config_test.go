package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Port)
	}
	if cfg.PingPeriod != 54*time.Second {
		t.Errorf("ping_period = %v, want 54s", cfg.PingPeriod)
	}
	if cfg.Sink.Driver != "log" || cfg.Sink.Buffer != 256 {
		t.Errorf("sink = %+v, want log driver with buffer 256", cfg.Sink)
	}
	if cfg.Transcript.Separator != " " {
		t.Errorf("separator = %q, want space", cfg.Transcript.Separator)
	}
	if cfg.RateLimit.Attempts != 5 || cfg.RateLimit.Interval != 10*time.Second {
		t.Errorf("rate_limit = %+v", cfg.RateLimit)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")
	t.Setenv("PORT", "9090")
	t.Setenv("SINK_DRIVER", "redis")
	t.Setenv("POLICY_ON_BACKPRESSURE", "kick")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Port)
	}
	if cfg.Sink.Driver != "redis" {
		t.Errorf("sink.driver = %q, want redis", cfg.Sink.Driver)
	}
	if cfg.Policy.OnBackpressure != "kick" {
		t.Errorf("policy.on_backpressure = %q, want kick", cfg.Policy.OnBackpressure)
	}
}
