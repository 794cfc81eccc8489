package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE_PREFIX", "dental")
	t.Setenv("JWT_SECRET", "s3cret")
}

func TestDefaults(t *testing.T) {
	setRequired(t)
	for _, k := range []string{"STORE_BACKEND", "PORT", "WEB_PORT", "SEED", "AUTH_DELAY", "TIMEZONE", "REDIS_DB", "MQTT_ENABLED"} {
		t.Setenv(k, "")
	}

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if c.Backend != BackendMemory || c.GRPCPort != "50051" || c.WebPort != "8080" {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if !c.Seed || c.MQTTEnabled || c.AuthDelay != 0 {
		t.Errorf("unexpected flags: seed=%v mqtt=%v delay=%v", c.Seed, c.MQTTEnabled, c.AuthDelay)
	}
	if c.TokenTTL != 24*time.Hour {
		t.Errorf("token ttl = %v", c.TokenTTL)
	}
	if c.Location != time.Local {
		t.Errorf("location = %v", c.Location)
	}
}

func TestRequired(t *testing.T) {
	tests := []struct {
		name, prefix, secret, want string
	}{
		{"no prefix", "", "s", "STORAGE_PREFIX is required"},
		{"no secret", "dental", "", "JWT_SECRET is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STORAGE_PREFIX", tt.prefix)
			t.Setenv("JWT_SECRET", tt.secret)
			_, err := FromEnv()
			if err == nil || err.Error() != tt.want {
				t.Fatalf("got %v, want %q", err, tt.want)
			}
		})
	}
}

func TestOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SEED", "false")
	t.Setenv("AUTH_DELAY", "500ms")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("MQTT_ENABLED", "true")

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if c.Backend != BackendRedis || c.RedisDB != 3 || c.Seed || !c.MQTTEnabled {
		t.Errorf("overrides not applied: %+v", c)
	}
	if c.AuthDelay != 500*time.Millisecond {
		t.Errorf("delay = %v", c.AuthDelay)
	}
	if c.Location.String() != "UTC" {
		t.Errorf("location = %v", c.Location)
	}
}

func TestInvalidValues(t *testing.T) {
	tests := []struct{ key, val string }{
		{"STORE_BACKEND", "mongo"},
		{"REDIS_DB", "one"},
		{"SEED", "maybe"},
		{"AUTH_DELAY", "soon"},
		{"TIMEZONE", "Mars/Olympus"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.val)
			if _, err := FromEnv(); err == nil {
				t.Fatalf("%s=%s: expected error", tt.key, tt.val)
			}
		})
	}
}
