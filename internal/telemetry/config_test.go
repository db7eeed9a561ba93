package telemetry

import (
	"testing"
	"time"

	"github.com/fyrsmithlabs/vibeguard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, ProtocolGRPC, cfg.Protocol)
	assert.Equal(t, "vibeguard", cfg.ServiceName)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.Sampling.Rate)
	assert.Equal(t, 15*time.Second, cfg.Metrics.ExportInterval.Duration())

	cfg.Enabled = true
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"disabled ignores everything", func(c *Config) { c.Enabled = false; c.Endpoint = "" }, ""},
		{"missing endpoint", func(c *Config) { c.Endpoint = "" }, "endpoint is required"},
		{"unknown protocol", func(c *Config) { c.Protocol = "udp" }, "protocol must be"},
		{"http protocol", func(c *Config) { c.Protocol = ProtocolHTTP; c.Endpoint = "localhost:4318" }, ""},
		{"missing service name", func(c *Config) { c.ServiceName = "" }, "service_name is required"},
		{"missing service version", func(c *Config) { c.ServiceVersion = "" }, "service_version is required"},
		{"insecure remote", func(c *Config) { c.Endpoint = "collector.example.com:4317" }, "insecure connections"},
		{"tls remote", func(c *Config) { c.Endpoint = "collector.example.com:4317"; c.Insecure = false }, ""},
		{"tls skip verify remote", func(c *Config) {
			c.Endpoint = "collector.internal:4317"
			c.Insecure = false
			c.TLSSkipVerify = true
		}, ""},
		{"sampling above one", func(c *Config) { c.Sampling.Rate = 1.5 }, "sampling.rate"},
		{"sampling negative", func(c *Config) { c.Sampling.Rate = -0.1 }, "sampling.rate"},
		{"zero export interval", func(c *Config) { c.Metrics.ExportInterval = 0 }, "export_interval"},
		{"zero interval with metrics off", func(c *Config) {
			c.Metrics.Enabled = false
			c.Metrics.ExportInterval = 0
		}, ""},
		{"zero shutdown timeout", func(c *Config) { c.Shutdown.Timeout = 0 }, "shutdown.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Enabled = true
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_IsLocalEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"localhost:4317", true},
		{"127.0.0.1:4317", true},
		{"[::1]:4317", true},
		{"http://localhost:4318/v1/traces", true},
		{"localhost", true},
		{"10.0.0.5:4317", false},
		{"collector.example.com:4317", false},
		{"localhost.example.com:4317", false},
	}
	for _, tt := range tests {
		cfg := &Config{Endpoint: tt.endpoint}
		assert.Equal(t, tt.want, cfg.isLocalEndpoint(), tt.endpoint)
	}
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "host:4318", stripScheme("https://host:4318"))
	assert.Equal(t, "host:4318", stripScheme("http://host:4318"))
	assert.Equal(t, "host:4317", stripScheme("host:4317"))
}

func TestFromSettings(t *testing.T) {
	s := config.Default().Telemetry
	s.Enabled = true
	s.Endpoint = "otel.internal:4318"
	s.Protocol = ProtocolHTTP
	s.Insecure = false
	s.TLSSkipVerify = true
	s.SamplingRate = 0.25
	s.MetricsEnabled = false
	s.ExportInterval = config.Duration(time.Minute)
	s.ShutdownTimeout = config.Duration(2 * time.Second)

	cfg := FromSettings(s)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "otel.internal:4318", cfg.Endpoint)
	assert.Equal(t, ProtocolHTTP, cfg.Protocol)
	assert.False(t, cfg.Insecure)
	assert.True(t, cfg.TLSSkipVerify)
	assert.Equal(t, 0.25, cfg.Sampling.Rate)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, time.Minute, cfg.Metrics.ExportInterval.Duration())
	assert.Equal(t, 2*time.Second, cfg.Shutdown.Timeout.Duration())
	assert.NoError(t, cfg.Validate())
}

func TestFromSettings_EmptyKeepsDefaults(t *testing.T) {
	cfg := FromSettings(config.TelemetryConfig{})

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, "vibeguard", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.Shutdown.Timeout.Duration())
}
