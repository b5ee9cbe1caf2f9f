package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
bluetooth:
  adapter: "hci1"
  discovery: true
tracker:
  stale_after: 120
database:
  enabled: true
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Bluetooth.Adapter != "hci1" {
		t.Errorf("Bluetooth.Adapter = %q, want %q", cfg.Bluetooth.Adapter, "hci1")
	}

	if cfg.Tracker.StaleAfter != 120 {
		t.Errorf("Tracker.StaleAfter = %d, want 120", cfg.Tracker.StaleAfter)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}

	// Sections the file does not mention keep their defaults.
	if cfg.Engine.LockoutGrace != 3 {
		t.Errorf("Engine.LockoutGrace = %d, want default 3", cfg.Engine.LockoutGrace)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
bluetooth:
  adapter: ""
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty bluetooth.adapter, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing adapter",
			mutate:  func(c *Config) { c.Bluetooth.Adapter = "" },
			wantErr: true,
		},
		{
			name:    "negative stale_after",
			mutate:  func(c *Config) { c.Tracker.StaleAfter = -1 },
			wantErr: true,
		},
		{
			name:    "negative lockout_grace",
			mutate:  func(c *Config) { c.Engine.LockoutGrace = -5 },
			wantErr: true,
		},
		{
			name: "database enabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Path = ""
			},
			wantErr: true,
		},
		{
			name:    "database disabled without path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: false,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name: "mqtt enabled without host",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.Broker.Host = ""
			},
			wantErr: true,
		},
		{
			name: "mqtt enabled invalid port",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.Broker.Port = 70000
			},
			wantErr: true,
		},
		{
			name: "influxdb enabled without token",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = "http://localhost:8086"
				c.InfluxDB.Bucket = "podpilot"
			},
			wantErr: true,
		},
		{
			name: "influxdb enabled complete",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = "http://localhost:8086"
				c.InfluxDB.Token = "token"
				c.InfluxDB.Bucket = "podpilot"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := &Config{
		Tracker: TrackerConfig{StaleAfter: 120},
		Engine:  EngineConfig{LockoutGrace: 7},
	}

	if got := cfg.GetStaleAfter(); got != 2*time.Minute {
		t.Errorf("GetStaleAfter() = %v, want 2m", got)
	}

	if got := cfg.GetLockoutGrace(); got != 7*time.Second {
		t.Errorf("GetLockoutGrace() = %v, want 7s", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("PODPILOT_BLUETOOTH_ADAPTER", "hci2")
	t.Setenv("PODPILOT_DATABASE_PATH", "/custom/path.db")
	t.Setenv("PODPILOT_MQTT_HOST", "mqtt.example.com")
	t.Setenv("PODPILOT_MQTT_PORT", "8883")
	t.Setenv("PODPILOT_MQTT_USERNAME", "testuser")
	t.Setenv("PODPILOT_MQTT_PASSWORD", "testpass")
	t.Setenv("PODPILOT_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("PODPILOT_LOG_LEVEL", "debug")

	applyEnvOverrides(cfg)

	if cfg.Bluetooth.Adapter != "hci2" {
		t.Errorf("Bluetooth.Adapter = %q, want %q", cfg.Bluetooth.Adapter, "hci2")
	}

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d, want 8883", cfg.MQTT.Broker.Port)
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestApplyEnvOverrides_BadPort(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("PODPILOT_MQTT_PORT", "not-a-port")

	applyEnvOverrides(cfg)

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want default 1883", cfg.MQTT.Broker.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Bluetooth.Adapter != "hci0" {
		t.Errorf("defaultConfig Bluetooth.Adapter = %q, want hci0", cfg.Bluetooth.Adapter)
	}

	if cfg.Tracker.StaleAfter != 300 {
		t.Errorf("defaultConfig Tracker.StaleAfter = %d, want 300", cfg.Tracker.StaleAfter)
	}

	if cfg.Engine.LockoutGrace != 3 {
		t.Errorf("defaultConfig Engine.LockoutGrace = %d, want 3", cfg.Engine.LockoutGrace)
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig should validate, got %v", err)
	}
}
