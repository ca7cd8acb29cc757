package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults applied to optional bootstrap fields.
const (
	DefaultHTTPPort          = 8080
	DefaultHazardThresholdM  = 5.0
	DefaultSafeSpeedCap      = 0.3
	DefaultCommandRateHz     = 20
	DefaultInputDeadzone     = 0.01
	DefaultMessageBufferSize = 100
	DefaultSensorTopic       = "rover.sensor.hazard_distance"
)

// BootstrapConfig holds the configuration loaded from controller_config.yaml.
type BootstrapConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
	ZeroMQ  ZeroMQConfig  `yaml:"zeromq"`
	Safety  SafetyConfig  `yaml:"safety"`
	Control ControlConfig `yaml:"control"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogPath string `yaml:"log_path,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	HTTPPort int `yaml:"http_port"`
}

// ZeroMQConfig holds transport settings: where gated commands, alerts and
// status frames are published, and where hazard distance readings arrive.
type ZeroMQConfig struct {
	PublishBindAddress   string `yaml:"publish_bind_address"`
	SensorConnectAddress string `yaml:"sensor_connect_address"`
	SensorTopic          string `yaml:"sensor_topic"`
	MessageBufferSize    int    `yaml:"message_buffer_size"`
}

// SafetyConfig holds the hazard policy parameters.
type SafetyConfig struct {
	HazardThresholdM float64 `yaml:"hazard_threshold_m"`
	SafeSpeedCap     float64 `yaml:"safe_speed_cap"`
}

// ControlConfig holds the command production cadence.
type ControlConfig struct {
	CommandRateHz int     `yaml:"command_rate_hz"`
	InputDeadzone float64 `yaml:"input_deadzone"`
}

// LoadBootstrapConfig loads the bootstrap configuration from
// controller_config.yaml in the given directory, validates required fields
// and fills defaults.
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	configPath := filepath.Join(configDir, "controller_config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", configPath, err)
	}

	var cfg BootstrapConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", configPath, err)
	}

	if cfg.ZeroMQ.PublishBindAddress == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: zeromq.publish_bind_address")
	}
	if cfg.ZeroMQ.SensorConnectAddress == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: zeromq.sensor_connect_address")
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *BootstrapConfig) applyDefaults() {
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = DefaultHTTPPort
	}
	if c.ZeroMQ.SensorTopic == "" {
		c.ZeroMQ.SensorTopic = DefaultSensorTopic
	}
	if c.ZeroMQ.MessageBufferSize == 0 {
		c.ZeroMQ.MessageBufferSize = DefaultMessageBufferSize
	}
	if c.Safety.HazardThresholdM == 0 {
		c.Safety.HazardThresholdM = DefaultHazardThresholdM
	}
	if c.Safety.SafeSpeedCap == 0 {
		c.Safety.SafeSpeedCap = DefaultSafeSpeedCap
	}
	if c.Control.CommandRateHz == 0 {
		c.Control.CommandRateHz = DefaultCommandRateHz
	}
	if c.Control.InputDeadzone == 0 {
		c.Control.InputDeadzone = DefaultInputDeadzone
	}
}
