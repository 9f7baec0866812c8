package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "./config.yaml"

// LoadConfig reads .env (if any), then the YAML file named by RELAY_CONFIG
// or ./config.yaml. A missing file yields the defaults.
func LoadConfig() (*PlatformConfig, error) {
	_ = godotenv.Load()

	filename := os.Getenv("RELAY_CONFIG")
	if filename == "" {
		filename = defaultConfigFile
	}

	config, err := LoadConfigFromFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		config = &PlatformConfig{}
		err = config.ApplyEnv(os.LookupEnv)
		config.ApplyDefaults()
	}
	return config, err
}

func LoadConfigFromFile(filename string) (*PlatformConfig, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config := PlatformConfig{}
	err = yaml.Unmarshal(content, &config)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	err = config.ApplyEnv(os.LookupEnv)
	config.ApplyDefaults()

	return &config, err
}

// ApplyDefaults fills every unset field with the values the vehicle
// hardware ships with.
func (c *PlatformConfig) ApplyDefaults() {
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.LogConfig.Format == "" {
		c.LogConfig.Format = "text"
	}
	if c.VehicleConfig.ID == "" {
		c.VehicleConfig.ID = "aiac"
	}

	if c.StorageConfig.Type == "" {
		c.StorageConfig.Type = "local"
	}
	if c.StorageConfig.Path == "" {
		c.StorageConfig.Path = "./relay.db"
	}
	if c.StorageConfig.CommandsURL == "" {
		c.StorageConfig.CommandsURL = "mem://commands/id"
	}
	if c.StorageConfig.SensorsURL == "" {
		c.StorageConfig.SensorsURL = "mem://sensor_data/id"
	}
	if c.StorageConfig.VehicleURL == "" {
		c.StorageConfig.VehicleURL = "mem://vehicle/vehicleID"
	}

	if c.TimeseriesConfig.Type == "" {
		c.TimeseriesConfig.Type = "local"
	}
	if c.TimeseriesConfig.Bucket == "" {
		c.TimeseriesConfig.Bucket = "aiac"
	}

	if c.MessagingConfig.TopicURL == "" {
		c.MessagingConfig.TopicURL = "mem://telemetry"
	}

	if c.APIServerConfig.Port == 0 {
		c.APIServerConfig.Port = 8000
	}
	if c.MetricsConfig.Port == 0 {
		c.MetricsConfig.Port = 8888
	}
	if c.MetricsConfig.Namespace == "" {
		c.MetricsConfig.Namespace = "aiac_relay"
	}

	if c.ControllerConfig.URL == "" {
		c.ControllerConfig.URL = "http://192.168.100.55/move"
	}
	if c.ControllerConfig.Timeout == 0 {
		c.ControllerConfig.Timeout = 3 * time.Second
	}

	if len(c.GatewayConfigs) == 0 {
		c.GatewayConfigs = []GatewayConfig{{Protocol: "coap", Port: 5688}}
	}

	c.StreamConfig.applyDefaults()
}

func (s *StreamConfig) applyDefaults() {
	camera := &s.Camera
	if camera.Host == "" {
		camera.Host = "10.5.5.9"
	}
	if camera.ManifestURL == "" {
		camera.ManifestURL = "http://" + camera.Host + ":8080/live/amba.m3u8"
	}
	if camera.CommandPort == 0 {
		camera.CommandPort = 8554
	}
	if camera.KeepAliveInterval == 0 {
		camera.KeepAliveInterval = 2500 * time.Millisecond
	}
	if camera.KeepAliveMessage == "" {
		camera.KeepAliveMessage = "_GPHD_:0:0:2:0.0\n"
	}
	if camera.Timeout == 0 {
		camera.Timeout = 3 * time.Second
	}

	viewer := &s.Viewer
	if viewer.Binary == "" {
		viewer.Binary = "ffplay"
	}
	if len(viewer.Args) == 0 {
		viewer.Args = []string{
			"-loglevel", "panic",
			"-fflags", "nobuffer",
			"-f:v", "mpegts",
			"-probesize", "8192",
			fmt.Sprintf("udp://%s:%d", camera.Host, camera.CommandPort),
		}
	}
	if viewer.GracePeriod == 0 {
		viewer.GracePeriod = 2 * time.Second
	}

	if s.StopTimeout == 0 {
		s.StopTimeout = 3 * time.Second
	}
}

// ApplyEnv overrides selected settings from the environment. It runs before
// ApplyDefaults so derived values (manifest URL, viewer args) follow the host.
func (c *PlatformConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("RELAY_CONTROLLER_URL"); ok && v != "" {
		c.ControllerConfig.URL = v
	}
	if v, ok := lookup("RELAY_CAMERA_HOST"); ok && v != "" {
		c.StreamConfig.Camera.Host = v
	}
	if v, ok := lookup("RELAY_STORAGE_URL"); ok && v != "" {
		c.StorageConfig.URL = v
	}
	if v, ok := lookup("RELAY_API_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RELAY_API_PORT: %w", err)
		}
		c.APIServerConfig.Port = port
	}
	return nil
}
