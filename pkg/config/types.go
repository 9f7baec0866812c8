package config

import "time"

type PlatformConfig struct {
	LogConfig        LogConfig        `yaml:"log"`
	VehicleConfig    VehicleConfig    `yaml:"vehicle"`
	StorageConfig    StorageConfig    `yaml:"storage"`
	TimeseriesConfig TimeseriesConfig `yaml:"timeseries"`
	MessagingConfig  MessagingConfig  `yaml:"messaging"`
	APIServerConfig  APIServerConfig  `yaml:"api"`
	MetricsConfig    MetricsConfig    `yaml:"metrics"`
	ControllerConfig ControllerConfig `yaml:"controller"`
	StreamConfig     StreamConfig     `yaml:"stream"`
	GatewayConfigs   []GatewayConfig  `yaml:"gateways"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// VehicleConfig identifies the single vehicle this relay serves.
type VehicleConfig struct {
	ID string `yaml:"id"`
}

// StorageConfig selects the command/sensor store backend.
// Type is one of "local" (bbolt file at Path), "docstore" (gocloud collection URLs)
// or "postgres" (URL is a PostgreSQL DSN).
type StorageConfig struct {
	Type        string `yaml:"type"`
	URL         string `yaml:"url"`
	Path        string `yaml:"path"`
	CommandsURL string `yaml:"commandsURL"`
	SensorsURL  string `yaml:"sensorsURL"`
	VehicleURL  string `yaml:"vehicleURL"`
}

// TimeseriesConfig selects where the event history goes: "local" (bbolt),
// "influx" (URL, Token, Org, Bucket) or "docstore" (URL is a collection URL).
type TimeseriesConfig struct {
	Type   string `yaml:"type"`
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// MessagingConfig names the event topic. The URL scheme selects the
// gocloud pubsub driver (mem:// by default).
type MessagingConfig struct {
	TopicURL string `yaml:"topicURL"`
}

type APIServerConfig struct {
	Port int `yaml:"port"`
}

type MetricsConfig struct {
	Port      int    `yaml:"port"`
	Namespace string `yaml:"namespace"`
}

type ControllerConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type StreamConfig struct {
	Camera CameraConfig `yaml:"camera"`
	Viewer ViewerConfig `yaml:"viewer"`
	// StopTimeout bounds how long Stop waits for the keep-alive loop to exit.
	StopTimeout time.Duration `yaml:"stopTimeout"`
}

type CameraConfig struct {
	Host              string        `yaml:"host"`
	ManifestURL       string        `yaml:"manifestURL"`
	CommandPort       int           `yaml:"commandPort"`
	KeepAliveInterval time.Duration `yaml:"keepAliveInterval"`
	KeepAliveMessage  string        `yaml:"keepAliveMessage"`
	Timeout           time.Duration `yaml:"timeout"`
	// Strict makes Start fail when the manifest request fails.
	Strict bool `yaml:"strict"`
}

type ViewerConfig struct {
	Binary      string        `yaml:"binary"`
	Args        []string      `yaml:"args"`
	GracePeriod time.Duration `yaml:"gracePeriod"`
}

type GatewayConfig struct {
	Protocol string `yaml:"protocol"`
	Port     int    `yaml:"port"`
}
