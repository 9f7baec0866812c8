package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return filename
}

func TestLoadConfigFromFile_Defaults(t *testing.T) {
	config, err := LoadConfigFromFile(writeConfig(t, "api:\n  port: 9000\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.APIServerConfig.Port != 9000 {
		t.Errorf("expected port 9000, got %d", config.APIServerConfig.Port)
	}
	if config.StorageConfig.Type != "local" {
		t.Errorf("expected local storage, got %q", config.StorageConfig.Type)
	}

	camera := config.StreamConfig.Camera
	if camera.ManifestURL != "http://10.5.5.9:8080/live/amba.m3u8" {
		t.Errorf("unexpected manifest url %q", camera.ManifestURL)
	}
	if camera.KeepAliveInterval != 2500*time.Millisecond {
		t.Errorf("expected 2500ms keep-alive, got %v", camera.KeepAliveInterval)
	}
	if camera.KeepAliveMessage != "_GPHD_:0:0:2:0.0\n" {
		t.Errorf("unexpected keep-alive message %q", camera.KeepAliveMessage)
	}

	args := config.StreamConfig.Viewer.Args
	if args[len(args)-1] != "udp://10.5.5.9:8554" {
		t.Errorf("unexpected viewer url %q", args[len(args)-1])
	}
}

func TestLoadConfigFromFile_Durations(t *testing.T) {
	content := `
controller:
  url: http://rover.local/move
  timeout: 1500ms
stream:
  camera:
    strict: true
    keepAliveInterval: 1s
`
	config, err := LoadConfigFromFile(writeConfig(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.ControllerConfig.Timeout != 1500*time.Millisecond {
		t.Errorf("expected 1.5s timeout, got %v", config.ControllerConfig.Timeout)
	}
	if !config.StreamConfig.Camera.Strict {
		t.Error("expected strict camera mode")
	}
	if config.StreamConfig.Camera.KeepAliveInterval != time.Second {
		t.Errorf("expected 1s interval, got %v", config.StreamConfig.Camera.KeepAliveInterval)
	}
}

func TestLoadConfigFromFile_Missing(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestApplyEnv_CameraHostFollowsDerivedValues(t *testing.T) {
	env := map[string]string{
		"RELAY_CAMERA_HOST": "192.168.1.20",
		"RELAY_API_PORT":    "8100",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	config := &PlatformConfig{}
	if err := config.ApplyEnv(lookup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	config.ApplyDefaults()

	if config.APIServerConfig.Port != 8100 {
		t.Errorf("expected port 8100, got %d", config.APIServerConfig.Port)
	}
	if config.StreamConfig.Camera.ManifestURL != "http://192.168.1.20:8080/live/amba.m3u8" {
		t.Errorf("manifest url did not follow host: %q", config.StreamConfig.Camera.ManifestURL)
	}
}

func TestApplyEnv_InvalidPort(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == "RELAY_API_PORT" {
			return "eighty", true
		}
		return "", false
	}

	config := &PlatformConfig{}
	if err := config.ApplyEnv(lookup); err == nil {
		t.Error("expected error for non-numeric port")
	}
}

func TestLoadConfigFromFile_Timeseries(t *testing.T) {
	content := `
timeseries:
  type: docstore
  url: mem://history/id
messaging:
  topicURL: mem://events
`
	config, err := LoadConfigFromFile(writeConfig(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.TimeseriesConfig.Type != "docstore" || config.TimeseriesConfig.URL != "mem://history/id" {
		t.Errorf("unexpected timeseries config %+v", config.TimeseriesConfig)
	}
	if config.MessagingConfig.TopicURL != "mem://events" {
		t.Errorf("unexpected topic url %q", config.MessagingConfig.TopicURL)
	}
}

func TestApplyDefaults_Messaging(t *testing.T) {
	config := &PlatformConfig{}
	config.ApplyDefaults()

	if config.MessagingConfig.TopicURL != "mem://telemetry" {
		t.Errorf("unexpected default topic url %q", config.MessagingConfig.TopicURL)
	}
	if len(config.GatewayConfigs) != 1 || config.GatewayConfigs[0].Port != 5688 {
		t.Errorf("unexpected default gateways %+v", config.GatewayConfigs)
	}
}
