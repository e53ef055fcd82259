package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// SceneConfig holds scene backend selection and settings.
type SceneConfig struct {
	Backend   string          `json:"backend" mapstructure:"backend"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// WebSocketConfig holds the streaming scene backend settings.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// Load reads configuration from a JSON file and sets default values.
// configDir is the directory containing the config file. A missing file is
// not an error; defaults apply.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./geosynclogs")

	viper.SetDefault("api.baseUrl", "https://api.inaturalist.org/v1")
	viper.SetDefault("api.maxResults", 100)
	viper.SetDefault("api.timeout", "30s")

	viper.SetDefault("sync.cooldown", "1s")
	viper.SetDefault("sync.tickInterval", "250ms")
	viper.SetDefault("sync.movementThreshold", 500.0)
	viper.SetDefault("sync.centerThreshold", 250.0)
	viper.SetDefault("sync.zoomThreshold", 0.5)
	viper.SetDefault("sync.referenceZoom", 16.0)
	viper.SetDefault("sync.baseRadius", 2000.0)
	viper.SetDefault("sync.minRadius", 200.0)
	viper.SetDefault("sync.maxRadius", 20000.0)

	viper.SetDefault("proximity.captureRadius", 3.0)
	viper.SetDefault("proximity.hideRadius", 10.0)

	viper.SetDefault("entity.template", "observation_marker")
	viper.SetDefault("entity.verticalOffset", 1.0)

	viper.SetDefault("scene.backend", "memory")
	viper.SetDefault("scene.websocket.url", "ws://localhost:5001/scene")
	viper.SetDefault("scene.websocket.secret", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "geosync-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName("geosync.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat returns a float64 config value.
func GetFloat(key string) float64 {
	return viper.GetFloat64(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// Scene returns the scene backend configuration.
func Scene() SceneConfig {
	return SceneConfig{
		Backend: viper.GetString("scene.backend"),
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("scene.websocket.url"),
			Secret: viper.GetString("scene.websocket.secret"),
		},
	}
}
