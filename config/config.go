package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Default carrier endpoints
const (
	LetMeShipBaseURL = "https://api.letmeship.com/v1"
	PacklinkBaseURL  = "https://api.packlink.com/v1"
	SendCloudBaseURL = "https://panel.sendcloud.sc/api/v2"
)

// EnvironmentTest selects a carrier's test base URL
const EnvironmentTest = "test"

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Carriers      CarriersConfig      `mapstructure:"carriers"`
	TrackingSweep TrackingSweepConfig `mapstructure:"tracking_sweep"`
	CatalogWatch  CatalogWatchConfig  `mapstructure:"catalog_watch"`
	Log           LogConfig           `mapstructure:"log"`
}

// ServerConfig holds the HTTP entry point configuration
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// DatabaseConfig holds the ERP document store connection
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	LogLevel string `mapstructure:"log_level"`
}

// CarriersConfig groups the per-provider settings
type CarriersConfig struct {
	LetMeShip LetMeShipConfig `mapstructure:"letmeship"`
	Packlink  PacklinkConfig  `mapstructure:"packlink"`
	SendCloud SendCloudConfig `mapstructure:"sendcloud"`
}

// EndpointConfig is shared by all carrier configurations
type EndpointConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Environment string        `mapstructure:"environment"`
	BaseURL     string        `mapstructure:"base_url"`
	TestBaseURL string        `mapstructure:"test_base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// URL returns the base URL for the configured environment
func (e EndpointConfig) URL() string {
	if strings.EqualFold(e.Environment, EnvironmentTest) && e.TestBaseURL != "" {
		return strings.TrimRight(e.TestBaseURL, "/")
	}
	return strings.TrimRight(e.BaseURL, "/")
}

// LetMeShipConfig holds LetMeShip API configuration
type LetMeShipConfig struct {
	EndpointConfig `mapstructure:",squash"`
	APIID          string `mapstructure:"api_id"`
	APIPassword    string `mapstructure:"api_password"`
}

// PacklinkConfig holds Packlink API configuration
type PacklinkConfig struct {
	EndpointConfig `mapstructure:",squash"`
	APIKey         string `mapstructure:"api_key"`
}

// SendCloudConfig holds SendCloud API configuration
type SendCloudConfig struct {
	EndpointConfig `mapstructure:",squash"`
	APIKey         string `mapstructure:"api_key"`
	APISecret      string `mapstructure:"api_secret"`
}

// TrackingSweepConfig holds the daily tracking refresh schedule
type TrackingSweepConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Hour          int           `mapstructure:"hour"`
	Minute        int           `mapstructure:"minute"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// CatalogWatchConfig holds the parcel service catalog drop directory
type CatalogWatchConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Directory    string `mapstructure:"directory"`
	FilePattern  string `mapstructure:"file_pattern"`
	ProcessedDir string `mapstructure:"processed_dir"`
	FailedDir    string `mapstructure:"failed_dir"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	EnableFile bool   `mapstructure:"enable_file"`
}

// LoadConfig loads application configuration. When onChange is not nil it is
// called with the freshly decoded configuration every time the file changes.
func LoadConfig(filePath string, onChange func(*Config, error)) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filePath)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	config, err := decode(v)
	if err != nil {
		return nil, err
	}

	if onChange != nil {
		v.OnConfigChange(func(e fsnotify.Event) {
			if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				return
			}
			onChange(decode(v))
		})
		v.WatchConfig()
	}

	return config, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "shipping.db")
	v.SetDefault("database.log_level", "warn")

	// Carrier defaults
	v.SetDefault("carriers.letmeship.base_url", LetMeShipBaseURL)
	v.SetDefault("carriers.letmeship.environment", "production")
	v.SetDefault("carriers.letmeship.timeout", 30*time.Second)
	v.SetDefault("carriers.packlink.base_url", PacklinkBaseURL)
	v.SetDefault("carriers.packlink.environment", "production")
	v.SetDefault("carriers.packlink.timeout", 30*time.Second)
	v.SetDefault("carriers.sendcloud.base_url", SendCloudBaseURL)
	v.SetDefault("carriers.sendcloud.environment", "production")
	v.SetDefault("carriers.sendcloud.timeout", 30*time.Second)

	// Daily sweep at 02:00
	v.SetDefault("tracking_sweep.enabled", true)
	v.SetDefault("tracking_sweep.hour", 2)
	v.SetDefault("tracking_sweep.minute", 0)
	v.SetDefault("tracking_sweep.check_interval", time.Minute)

	v.SetDefault("catalog_watch.enabled", false)
	v.SetDefault("catalog_watch.directory", "catalog")
	v.SetDefault("catalog_watch.file_pattern", "^parcel_services.*\\.csv$")
	v.SetDefault("catalog_watch.processed_dir", "catalog/processed")
	v.SetDefault("catalog_watch.failed_dir", "catalog/failed")

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.enable_file", false)
}
