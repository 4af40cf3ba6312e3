package config

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/LdDl/shaderoute"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Dataset DatasetConfig `yaml:"dataset" mapstructure:"dataset"`
	Network NetworkConfig `yaml:"network" mapstructure:"network"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ReadTimeoutSecs  int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs int      `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DatasetConfig describes where exposure zones come from.
type DatasetConfig struct {
	Driver      string  `yaml:"driver" mapstructure:"driver"`
	Dir         string  `yaml:"dir" mapstructure:"dir"`
	Pattern     string  `yaml:"pattern" mapstructure:"pattern"`
	SunField    string  `yaml:"sun_field" mapstructure:"sun_field"`
	ShadeField  string  `yaml:"shade_field" mapstructure:"shade_field"`
	ShadeScale  float64 `yaml:"shade_scale" mapstructure:"shade_scale"`
	SourceSRID  int     `yaml:"source_srid" mapstructure:"source_srid"`
	DatabaseURL string  `yaml:"database_url" mapstructure:"database_url"`
	Table       string  `yaml:"table" mapstructure:"table"`
	// DefaultKey is used by requests without season/period, e.g. "Autunno/Mattina"
	DefaultKey string `yaml:"default_key" mapstructure:"default_key"`
}

// NetworkConfig configures graph construction and routing.
type NetworkConfig struct {
	CRS           string   `yaml:"crs" mapstructure:"crs"`
	SnapTolerance float64  `yaml:"snap_tolerance" mapstructure:"snap_tolerance"`
	Engine        string   `yaml:"engine" mapstructure:"engine"`
	Preload       []string `yaml:"preload" mapstructure:"preload"`
}

const (
	DriverGeoPackage = "gpkg"
	DriverShapefile  = "shp"
	DriverGeoJSON    = "geojson"
	DriverPostGIS    = "postgis"

	EngineDijkstra = "dijkstra"
	EngineCH       = "ch"
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SHADEROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8002)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout_secs", 15)
	v.SetDefault("server.write_timeout_secs", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("dataset.driver", DriverGeoPackage)
	v.SetDefault("dataset.dir", "data")
	v.SetDefault("dataset.pattern", shaderoute.DefaultDatasetPattern)
	v.SetDefault("dataset.sun_field", shaderoute.DefaultSunField)
	v.SetDefault("dataset.shade_field", shaderoute.DefaultShadeField)
	v.SetDefault("dataset.shade_scale", shaderoute.DefaultShadeScale)
	v.SetDefault("dataset.source_srid", shaderoute.SRIDWGS84)
	v.SetDefault("dataset.database_url", "")
	v.SetDefault("dataset.table", shaderoute.DefaultPostGISTable)
	v.SetDefault("dataset.default_key", "")
	v.SetDefault("network.crs", fmt.Sprintf("EPSG:%d", shaderoute.DefaultSRID))
	v.SetDefault("network.snap_tolerance", shaderoute.DefaultSnapTolerance)
	v.SetDefault("network.engine", EngineDijkstra)
	v.SetDefault("network.preload", []string{})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	switch c.Dataset.Driver {
	case DriverGeoPackage, DriverShapefile, DriverGeoJSON:
		if c.Dataset.Dir == "" {
			problems = append(problems, "dataset.dir is required for file drivers")
		}
		if !strings.Contains(c.Dataset.Pattern, "{season}") || !strings.Contains(c.Dataset.Pattern, "{period}") {
			problems = append(problems, "dataset.pattern must contain {season} and {period}")
		}
	case DriverPostGIS:
		if c.Dataset.DatabaseURL == "" {
			problems = append(problems, "dataset.database_url is required for postgis driver")
		}
		if c.Dataset.Table == "" {
			problems = append(problems, "dataset.table is required for postgis driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("dataset.driver '%s' is not one of gpkg, shp, geojson, postgis", c.Dataset.Driver))
	}
	if c.Dataset.ShadeScale <= 0 {
		problems = append(problems, "dataset.shade_scale must be positive")
	}
	if c.Dataset.DefaultKey != "" {
		if _, err := shaderoute.ParseDatasetKey(c.Dataset.DefaultKey); err != nil {
			problems = append(problems, "dataset.default_key: "+err.Error())
		}
	}
	if _, err := c.Network.Projection(); err != nil {
		problems = append(problems, "network.crs: "+err.Error())
	}
	if c.Network.SnapTolerance < 0 {
		problems = append(problems, "network.snap_tolerance must not be negative")
	}
	if c.Network.Engine != EngineDijkstra && c.Network.Engine != EngineCH {
		problems = append(problems, fmt.Sprintf("network.engine '%s' is not one of dijkstra, ch", c.Network.Engine))
	}
	for _, key := range c.Network.Preload {
		if _, err := shaderoute.ParseDatasetKey(key); err != nil {
			problems = append(problems, "network.preload: "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Projection resolves working CRS of networks.
func (c NetworkConfig) Projection() (shaderoute.Projection, error) {
	srid, err := shaderoute.ParseSRID(c.CRS)
	if err != nil {
		return nil, err
	}
	return shaderoute.ProjectionBySRID(srid)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return errors.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return errors.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
