// Package config loads pydeps settings from defaults, an optional YAML file,
// a .env file and PYDEPS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/pydeps/pkg/catalog"
	"github.com/Sumatoshi-tech/pydeps/pkg/deps"
	"github.com/Sumatoshi-tech/pydeps/pkg/observability"
)

// Sentinel validation errors.
var (
	ErrInvalidPython      = errors.New("invalid catalog python version")
	ErrEmptyInstall       = errors.New("install command must not be empty")
	ErrInvalidMaxFileSize = errors.New("invalid source max file size")
	ErrInvalidFormat      = errors.New("invalid output format")
	ErrInvalidLogLevel    = errors.New("invalid logging level")
	ErrInvalidCacheSize   = errors.New("mcp cache size must be positive")
)

const (
	envPrefix       = "PYDEPS"
	configName      = ".pydeps"
	defaultMaxSize  = "1MiB"
	defaultCacheLen = 128
)

// Config holds all pydeps configuration.
type Config struct {
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Install   InstallConfig   `mapstructure:"install"`
	Source    SourceConfig    `mapstructure:"source"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	MCP       MCPConfig       `mapstructure:"mcp"`
}

// CatalogConfig selects the standard library catalog.
type CatalogConfig struct {
	// Python is "3.N"; empty selects the newest known version.
	Python string `mapstructure:"python"`
	// Extra names are treated as standard library, e.g. first-party packages.
	Extra []string `mapstructure:"extra"`
}

// InstallConfig describes the package manager.
type InstallConfig struct {
	Command   string `mapstructure:"command"`
	Bootstrap string `mapstructure:"bootstrap"`
}

// SourceConfig bounds file reads.
type SourceConfig struct {
	MaxFileSize string `mapstructure:"max_file_size"`
}

// OutputConfig controls rendering and saving.
type OutputConfig struct {
	Directory string `mapstructure:"directory"`
	Format    string `mapstructure:"format"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig controls OTLP export.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string `mapstructure:"otlp_headers"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

// MCPConfig controls the MCP server.
type MCPConfig struct {
	CacheSize int `mapstructure:"cache_size"`
}

// LoadConfig loads configuration. An empty configPath searches for
// .pydeps.yaml in the working directory and then in $HOME.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	viperCfg := viper.New()
	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Install: InstallConfig{Command: deps.DefaultInstallCommand, Bootstrap: deps.DefaultBootstrap},
		Source:  SourceConfig{MaxFileSize: defaultMaxSize},
		Output:  OutputConfig{Directory: ".", Format: deps.FormatText},
		Logging: LoggingConfig{Level: "info"},
		MCP:     MCPConfig{CacheSize: defaultCacheLen},
	}
}

func setDefaults(viperCfg *viper.Viper) {
	def := Default()

	viperCfg.SetDefault("catalog.python", def.Catalog.Python)
	viperCfg.SetDefault("catalog.extra", []string{})

	viperCfg.SetDefault("install.command", def.Install.Command)
	viperCfg.SetDefault("install.bootstrap", def.Install.Bootstrap)

	viperCfg.SetDefault("source.max_file_size", def.Source.MaxFileSize)

	viperCfg.SetDefault("output.directory", def.Output.Directory)
	viperCfg.SetDefault("output.format", def.Output.Format)

	viperCfg.SetDefault("logging.level", def.Logging.Level)
	viperCfg.SetDefault("logging.json", false)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)

	viperCfg.SetDefault("mcp.cache_size", def.MCP.CacheSize)
}

// Validate checks every field that has a constrained value.
func (c *Config) Validate() error {
	if c.Catalog.Python != "" {
		_, err := catalog.ForVersion(c.Catalog.Python)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPython, err)
		}
	}

	if strings.TrimSpace(c.Install.Command) == "" {
		return ErrEmptyInstall
	}

	size, err := humanize.ParseBytes(c.Source.MaxFileSize)
	if err != nil || size == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidMaxFileSize, c.Source.MaxFileSize)
	}

	if !slices.Contains(deps.Formats(), c.Output.Format) {
		return fmt.Errorf("%w: %q (want one of %s)", ErrInvalidFormat, c.Output.Format, strings.Join(deps.Formats(), ", "))
	}

	_, err = observability.ParseLogLevel(c.Logging.Level)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if c.MCP.CacheSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheSize, c.MCP.CacheSize)
	}

	return nil
}

// StdlibCatalog returns the configured catalog including extra names.
func (c *Config) StdlibCatalog() (*catalog.Catalog, error) {
	version := c.Catalog.Python
	if version == "" {
		version = catalog.Latest()
	}

	cat, err := catalog.ForVersion(version)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPython, err)
	}

	if len(c.Catalog.Extra) == 0 {
		return cat, nil
	}

	return cat.With(c.Catalog.Extra...), nil
}

// PackageManager returns the configured install settings.
func (c *Config) PackageManager() deps.PackageManager {
	return deps.PackageManager{
		Command:   strings.TrimSpace(c.Install.Command),
		Bootstrap: strings.TrimSpace(c.Install.Bootstrap),
	}
}

// MaxFileSizeBytes returns the parsed source size limit.
func (c *Config) MaxFileSizeBytes() (uint64, error) {
	size, err := humanize.ParseBytes(c.Source.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidMaxFileSize, err)
	}

	return size, nil
}

// Observability maps logging and telemetry settings onto an observability
// config for the given mode.
func (c *Config) Observability(mode observability.AppMode, version string) observability.Config {
	obs := observability.DefaultConfig()
	obs.Mode = mode
	obs.ServiceVersion = version
	obs.LogJSON = c.Logging.JSON
	obs.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	obs.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	obs.OTLPInsecure = c.Telemetry.OTLPInsecure

	level, err := observability.ParseLogLevel(c.Logging.Level)
	if err == nil {
		obs.LogLevel = level
	}

	return obs
}
