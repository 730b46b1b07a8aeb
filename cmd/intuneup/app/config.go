package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/realgarit/intuneup/pkg/constants"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Graph connection
	GraphBaseURL   string
	GraphV1BaseURL string
	AccessToken    string
	HTTPTimeout    time.Duration
	WriteRateLimit float64

	// Golden standard parameters
	CustomerName         string
	FeatureUpdateVersion string
	QualityUpdateRelease string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (INTUNEUP_* or bare names)
// 3. .env files
// 4. Config file (~/.intuneup.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	return loadConfig(viper.New(), "")
}

// LoadConfigFile loads configuration like LoadConfig, reading path as the
// config file.
func LoadConfigFile(path string) (*Config, error) {
	return loadConfig(viper.New(), path)
}

func loadConfig(v *viper.Viper, configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v.SetEnvPrefix("INTUNEUP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	bindEnv(v)

	v.SetDefault("graph_base_url", constants.GraphBetaURL)
	v.SetDefault("graph_v1_base_url", constants.GraphV1URL)
	v.SetDefault("http_timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("write_rate_limit", constants.DefaultWriteRateLimit)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".intuneup")
		// Read config file (ignore error if not found)
		_ = v.ReadInConfig()
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		GraphBaseURL:   v.GetString("graph_base_url"),
		GraphV1BaseURL: v.GetString("graph_v1_base_url"),
		AccessToken:    strings.TrimSpace(v.GetString("access_token")),
		HTTPTimeout:    v.GetDuration("http_timeout"),
		WriteRateLimit: v.GetFloat64("write_rate_limit"),

		CustomerName:         v.GetString("customer_name"),
		FeatureUpdateVersion: v.GetString("feature_update_version"),
		QualityUpdateRelease: v.GetString("quality_update_release"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	return config, nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = c.Verbose || verbose
	c.Quiet = c.Quiet || quiet
	c.NoColor = c.NoColor || noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env; neither overrides the real environment.
func loadEnvFiles() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
}

// bindEnv binds the keys whose environment names do not follow the
// INTUNEUP_ prefix.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("access_token", "INTUNEUP_ACCESS_TOKEN", constants.EnvAccessToken)
	_ = v.BindEnv("customer_name", constants.EnvCustomerName, "CUSTOMER_NAME")
	_ = v.BindEnv("log_level", "INTUNEUP_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log_format", "INTUNEUP_LOG_FORMAT", "LOG_FORMAT")
	_ = v.BindEnv("log_output", "INTUNEUP_LOG_OUTPUT", "LOG_OUTPUT")
	_ = v.BindEnv("no_color", "INTUNEUP_NO_COLOR", "NO_COLOR")
}
