package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".dirscan"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for dirscan settings.
const envPrefix = "DIRSCAN"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("scan.threads", DefaultScanThreads)
	viperCfg.SetDefault("scan.ignore_hidden", DefaultScanIgnoreHidden)
	viperCfg.SetDefault("scan.actual_size", DefaultScanActualSize)
	viperCfg.SetDefault("scan.format", DefaultScanFormat)
	viperCfg.SetDefault("scan.group_depth", DefaultScanGroupDepth)
	viperCfg.SetDefault("scan.unsorted", DefaultScanUnsorted)
	viperCfg.SetDefault("scan.compress", DefaultScanCompress)
	viperCfg.SetDefault("scan.buffer_size", DefaultScanBufferSize)
	viperCfg.SetDefault("scan.progress_interval", DefaultScanProgressInterval)
	viperCfg.SetDefault("scan.metrics_addr", DefaultScanMetricsAddr)

	viperCfg.SetDefault("parse.depth", DefaultParseDepth)
	viperCfg.SetDefault("parse.prefix", DefaultParsePrefix)
	viperCfg.SetDefault("parse.format", DefaultParseFormat)
	viperCfg.SetDefault("parse.sort", DefaultParseSort)
	viperCfg.SetDefault("parse.limit", DefaultParseLimit)
	viperCfg.SetDefault("parse.output", DefaultParseOutput)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.endpoint", DefaultTelemetryEndpoint)
	viperCfg.SetDefault("telemetry.insecure", DefaultTelemetryInsecure)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultTelemetrySampleRatio)
}
