package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".rbset"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for rbset settings.
const envPrefix = "RBSET"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// FlagBinding maps a config key (e.g. "bench.keys") to a command-line flag.
type FlagBinding struct {
	Key  string
	Flag *pflag.Flag
}

// LoadConfig loads configuration from defaults, file, env vars and flags, in
// increasing precedence. Bound flags only override when set on the command
// line. If configPath is non-empty, it is used as the explicit config file
// path; otherwise .rbset.yaml is searched in CWD and $HOME, and a missing
// file is not an error.
func LoadConfig(configPath string, bindings ...FlagBinding) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	for _, binding := range bindings {
		if binding.Flag == nil {
			continue
		}

		err := viperCfg.BindPFlag(binding.Key, binding.Flag)
		if err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", binding.Flag.Name, err)
		}
	}

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
	viperCfg.SetDefault("bench.keys", DefaultBenchKeys)
	viperCfg.SetDefault("bench.pattern", DefaultBenchPattern)
	viperCfg.SetDefault("bench.seed", DefaultBenchSeed)
	viperCfg.SetDefault("bench.mix", DefaultBenchMix)
	viperCfg.SetDefault("bench.verify_every", DefaultBenchVerifyEvery)
	viperCfg.SetDefault("bench.format", DefaultBenchFormat)

	viperCfg.SetDefault("cache.capacity", DefaultCacheCapacity)
	viperCfg.SetDefault("cache.limit", DefaultCacheLimit)

	viperCfg.SetDefault("soak.duration", DefaultSoakDuration)
	viperCfg.SetDefault("soak.window", DefaultSoakWindow)
	viperCfg.SetDefault("soak.metrics_addr", DefaultSoakMetricsAddr)
	viperCfg.SetDefault("soak.report_interval", DefaultSoakReportInterval)

	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_headers", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("observability.debug_trace", false)
	viperCfg.SetDefault("observability.trace_verbose", false)
	viperCfg.SetDefault("observability.log_level", DefaultLogLevel)
	viperCfg.SetDefault("observability.log_json", false)
	viperCfg.SetDefault("observability.environment", DefaultEnvironment)
}
