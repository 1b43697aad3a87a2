// Package config loads piecewise settings from defaults, an optional config
// file, PIECEWISE_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/wbrown/piecewise"
)

const EnvPrefix = "PIECEWISE"

type Config struct {
	Model      ModelConfig             `mapstructure:"model" toml:"model"`
	Encoder    piecewise.EncoderConfig `mapstructure:"encoder" toml:"encoder"`
	Normalizer piecewise.Normalizer    `mapstructure:"normalizer" toml:"normalizer"`
	Cache      CacheConfig             `mapstructure:"cache" toml:"cache"`
	Server     ServerConfig            `mapstructure:"server" toml:"server"`
	Batch      BatchConfig             `mapstructure:"batch" toml:"batch"`
	LogLevel   string                  `mapstructure:"log_level" toml:"log_level"`
	LogFormat  string                  `mapstructure:"log_format" toml:"log_format"`
}

type ModelConfig struct {
	// Path is a local .pwv file or an http(s) URL.
	Path string `mapstructure:"path" toml:"path"`
	// Dir receives downloaded models.
	Dir  string `mapstructure:"dir" toml:"dir"`
	Auth string `mapstructure:"auth" toml:"auth,omitempty"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled" toml:"enabled"`
	Size    int  `mapstructure:"size" toml:"size"`
}

type ServerConfig struct {
	ListenAddr    string `mapstructure:"listen_addr" toml:"listen_addr"`
	MaxBodyBytes  int64  `mapstructure:"max_body_bytes" toml:"max_body_bytes"`
	MaxConcurrent int    `mapstructure:"max_concurrent" toml:"max_concurrent"`
	MaxLength     int    `mapstructure:"max_length" toml:"max_length"`
}

type BatchConfig struct {
	Format      string `mapstructure:"format" toml:"format"`
	Concurrency int    `mapstructure:"concurrency" toml:"concurrency"`
	OutputDir   string `mapstructure:"output_dir" toml:"output_dir"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Model: ModelConfig{
			Path: "model.pwv",
			Dir:  "models",
		},
		Encoder:    *piecewise.DefaultEncoderConfig(),
		Normalizer: *piecewise.DefaultNormalizer(),
		Cache: CacheConfig{
			Enabled: true,
			Size:    piecewise.DefaultCacheSize,
		},
		Server: ServerConfig{
			ListenAddr:    ":8080",
			MaxBodyBytes:  1 << 20,
			MaxConcurrent: 64,
			MaxLength:     4096,
		},
		Batch: BatchConfig{
			Format:      "json",
			Concurrency: 4,
			OutputDir:   "",
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"model-path":            "model.path",
	"model-dir":             "model.dir",
	"model-auth":            "model.auth",
	"start-code":            "encoder.start_code",
	"end-code":              "encoder.end_code",
	"encoding-offset":       "encoder.encoding_offset",
	"add-dummy-prefix":      "normalizer.add_dummy_prefix",
	"remove-extra-spaces":   "normalizer.remove_extra_whitespaces",
	"escape-whitespaces":    "normalizer.escape_whitespaces",
	"cache":                 "cache.enabled",
	"cache-size":            "cache.size",
	"server-listen-addr":    "server.listen_addr",
	"server-max-body-bytes": "server.max_body_bytes",
	"server-max-concurrent": "server.max_concurrent",
	"server-max-length":     "server.max_length",
	"batch-format":          "batch.format",
	"batch-concurrency":     "batch.concurrency",
	"batch-output-dir":      "batch.output_dir",
	"log-level":             "log_level",
	"log-format":            "log_format",
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("model-path", defaults.Model.Path, "Model file or http(s) URL")
	fs.String("model-dir", defaults.Model.Dir, "Directory for downloaded models")
	fs.String("model-auth", defaults.Model.Auth, "Bearer token for model downloads")
	fs.Int32("start-code", defaults.Encoder.StartCode, "Code emitted before every encoding")
	fs.Int32("end-code", defaults.Encoder.EndCode, "Code emitted after every encoding")
	fs.Int32("encoding-offset", defaults.Encoder.EncodingOffset, "Offset added to piece ids")
	fs.Bool("add-dummy-prefix", defaults.Normalizer.AddDummyPrefix, "Prefix text with a space before encoding")
	fs.Bool("remove-extra-spaces", defaults.Normalizer.RemoveExtraWhitespaces, "Collapse runs of whitespace")
	fs.Bool("escape-whitespaces", defaults.Normalizer.EscapeWhitespaces, "Replace spaces with "+piecewise.WhitespaceEscape)
	fs.Bool("cache", defaults.Cache.Enabled, "Cache encodings")
	fs.Int("cache-size", defaults.Cache.Size, "Number of cached encodings")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int64("server-max-body-bytes", defaults.Server.MaxBodyBytes, "Largest accepted request body")
	fs.Int("server-max-concurrent", defaults.Server.MaxConcurrent, "Concurrent encode requests")
	fs.Int("server-max-length", defaults.Server.MaxLength, "Largest max_length a batch request may ask for")
	fs.String("batch-format", defaults.Batch.Format, "Batch output format (json|msgpack|cbor|bin16|bin32)")
	fs.Int("batch-concurrency", defaults.Batch.Concurrency, "Files encoded in parallel")
	fs.String("batch-output-dir", defaults.Batch.OutputDir, "Batch output directory, next to inputs when empty")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("log-format", defaults.LogFormat, "Log format (text|json|logfmt)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("piecewise")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("model.path", c.Model.Path)
	v.SetDefault("model.dir", c.Model.Dir)
	v.SetDefault("model.auth", c.Model.Auth)
	v.SetDefault("encoder.start_code", c.Encoder.StartCode)
	v.SetDefault("encoder.end_code", c.Encoder.EndCode)
	v.SetDefault("encoder.encoding_offset", c.Encoder.EncodingOffset)
	v.SetDefault("normalizer.add_dummy_prefix", c.Normalizer.AddDummyPrefix)
	v.SetDefault("normalizer.remove_extra_whitespaces", c.Normalizer.RemoveExtraWhitespaces)
	v.SetDefault("normalizer.escape_whitespaces", c.Normalizer.EscapeWhitespaces)
	v.SetDefault("cache.enabled", c.Cache.Enabled)
	v.SetDefault("cache.size", c.Cache.Size)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.max_body_bytes", c.Server.MaxBodyBytes)
	v.SetDefault("server.max_concurrent", c.Server.MaxConcurrent)
	v.SetDefault("server.max_length", c.Server.MaxLength)
	v.SetDefault("batch.format", c.Batch.Format)
	v.SetDefault("batch.concurrency", c.Batch.Concurrency)
	v.SetDefault("batch.output_dir", c.Batch.OutputDir)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_format", c.LogFormat)
}

// Save writes cfg to path as TOML.
func Save(path string, cfg Config) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		file.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return file.Close()
}
