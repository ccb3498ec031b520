// Package config provides configuration types and defaults for tmscope.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/spicery/tmscope/pkg/pattern"
	"github.com/spicery/tmscope/pkg/tokenizer"
)

// EnvPrefix prefixes environment overrides, e.g. TMSCOPE_LOG_LEVEL or
// TMSCOPE_TOKENIZER_MAX_DEPTH.
const EnvPrefix = "TMSCOPE"

// Config holds all configuration options for tmscope.
type Config struct {
	GrammarDirs []string        `mapstructure:"grammar_dirs"`
	Theme       string          `mapstructure:"theme"`
	LogLevel    string          `mapstructure:"log_level"`
	Tokenizer   TokenizerConfig `mapstructure:"tokenizer"`
}

// TokenizerConfig holds pattern compilation and tokenization limits.
type TokenizerConfig struct {
	MaxIterations     int           `mapstructure:"max_iterations"`
	MaxDepth          int           `mapstructure:"max_depth"`
	MatchTimeout      time.Duration `mapstructure:"match_timeout"`
	ApproximateAtomic bool          `mapstructure:"approximate_atomic"`
	DisableCache      bool          `mapstructure:"disable_cache"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		LogLevel: "warn",
		Tokenizer: TokenizerConfig{
			MaxIterations: tokenizer.DefaultMaxIterations,
			MaxDepth:      tokenizer.DefaultMaxDepth,
			MatchTimeout:  time.Second,
		},
	}
}

// Load reads the configuration file at path, if any, over the defaults and
// applies environment overrides. An empty path loads defaults and the
// environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("grammar_dirs", d.GrammarDirs)
	v.SetDefault("theme", d.Theme)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("tokenizer.max_iterations", d.Tokenizer.MaxIterations)
	v.SetDefault("tokenizer.max_depth", d.Tokenizer.MaxDepth)
	v.SetDefault("tokenizer.match_timeout", d.Tokenizer.MatchTimeout)
	v.SetDefault("tokenizer.approximate_atomic", d.Tokenizer.ApproximateAtomic)
	v.SetDefault("tokenizer.disable_cache", d.Tokenizer.DisableCache)
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	if c.Tokenizer.MaxIterations <= 0 {
		return fmt.Errorf("tokenizer.max_iterations must be positive, got %d", c.Tokenizer.MaxIterations)
	}
	if c.Tokenizer.MaxDepth <= 0 {
		return fmt.Errorf("tokenizer.max_depth must be positive, got %d", c.Tokenizer.MaxDepth)
	}
	if c.Tokenizer.MatchTimeout < 0 {
		return fmt.Errorf("tokenizer.match_timeout must not be negative, got %s", c.Tokenizer.MatchTimeout)
	}
	return nil
}

// PatternOptions returns the pattern compiler settings.
func (c Config) PatternOptions() pattern.Options {
	return pattern.Options{
		ApproximateAtomic: c.Tokenizer.ApproximateAtomic,
		MatchTimeout:      c.Tokenizer.MatchTimeout,
	}
}

// TokenizerOptions returns the pass limits. Resolver and logger are left
// for the caller.
func (c Config) TokenizerOptions() tokenizer.Options {
	return tokenizer.Options{
		MaxIterations: c.Tokenizer.MaxIterations,
		MaxDepth:      c.Tokenizer.MaxDepth,
		DisableCache:  c.Tokenizer.DisableCache,
	}
}
