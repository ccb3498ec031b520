package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spicery/tmscope/internal/config"
	"github.com/spicery/tmscope/internal/logging"
	"github.com/spicery/tmscope/pkg/registry"
)

const version = "0.1.0"

// app is the state shared by all subcommands once flags are parsed.
type app struct {
	cfgFile     string
	logLevel    string
	grammarDirs []string

	cfg config.Config
	log *zap.Logger
	reg *registry.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:          "tmscope",
		Short:        "Tokenize documents into TextMate scope spans",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (YAML)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	cmd.PersistentFlags().StringSliceVarP(&a.grammarDirs, "grammar-dir", "g", nil, "directory of grammar files, may be repeated")

	cmd.AddCommand(newTokenizeCmd(a))
	cmd.AddCommand(newStyleCmd(a))
	cmd.AddCommand(newGrammarsCmd(a))
	cmd.AddCommand(newDumpCmd(a))
	return cmd
}

// init loads the configuration, builds the logger and fills the registry
// from the configured grammar directories.
func (a *app) init() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	cfg.GrammarDirs = append(cfg.GrammarDirs, a.grammarDirs...)
	a.cfg = cfg

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.log = log

	a.reg = registry.New(registry.Options{
		Pattern:   cfg.PatternOptions(),
		Tokenizer: cfg.TokenizerOptions(),
		Logger:    log,
	})
	for _, dir := range cfg.GrammarDirs {
		n, err := a.reg.AddDirectory(dir)
		if err != nil {
			return err
		}
		log.Debug("grammar directory added", zap.String("dir", dir), zap.Int("grammars", n))
	}
	return nil
}

// themePath returns the theme given on the command line or configured.
func (a *app) themePath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if a.cfg.Theme != "" {
		return a.cfg.Theme, nil
	}
	return "", errors.New("no theme given: use --theme or set theme in the config")
}
