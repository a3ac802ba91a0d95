package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/mlship/mlship/internal/forest"
	"github.com/mlship/mlship/internal/httpserver"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/mlship/service.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("mlshipd - Model Service\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := runService(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runService(cfg serviceConfig) error {
	manager := forest.NewManager(cfg.ModelPath, cfg.DataPath, cfg.datasetConfig(), cfg.modelConfig())
	if err := manager.LoadOrTrain(); err != nil {
		return fmt.Errorf("prepare model: %w", err)
	}

	srv := httpserver.NewServer(cfg.Addr, manager)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start model service: %w", err)
	}
	defer srv.Stop()

	logrus.WithFields(logrus.Fields{
		"addr":  cfg.Addr,
		"group": cfg.Group,
	}).Info("model service listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logrus.Info("shutting down")
	return nil
}

func loadConfig(configPath string) (serviceConfig, error) {
	var cfg serviceConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	model := forest.DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("MLSHIPD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("host", defaultBindHost)
	v.SetDefault("port", defaultPort)
	v.SetDefault("group", "group_1")
	v.SetDefault("model-path", "models/model.gob")
	v.SetDefault("data-path", "data/dataset.csv")
	v.SetDefault("trees", model.Trees)
	v.SetDefault("max-depth", model.MaxDepth)
	v.SetDefault("min-samples-split", model.MinSamplesSplit)
	v.SetDefault("min-samples-leaf", model.MinSamplesLeaf)
	v.SetDefault("seed", model.Seed)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		defaultConfigPath := filepath.Join(home, ".config", "mlship", "service.yml")
		v.SetConfigFile(defaultConfigPath)
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Addr == "" {
		cfg.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}

	return cfg, nil
}
