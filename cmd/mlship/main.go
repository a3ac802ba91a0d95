package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `mlship - ML delivery pipeline

Usage:
  mlship run       run the deploy pipeline (checkout, build, smoke-test, publish, deploy)
  mlship branches  create and push the dev/test/master delivery branches
  mlship runs      list recorded pipeline runs
  mlship version   print version information

Run 'mlship <command> -h' for command flags.
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = cmdRun(os.Args[2:])
	case "branches":
		err = cmdBranches(os.Args[2:])
	case "runs":
		err = cmdRuns(os.Args[2:])
	case "version":
		fmt.Printf("mlship - ML Delivery Pipeline\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	defaultHistoryPath := filepath.Join(home, ".local", "share", "mlship", "history.duckdb")

	v := viper.New()
	v.SetEnvPrefix("MLSHIP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("history-path", defaultHistoryPath)
	v.SetDefault("history-retention", defaultHistoryRetention)
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("registry-namespace", "")
	v.SetDefault("docker-config", filepath.Join(home, ".docker", "config.json"))
	v.SetDefault("git-author-name", defaultAuthorName)
	v.SetDefault("git-author-email", defaultAuthorEmail)
	v.SetDefault("smoke-host-port", defaultSmokeHostPort)
	v.SetDefault("mail-enabled", false)
	v.SetDefault("mail-port", defaultSMTPPort)
	v.SetDefault("backup-enabled", false)
	v.SetDefault("backup-local-dir", filepath.Join(home, ".local", "share", "mlship", "backups"))
	v.SetDefault("backup-s3-use-ssl", true)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		defaultConfigPath := filepath.Join(home, ".config", "mlship", "config.yml")
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

	// Expand ~ in history-path
	if strings.HasPrefix(cfg.HistoryPath, "~/") {
		cfg.HistoryPath = filepath.Join(home, cfg.HistoryPath[2:])
	}

	if cfg.SmokeHostPort <= 0 || cfg.SmokeHostPort > 65535 {
		return cfg, fmt.Errorf("invalid smoke-host-port: %d", cfg.SmokeHostPort)
	}

	return cfg, nil
}
