package main

import (
	"time"

	"github.com/mlship/mlship/internal/backup"
	"github.com/mlship/mlship/internal/notify"
)

const (
	defaultBranch           = "dev"
	defaultSmokeHostPort    = 5001
	defaultQueryTimeout     = 30 * time.Second
	defaultHistoryRetention = 90 // days, 0 = disabled
	defaultListLimit        = 20
	defaultSMTPPort         = 587
	defaultAuthorName       = "mlship"
	defaultAuthorEmail      = "mlship@localhost"
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	HistoryPath      string        `mapstructure:"history-path"`
	HistoryRetention int           `mapstructure:"history-retention"`
	QueryTimeout     time.Duration `mapstructure:"query-timeout"`

	RegistryNamespace string `mapstructure:"registry-namespace"`
	RegistryUser      string `mapstructure:"registry-user"`
	RegistryPassword  string `mapstructure:"registry-password"`
	DockerConfigPath  string `mapstructure:"docker-config"`

	GitUsername    string `mapstructure:"git-username"`
	GitPassword    string `mapstructure:"git-password"`
	GitAuthorName  string `mapstructure:"git-author-name"`
	GitAuthorEmail string `mapstructure:"git-author-email"`

	SmokeHostPort int `mapstructure:"smoke-host-port"`

	BackupEnabled        bool          `mapstructure:"backup-enabled"`
	BackupInterval       time.Duration `mapstructure:"backup-interval"`
	BackupLocalDir       string        `mapstructure:"backup-local-dir"`
	BackupKeepLast       int           `mapstructure:"backup-keep-last"`
	BackupBucketURL      string        `mapstructure:"backup-bucket-url"`
	BackupS3Endpoint     string        `mapstructure:"backup-s3-endpoint"`
	BackupS3Region       string        `mapstructure:"backup-s3-region"`
	BackupS3AccessKey    string        `mapstructure:"backup-s3-access-key"`
	BackupS3SecretKey    string        `mapstructure:"backup-s3-secret-key"`
	BackupS3SessionToken string        `mapstructure:"backup-s3-session-token"`
	BackupS3UseSSL       bool          `mapstructure:"backup-s3-use-ssl"`

	MailEnabled  bool   `mapstructure:"mail-enabled"`
	MailHost     string `mapstructure:"mail-host"`
	MailPort     int    `mapstructure:"mail-port"`
	MailUsername string `mapstructure:"mail-username"`
	MailPassword string `mapstructure:"mail-password"`
	MailFrom     string `mapstructure:"mail-from"`
	MailAdmin    string `mapstructure:"mail-admin"`

	ConfigPath string `mapstructure:"-"` // not from config file
}

func (c appConfig) backupConfig() backup.Config {
	return backup.Config{
		Enabled:        c.BackupEnabled,
		Interval:       c.BackupInterval,
		LocalDir:       c.BackupLocalDir,
		KeepLast:       c.BackupKeepLast,
		BucketURL:      c.BackupBucketURL,
		S3Endpoint:     c.BackupS3Endpoint,
		S3Region:       c.BackupS3Region,
		S3AccessKey:    c.BackupS3AccessKey,
		S3SecretKey:    c.BackupS3SecretKey,
		S3SessionToken: c.BackupS3SessionToken,
		S3UseSSL:       c.BackupS3UseSSL,
	}
}

func (c appConfig) mailConfig() notify.Config {
	return notify.Config{
		Enabled:  c.MailEnabled,
		Host:     c.MailHost,
		Port:     c.MailPort,
		Username: c.MailUsername,
		Password: c.MailPassword,
		From:     c.MailFrom,
		Admin:    c.MailAdmin,
	}
}
