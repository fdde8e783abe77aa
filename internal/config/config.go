package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Feed     FeedConfig     `mapstructure:"feed"`
}

type ServerConfig struct {
	Address     string   `mapstructure:"address"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // mongo | memory
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
}

// StorageConfig selects the asset store. SignedURLTemplate, when set, is used
// for direct-to-storage upload URLs regardless of driver.
type StorageConfig struct {
	Driver            string `mapstructure:"driver"` // s3 | local
	LocalDir          string `mapstructure:"local_dir"`
	PublicBaseURL     string `mapstructure:"public_base_url"`
	SignedURLTemplate string `mapstructure:"signed_url_template"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"` // duration string in yaml, e.g. "24h"
}

// LogConfig controls the logrus logger and its lumberjack file rotation.
type LogConfig struct {
	Level      string `mapstructure:"level"`  // trace, debug, info, warn, error
	Format     string `mapstructure:"format"` // text | json
	Output     string `mapstructure:"output"` // stdout | file | both
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// FeedConfig caps feed reads. These are page-size ceilings, not pagination.
type FeedConfig struct {
	Limit     int `mapstructure:"limit"`
	MineLimit int `mapstructure:"mine_limit"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory is loaded into the environment first.
func LoadConfig(path string) (config Config, err error) {
	if err = godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config, err
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS, jwt.expiration -> JWT_EXPIRATION
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		// No file is fine, defaults and env vars still apply
		err = nil
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	return config, nil
}

// Every key gets a default so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "mongo")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "reels_app")

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local_dir", "./data/media")
	v.SetDefault("storage.public_base_url", "http://localhost:8080/media")
	v.SetDefault("storage.signed_url_template", "")

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.public_base_url", "")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", "24h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "./logs/reels-api.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.compress", true)

	v.SetDefault("feed.limit", 80)
	v.SetDefault("feed.mine_limit", 100)
}
