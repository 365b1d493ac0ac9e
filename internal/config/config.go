package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	S3         S3Config         `mapstructure:"s3"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Generation GenerationConfig `mapstructure:"generation"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Redis      RedisConfig      `mapstructure:"redis"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"` // development | production
}

// DatabaseConfig selects the persistence backend. Driver "memory" keeps
// everything in process and is meant for local runs and tests.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	URI          string `mapstructure:"uri"`
	Name         string `mapstructure:"name"`
	Transactions bool   `mapstructure:"transactions"` // requires a replica set
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// GenerationConfig bounds the lifecycle of generation jobs.
type GenerationConfig struct {
	JobTimeout    time.Duration `mapstructure:"job_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// WorkerInProcess as worker.url runs the built-in echo generator instead of
// calling out, for local runs without a real worker.
const WorkerInProcess = "inprocess"

// WorkerConfig describes how to reach the external generation worker and
// how its callbacks (and the other collaborators) authenticate to us.
type WorkerConfig struct {
	URL             string        `mapstructure:"url"`
	Token           string        `mapstructure:"token"`
	CallbackBaseURL string        `mapstructure:"callback_base_url"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"`
	InProcessDelay  time.Duration `mapstructure:"inprocess_delay"`
}

type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	Channel string `mapstructure:"channel"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS, generation.job_timeout -> GENERATION_JOB_TIMEOUT
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		// Running on defaults + env only.
		err = nil
	} else if err != nil {
		return
	}

	// Durations are parsed from strings like "90s" or "10m".
	err = v.Unmarshal(&config)
	if err != nil {
		return
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("log.mode", "development")
	v.SetDefault("database.driver", "mongo")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "coaching_app")
	v.SetDefault("database.transactions", true)
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("jwt.expiration", "1h")
	v.SetDefault("generation.job_timeout", "10m")
	v.SetDefault("generation.sweep_interval", "15s")
	v.SetDefault("worker.callback_base_url", "http://localhost:8080/api/v1")
	v.SetDefault("worker.dispatch_timeout", "30s")
	v.SetDefault("worker.inprocess_delay", "2s")
	v.SetDefault("redis.channel", "generation-jobs")

	// Keys without a default are only visible to Unmarshal when bound.
	for _, key := range []string{
		"s3.endpoint", "s3.region", "s3.access_key_id", "s3.secret_access_key", "s3.bucket_name",
		"jwt.secret", "worker.url", "worker.token", "redis.addr",
	} {
		_ = v.BindEnv(key)
	}
}
