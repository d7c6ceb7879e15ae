package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

type Config struct {
	LogLevel       string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort       string        `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	HistoryLimit   int           `yaml:"history-limit" env:"HISTORY_LIMIT" env-default:"10"`
	SessionIdleTTL time.Duration `yaml:"session-idle-ttl" env:"SESSION_IDLE_TTL" env-default:"30m"`
	Storage        Storage       `yaml:"storage"`
	Redis          Redis         `yaml:"redis"`
	SQLite         SQLite        `yaml:"sqlite"`
	CPU            CPU           `yaml:"cpu"`
	Gemini         Gemini        `yaml:"gemini"`
}

type Storage struct {
	Type string `yaml:"type" env:"STORAGE_TYPE" env-default:"memory"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type SQLite struct {
	Path string `yaml:"path" env:"SQLITE_PATH" env-default:"tictactoe.db"`
}

type CPU struct {
	// Offline keeps the CPU on its rules even when Gemini is configured.
	Offline        bool          `yaml:"offline" env:"CPU_OFFLINE"`
	SuggestTimeout time.Duration `yaml:"suggest-timeout" env:"CPU_SUGGEST_TIMEOUT" env-default:"3s"`
	ReflectTimeout time.Duration `yaml:"reflect-timeout" env:"CPU_REFLECT_TIMEOUT" env-default:"10s"`
}

type Gemini struct {
	APIKey  string `yaml:"api-key" env:"GEMINI_API_KEY" env-default:""`
	Project string `yaml:"project" env:"GCP_PROJECT_ID" env-default:""`
	Region  string `yaml:"region" env:"GCP_REGION" env-default:""`
	Model   string `yaml:"model" env:"GEMINI_MODEL" env-default:"gemini-2.5-flash"`
}

// Enabled reports whether enough credentials are set to build a client.
func (that *Gemini) Enabled() bool {
	return that.APIKey != "" || that.Project != ""
}

// Load reads the yaml file at path with env overrides. A missing file means env only.
func Load(path string) (*Config, error) {
	config := &Config{}

	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err = cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to read env config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("unable to stat config file: %w", err)
	default:
		if err = cleanenv.ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("unable to load config file: %w", err)
		}
	}

	return config, nil
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
