package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	CORSOrigin      string        `mapstructure:"cors_origin"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address for the HTTP server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level"`
	Dir   string `mapstructure:"dir"`
	File  string `mapstructure:"file"`
}

type TrackerConfig struct {
	Driver    string `mapstructure:"driver"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RealtimeConfig struct {
	Driver  string `mapstructure:"driver"`
	Channel string `mapstructure:"channel"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Enabled reports whether events should be exported to kafka
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type SMTPConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address"`
	BaseURL     string `mapstructure:"base_url"`
}

type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	PublicURL string `mapstructure:"public_url"`
}

type LLMConfig struct {
	URL     string        `mapstructure:"url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RecommendationConfig struct {
	SearchURL string `mapstructure:"search_url"`
}

type AgentConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type Config struct {
	Server          ServerConfig         `mapstructure:"server"`
	Database        DatabaseConfig       `mapstructure:"database"`
	Auth            AuthConfig           `mapstructure:"auth"`
	Logger          LoggerConfig         `mapstructure:"logger"`
	Tracker         TrackerConfig        `mapstructure:"tracker"`
	Redis           RedisConfig          `mapstructure:"redis"`
	Realtime        RealtimeConfig       `mapstructure:"realtime"`
	Kafka           KafkaConfig          `mapstructure:"kafka"`
	SMTP            SMTPConfig           `mapstructure:"smtp"`
	Storage         StorageConfig        `mapstructure:"storage"`
	LLM             LLMConfig            `mapstructure:"llm"`
	Recommendations RecommendationConfig `mapstructure:"recommendations"`
	Agent           AgentConfig          `mapstructure:"agent"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load reads .env (if present), configs/config.yaml (if present) and
// TRIAGE_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")

	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// comma separated broker lists from the environment
	if len(cfg.Kafka.Brokers) == 1 && strings.Contains(cfg.Kafka.Brokers[0], ",") {
		cfg.Kafka.Brokers = strings.Split(cfg.Kafka.Brokers[0], ",")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	appConfigMu.Lock()
	appConfig = &cfg
	appConfigMu.Unlock()

	return &cfg, nil
}

// Get returns the last loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Tracker.Driver {
	case "database", "redis":
	default:
		return fmt.Errorf("unsupported tracker driver %q", c.Tracker.Driver)
	}
	if c.Tracker.Driver == "redis" && c.Redis.Addr == "" {
		return errors.New("tracker driver redis requires redis.addr")
	}
	switch c.Realtime.Driver {
	case "memory":
	case "postgres":
		if c.Database.Driver != "postgres" {
			return errors.New("realtime driver postgres requires the postgres database driver")
		}
	default:
		return fmt.Errorf("unsupported realtime driver %q", c.Realtime.Driver)
	}
	if c.Auth.JWTSecret == "" && c.Server.Mode != "debug" {
		return errors.New("auth.jwt_secret is required outside debug mode")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors_origin", "http://localhost:5173")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=triagedesk port=5432 sslmode=disable")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.log_level", "error")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("logger.level", "INFO")
	v.SetDefault("logger.dir", "logs")
	v.SetDefault("logger.file", "triagedesk.log")

	v.SetDefault("tracker.driver", "database")
	v.SetDefault("tracker.key_prefix", "triage:tracker:")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("realtime.driver", "memory")
	v.SetDefault("realtime.channel", "triage_events")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "triage.events")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from_address", "noreply@triagedesk.local")
	v.SetDefault("smtp.base_url", "http://localhost:5173")

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket", "avatars")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.public_url", "")

	v.SetDefault("llm.url", "http://localhost:11434")
	v.SetDefault("llm.model", "llama3")
	v.SetDefault("llm.timeout", 120*time.Second)

	v.SetDefault("recommendations.search_url", "https://duckduckgo.com/?q=")

	v.SetDefault("agent.timeout", 15*time.Second)
}
