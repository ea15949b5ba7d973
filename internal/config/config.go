package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/krobus00/satoshi/internal/constant"
	"github.com/krobus00/satoshi/internal/entity"
	"github.com/spf13/viper"
)

var (
	ServiceName = constant.ServiceName
)

var (
	Env *EnvConfig
)

type EnvConfig struct {
	Env                     string                    `mapstructure:"env"`
	Log                     LogConfig                 `mapstructure:"log"`
	GracefulShutdownTimeout time.Duration             `mapstructure:"graceful_shutdown_timeout"`
	Exchange                ExchangeConfig            `mapstructure:"exchange"`
	Order                   OrderConfig               `mapstructure:"order"`
	Ledger                  LedgerConfig              `mapstructure:"ledger"`
	Database                map[string]DatabaseConfig `mapstructure:"database"`
	Redis                   map[string]RedisConfig    `mapstructure:"redis"`
	NatsJetstream           NatsJetstreamConfig       `mapstructure:"nats_jetstream"`
}

type LogConfig struct {
	ShowCaller bool   `mapstructure:"show_caller"`
	LogLevel   string `mapstructure:"log_level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxAge     int    `mapstructure:"max_age"` // days, rotation only applies to file output
}

type ExchangeConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIID             string        `mapstructure:"api_id"`
	APISecret         string        `mapstructure:"api_secret"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

func (c ExchangeConfig) Credentials() entity.Credentials {
	return entity.Credentials{
		ID:     strings.TrimSpace(c.APIID),
		Secret: strings.TrimSpace(c.APISecret),
	}
}

type OrderConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	MaxPollAttempts uint64        `mapstructure:"max_poll_attempts"` // 0 means unbounded
	MaxPollDuration time.Duration `mapstructure:"max_poll_duration"` // 0 means unbounded
}

type LedgerConfig struct {
	Dir           string        `mapstructure:"dir"`
	LockTimeout   time.Duration `mapstructure:"lock_timeout"`
	LockTTL       time.Duration `mapstructure:"lock_ttl"` // redis lock only
	MirrorTimeout time.Duration `mapstructure:"mirror_timeout"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	MinJitter       time.Duration `mapstructure:"min_jitter"`
	MaxJitter       time.Duration `mapstructure:"max_jitter"`
	MaxRetry        int           `mapstructure:"max_retry"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxActiveConns  int           `mapstructure:"max_active_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

type RedisConfig struct {
	CacheDSN string `mapstructure:"cache_dsn"`
}

type NatsJetstreamConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	MinJitter  time.Duration `mapstructure:"min_jitter"`
	MaxJitter  time.Duration `mapstructure:"max_jitter"`
	Subject    string        `mapstructure:"subject"`
}

// LoadDotEnv loads a local .env file when running in development. Any other
// environment relies on the ambient process environment only.
func LoadDotEnv() (bool, error) {
	environment := strings.TrimSpace(os.Getenv("ENVIRONMENT"))
	if environment == "" {
		environment = constant.DevelopmentEnvironment
	}
	if environment != constant.DevelopmentEnvironment {
		return false, nil
	}

	err := godotenv.Load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load .env file: %w", err)
	}

	return true, nil
}

func setDefaults() {
	viper.SetDefault("env", constant.DevelopmentEnvironment)
	viper.SetDefault("log.show_caller", false)
	viper.SetDefault("log.log_level", "info")
	viper.SetDefault("log.format", "")
	viper.SetDefault("log.output", "stderr")
	viper.SetDefault("log.max_age", 0)
	viper.SetDefault("graceful_shutdown_timeout", 10*time.Second)

	viper.SetDefault("exchange.base_url", constant.MercadoBitcoinBaseURL)
	viper.SetDefault("exchange.api_id", "")
	viper.SetDefault("exchange.api_secret", "")
	viper.SetDefault("exchange.request_timeout", 15*time.Second)
	viper.SetDefault("exchange.requests_per_second", 3.0)

	viper.SetDefault("order.poll_interval", 5*time.Second)
	viper.SetDefault("order.max_poll_attempts", 0)
	viper.SetDefault("order.max_poll_duration", 0)

	viper.SetDefault("ledger.dir", "orders")
	viper.SetDefault("ledger.lock_timeout", 10*time.Second)
	viper.SetDefault("ledger.lock_ttl", 2*time.Minute)
	viper.SetDefault("ledger.mirror_timeout", 10*time.Second)

	viper.SetDefault("nats_jetstream.url", "")
	viper.SetDefault("nats_jetstream.max_retries", 5)
	viper.SetDefault("nats_jetstream.subject", constant.TradeStreamSubjectFilled)
}

func LoadConfig(configPath string) error {
	viper.Reset()
	setDefaults()

	configPath = strings.TrimSpace(configPath)
	explicitPath := configPath != ""
	if !explicitPath {
		viper.SetConfigName("config")
		viper.SetConfigType("yml")
		viper.AddConfigPath(".")
	} else {
		ext := strings.ToLower(filepath.Ext(configPath))
		if ext == ".yml" || ext == ".yaml" {
			viper.SetConfigFile(configPath)
		} else {
			viper.SetConfigName(filepath.Base(configPath))
			viper.SetConfigType("yml")
			configDir := filepath.Dir(configPath)
			if configDir == "." || configDir == "" {
				viper.AddConfigPath(".")
			} else {
				viper.AddConfigPath(configDir)
			}
		}
	}

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	// plain variable names for the environment and exchange credentials
	_ = viper.BindEnv("env", "ENVIRONMENT", "ENV")
	_ = viper.BindEnv("exchange.api_id", "TAPI_ID")
	_ = viper.BindEnv("exchange.api_secret", "TAPI_SECRET")
	_ = viper.BindEnv("log.log_level", "LOG_LEVEL")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &EnvConfig{}
	err = viper.Unmarshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}
	Env = cfg

	return nil
}
