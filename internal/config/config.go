package config

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	PostgresHost            string `mapstructure:"postgres_host"              validate:"required"`
	PostgresUsername        string `mapstructure:"postgres_username"          validate:"required"`
	PostgresPassword        string `mapstructure:"postgres_password"          validate:"required"`
	PostgresPort            string `mapstructure:"postgres_port"              validate:"required"`
	PostgresDatabase        string `mapstructure:"postgres_database"          validate:"required"`
	DBConnectMaxAttempts    uint   `mapstructure:"db_connect_max_attempts"`
	DBConnectRetryBackoff   int    `mapstructure:"db_connect_retry_backoff"`
	DBIntervalCB            uint32 `mapstructure:"db_interval_cb"`
	DBConsecutiveFailuresCB uint32 `mapstructure:"db_consecutive_failures_cb"`

	LogLevel    string `mapstructure:"log_level"`
	LogFilePath string `mapstructure:"log_file_path"`

	HTTPPort    string `mapstructure:"http_port"`
	HTTPTimeout int    `mapstructure:"http_timeout"`

	PrometheusPort    string `mapstructure:"prometheus_port"`
	PrometheusTimeout int    `mapstructure:"prometheus_timeout"`

	PoolSize int `mapstructure:"pool_size"`

	SimulationMode    bool    `mapstructure:"simulation_mode"`
	DefaultFromNumber string  `mapstructure:"default_from_number" validate:"required"`
	RatePerMinute     float64 `mapstructure:"rate_per_minute"`
	CallDelaySeconds  int     `mapstructure:"call_delay_seconds"`
	MaxPhoneNumbers   int     `mapstructure:"max_phone_numbers"`
	DailyCallLimit    int     `mapstructure:"daily_call_limit"`
}

var Conf Config

func init() {
	err := loadEnvConfig(&Conf)
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.String("error", err.Error()))
	}
}

func loadEnvConfig(cfg *Config) error {
	viper.AutomaticEnv()
	viper.AllowEmptyEnv(true)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setupDefaults()

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	err := viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError

		ok := errors.As(err, &configFileNotFoundError)
		if !ok {
			return err
		}
	}

	err = viper.Unmarshal(cfg)
	if err != nil {
		return err
	}

	err = validator.New().Struct(cfg)
	if err != nil {
		return err
	}

	return nil
}

func setupDefaults() {
	confType := reflect.TypeOf(Conf)
	for i := 0; i < confType.NumField(); i++ {
		field := confType.Field(i)
		viper.SetDefault(field.Tag.Get("mapstructure"), "")
	}

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_USERNAME", "autodialer")
	viper.SetDefault("POSTGRES_PASSWORD", "autodialer")
	viper.SetDefault("POSTGRES_PORT", "5432")
	viper.SetDefault("POSTGRES_DATABASE", "autodialer")
	viper.SetDefault("DB_CONNECT_MAX_ATTEMPTS", "5")
	viper.SetDefault("DB_CONNECT_RETRY_BACKOFF", "2")
	viper.SetDefault("DB_INTERVAL_CB", "30")
	viper.SetDefault("DB_CONSECUTIVE_FAILURES_CB", "3")
	viper.SetDefault("LOG_LEVEL", "INFO")
	viper.SetDefault("LOG_FILE_PATH", "./access.log")
	viper.SetDefault("HTTP_PORT", "8080")
	viper.SetDefault("HTTP_TIMEOUT", "30")
	viper.SetDefault("PROMETHEUS_PORT", "2112")
	viper.SetDefault("PROMETHEUS_TIMEOUT", "60")
	viper.SetDefault("POOL_SIZE", "10")
	viper.SetDefault("SIMULATION_MODE", "true")
	viper.SetDefault("DEFAULT_FROM_NUMBER", "+918001234567")
	viper.SetDefault("RATE_PER_MINUTE", "0.02")
	viper.SetDefault("CALL_DELAY_SECONDS", "2")
	viper.SetDefault("MAX_PHONE_NUMBERS", "100")
	viper.SetDefault("DAILY_CALL_LIMIT", "1000")
}
