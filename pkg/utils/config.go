package utils

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Session  SessionConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Booking  BookingConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host      string
	Port      string
	Name      string
	User      string
	Password  string
	MaxConns  int32
	TxTimeout time.Duration
}

type SessionConfig struct {
	ExpiryHours int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type BookingConfig struct {
	MaxSeats int
	// RefundPaidOnCancel makes whole-booking cancellation of a paid
	// booking end in "refunded" instead of "failed".
	RefundPaidOnCancel bool
}

func LoadConfig() (*Config, error) {
	return LoadConfigFrom(".env")
}

// LoadConfigFrom reads an env-format file and overlays the process
// environment. A missing file is not an error.
func LoadConfigFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")

	// Set defaults
	v.SetDefault("APP_NAME", "bus-booking")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_TX_TIMEOUT_SECONDS", 5)
	v.SetDefault("SESSION_EXPIRY_HOURS", 24)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL_SECONDS", 60)
	v.SetDefault("RABBITMQ_EXCHANGE", "booking.events")
	v.SetDefault("BOOKING_MAX_SEATS", 10)
	v.SetDefault("BOOKING_REFUND_PAID_ON_CANCEL", false)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, err
		}
	}

	v.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    v.GetString("APP_NAME"),
			Port:    v.GetString("PORT"),
			Debug:   v.GetBool("DEBUG"),
			LogPath: v.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:      v.GetString("DB_HOST"),
			Port:      v.GetString("DB_PORT"),
			Name:      v.GetString("DB_NAME"),
			User:      v.GetString("DB_USER"),
			Password:  v.GetString("DB_PASS"),
			MaxConns:  v.GetInt32("DB_MAX_CONNS"),
			TxTimeout: time.Duration(v.GetInt("DB_TX_TIMEOUT_SECONDS")) * time.Second,
		},
		Session: SessionConfig{
			ExpiryHours: v.GetInt("SESSION_EXPIRY_HOURS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			CacheTTL: time.Duration(v.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		},
		RabbitMQ: RabbitMQConfig{
			URL:      v.GetString("RABBITMQ_URL"),
			Exchange: v.GetString("RABBITMQ_EXCHANGE"),
		},
		Booking: BookingConfig{
			MaxSeats:           v.GetInt("BOOKING_MAX_SEATS"),
			RefundPaidOnCancel: v.GetBool("BOOKING_REFUND_PAID_ON_CANCEL"),
		},
	}

	return config, nil
}
