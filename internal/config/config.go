package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the gorm/pgx connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// URL returns the database URL used by the migration runner.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// JWTConfig holds token verification settings.
type JWTConfig struct {
	Secret string
}

// KafkaConfig holds event producer settings.
type KafkaConfig struct {
	Brokers []string
}

// ClinicConfig holds clinic scheduling policy.
type ClinicConfig struct {
	// Timezone is the IANA name of the clinic's operating timezone. All
	// "today"/"expired" comparisons happen in this zone.
	Timezone string
	// AutoConfirm makes newly created bookings start in confirmed instead of
	// pending.
	AutoConfirm bool
}

// NotifyConfig holds notification channel settings.
type NotifyConfig struct {
	// Channel selects the outbound channel implementation: "gateway" or
	// "console".
	Channel string
	// RecipientMode selects which booking contact field is used as the
	// recipient: "phone" or "chat".
	RecipientMode string
	GatewayURL    string
	GatewayToken  string
}

// ServiceConfig holds all configuration for the appointment service.
type ServiceConfig struct {
	Port          string
	AppEnv        string
	DBConfig      DatabaseConfig
	JWTConfig     JWTConfig
	KafkaConfig   KafkaConfig
	ClinicConfig  ClinicConfig
	NotifyConfig  NotifyConfig
	SweepInterval time.Duration
}

// Load reads configuration from APPOINTMENT_-prefixed environment variables.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("APPOINTMENT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "appointments")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("CLINIC_TIMEZONE", "Asia/Kuala_Lumpur")
	v.SetDefault("CLINIC_AUTO_CONFIRM", false)
	v.SetDefault("NOTIFY_CHANNEL", "console")
	v.SetDefault("NOTIFY_RECIPIENT_MODE", "phone")
	v.SetDefault("SWEEP_INTERVAL", "1h")

	jwtSecret := v.GetString("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("APPOINTMENT_JWT_SECRET is required")
	}

	sweepInterval, err := time.ParseDuration(v.GetString("SWEEP_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid APPOINTMENT_SWEEP_INTERVAL: %w", err)
	}

	return &ServiceConfig{
		Port:   ":" + v.GetString("SERVICE_PORT"),
		AppEnv: v.GetString("APP_ENV"),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWTConfig: JWTConfig{Secret: jwtSecret},
		KafkaConfig: KafkaConfig{
			Brokers: strings.Split(v.GetString("KAFKA_BROKERS"), ","),
		},
		ClinicConfig: ClinicConfig{
			Timezone:    v.GetString("CLINIC_TIMEZONE"),
			AutoConfirm: v.GetBool("CLINIC_AUTO_CONFIRM"),
		},
		NotifyConfig: NotifyConfig{
			Channel:       v.GetString("NOTIFY_CHANNEL"),
			RecipientMode: v.GetString("NOTIFY_RECIPIENT_MODE"),
			GatewayURL:    v.GetString("NOTIFY_GATEWAY_URL"),
			GatewayToken:  v.GetString("NOTIFY_GATEWAY_TOKEN"),
		},
		SweepInterval: sweepInterval,
	}, nil
}
