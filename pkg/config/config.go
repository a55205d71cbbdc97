package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	Cache         CacheConfig
	CORS          CORSConfig
	Log           LogConfig
	Paystack      PaystackConfig
	Payments      PaymentsConfig
	Invoices      InvoicesConfig
	Auth          AuthConfig
	Notifications NotificationsConfig
	College       CollegeConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig toggles the Redis read-through cache for sponsor and invoice lookups.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PaystackConfig holds credentials and endpoints for the payment gateway.
type PaystackConfig struct {
	SecretKey          string
	BaseURL            string
	Timeout            time.Duration
	DonationCallback   string
	InvoiceCallbackURL string
}

// PaymentsConfig describes the currency policy applied to donations and invoices.
type PaymentsConfig struct {
	DefaultCurrency     string
	SupportedCurrencies []string
}

// InvoicesConfig controls invoice issuance defaults.
type InvoicesConfig struct {
	DueDays         int
	DefaultSemester string
	LinkSecret      string
	LinkTTL         time.Duration
	LinkBaseURL     string
}

// AuthConfig gates the administrative routes behind operator tokens.
type AuthConfig struct {
	Enabled           bool
	JWTSecret         string
	JWTExpiration     time.Duration
	AdminUsername     string
	AdminPasswordHash string
}

// NotificationsConfig sizes the background notification queue.
type NotificationsConfig struct {
	Workers int
	Retries int
}

// CollegeConfig carries branding printed on invoices.
type CollegeConfig struct {
	Name    string
	Tagline string
	Contact string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Paystack = PaystackConfig{
		SecretKey:          v.GetString("PAYSTACK_SECRET_KEY"),
		BaseURL:            v.GetString("PAYSTACK_BASE_URL"),
		Timeout:            parseDuration(v.GetString("PAYSTACK_TIMEOUT"), 15*time.Second),
		DonationCallback:   v.GetString("DONATION_CALLBACK_URL"),
		InvoiceCallbackURL: v.GetString("INVOICE_CALLBACK_URL"),
	}

	currencies := splitAndTrim(strings.ToUpper(v.GetString("SUPPORTED_CURRENCIES")))
	cfg.Payments = PaymentsConfig{
		DefaultCurrency:     strings.ToUpper(v.GetString("DEFAULT_CURRENCY")),
		SupportedCurrencies: currencies,
	}

	dueDays := v.GetInt("INVOICE_DUE_DAYS")
	if dueDays <= 0 {
		dueDays = 30
	}
	cfg.Invoices = InvoicesConfig{
		DueDays:         dueDays,
		DefaultSemester: v.GetString("INVOICE_DEFAULT_SEMESTER"),
		LinkSecret:      v.GetString("INVOICE_LINK_SECRET"),
		LinkTTL:         parseDuration(v.GetString("INVOICE_LINK_TTL"), 72*time.Hour),
		LinkBaseURL:     v.GetString("INVOICE_LINK_BASE_URL"),
	}

	cfg.Auth = AuthConfig{
		Enabled:           v.GetBool("AUTH_ENABLED"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		JWTExpiration:     parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		AdminUsername:     v.GetString("ADMIN_USERNAME"),
		AdminPasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
	}

	cfg.Notifications = NotificationsConfig{
		Workers: v.GetInt("NOTIFY_WORKERS"),
		Retries: v.GetInt("NOTIFY_RETRIES"),
	}

	cfg.College = CollegeConfig{
		Name:    v.GetString("COLLEGE_NAME"),
		Tagline: v.GetString("COLLEGE_TAGLINE"),
		Contact: v.GetString("COLLEGE_CONTACT"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 5000)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "bips_college")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PAYSTACK_SECRET_KEY", "")
	v.SetDefault("PAYSTACK_BASE_URL", "https://api.paystack.co")
	v.SetDefault("PAYSTACK_TIMEOUT", "15s")
	v.SetDefault("DONATION_CALLBACK_URL", "http://localhost:5000/api/donations/verify/{reference}")
	v.SetDefault("INVOICE_CALLBACK_URL", "http://localhost:3000/invoice-payment-success")

	v.SetDefault("DEFAULT_CURRENCY", "KES")
	v.SetDefault("SUPPORTED_CURRENCIES", "KES,NGN,GHS,ZAR,USD")

	v.SetDefault("INVOICE_DUE_DAYS", 30)
	v.SetDefault("INVOICE_DEFAULT_SEMESTER", "First")
	v.SetDefault("INVOICE_LINK_SECRET", "dev_link_secret")
	v.SetDefault("INVOICE_LINK_TTL", "72h")
	v.SetDefault("INVOICE_LINK_BASE_URL", "http://localhost:5000/api/invoice-links")

	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")

	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_RETRIES", 3)

	v.SetDefault("COLLEGE_NAME", "BIPS TECHNICAL COLLEGE")
	v.SetDefault("COLLEGE_TAGLINE", "Quality Technical Education")
	v.SetDefault("COLLEGE_CONTACT", "For payment inquiries, contact accounts@bipstechnicalcollege.co.ke")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
