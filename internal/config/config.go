package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string `validate:"required,oneof=development staging production test"`

	// Database
	DBHost     string `validate:"required"`
	DBPort     string `validate:"required,numeric"`
	DBUser     string `validate:"required"`
	DBPassword string `validate:"required"`
	DBName     string `validate:"required"`
	DBSSLMode  string `validate:"required,oneof=disable allow prefer require verify-ca verify-full"`

	// JWT session credential
	JWTSecret string        `validate:"required,min=16"`
	JWTExpiry time.Duration `validate:"required"`

	// Email verification
	OTPTTL    time.Duration `validate:"required"`
	SMTPHost  string
	SMTPPort  int `validate:"omitempty,gt=0,lte=65535"`
	SMTPUser  string
	SMTPPass  string
	MailFrom  string `validate:"omitempty,email"`
	ClientURL string `validate:"required,url"`
	BrandName string `validate:"required"`

	// Image host (S3 compatible)
	S3Region      string
	S3Endpoint    string `validate:"omitempty,url"`
	S3AccessKey   string
	S3SecretKey   string
	S3Bucket      string
	S3PublicURL   string `validate:"omitempty,url"`
	MaxImageBytes int64  `validate:"gt=0"`

	// Admin
	AdminEmails string
	AdminToken  string

	// Server
	Port             string `validate:"required,numeric"`
	CORSOrigins      string `validate:"required"`
	RateLimit        int    `validate:"gte=0"`
	AuthRateLimit    int    `validate:"gte=0"`
	LogRetentionDays int    `validate:"gte=1"`
	SentryDSN        string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppEnv: getEnv("APP_ENV", "development"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "campus_market"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTExpiry: parseDuration(getEnv("JWT_EXPIRY", "168h"), 7*24*time.Hour),

		OTPTTL:    parseDuration(getEnv("OTP_TTL", "10m"), 10*time.Minute),
		SMTPHost:  getEnv("SMTP_HOST", ""),
		SMTPPort:  parseInt(getEnv("SMTP_PORT", "587"), 587),
		SMTPUser:  getEnv("SMTP_USER", ""),
		SMTPPass:  getEnv("SMTP_PASS", ""),
		MailFrom:  getEnv("MAIL_FROM", ""),
		ClientURL: getEnv("CLIENT_URL", "http://localhost:3000"),
		BrandName: getEnv("BRAND_NAME", "PICT OLX"),

		S3Region:      getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:    getEnv("S3_ENDPOINT", ""),
		S3AccessKey:   getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:   getEnv("S3_SECRET_KEY", ""),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3PublicURL:   getEnv("S3_PUBLIC_URL", ""),
		MaxImageBytes: int64(parseInt(getEnv("MAX_IMAGE_BYTES", "5242880"), 5*1024*1024)),

		AdminEmails: getEnv("ADMIN_EMAILS", ""),
		AdminToken:  getEnv("ADMIN_TOKEN", ""),

		Port:             getEnv("PORT", "5000"),
		CORSOrigins:      getEnv("CORS_ORIGINS", "*"),
		RateLimit:        parseInt(getEnv("RATE_LIMIT", "120"), 120),
		AuthRateLimit:    parseInt(getEnv("AUTH_RATE_LIMIT", "10"), 10),
		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),
		SentryDSN:        getEnv("SENTRY_DSN", ""),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// MailEnabled reports whether SMTP delivery is configured. Without it OTPs are
// written to the log instead.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.SMTPPass != ""
}

// ImageHostEnabled reports whether uploads go to object storage. Without it
// listings get placeholder images.
func (c *Config) ImageHostEnabled() bool {
	return c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
