package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	DBMaxOpenConns int
	DBMaxIdleConns int

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Admin
	AdminEmails  string
	AdminUserIDs string
	AdminToken   string

	// Server
	Port          string
	CORSOrigins   string
	AppEnv        string
	SentryDSN     string
	LogLevel      string
	RateLimitMax  int
	AuthRateLimit int
	SwaggerFile   string

	// Media storage
	StorageBackend string // local or s3
	MediaRoot      string
	MaxUploadMB    int

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// Redis (job queue + rate limiter)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	JobWorkers    int
	JobRetryDelay time.Duration

	// Severity model
	ModelPath         string
	ModelMetadataPath string
	ONNXRuntimeLib    string
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "asphalt_aid"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		DBMaxOpenConns: parseInt(getEnv("DB_MAX_OPEN_CONNS", "25"), 25),
		DBMaxIdleConns: parseInt(getEnv("DB_MAX_IDLE_CONNS", "10"), 10),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),

		AdminEmails:  getEnv("ADMIN_EMAILS", ""),
		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   getEnv("CORS_ORIGINS", "*"),
		AppEnv:        getEnv("APP_ENV", "dev"),
		SentryDSN:     getEnv("SENTRY_DSN", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		RateLimitMax:  parseInt(getEnv("RATE_LIMIT_MAX", "60"), 60),
		AuthRateLimit: parseInt(getEnv("AUTH_RATE_LIMIT_MAX", "10"), 10),
		SwaggerFile:   getEnv("SWAGGER_FILE", ""),

		StorageBackend: getEnv("STORAGE_BACKEND", "local"),
		MediaRoot:      getEnv("MEDIA_ROOT", "./media"),
		MaxUploadMB:    parseInt(getEnv("MAX_UPLOAD_MB", "10"), 10),

		S3Bucket:          getEnv("S3_BUCKET_NAME", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:        getEnv("S3_ENDPOINT_URL", ""),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		JobWorkers:    parseInt(getEnv("JOB_WORKERS", "2"), 2),
		JobRetryDelay: parseDuration(getEnv("JOB_RETRY_DELAY", "30s"), 30*time.Second),

		ModelPath:         getEnv("MODEL_PATH", "models/pothole_model.onnx"),
		ModelMetadataPath: getEnv("MODEL_METADATA_PATH", "models/pothole_model.json"),
		ONNXRuntimeLib:    getEnv("ONNXRUNTIME_LIB", ""),
	}
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

// MigrationURL is the URL form of the DSN expected by golang-migrate.
func (c *Config) MigrationURL() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword +
		"@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName +
		"?sslmode=" + c.DBSSLMode
}

func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "prod" || c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
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
