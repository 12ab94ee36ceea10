package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Qdrant    QdrantConfig
	Gemini    GeminiConfig
	Storage   StorageConfig
	Screening ScreeningConfig
	Worker    WorkerConfig
	Broker    BrokerConfig
	Drive     DriveConfig
}

type ServerConfig struct {
	Port string
	Env  string
	// LogJSON switches zap to the json encoder.
	LogJSON bool
	Debug   bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	VectorSize uint64
}

// Enabled reports whether the talent pool index should be wired.
func (q QdrantConfig) Enabled() bool {
	return strings.TrimSpace(q.URL) != ""
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	EmbedModel string
	// Backend is "gemini" (API key) or "vertex" (project + location).
	Backend     string
	Project     string
	Location    string
	Temperature float32
}

type StorageConfig struct {
	// Driver is "local" or "s3".
	Driver      string
	UploadPath  string
	MaxFileSize int64
	S3          S3Config
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

type ScreeningConfig struct {
	PageLimit        int
	RequestDelay     time.Duration
	RateLimitBackoff time.Duration
	ShortlistSize    int
	LogPreviewLength int
}

type WorkerConfig struct {
	Concurrency  int
	PollInterval time.Duration
	QueueSize    int
}

type BrokerConfig struct {
	URL      string
	Exchange string
}

type DriveConfig struct {
	CredentialsFile string
	TokenFile       string
}

func Load() (*Config, error) {
	// .env is optional; real environment always wins.
	_ = godotenv.Load()

	apiKey, err := loadSecret("GEMINI_API_KEY")
	if err != nil {
		return nil, err
	}
	s3Secret, err := loadSecret("S3_SECRET_KEY")
	if err != nil {
		return nil, err
	}
	dbPassword, err := loadSecret("DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "3000"),
			Env:     getEnv("ENV", "development"),
			LogJSON: getEnvAsBool("LOG_JSON", false),
			Debug:   getEnvAsBool("DEBUG", false),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: dbPassword,
			DBName:   getEnv("DB_NAME", "talentscan"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", ""),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "talent_pool"),
			VectorSize: uint64(getEnvAsInt64("QDRANT_VECTOR_SIZE", 768)),
		},
		Gemini: GeminiConfig{
			APIKey:      apiKey,
			Model:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			EmbedModel:  getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
			Backend:     getEnv("GEMINI_BACKEND", "gemini"),
			Project:     getEnv("GOOGLE_CLOUD_PROJECT", ""),
			Location:    getEnv("GOOGLE_CLOUD_LOCATION", "us-central1"),
			Temperature: getEnvAsFloat32("GEMINI_TEMPERATURE", 0.2),
		},
		Storage: StorageConfig{
			Driver:      getEnv("STORAGE_DRIVER", "local"),
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
			S3: S3Config{
				Bucket:    getEnv("S3_BUCKET", ""),
				Region:    getEnv("S3_REGION", "auto"),
				Endpoint:  getEnv("S3_ENDPOINT", ""),
				AccessKey: getEnv("S3_ACCESS_KEY", ""),
				SecretKey: s3Secret,
				Prefix:    getEnv("S3_PREFIX", "resumes/"),
			},
		},
		Screening: ScreeningConfig{
			PageLimit:        getEnvAsInt("SCREENING_PAGE_LIMIT", 3),
			RequestDelay:     getEnvAsDuration("SCREENING_REQUEST_DELAY", "1s"),
			RateLimitBackoff: getEnvAsDuration("SCREENING_RATE_LIMIT_BACKOFF", "10s"),
			ShortlistSize:    getEnvAsInt("SCREENING_SHORTLIST_SIZE", 10),
			LogPreviewLength: getEnvAsInt("SCREENING_LOG_PREVIEW", 200),
		},
		Worker: WorkerConfig{
			Concurrency:  getEnvAsInt("WORKER_CONCURRENCY", 1),
			PollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", "10s"),
			QueueSize:    getEnvAsInt("WORKER_QUEUE_SIZE", 100),
		},
		Broker: BrokerConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "screening_updates"),
		},
		Drive: DriveConfig{
			CredentialsFile: getEnv("DRIVE_CREDENTIALS_FILE", "credentials.json"),
			TokenFile:       getEnv("DRIVE_TOKEN_FILE", "token.json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the combinations that would otherwise fail deep inside a client constructor.
func (c *Config) Validate() error {
	switch c.Gemini.Backend {
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini backend")
		}
	case "vertex":
		if c.Gemini.Project == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the vertex backend")
		}
	default:
		return fmt.Errorf("unsupported GEMINI_BACKEND %q", c.Gemini.Backend)
	}

	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 storage driver")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.Screening.PageLimit <= 0 {
		return fmt.Errorf("SCREENING_PAGE_LIMIT must be positive, got %d", c.Screening.PageLimit)
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", c.Worker.Concurrency)
	}

	return nil
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// loadSecret resolves KEY from KEY_FILE when set, otherwise from KEY itself.
func loadSecret(key string) (string, error) {
	if file := strings.TrimSpace(os.Getenv(key + "_FILE")); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", key, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", key, file)
		}
		return secret, nil
	}

	return strings.TrimSpace(os.Getenv(key)), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 32); err == nil {
		return float32(value)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
