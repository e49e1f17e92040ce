package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"mailprobe/models"
)

var (
	DB        *gorm.DB
	AppConfig Config
	envLoaded bool
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address" validate:"required_with=Enabled"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type Config struct {
	Environment string `json:"environment" validate:"oneof=development staging production"`

	DBHost         string `json:"db_host" validate:"required"`
	DBPort         string `json:"db_port" validate:"required"`
	DBUser         string `json:"db_user" validate:"required"`
	DBPassword     string `json:"-" validate:"required"`
	DBName         string `json:"db_name" validate:"required"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	Redis     RedisConfig `json:"redis"`
	SentryDSN string      `json:"-"`

	// Verification engine knobs
	BatchWorkers       int           `json:"batch_workers" validate:"min=1,max=100"`
	ProbePort          string        `json:"probe_port"`
	ProbeTimeout       time.Duration `json:"probe_timeout"`
	ProbeMaxConcurrent int           `json:"probe_max_concurrent" validate:"min=1,max=100"`
	ProbeHELOHost      string        `json:"probe_helo_host" validate:"required,hostname"`
	ProbeSender        string        `json:"probe_sender" validate:"required,email"`
	WorkerInterval     time.Duration `json:"worker_interval"`

	// Score policy overrides; zero keeps the engine default.
	DisposablePenalty int `json:"disposable_penalty" validate:"min=0,max=100"`
	RoleBasedPenalty  int `json:"role_based_penalty" validate:"min=0,max=100"`
	CatchAllPenalty   int `json:"catch_all_penalty" validate:"min=0,max=100"`
	ValidThreshold    int `json:"valid_threshold" validate:"min=0,max=100"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

func LoadConfig() error {
	AppConfig = Config{
		Environment: getEnv("ENVIRONMENT", "development"),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "mailprobe"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		SentryDSN: getEnv("SENTRY_DSN", ""),

		BatchWorkers:       getEnvAsInt("BATCH_WORKERS", 10),
		ProbePort:          getEnv("PROBE_PORT", "25"),
		ProbeTimeout:       getEnvAsDuration("PROBE_TIMEOUT", 10*time.Second),
		ProbeMaxConcurrent: getEnvAsInt("PROBE_MAX_CONCURRENT", 10),
		ProbeHELOHost:      getEnv("PROBE_HELO_HOST", "verify.mailprobe.io"),
		ProbeSender:        getEnv("PROBE_SENDER", "verify@mailprobe.io"),
		WorkerInterval:     getEnvAsDuration("WORKER_INTERVAL", 15*time.Second),

		DisposablePenalty: getEnvAsInt("SCORE_DISPOSABLE_PENALTY", 50),
		RoleBasedPenalty:  getEnvAsInt("SCORE_ROLE_BASED_PENALTY", 10),
		CatchAllPenalty:   getEnvAsInt("SCORE_CATCH_ALL_PENALTY", 15),
		ValidThreshold:    getEnvAsInt("SCORE_VALID_THRESHOLD", 50),
	}

	if err := validator.New().Struct(AppConfig); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("Connected to the database, starting migration...")
	if err := migrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("Database migration completed")
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	return valueStr == "true" || valueStr == "1"
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Redis enabled: %t", AppConfig.Redis.Enabled)
	log.Printf("Batch workers: %d, probe timeout: %s",
		AppConfig.BatchWorkers, AppConfig.ProbeTimeout)
}

func migrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.VerificationJob{},
		&models.VerificationItem{},
		&models.EmailRecord{},
		&models.Bounce{},
	)
}
