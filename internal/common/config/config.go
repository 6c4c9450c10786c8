package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/microblog-go/microblog/internal/common/constants"
	commonerrors "github.com/microblog-go/microblog/internal/common/errors"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	PasswordHasherBcrypt   = "bcrypt"
	PasswordHasherArgon2id = "argon2id"
)

type AppConfig struct {
	HTTPPort        string
	StorageDriver   string
	DatabaseURL     string
	AutoMigrate     bool
	SessionSecret   string
	SessionTTL      time.Duration
	RememberMeTTL   time.Duration
	CookieSecure    bool
	PasswordHasher  string
	BcryptCost      int
	AvatarHost      string
	RequestTimeout  time.Duration
	LivenessTimeout time.Duration
	LogDir          string
	LogLevel        string
}

// LoadAppConfig reads the process environment. A .env file in the working
// directory, or the file named by ENV_FILE, is merged in first without
// overriding variables that are already set.
func LoadAppConfig() (AppConfig, error) {
	if err := loadDotEnv(); err != nil {
		return AppConfig{}, err
	}

	secret, err := mustEnv("SESSION_SECRET")
	if err != nil {
		return AppConfig{}, err
	}
	if err := validateSessionSecret(secret); err != nil {
		return AppConfig{}, err
	}

	driver := strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres))
	if driver != StorageDriverPostgres && driver != StorageDriverMemory {
		return AppConfig{}, invalidValue("STORAGE_DRIVER", driver)
	}

	var databaseURL string
	if driver == StorageDriverPostgres {
		databaseURL, err = mustEnv("DATABASE_URL")
		if err != nil {
			return AppConfig{}, err
		}
	}

	hasher := strings.ToLower(getEnv("PASSWORD_HASHER", PasswordHasherBcrypt))
	if hasher != PasswordHasherBcrypt && hasher != PasswordHasherArgon2id {
		return AppConfig{}, invalidValue("PASSWORD_HASHER", hasher)
	}

	cost := getIntEnv("BCRYPT_COST", constants.DefaultBcryptCost)
	if cost < constants.MinBcryptCost {
		return AppConfig{}, invalidValue("BCRYPT_COST", strconv.Itoa(cost))
	}

	return AppConfig{
		HTTPPort:        getEnv("HTTP_PORT", constants.DefaultHTTPPort),
		StorageDriver:   driver,
		DatabaseURL:     databaseURL,
		AutoMigrate:     getBoolEnv("DB_AUTO_MIGRATE", false),
		SessionSecret:   secret,
		SessionTTL:      getDurationEnv("SESSION_TTL", constants.DefaultSessionTTL),
		RememberMeTTL:   getDurationEnv("REMEMBER_ME_TTL", constants.DefaultRememberMeTTL),
		CookieSecure:    getBoolEnv("COOKIE_SECURE", false),
		PasswordHasher:  hasher,
		BcryptCost:      cost,
		AvatarHost:      getEnv("AVATAR_HOST", constants.DefaultAvatarHost),
		RequestTimeout:  getDurationEnv("REQUEST_TIMEOUT", constants.DefaultRequestTimeout),
		LivenessTimeout: getDurationEnv("LIVENESS_TIMEOUT", constants.DefaultLivenessTimeout),
		LogDir:          os.Getenv("LOG_DIR"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}, nil
}

func loadDotEnv() error {
	path := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func validateSessionSecret(secret string) error {
	if len(secret) < constants.SessionSecretMinLength {
		return commonerrors.ErrInvalidSessionSecret.WithCause(fmt.Errorf("got %d bytes", len(secret)))
	}
	return nil
}

func invalidValue(key, value string) error {
	return commonerrors.ErrInvalidConfigValue.WithCause(fmt.Errorf("%s=%q", key, value))
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", commonerrors.ErrMissingRequiredEnv.WithCause(fmt.Errorf("%s", key))
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBoolEnv(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
