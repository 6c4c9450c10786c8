package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/microblog-go/microblog/internal/common/constants"
	commonerrors "github.com/microblog-go/microblog/internal/common/errors"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, key := range []string{
		"SESSION_SECRET", "STORAGE_DRIVER", "DATABASE_URL", "PASSWORD_HASHER",
		"BCRYPT_COST", "HTTP_PORT", "SESSION_TTL", "COOKIE_SECURE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadAppConfig_MissingSessionSecret(t *testing.T) {
	isolateEnv(t)

	_, err := LoadAppConfig()
	if !errors.Is(err, commonerrors.ErrMissingRequiredEnv) {
		t.Fatalf("expected ErrMissingRequiredEnv, got %v", err)
	}
}

func TestLoadAppConfig_ShortSessionSecret(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SESSION_SECRET", "short")

	_, err := LoadAppConfig()
	if !errors.Is(err, commonerrors.ErrInvalidSessionSecret) {
		t.Fatalf("expected ErrInvalidSessionSecret, got %v", err)
	}
}

func TestLoadAppConfig_PostgresRequiresDatabaseURL(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SESSION_SECRET", testSecret)

	_, err := LoadAppConfig()
	if !errors.Is(err, commonerrors.ErrMissingRequiredEnv) {
		t.Fatalf("expected ErrMissingRequiredEnv for DATABASE_URL, got %v", err)
	}
}

func TestLoadAppConfig_MemoryDefaults(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := LoadAppConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != constants.DefaultHTTPPort {
		t.Errorf("expected default port, got %s", cfg.HTTPPort)
	}
	if cfg.PasswordHasher != PasswordHasherBcrypt {
		t.Errorf("expected bcrypt default, got %s", cfg.PasswordHasher)
	}
	if cfg.BcryptCost != constants.DefaultBcryptCost {
		t.Errorf("expected default bcrypt cost, got %d", cfg.BcryptCost)
	}
	if cfg.SessionTTL != constants.DefaultSessionTTL {
		t.Errorf("expected default session ttl, got %v", cfg.SessionTTL)
	}
}

func TestLoadAppConfig_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown driver", "STORAGE_DRIVER", "mysql"},
		{"unknown hasher", "PASSWORD_HASHER", "md5"},
		{"weak bcrypt cost", "BCRYPT_COST", "4"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			isolateEnv(t)
			t.Setenv("SESSION_SECRET", testSecret)
			t.Setenv("STORAGE_DRIVER", "memory")
			t.Setenv(tc.key, tc.val)

			_, err := LoadAppConfig()
			if !errors.Is(err, commonerrors.ErrInvalidConfigValue) {
				t.Fatalf("expected ErrInvalidConfigValue, got %v", err)
			}
		})
	}
}

func TestLoadAppConfig_DotEnvFile(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "test.env")
	content := "SESSION_SECRET=" + testSecret + "\nSTORAGE_DRIVER=memory\nSESSION_TTL=2h\nCOOKIE_SECURE=true\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", path)

	cfg, err := LoadAppConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StorageDriver != StorageDriverMemory {
		t.Errorf("expected memory driver from env file, got %s", cfg.StorageDriver)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("expected 2h session ttl, got %v", cfg.SessionTTL)
	}
	if !cfg.CookieSecure {
		t.Error("expected secure cookies from env file")
	}
}
