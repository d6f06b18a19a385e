package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevAuthSecret signs sessions when AUTH_HMAC_SECRET is unset. It is public, so
// it must never sign real accounts.
const DevAuthSecret = "supersecret-dev-key"

type Config struct {
	HTTPAddr string
	Version  string

	DBDriver string // sqlite|postgres|none
	DBDSN    string

	BlobBasePath   string
	MaxUploadBytes int64

	LogLevel string
	LogDev   bool

	AuthSecret string
	Accounts   []Account
	SessionTTL time.Duration

	CORSOrigins []string
}

// Account is a local login. PassHash is a bcrypt hash.
type Account struct {
	Username string
	Role     string
	PassHash string
}

func (c Config) AuthEnabled() bool { return len(c.Accounts) > 0 }

// CheckAuthSecret fails when accounts are configured but sessions would be signed
// with an empty or the public development secret.
func (c Config) CheckAuthSecret() error {
	if !c.AuthEnabled() {
		return nil
	}
	if c.AuthSecret == "" || c.AuthSecret == DevAuthSecret {
		return errors.New("AUTH_HMAC_SECRET must be set to a private value when accounts are configured")
	}
	return nil
}

// LoadDotEnv reads .env files when present. Variables already set win.
func LoadDotEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":" + envOr("PORT", "5000")
	}
	cfg := Config{
		HTTPAddr:       addr,
		Version:        envOr("PUBLIC_VERSION", "dev"),
		DBDriver:       envOr("DB_DRIVER", "sqlite"),
		DBDSN:          envOr("DB_DSN", ""),
		BlobBasePath:   envOr("BLOB_BASE_PATH", "./data"),
		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 16<<20),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		LogDev:         envBool("LOG_DEV", false),
		AuthSecret:     envOr("AUTH_HMAC_SECRET", DevAuthSecret),
		Accounts:       parseAccounts(os.Getenv("AUTH_ACCOUNTS")),
		SessionTTL:     envDuration("SESSION_TTL", 8*time.Hour),
		CORSOrigins:    csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
	if u, h := os.Getenv("ADMIN_USER"), os.Getenv("ADMIN_PASS_HASH"); u != "" && h != "" {
		cfg.Accounts = append(cfg.Accounts, Account{Username: u, Role: "admin", PassHash: h})
	}
	return cfg
}

// parseAccounts reads "user:role:hash,user:role:hash". Malformed entries are skipped.
func parseAccounts(v string) []Account {
	var out []Account
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 3)
		if len(fields) != 3 || fields[0] == "" || fields[1] == "" || fields[2] == "" {
			continue
		}
		out = append(out, Account{Username: fields[0], Role: strings.ToLower(fields[1]), PassHash: fields[2]})
	}
	return out
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt64(k string, def int64) int64 {
	if n, err := strconv.ParseInt(os.Getenv(k), 10, 64); err == nil && n > 0 {
		return n
	}
	return def
}
func envDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(k)); err == nil && d > 0 {
		return d
	}
	return def
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
