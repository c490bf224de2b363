// Package config loads the service configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort   int
	SQLitePath string

	SessionSecret    string
	SessionTTL       time.Duration
	IdentityCacheTTL time.Duration

	// FallbackUsername and FallbackPassword form the emergency credential set
	// used only while the store is unreachable. An empty password disables it.
	FallbackUsername string
	FallbackPassword string

	AllowedOrigins []string
	CSRFKey        string
	RequestTimeout time.Duration
	// LoginRateLimit is the number of sign in attempts per minute and client IP;
	// zero disables the limiter.
	LoginRateLimit int

	LogLevel           string
	SlowQueryThreshold time.Duration
	ExportRowsPerPage  int
}

// Defaults returns the configuration used for every optional variable.
func Defaults() Config {
	return Config{
		HTTPPort:           8080,
		SQLitePath:         "scheduler.db",
		SessionTTL:         24 * time.Hour,
		IdentityCacheTTL:   5 * time.Minute,
		FallbackUsername:   "admin",
		RequestTimeout:     30 * time.Second,
		LoginRateLimit:     10,
		LogLevel:           "info",
		SlowQueryThreshold: 200 * time.Millisecond,
		ExportRowsPerPage:  25,
	}
}

// Load reads .env from the working directory when present and then parses
// the process environment. Variables already set in the environment win over
// the file.
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit .env path. A missing file is not an error.
func LoadFile(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("não foi possível ler %s: %w", path, err)
		}
	}
	return parse(os.Getenv)
}

type parser struct {
	getenv  func(string) string
	missing []string
	invalid []string
}

func (p *parser) value(key string) string {
	return strings.TrimSpace(p.getenv(key))
}

func (p *parser) positiveInt(key string, dst *int, allowZero bool) {
	raw := p.value(key)
	if raw == "" {
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || (n == 0 && !allowZero) {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = n
}

func (p *parser) duration(key string, dst *time.Duration) {
	raw := p.value(key)
	if raw == "" {
		return
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = d
}

func parse(getenv func(string) string) (Config, error) {
	cfg := Defaults()
	p := &parser{getenv: getenv}

	p.positiveInt("SCHEDULER_HTTP_PORT", &cfg.HTTPPort, false)
	if cfg.HTTPPort > 65535 {
		p.invalid = append(p.invalid, "SCHEDULER_HTTP_PORT")
	}

	if dsn := p.value("SCHEDULER_SQLITE_DSN"); dsn != "" {
		cfg.SQLitePath = sqlitePath(dsn)
	}

	if secret := p.value("SCHEDULER_SESSION_SECRET"); secret == "" {
		p.missing = append(p.missing, "SCHEDULER_SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}

	p.duration("SCHEDULER_SESSION_TTL", &cfg.SessionTTL)
	p.duration("SCHEDULER_IDENTITY_CACHE_TTL", &cfg.IdentityCacheTTL)

	if username := p.value("SCHEDULER_FALLBACK_USERNAME"); username != "" {
		cfg.FallbackUsername = username
	}
	cfg.FallbackPassword = p.getenv("SCHEDULER_FALLBACK_PASSWORD")

	if origins := p.value("SCHEDULER_ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	if key := p.value("SCHEDULER_CSRF_KEY"); key != "" {
		if len(key) < 32 {
			p.invalid = append(p.invalid, "SCHEDULER_CSRF_KEY")
		} else {
			cfg.CSRFKey = key
		}
	}

	p.duration("SCHEDULER_REQUEST_TIMEOUT", &cfg.RequestTimeout)
	p.positiveInt("SCHEDULER_LOGIN_RATE_LIMIT", &cfg.LoginRateLimit, true)

	if level := p.value("SCHEDULER_LOG_LEVEL"); level != "" {
		if !validLogLevel(level) {
			p.invalid = append(p.invalid, "SCHEDULER_LOG_LEVEL")
		} else {
			cfg.LogLevel = strings.ToLower(level)
		}
	}

	p.duration("SCHEDULER_SLOW_QUERY_THRESHOLD", &cfg.SlowQueryThreshold)
	p.positiveInt("SCHEDULER_EXPORT_ROWS_PER_PAGE", &cfg.ExportRowsPerPage, false)

	var problems []string
	if len(p.missing) > 0 {
		problems = append(problems, "variáveis de ambiente obrigatórias não definidas: "+strings.Join(p.missing, ", "))
	}
	if len(p.invalid) > 0 {
		problems = append(problems, "valores inválidos nas variáveis de ambiente: "+strings.Join(p.invalid, ", "))
	}
	if len(problems) > 0 {
		return Config{}, errors.New("configuração inválida: " + strings.Join(problems, "; "))
	}

	return cfg, nil
}

// sqlitePath accepts either a plain path or a file: URI and returns the path.
func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

func validLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}
