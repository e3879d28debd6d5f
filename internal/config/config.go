package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"dmv-trainer"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Security Security
	Attempt  Attempt
	Bank     Bank
	Progress Progress
	CORS     CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders the keyword/value connection string understood by pgx.
func (p Postgres) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
	if p.MaxConns > 0 {
		dsn += fmt.Sprintf(" pool_max_conns=%d", p.MaxConns)
	}
	return dsn
}

// Redis holds slot, cache and progress store configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for signing learner tokens.
type Security struct {
	JWTSecret        string        `env:"JWT_SECRET,notEmpty"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET" envDefault:""`
	AccessTTL        time.Duration `env:"JWT_ACCESS_TTL" envDefault:"24h"`
	RefreshTTL       time.Duration `env:"JWT_REFRESH_TTL" envDefault:"720h"`
	LearnerTTL       time.Duration `env:"LEARNER_TTL" envDefault:"0s"`
}

// Attempt groups test-taking defaults.
type Attempt struct {
	FullSize    int           `env:"ATTEMPT_FULL_SIZE" envDefault:"40"`
	DrillSize   int           `env:"ATTEMPT_DRILL_SIZE" envDefault:"10"`
	PassPercent int           `env:"ATTEMPT_PASS_PERCENT" envDefault:"90"`
	SlotTTL     time.Duration `env:"ATTEMPT_SLOT_TTL" envDefault:"168h"`
	// Seed makes draws replayable when non-zero. Only meant for local runs.
	Seed uint64 `env:"ATTEMPT_RNG_SEED" envDefault:"0"`
}

// Bank locates the question bank.
type Bank struct {
	File     string        `env:"QUESTION_BANK_FILE" envDefault:"data/question_bank.json"`
	CacheTTL time.Duration `env:"QUESTION_BANK_CACHE_TTL" envDefault:"10m"`
}

// Progress governs lifetime counter caching and reconciliation.
type Progress struct {
	ReconcileInterval time.Duration `env:"PROGRESS_RECONCILE_INTERVAL" envDefault:"5m"`
	ReconcileBatch    int           `env:"PROGRESS_RECONCILE_BATCH" envDefault:"100"`
	RecentCap         int           `env:"PROGRESS_RECENT_CAP" envDefault:"20"`
	RecentLimit       int           `env:"PROGRESS_RECENT_LIMIT" envDefault:"10"`
	EntryTTL          time.Duration `env:"PROGRESS_ENTRY_TTL" envDefault:"0s"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://127.0.0.1:5173"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPostgres parses only the database settings, for tools that do not
// need the rest of the service configuration.
func LoadPostgres() (Postgres, error) {
	var pg Postgres
	if err := env.ParseWithOptions(&pg, env.Options{RequiredIfNoDef: true}); err != nil {
		return Postgres{}, fmt.Errorf("parse postgres config: %w", err)
	}
	return pg, nil
}

func (c *App) validate() error {
	if c.Attempt.FullSize <= 0 || c.Attempt.DrillSize <= 0 {
		return fmt.Errorf("attempt sizes must be positive (full=%d, drill=%d)", c.Attempt.FullSize, c.Attempt.DrillSize)
	}
	if c.Attempt.PassPercent <= 0 || c.Attempt.PassPercent > 100 {
		return fmt.Errorf("ATTEMPT_PASS_PERCENT must be within 1-100, got %d", c.Attempt.PassPercent)
	}
	if c.Progress.RecentLimit > c.Progress.RecentCap {
		return fmt.Errorf("PROGRESS_RECENT_LIMIT (%d) exceeds PROGRESS_RECENT_CAP (%d)", c.Progress.RecentLimit, c.Progress.RecentCap)
	}
	return nil
}
