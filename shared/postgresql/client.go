package postgresql

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultHealthTimeout  = 2 * time.Second
)

// Config holds PostgreSQL connection and pool settings
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration // bounds the initial ping
	HealthTimeout   time.Duration // bounds each HealthCheck
}

// DSN builds the lib/pq key/value connection string
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode,
	)
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.HealthTimeout <= 0 {
		c.HealthTimeout = defaultHealthTimeout
	}
	return c
}

// Client owns the hub's connection pool
type Client struct {
	db            *sqlx.DB
	healthTimeout time.Duration
	logger        *slog.Logger
}

// Open configures the pool and waits up to ConnectTimeout for the server
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	logger = logger.With(
		slog.String("db_host", cfg.Host),
		slog.Int("db_port", cfg.Port),
		slog.String("db_name", cfg.Database),
	)

	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL pool: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	logger.Info("PostgreSQL pool ready", slog.Int("max_open_conns", cfg.MaxOpenConns))
	return newClient(db, cfg, logger), nil
}

func newClient(db *sqlx.DB, cfg Config, logger *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	return &Client{db: db, healthTimeout: cfg.HealthTimeout, logger: logger}
}

// DB exposes the pool to repositories
func (c *Client) DB() *sqlx.DB {
	return c.db
}

// Migrate applies idempotent DDL statements in order inside one transaction
func (c *Client) Migrate(ctx context.Context, statements ...string) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	c.logger.Info("Schema up to date", slog.Int("statements", len(statements)))
	return nil
}

// HealthCheck runs a trivial query bounded by the configured health timeout
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	var one int
	if err := c.db.GetContext(ctx, &one, "SELECT 1"); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Close drains the pool
func (c *Client) Close() error {
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close PostgreSQL pool", slog.Any("error", err))
		return err
	}
	c.logger.Info("PostgreSQL pool closed")
	return nil
}
