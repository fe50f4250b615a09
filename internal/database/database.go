package database

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"eventscan/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "github.com/mattn/go-sqlite3"    // sqlite3 driver
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("not found")

// DB is the bookings store. Queries are written with ? placeholders and
// rebound for the active driver.
type DB struct {
	*sql.DB
	driver string
	logger *zerolog.Logger
}

func NewDB(driver, dsn, key string, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	switch driver {
	case config.DriverSQLite:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		sqlDB, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// A single connection keeps a :memory: database shared across queries.
		sqlDB.SetMaxOpenConns(1)
	case config.DriverPostgres:
		withKey, err := injectKey(dsn, key)
		if err != nil {
			return nil, err
		}
		sqlDB, err = sql.Open("pgx", withKey)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, driver: driver, logger: logger}
	if err := db.createTables(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("driver", driver).Msg("Bookings store initialized")
	return db, nil
}

func ensureDir(path string) error {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

// injectKey sets the store key as the DSN password unless the DSN already carries one.
func injectKey(dsn, key string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse store url: %w", err)
	}
	if key == "" {
		return dsn, nil
	}

	user := "postgres"
	if u.User != nil {
		if _, set := u.User.Password(); set {
			return dsn, nil
		}
		if name := u.User.Username(); name != "" {
			user = name
		}
	}
	u.User = url.UserPassword(user, key)
	return u.String(), nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS customers (
            id TEXT PRIMARY KEY,
            email TEXT,
            stripe_customer_id TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS chefs (
            id TEXT PRIMARY KEY,
            full_name TEXT,
            stripe_chef_id TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS admin_users (
            id TEXT PRIMARY KEY,
            email TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS booking_requests (
            id TEXT PRIMARY KEY,
            event_date TEXT NOT NULL,
            customer_id TEXT,
            chef_id TEXT,
            total_price NUMERIC,
            deposit_paid BOOLEAN NOT NULL DEFAULT FALSE,
            deposit_amount NUMERIC,
            payment_status TEXT DEFAULT 'pending',
            final_customer_paid BOOLEAN NOT NULL DEFAULT FALSE,
            final_chef_paid BOOLEAN NOT NULL DEFAULT FALSE,
            final_chef_paid_amount NUMERIC,
            final_transfer_id TEXT,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_booking_requests_event_date ON booking_requests(event_date)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (db *DB) rebind(query string) string {
	if db.driver != config.DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
