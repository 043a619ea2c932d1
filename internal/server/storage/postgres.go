package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type DB struct {
	*sqlx.DB
	url string
}

// NewPostgresDB connects to dbURL, falling back to DATABASE_URL when empty.
func NewPostgresDB(dbURL string) (*DB, error) {
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, url: dbURL}, nil
}

// WrapDB adapts an existing connection. url is needed for LISTEN/NOTIFY
// subscriptions and may be empty when those are not used.
func WrapDB(db *sqlx.DB, url string) *DB {
	return &DB{DB: db, url: url}
}

// URL returns the connection string the pool was opened with.
func (db *DB) URL() string {
	return db.url
}

func (db *DB) Close() error {
	return db.DB.Close()
}
