package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/tursodatabase/libsql-client-go/libsql"
)

var (
	ErrDatabaseURLRequired = errors.New("TURSO_DATABASE_URL environment variable is required")
	ErrAuthTokenRequired   = errors.New("TURSO_AUTH_TOKEN environment variable is required")
)

const (
	pingTimeout  = 10 * time.Second
	maxOpenConns = 8
)

// DB wraps the libSQL connection pool that backs the vector store.
type DB struct {
	*sql.DB
}

// Open connects to a libSQL database and pings it. A local sqld instance
// (localhost or 127.0.0.1) is reached without an auth token.
func Open(dbURL, authToken string) (*DB, error) {
	logger := util.NewLoggerFromEnv().With().Str("component", "db").Logger()

	dbURL = strings.TrimSpace(dbURL)
	if dbURL == "" {
		logger.Error().Msg("database URL not set")
		return nil, ErrDatabaseURLRequired
	}

	var opts []libsql.Option
	switch {
	case authToken != "":
		opts = append(opts, libsql.WithAuthToken(authToken))
	case !isLocal(dbURL):
		logger.Error().Str("url", dbURL).Msg("auth token not set for remote database")
		return nil, ErrAuthTokenRequired
	}

	connector, err := libsql.NewConnector(dbURL, opts...)
	if err != nil {
		logger.Err(err).Msg("failed to create connector")
		return nil, fmt.Errorf("failed to create libsql connector: %w", err)
	}

	pool := sql.OpenDB(connector)
	pool.SetMaxOpenConns(maxOpenConns)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		logger.Err(err).Msg("failed to ping database")
		_ = pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: pool}, nil
}

func isLocal(dbURL string) bool {
	parsed, err := url.Parse(dbURL)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}

func (db *DB) Close() error {
	return db.DB.Close()
}
