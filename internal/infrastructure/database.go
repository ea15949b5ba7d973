package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/krobus00/satoshi/internal/config"
	_ "github.com/lib/pq"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultMinJitter      = 100 * time.Millisecond
	defaultMaxJitter      = 1 * time.Second
	defaultMaxIdleConns   = 2
	defaultMaxOpenConns   = 4
	defaultConnLifetime   = 1 * time.Hour
)

// NewPostgresConnection connects with exponential backoff. A single trade is
// written per run, so the pool is kept small.
func NewPostgresConnection(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("database dsn is required")
	}

	connectTimeout := cfg.PingInterval
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	maxRetry := cfg.MaxRetry
	if maxRetry < 0 {
		maxRetry = 0
	}

	minJitter := cfg.MinJitter
	if minJitter <= 0 {
		minJitter = defaultMinJitter
	}

	maxJitter := cfg.MaxJitter
	if maxJitter <= 0 {
		maxJitter = defaultMaxJitter
	}
	if maxJitter < minJitter {
		maxJitter = minJitter
	}

	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns <= 0 {
		maxIdleConns = defaultMaxIdleConns
	}

	maxOpenConns := cfg.MaxActiveConns
	if maxOpenConns <= 0 {
		maxOpenConns = defaultMaxOpenConns
	}

	maxConnLifetime := cfg.MaxConnLifetime
	if maxConnLifetime <= 0 {
		maxConnLifetime = defaultConnLifetime
	}

	backoff := retry.NewExponential(minJitter)
	backoff = retry.WithCappedDuration(maxJitter, backoff)
	backoff = retry.WithJitter(minJitter, backoff)
	backoff = retry.WithMaxRetries(uint64(maxRetry), backoff)

	attempt := 0
	db, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (*sqlx.DB, error) {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		db, err := sqlx.ConnectContext(attemptCtx, "postgres", cfg.DSN)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"attempt":      attempt,
				"max_retry":    maxRetry,
				"postgres_dsn": maskDSN(cfg.DSN),
			}).Warnf("postgres connection failed: %v", err)
			return nil, retry.RetryableError(err)
		}

		return db, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres after %d attempts: %w", attempt, err)
	}

	db.SetMaxIdleConns(maxIdleConns)
	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxLifetime(maxConnLifetime)

	logrus.WithFields(logrus.Fields{
		"max_retry":         maxRetry,
		"max_idle_conns":    maxIdleConns,
		"max_active_conns":  maxOpenConns,
		"max_conn_lifetime": maxConnLifetime,
	}).Debug("postgres connection established")

	return db, nil
}

func maskDSN(dsn string) string {
	idx := strings.Index(dsn, "@")
	if idx == -1 {
		return dsn
	}

	prefix := dsn[:idx]
	credsIdx := strings.LastIndex(prefix, "://")
	if credsIdx == -1 {
		return "***" + dsn[idx:]
	}

	return prefix[:credsIdx+3] + "***" + dsn[idx:]
}
