// Package verify flips email_verified directly in the backend database.
// The marketplace has no API for bulk verification, so seeding a fresh
// environment needs this side channel before product import can log
// sellers in.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lukman83/koalaswap-seed/config"
)

const verifySQL = `UPDATE users SET email_verified = true, updated_at = NOW() WHERE email_verified = false`

// Execer is the single database capability the verifier needs. *pgx.Conn
// and *pgxpool.Pool both satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Verifier marks unverified accounts as verified.
type Verifier struct {
	db  Execer
	log *slog.Logger
}

// New wraps an existing database handle.
func New(db Execer, log *slog.Logger) *Verifier {
	return &Verifier{db: db, log: log}
}

// Connect opens a connection to the backend database and returns a
// verifier plus its close func.
func Connect(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Verifier, func(), error) {
	conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to backend database: %w", err)
	}
	closeFn := func() {
		_ = conn.Close(context.Background())
	}
	return New(conn, log), closeFn, nil
}

// Once verifies every currently unverified account and returns how many
// rows changed.
func (v *Verifier) Once(ctx context.Context) (int64, error) {
	tag, err := v.db.Exec(ctx, verifySQL)
	if err != nil {
		return 0, fmt.Errorf("verify emails: %w", err)
	}
	count := tag.RowsAffected()
	if count > 0 {
		v.log.Info("verified user emails", "count", count)
	}
	return count, nil
}

// Watch runs Once on the given interval until maxDuration elapses or the
// context is cancelled, so registrations made by a concurrent import run
// get verified as they appear. Individual query failures are logged and
// the loop keeps going. Returns the total number of accounts verified.
func (v *Verifier) Watch(ctx context.Context, interval, maxDuration time.Duration) (int64, error) {
	v.log.Info("starting email verification monitor",
		"interval", interval.String(), "max_duration", maxDuration.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.After(maxDuration)

	var total int64
	for {
		count, err := v.Once(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return total, nil
			}
			v.log.Error("verification query failed", "error", err)
		}
		total += count

		select {
		case <-ctx.Done():
			v.log.Info("monitor stopped", "total_verified", total)
			return total, nil
		case <-deadline:
			v.log.Info("monitor completed", "total_verified", total)
			return total, nil
		case <-ticker.C:
		}
	}
}
