package db

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kjannette/hype-stats-backend/internal/models"
)

var identRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresDialer serves the same records from a JSONB document table:
//
//	CREATE TABLE hype_stats (
//	    id        BIGSERIAL PRIMARY KEY,
//	    timestamp TIMESTAMPTZ NOT NULL,
//	    doc       JSONB NOT NULL DEFAULT '{}'
//	);
//
// A record is doc with "_id" and "timestamp" taken from the columns.
type PostgresDialer struct {
	cfg   *pgx.ConnConfig
	query string
}

// NewPostgresDialer parses dsn up front; pgx accepts comma-separated
// failover hosts.
func NewPostgresDialer(dsn, table string) (*PostgresDialer, error) {
	if !identRegexp.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres url: %w", err)
	}
	return &PostgresDialer{
		cfg: cfg,
		query: `SELECT id, timestamp, doc FROM ` + pgx.Identifier{table}.Sanitize() +
			` WHERE timestamp >= $1 ORDER BY timestamp ASC, id ASC`,
	}, nil
}

func (d *PostgresDialer) Dial(ctx context.Context) (Conn, error) {
	conn, err := pgx.ConnectConfig(ctx, d.cfg.Copy())
	if err != nil {
		return nil, connectErr(err)
	}
	return &pgConn{conn: conn, query: d.query}, nil
}

type pgConn struct {
	conn  *pgx.Conn
	query string
}

func (c *pgConn) FindSince(ctx context.Context, since time.Time) ([]models.StatsRecord, error) {
	rows, err := c.conn.Query(ctx, c.query, since)
	if err != nil {
		return nil, queryErr(err)
	}
	defer rows.Close()

	out := []models.StatsRecord{}
	for rows.Next() {
		var (
			id  int64
			ts  time.Time
			doc map[string]any
		)
		if err := rows.Scan(&id, &ts, &doc); err != nil {
			return nil, queryErr(err)
		}
		rec := models.StatsRecord(doc)
		if rec == nil {
			rec = models.StatsRecord{}
		}
		rec["_id"] = id
		rec["timestamp"] = ts
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, queryErr(err)
	}
	return out, nil
}

func (c *pgConn) Ping(ctx context.Context) error {
	if err := c.conn.Ping(ctx); err != nil {
		return connectErr(err)
	}
	return nil
}

func (c *pgConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}
