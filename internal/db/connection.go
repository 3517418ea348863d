package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kjannette/hype-stats-backend/internal/models"
)

var (
	// ErrConnect wraps failures to establish or verify a store connection.
	ErrConnect = errors.New("store connect")
	// ErrQuery wraps failures while running a query or decoding its results.
	ErrQuery = errors.New("store query")
)

// Conn is a single store connection owned by one caller. Close must be
// called on every path once Dial has succeeded.
type Conn interface {
	// FindSince returns every record with timestamp >= since, ascending by timestamp.
	FindSince(ctx context.Context, since time.Time) ([]models.StatsRecord, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Dialer opens a fresh Conn per call. Nothing is shared between conns.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// NewDialer picks a backend from the URL scheme and parses the full
// connection string, so a malformed URL fails here rather than per request.
// Multi-host authorities (replica sets, Postgres failover lists) are accepted.
func NewDialer(rawURL, database, collection string) (Dialer, error) {
	scheme, _, ok := strings.Cut(rawURL, "://")
	if !ok {
		return nil, fmt.Errorf("store url %q has no scheme", redactScheme(rawURL))
	}

	switch strings.ToLower(scheme) {
	case "mongodb", "mongodb+srv":
		d, err := NewMongoDialer(rawURL, database, collection)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "postgres", "postgresql":
		d, err := NewPostgresDialer(rawURL, collection)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", scheme)
	}
}

// redactScheme keeps error messages free of anything past a stray ":".
func redactScheme(rawURL string) string {
	if i := strings.IndexAny(rawURL, ":@/"); i >= 0 {
		return rawURL[:i] + "..."
	}
	return rawURL
}

func connectErr(err error) error {
	return fmt.Errorf("%w: %w", ErrConnect, err)
}

func queryErr(err error) error {
	return fmt.Errorf("%w: %w", ErrQuery, err)
}
