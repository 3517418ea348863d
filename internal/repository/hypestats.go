package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kjannette/hype-stats-backend/internal/db"
	"github.com/kjannette/hype-stats-backend/internal/logger"
	"github.com/kjannette/hype-stats-backend/internal/metrics"
	"github.com/kjannette/hype-stats-backend/internal/models"
)

type HypeStatsRepo struct {
	dialer db.Dialer
	loc    *time.Location
	now    func() time.Time
}

// NewHypeStatsRepo returns a repo whose day boundary is midnight in loc.
func NewHypeStatsRepo(dialer db.Dialer, loc *time.Location) *HypeStatsRepo {
	if loc == nil {
		loc = time.Local
	}
	return &HypeStatsRepo{dialer: dialer, loc: loc, now: time.Now}
}

// WithClock replaces the time source used to find the current day.
func (r *HypeStatsRepo) WithClock(now func() time.Time) *HypeStatsRepo {
	r.now = now
	return r
}

// GetToday returns every record timestamped since the start of the current
// day, oldest first. The result is never nil on success.
func (r *HypeStatsRepo) GetToday(ctx context.Context) ([]models.StatsRecord, error) {
	return r.GetSince(ctx, StartOfDay(r.now(), r.loc))
}

// GetSince dials a dedicated connection, runs one query and releases the
// connection before returning, whatever the outcome.
func (r *HypeStatsRepo) GetSince(ctx context.Context, since time.Time) (recs []models.StatsRecord, err error) {
	start := time.Now()
	defer func() {
		metrics.StoreFetchDuration.Observe(time.Since(start).Seconds())
		metrics.StoreFetchesTotal.WithLabelValues(outcome(err)).Inc()
	}()

	conn, err := r.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	defer release(ctx, conn)

	recs, err = conn.FindSince(ctx, since)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []models.StatsRecord{}
	}
	metrics.StoreRecordsReturned.Observe(float64(len(recs)))
	return recs, nil
}

// Ping dials, pings and releases a connection.
func (r *HypeStatsRepo) Ping(ctx context.Context) error {
	conn, err := r.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	defer release(ctx, conn)
	return conn.Ping(ctx)
}

func release(ctx context.Context, conn db.Conn) {
	// still release when the request was cancelled
	if err := conn.Close(context.WithoutCancel(ctx)); err != nil {
		logger.FromContext(ctx).Warn("store connection close failed", "error", err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, db.ErrConnect):
		return metrics.OutcomeConnectError
	default:
		return metrics.OutcomeQueryError
	}
}
