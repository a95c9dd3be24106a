package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/marketsync/internal/model"
)

// ErrInsufficientData indicates trade_cal does not hold enough open days to
// answer the question. Callers must treat this as fatal for the run: pruning
// against a short window would delete live data.
var ErrInsufficientData = errors.New("insufficient calendar data")

// Service reads the trading calendar from the master cluster. Session-close
// arithmetic runs on the exchange-local clock in loc.
type Service struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// New creates a calendar service backed by the master pool. A nil loc means
// UTC.
func New(pool *pgxpool.Pool, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{pool: pool, loc: loc}
}

// IsOpen reports whether date d is an open trading day for the exchange.
// Unknown dates are closed.
func (s *Service) IsOpen(ctx context.Context, exchange string, d time.Time) (bool, error) {
	var open bool
	err := s.pool.QueryRow(ctx,
		`SELECT is_open = 1 FROM trade_cal WHERE exchange = $1 AND cal_date = $2`,
		exchange, model.DateOf(d),
	).Scan(&open)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query trade_cal: %w", err)
	}
	return open, nil
}

// RecentOpenDates returns the count most recent open trading days up to and
// including upTo, most recent first. The result has length exactly count;
// fewer known open days is ErrInsufficientData.
func (s *Service) RecentOpenDates(ctx context.Context, exchange string, upTo time.Time, count int) ([]time.Time, error) {
	if count <= 0 {
		return nil, fmt.Errorf("recent open dates: count must be positive, got %d", count)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT cal_date FROM trade_cal
		 WHERE exchange = $1 AND is_open = 1 AND cal_date <= $2
		 ORDER BY cal_date DESC LIMIT $3`,
		exchange, model.DateOf(upTo), count,
	)
	if err != nil {
		return nil, fmt.Errorf("query trade_cal: %w", err)
	}
	dates, err := scanDates(rows)
	if err != nil {
		return nil, err
	}
	if len(dates) < count {
		return nil, fmt.Errorf("%w: have %d open days up to %s, need %d",
			ErrInsufficientData, len(dates), model.FormatDate(upTo), count)
	}
	return dates, nil
}

// CutoffFor returns the retention boundary: the earliest of the keep most
// recent open trading days up to upTo. Rows strictly older than the cutoff
// are eligible for deletion.
func (s *Service) CutoffFor(ctx context.Context, exchange string, upTo time.Time, keep int) (time.Time, error) {
	dates, err := s.RecentOpenDates(ctx, exchange, upTo, keep)
	if err != nil {
		return time.Time{}, err
	}
	// dates are descending; the cutoff is the last one.
	return dates[len(dates)-1], nil
}

// OpenDatesBetween returns the open trading days in [start, end], ascending.
func (s *Service) OpenDatesBetween(ctx context.Context, exchange string, start, end time.Time) ([]time.Time, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT cal_date FROM trade_cal
		 WHERE exchange = $1 AND is_open = 1 AND cal_date BETWEEN $2 AND $3
		 ORDER BY cal_date`,
		exchange, model.DateOf(start), model.DateOf(end),
	)
	if err != nil {
		return nil, fmt.Errorf("query trade_cal: %w", err)
	}
	return scanDates(rows)
}

// LastClosedOpenDate returns the most recent open trading day whose session
// has fully closed as of now. Today only counts once the clock has passed
// closeBuffer past midnight (exchange local time); before that the cursor
// must not advance into the live session.
func (s *Service) LastClosedOpenDate(ctx context.Context, exchange string, now time.Time, closeBuffer time.Duration) (time.Time, error) {
	local := now.In(s.loc)
	dates, err := s.RecentOpenDates(ctx, exchange, local, 2)
	if err != nil {
		return time.Time{}, err
	}
	return resolveLastClosed(dates, local, closeBuffer)
}

// resolveLastClosed picks the last fully closed day from the two most recent
// open days (descending). now must already be in the exchange-local zone:
// the close buffer counts from local midnight, not UTC midnight.
func resolveLastClosed(desc []time.Time, now time.Time, closeBuffer time.Duration) (time.Time, error) {
	if len(desc) == 0 {
		return time.Time{}, ErrInsufficientData
	}
	today := model.DateOf(now)
	latest := desc[0]
	if !latest.Equal(today) {
		return latest, nil
	}
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if now.Sub(midnight) >= closeBuffer {
		// Session closed; today's data is final.
		return latest, nil
	}
	if len(desc) < 2 {
		return time.Time{}, fmt.Errorf("%w: no closed open day before %s",
			ErrInsufficientData, model.FormatDate(today))
	}
	return desc[1], nil
}

func scanDates(rows pgx.Rows) ([]time.Time, error) {
	defer rows.Close()
	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan cal_date: %w", err)
		}
		out = append(out, model.DateOf(d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade_cal: %w", err)
	}
	return out, nil
}
