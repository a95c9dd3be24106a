package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/marketsync/internal/calendar"
	"github.com/rickgao/marketsync/internal/config"
	"github.com/rickgao/marketsync/internal/model"
	"github.com/rickgao/marketsync/internal/normalize"
	"github.com/rickgao/marketsync/internal/provider"
	"github.com/rickgao/marketsync/internal/writer"
)

// calendarTable refetches in full each run: the row count is tiny and
// exchanges revise future holiday schedules.
const calendarTable = "trade_cal"

// compactLayout is the date format the provider sidecar expects.
const compactLayout = "20060102"

// Calendar answers trading-day questions from the synced calendar table.
type Calendar interface {
	OpenDatesBetween(ctx context.Context, exchange string, start, end time.Time) ([]time.Time, error)
	RecentOpenDates(ctx context.Context, exchange string, upTo time.Time, count int) ([]time.Time, error)
	CutoffFor(ctx context.Context, exchange string, upTo time.Time, keep int) (time.Time, error)
	LastClosedOpenDate(ctx context.Context, exchange string, now time.Time, closeBuffer time.Duration) (time.Time, error)
}

// CursorStore persists per-table progress.
type CursorStore interface {
	Get(ctx context.Context, cluster, table, column string) (string, bool, error)
	Set(ctx context.Context, cluster, table, column, value string) error
}

// Provider fetches raw rows from the upstream data source.
type Provider interface {
	Fetch(ctx context.Context, table, start, end string, filters map[string]string) ([]provider.RawRow, error)
}

// Writer persists normalized rows.
type Writer interface {
	Write(ctx context.Context, spec model.TableSpec, mode writer.Mode, rows []model.MarketRow) (writer.Result, error)
}

// Pruner enforces retention windows.
type Pruner interface {
	Prune(ctx context.Context, spec model.TableSpec, cutoff time.Time) (int64, error)
}

// CodeSource lists the active security universe for per-code fetches.
type CodeSource interface {
	ActiveCodes(ctx context.Context) ([]string, error)
}

// Options tune a single run.
type Options struct {
	// Since overrides the computed start date.
	Since *time.Time
	// Until overrides the computed end date.
	Until *time.Time
	// LookbackDays widens the read range by stepping the start back this
	// many open trading days from the end. The persisted cursor is never
	// moved backward by a lookback re-fetch.
	LookbackDays int
	// Mode selects the conflict policy for writes.
	Mode writer.Mode
	// NoDelete skips the retention phase.
	NoDelete bool
}

// Runner executes table runs against a fixed set of collaborators.
type Runner struct {
	cal     Calendar
	cursors CursorStore
	prov    Provider
	wr      Writer
	pr      Pruner
	codes   CodeSource

	cluster   string
	exchange  string
	epoch     time.Time
	closeBuf  time.Duration
	codeChunk int

	logger *slog.Logger
	now    func() time.Time
}

// New creates a Runner. cluster becomes the cursor namespace so several
// deployments can share one etl_state table.
func New(cal Calendar, cursors CursorStore, prov Provider, wr Writer, pr Pruner, codes CodeSource, cluster string, sync config.SyncConfig, logger *slog.Logger) (*Runner, error) {
	epoch, err := time.Parse(time.DateOnly, sync.DefaultEpoch)
	if err != nil {
		return nil, fmt.Errorf("parse default epoch: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cal:       cal,
		cursors:   cursors,
		prov:      prov,
		wr:        wr,
		pr:        pr,
		codes:     codes,
		cluster:   cluster,
		exchange:  sync.Exchange,
		epoch:     epoch,
		closeBuf:  sync.CloseBuffer,
		codeChunk: sync.CodeChunkSize,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// RunAll runs every given table in order and returns one report each. A
// failed table does not stop the rest.
func (r *Runner) RunAll(ctx context.Context, specs []model.TableSpec, opts Options) []model.RunReport {
	reports := make([]model.RunReport, 0, len(specs))
	for _, spec := range specs {
		rep := r.RunTable(ctx, spec, opts)
		reports = append(reports, rep)
		if !rep.Succeeded() {
			r.logger.Error("table run failed", "table", spec.Name, "error", rep.Error)
		}
	}
	return reports
}

// RunTable executes one full run for a table and reports the outcome.
func (r *Runner) RunTable(ctx context.Context, spec model.TableSpec, opts Options) model.RunReport {
	started := r.now()
	rep := model.RunReport{
		RunID:     uuid.NewString(),
		Table:     spec.Name,
		CursorCol: spec.CursorColumn,
	}
	log := r.logger.With("run_id", rep.RunID, "table", spec.Name)

	err := r.run(ctx, log, spec, opts, &rep)
	if err != nil {
		rep.Error = err.Error()
	}
	rep.Duration = r.now().Sub(started).String()

	log.Info("run finished",
		"fetched", rep.RowsFetched,
		"written", rep.RowsWritten,
		"deleted", rep.RowsDeleted,
		"cursor", rep.Cursor,
		"ok", rep.Succeeded(),
	)
	return rep
}

func (r *Runner) run(ctx context.Context, log *slog.Logger, spec model.TableSpec, opts Options, rep *model.RunReport) error {
	if spec.CursorColumn == "" {
		return r.runSnapshot(ctx, spec, opts, rep)
	}
	if spec.Name == calendarTable {
		return r.runCalendar(ctx, spec, opts, rep)
	}

	win, err := r.resolveWindow(ctx, spec, opts)
	if err != nil {
		return err
	}
	rep.Start = model.FormatDate(win.start)
	rep.End = model.FormatDate(win.end)
	if !win.cutoff.IsZero() {
		rep.Cutoff = model.FormatDate(win.cutoff)
	}
	rep.Cursor = win.cursorStr

	if win.start.After(win.end) {
		log.Info("already up to date", "cursor", win.cursorStr)
		return r.maybePrune(ctx, spec, opts, win, rep)
	}

	if spec.PerDay {
		if err := r.runPerDay(ctx, log, spec, opts, win, rep); err != nil {
			return err
		}
	} else {
		if err := r.runRange(ctx, spec, opts, win, rep); err != nil {
			return err
		}
	}

	return r.maybePrune(ctx, spec, opts, win, rep)
}

// window is the resolved read range for one run.
type window struct {
	start, end time.Time
	// cutoff is the retention boundary, zero when the table keeps
	// everything.
	cutoff time.Time
	// floor is the committed cursor position. Cursor writes below it are
	// suppressed so lookback re-fetches never rewind progress.
	floor     time.Time
	cursorStr string
}

// exchangeFor returns the spec's calendar, falling back to the configured
// default exchange.
func (r *Runner) exchangeFor(spec model.TableSpec) string {
	if spec.Exchange != "" {
		return spec.Exchange
	}
	return r.exchange
}

func (r *Runner) resolveWindow(ctx context.Context, spec model.TableSpec, opts Options) (window, error) {
	var win window

	end := time.Time{}
	if opts.Until != nil {
		end = model.DateOf(*opts.Until)
	} else {
		var err error
		end, err = r.cal.LastClosedOpenDate(ctx, r.exchangeFor(spec), r.now(), r.closeBuf)
		if err != nil {
			return win, fmt.Errorf("resolve end date: %w", err)
		}
	}
	win.end = end

	if spec.HasRetention() {
		cutoff, err := r.cal.CutoffFor(ctx, r.exchangeFor(spec), end, spec.KeepOpenDays)
		if err != nil {
			return win, fmt.Errorf("resolve retention cutoff: %w", err)
		}
		win.cutoff = cutoff
	}

	value, found, err := r.cursors.Get(ctx, r.cluster, spec.Name, spec.CursorColumn)
	if err != nil {
		return win, err
	}

	var start time.Time
	switch {
	case opts.Since != nil:
		start = model.DateOf(*opts.Since)
	case found:
		cur, err := model.ParseCursorDate(value)
		if err != nil {
			return win, fmt.Errorf("corrupt cursor %q for %s: %w", value, spec.Name, err)
		}
		win.floor = cur
		win.cursorStr = model.FormatDate(cur)
		start = cur.AddDate(0, 0, 1)
	default:
		// First run backfills everything; the prune phase trims to the
		// retention window afterwards.
		start = r.epoch
	}

	if opts.LookbackDays > 0 {
		back, err := r.lookbackStart(ctx, spec, end, opts.LookbackDays)
		if err != nil {
			return win, err
		}
		if !win.cutoff.IsZero() && back.Before(win.cutoff) {
			// Rows behind the cutoff are deleted by the next prune phase;
			// the lookback never widens past it.
			back = win.cutoff
		}
		if back.Before(start) {
			start = back
		}
		if start.Before(r.epoch) {
			start = r.epoch
		}
	}
	win.start = start
	return win, nil
}

// lookbackStart steps back n open trading days from end.
func (r *Runner) lookbackStart(ctx context.Context, spec model.TableSpec, end time.Time, n int) (time.Time, error) {
	recent, err := r.cal.RecentOpenDates(ctx, r.exchangeFor(spec), end, n+1)
	if err != nil {
		if errors.Is(err, calendar.ErrInsufficientData) {
			// Shorter history than the lookback: refetch all of it.
			return r.epoch, nil
		}
		return time.Time{}, fmt.Errorf("resolve lookback start: %w", err)
	}
	return recent[len(recent)-1], nil
}

// runPerDay walks open trading days, committing the cursor after each day.
func (r *Runner) runPerDay(ctx context.Context, log *slog.Logger, spec model.TableSpec, opts Options, win window, rep *model.RunReport) error {
	days, err := r.cal.OpenDatesBetween(ctx, r.exchangeFor(spec), win.start, win.end)
	if err != nil {
		return fmt.Errorf("resolve trading days: %w", err)
	}

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return err
		}
		var fetched, written int64
		if spec.PerCode {
			fetched, written, err = r.syncDayPerCode(ctx, spec, opts, day)
		} else {
			fetched, written, err = r.syncUnit(ctx, spec, opts, day, day, nil)
		}
		rep.RowsFetched += fetched
		rep.RowsWritten += written
		if err != nil {
			return fmt.Errorf("day %s: %w", model.FormatDate(day), err)
		}

		if err := r.advanceCursor(ctx, spec, win.floor, day, rep); err != nil {
			return err
		}
		log.Debug("day committed", "date", model.FormatDate(day), "rows", fetched)
	}
	return nil
}

// runRange fetches the whole window in one request and commits the cursor at
// the window end.
func (r *Runner) runRange(ctx context.Context, spec model.TableSpec, opts Options, win window, rep *model.RunReport) error {
	fetched, written, err := r.syncUnit(ctx, spec, opts, win.start, win.end, nil)
	rep.RowsFetched += fetched
	rep.RowsWritten += written
	if err != nil {
		return err
	}
	return r.advanceCursor(ctx, spec, win.floor, win.end, rep)
}

// syncDayPerCode splits one day across the security universe in code chunks.
// The day commits only after every chunk lands, so a cursor at day D means
// all of D's codes are in.
func (r *Runner) syncDayPerCode(ctx context.Context, spec model.TableSpec, opts Options, day time.Time) (fetched, written int64, err error) {
	codes, err := r.codes.ActiveCodes(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list security universe: %w", err)
	}
	chunk := r.codeChunk
	if chunk <= 0 {
		chunk = len(codes)
	}
	for start := 0; start < len(codes); start += chunk {
		end := start + chunk
		if end > len(codes) {
			end = len(codes)
		}
		filters := map[string]string{spec.SecurityCol: strings.Join(codes[start:end], ",")}
		f, w, err := r.syncUnit(ctx, spec, opts, day, day, filters)
		fetched += f
		written += w
		if err != nil {
			return fetched, written, err
		}
	}
	return fetched, written, nil
}

// syncUnit is one fetch-normalize-write pass.
func (r *Runner) syncUnit(ctx context.Context, spec model.TableSpec, opts Options, start, end time.Time, extra map[string]string) (int64, int64, error) {
	filters := make(map[string]string, len(spec.Filters)+len(extra))
	for k, v := range spec.Filters {
		filters[k] = v
	}
	for k, v := range extra {
		filters[k] = v
	}

	startStr, endStr := "", ""
	if !start.IsZero() {
		startStr = start.Format(compactLayout)
	}
	if !end.IsZero() {
		endStr = end.Format(compactLayout)
	}
	raws, err := r.prov.Fetch(ctx, spec.Name, startStr, endStr, filters)
	if err != nil {
		return 0, 0, err
	}
	if len(raws) == 0 {
		return 0, 0, nil
	}

	rows := make([]model.MarketRow, 0, len(raws))
	for _, raw := range raws {
		row, err := normalize.Row(spec, raw)
		if err != nil {
			r.logger.Warn("dropping unusable row", "table", spec.Name, "error", err)
			continue
		}
		rows = append(rows, row)
	}

	res, err := r.wr.Write(ctx, spec, opts.Mode, rows)
	if err != nil {
		return int64(len(raws)), res.Written, err
	}
	return int64(len(raws)), res.Written, nil
}

// advanceCursor persists progress, unless the unit sits at or below the
// committed floor (lookback re-fetch).
func (r *Runner) advanceCursor(ctx context.Context, spec model.TableSpec, floor, day time.Time, rep *model.RunReport) error {
	if !floor.IsZero() && !day.After(floor) {
		return nil
	}
	value := model.FormatDate(day)
	if err := r.cursors.Set(ctx, r.cluster, spec.Name, spec.CursorColumn, value); err != nil {
		return err
	}
	rep.Cursor = value
	return nil
}

func (r *Runner) maybePrune(ctx context.Context, spec model.TableSpec, opts Options, win window, rep *model.RunReport) error {
	if opts.NoDelete || !spec.HasRetention() {
		return nil
	}
	deleted, err := r.pr.Prune(ctx, spec, win.cutoff)
	rep.RowsDeleted += deleted
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	return nil
}

// runSnapshot replaces reference tables that have no time axis, like the
// security master.
func (r *Runner) runSnapshot(ctx context.Context, spec model.TableSpec, opts Options, rep *model.RunReport) error {
	fetched, written, err := r.syncUnit(ctx, spec, Options{Mode: writer.ModeUpsert}, time.Time{}, time.Time{}, nil)
	rep.RowsFetched += fetched
	rep.RowsWritten += written
	return err
}

// runCalendar refetches the trading calendar from the epoch through the end
// of the current year. Future rows matter: end-date resolution and holiday
// schedules read ahead of today.
func (r *Runner) runCalendar(ctx context.Context, spec model.TableSpec, opts Options, rep *model.RunReport) error {
	start := r.epoch
	if opts.Since != nil {
		start = model.DateOf(*opts.Since)
	}
	end := model.Date(r.now().Year(), time.December, 31)
	if opts.Until != nil {
		end = model.DateOf(*opts.Until)
	}
	rep.Start = model.FormatDate(start)
	rep.End = model.FormatDate(end)

	fetched, written, err := r.syncUnit(ctx, spec, Options{Mode: writer.ModeUpsert}, start, end, nil)
	rep.RowsFetched += fetched
	rep.RowsWritten += written
	if err != nil {
		return err
	}
	return r.advanceCursor(ctx, spec, time.Time{}, end, rep)
}
