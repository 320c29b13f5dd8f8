package countdown

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/smokyabdulrahman/prayer-countdown/internal/prayer"
)

const (
	tickSpec      = "@every 1s"
	retryInterval = time.Minute
)

// Sink receives every resolution the driver computes.
type Sink interface {
	Notify(ctx context.Context, r prayer.Resolution) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r prayer.Resolution) error

func (f SinkFunc) Notify(ctx context.Context, r prayer.Resolution) error { return f(ctx, r) }

// Driver owns the tick schedule and the latest snapshot. Every tick reads
// the snapshot once, resolves and fans the result out to the sinks.
type Driver struct {
	table TimeTable
	clock Clock
	sinks []Sink
	log   *logrus.Entry
	cron  *cron.Cron
	job   cron.Job

	snap atomic.Pointer[Snapshot]

	mu      sync.Mutex // guards entry, running and ctx
	entry   cron.EntryID
	running bool
	ctx     context.Context
}

// Option configures a Driver.
type Option func(*Driver)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(d *Driver) { d.clock = c }
}

// WithSinks adds sinks.
func WithSinks(sinks ...Sink) Option {
	return func(d *Driver) { d.sinks = append(d.sinks, sinks...) }
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(d *Driver) { d.log = log }
}

// WithCron schedules ticks on an existing cron instance. Stop stops it.
func WithCron(c *cron.Cron) Option {
	return func(d *Driver) { d.cron = c }
}

// New returns a stopped Driver reading from table.
func New(table TimeTable, opts ...Option) *Driver {
	d := &Driver{
		table: table,
		clock: SystemClock{},
		log:   logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.WithField("component", "countdown")

	cronLog := cron.PrintfLogger(d.log)
	if d.cron == nil {
		d.cron = cron.New(cron.WithLogger(cronLog))
	}
	// One wrapped job for the driver's lifetime, so the skip guard survives
	// Reload removing and re-adding the entry.
	d.job = cron.NewChain(cron.SkipIfStillRunning(cronLog)).Then(cron.FuncJob(d.run))
	return d
}

func (d *Driver) run() {
	d.mu.Lock()
	ctx := d.ctx
	d.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	d.Tick(ctx)
}

// Start loads the first snapshot, emits one tick immediately and then ticks
// once per second until Stop.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("countdown driver already started")
	}
	d.running = true
	d.ctx = ctx
	d.mu.Unlock()

	if err := d.Reload(ctx); err != nil {
		return err
	}
	d.Tick(ctx)
	d.cron.Start()
	return nil
}

// Snapshot returns the snapshot the next tick will read.
func (d *Driver) Snapshot() *Snapshot {
	return d.snap.Load()
}

// Tick resolves the next prayer against the current snapshot and notifies
// every sink. The snapshot is reloaded first when the date has changed or a
// partial load is due for a retry.
func (d *Driver) Tick(ctx context.Context) prayer.Resolution {
	now := d.clock.Now()

	snap := d.snap.Load()
	if d.stale(snap, now) {
		if err := d.Reload(ctx); err != nil {
			d.log.WithError(err).Error("reschedule failed")
		}
		snap = d.snap.Load()
	}

	res := snap.Resolve(now)
	for _, sink := range d.sinks {
		if err := sink.Notify(ctx, res); err != nil {
			d.log.WithError(err).WithField("sink", fmt.Sprintf("%T", sink)).Warn("sink failed")
		}
	}
	return res
}

func (d *Driver) stale(snap *Snapshot, now time.Time) bool {
	if !snap.Covers(now) {
		return true
	}
	return snap.Partial && now.Sub(snap.LoadedAt) >= retryInterval
}

// Reload cancels the pending tick, swaps in a freshly loaded snapshot and,
// when the driver is running, schedules ticks again.
func (d *Driver) Reload(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.entry != 0 {
		d.cron.Remove(d.entry)
		d.entry = 0
	}

	snap, err := LoadSnapshot(ctx, d.table, d.clock.Now())
	if err != nil {
		d.log.WithError(err).Warn("prayer times unavailable")
	}
	d.snap.Store(snap)
	d.log.WithFields(logrus.Fields{
		"date":    snap.Date.Format("2006-01-02"),
		"partial": snap.Partial,
	}).Debug("snapshot loaded")

	if !d.running {
		return nil
	}
	id, err := d.cron.AddJob(tickSpec, d.job)
	if err != nil {
		return fmt.Errorf("schedule tick: %w", err)
	}
	d.entry = id
	return nil
}

// Stop halts the schedule and waits for a running tick to return.
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	if d.entry != 0 {
		d.cron.Remove(d.entry)
		d.entry = 0
	}
	d.mu.Unlock()

	<-d.cron.Stop().Done()
}
