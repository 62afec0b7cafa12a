/*
scheduler.go - Automated year rollover

PURPOSE:
  Periodically opens the current year: every active staff member gets
  the ledgers of the year the configured zone is in, with the carry-over
  computed from the year before. OpenYear is idempotent, so running it
  every tick only does work right after the year changes or when staff
  are added.

CONFIGURATION:
  - CheckInterval: how often to check (ROLLOVER_CHECK_INTERVAL, default 1h)
  - Enabled: whether the scheduler runs at all (ENABLE_ROLLOVER)

USAGE:
  scheduler := NewRolloverScheduler(requests, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: OpenYear endpoint (manual rollover)
  - leave/request.go: OpenYear
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/hr-engine/leave"
)

// YearOpener is the part of the request service the scheduler drives.
type YearOpener interface {
	OpenYear(ctx context.Context, year int) (int, error)
}

// RolloverScheduler opens the current year on a ticker.
type RolloverScheduler struct {
	Opener        YearOpener
	Location      *time.Location
	CheckInterval time.Duration
	Enabled       bool
	Log           *zap.Logger
	Now           func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRolloverScheduler creates a scheduler over the request service,
// using the engine's zone to decide what "current year" means.
func NewRolloverScheduler(requests *leave.RequestService, log *zap.Logger) *RolloverScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RolloverScheduler{
		Opener:        requests,
		Location:      requests.Engine.Rules().Location(),
		CheckInterval: time.Hour,
		Enabled:       true,
		Log:           log,
		Now:           time.Now,
	}
}

// Start begins the scheduler. A second Start is a no-op.
func (rs *RolloverScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Log.Info("rollover scheduler disabled")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run()

	rs.Log.Info("rollover scheduler started", zap.Duration("interval", rs.CheckInterval))
}

// Stop stops the scheduler and waits for a running check to finish.
func (rs *RolloverScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker == nil {
		return
	}
	rs.ticker.Stop()
	close(rs.stop)
	rs.wg.Wait()
	rs.ticker = nil
	rs.Log.Info("rollover scheduler stopped")
}

func (rs *RolloverScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.RunNow(context.Background())

	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow(context.Background())
		case <-rs.stop:
			return
		}
	}
}

// RunNow opens the current year once and returns the number of ledgers
// created.
func (rs *RolloverScheduler) RunNow(ctx context.Context) int {
	loc := rs.Location
	if loc == nil {
		loc = time.UTC
	}
	year := rs.Now().In(loc).Year()

	created, err := rs.Opener.OpenYear(ctx, year)
	if err != nil {
		rs.Log.Error("rollover failed", zap.Int("year", year), zap.Int("created", created), zap.Error(err))
		return created
	}
	if created > 0 {
		rs.Log.Info("rollover completed", zap.Int("year", year), zap.Int("created", created))
	}
	return created
}
