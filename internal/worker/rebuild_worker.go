package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/movie-recommender/config"
	"github.com/dustin/movie-recommender/pkg/logger"
	"github.com/robfig/cron/v3"
)

const defaultRebuildInterval = time.Hour

// RebuildFunc rebuilds the index; ctx is cancelled when the worker stops
type RebuildFunc func(ctx context.Context) error

// RebuildWorker runs scheduled index rebuilds. A run that is still going when
// the next one is due makes the next one skip.
type RebuildWorker struct {
	name      string
	cron      *cron.Cron
	rebuild   RebuildFunc
	spec      string
	logger    *logger.Logger
	entryID   cron.EntryID
	ctx       context.Context
	cancel    context.CancelFunc

	mu        sync.Mutex
	lastRun   time.Time
	lastError error
}

// NewRebuildWorker creates a cron-scheduled worker with validation and defaults.
// RebuildSchedule (standard cron syntax) wins over RebuildInterval.
func NewRebuildWorker(cfg *config.WorkerConfig, name string, rebuild RebuildFunc, log *logger.Logger) (*RebuildWorker, error) {
	spec := "@every " + defaultRebuildInterval.String()
	if cfg != nil && cfg.RebuildInterval != "" {
		duration, err := time.ParseDuration(cfg.RebuildInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid rebuild interval '%s': %v", cfg.RebuildInterval, err)
		}
		if duration < time.Second {
			return nil, fmt.Errorf("invalid rebuild interval '%s': must be at least 1s", cfg.RebuildInterval)
		}
		spec = "@every " + duration.String()
	}
	if cfg != nil && cfg.RebuildSchedule != "" {
		if _, err := cron.ParseStandard(cfg.RebuildSchedule); err != nil {
			return nil, fmt.Errorf("invalid rebuild schedule '%s': %v", cfg.RebuildSchedule, err)
		}
		spec = cfg.RebuildSchedule
	}

	w := &RebuildWorker{
		name:    name,
		rebuild: rebuild,
		spec:    spec,
		logger:  log.WithComponent("rebuild-worker"),
	}
	w.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{w.logger})))
	return w, nil
}

// Start schedules and begins the rebuild worker
func (w *RebuildWorker) Start() error {
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.logger.Info("Starting rebuild worker: " + w.name + " (" + w.spec + ")")

	entryID, err := w.cron.AddFunc(w.spec, w.run)
	if err != nil {
		w.cancel()
		w.logger.Error("Failed to schedule rebuild worker " + w.name + ": " + err.Error())
		return err
	}

	w.entryID = entryID
	w.cron.Start()
	w.logger.Info("Rebuild worker started successfully: " + w.name)
	return nil
}

func (w *RebuildWorker) run() {
	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	w.logger.Debug("Executing scheduled rebuild for worker: " + w.name)
	start := time.Now()
	err := w.rebuild(ctx)

	w.mu.Lock()
	w.lastRun = start
	w.lastError = err
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("Scheduled rebuild failed for worker " + w.name + ": " + err.Error())
		return
	}
	w.logger.Info("Scheduled rebuild completed for worker " + w.name + " in " + time.Since(start).String())
}

// Stop cancels an in-flight rebuild and waits for it to return
func (w *RebuildWorker) Stop() error {
	w.logger.Info("Stopping rebuild worker: " + w.name)

	if w.entryID > 0 {
		w.cron.Remove(w.entryID)
		w.entryID = 0
	}
	if w.cancel != nil {
		w.cancel()
	}

	ctx := w.cron.Stop()
	<-ctx.Done()

	w.logger.Info("Rebuild worker stopped: " + w.name)
	return nil
}

// LastResult reports when the last scheduled rebuild started and how it ended.
// The time is zero before the first run.
func (w *RebuildWorker) LastResult() (time.Time, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun, w.lastError
}

// IsRunning checks if the worker has active cron entries
func (w *RebuildWorker) IsRunning() bool {
	return len(w.cron.Entries()) > 0
}

// NextRun reports when the next rebuild is due; zero when not running
func (w *RebuildWorker) NextRun() time.Time {
	if w.entryID == 0 {
		return time.Time{}
	}
	return w.cron.Entry(w.entryID).Next
}

// cronLogger routes cron's own messages through the service logger
type cronLogger struct {
	logger *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(fmt.Sprint(append([]interface{}{"cron: " + msg + " "}, keysAndValues...)...))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprint(append([]interface{}{"cron: " + msg + ": " + err.Error() + " "}, keysAndValues...)...))
}
