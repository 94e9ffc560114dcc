package probe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/shared-handles-go/sharedptr"
)

const (
	logMsgWorkerStarted   = "probe: worker started"
	logMsgWorkerFinished  = "probe: worker finished"
	logMsgProbeFailed     = "probe: probe failed"
	logMsgMonitorTick     = "probe: pool observed"
	logMsgMonitorExpired  = "probe: pool expired"
	logAttrWorkerID       = "worker_id"
	logAttrUseCount       = "use_count"
	logAttrError          = "error"
	logAttrProbes         = "probes"
	logAttrMonitorTicks   = "monitor_ticks"
	logAttrWeakObservers  = "weak_observers"
	defaultMonitorTimeout = 5 * time.Second
)

// Runner drives the workload.
type Runner struct {
	Workers         int
	ProbesPerWorker int
	MonitorInterval time.Duration
	Logger          *slog.Logger
}

// Summary reports what happened during Run.
type Summary struct {
	Probes          int64
	Failures        int64
	MonitorTicks    int
	ExpiryObserved  bool
	MaxObservedUses sharedptr.UseCountInt64
}

// Run takes ownership of owner: it hands a clone to every worker, keeps an aliasing handle on the
// pool statistics, observes the pool through a weak handle, and releases its own reference.
// The pool is closed by whichever of these lets go last.
func (r Runner) Run(ctx context.Context, owner *sharedptr.Shared[Pool]) Summary {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	stats := sharedptr.Alias(owner, owner.Get().Stats())
	observer := owner.Weak()

	monitorDone := make(chan monitorResult, 1)
	go func() {
		monitorDone <- r.monitor(ctx, observer, logger)
	}()

	var wg sync.WaitGroup
	for range r.Workers {
		wg.Add(1)
		go func(handle *sharedptr.Shared[Pool]) {
			defer wg.Done()
			defer handle.Release()

			r.work(ctx, handle, logger)
		}(owner.Clone())
	}

	owner.Release()
	wg.Wait()

	summary := Summary{
		Probes:   stats.Get().Probes.Load(),
		Failures: stats.Get().Failures.Load(),
	}
	stats.Release()

	monitored := <-monitorDone
	summary.MonitorTicks = monitored.ticks
	summary.ExpiryObserved = monitored.expired
	summary.MaxObservedUses = monitored.maxUses

	return summary
}

func (r Runner) work(ctx context.Context, handle *sharedptr.Shared[Pool], logger *slog.Logger) {
	workerID, err := uuid.NewV7()
	if err != nil {
		workerID = uuid.New()
	}

	logger.Debug(logMsgWorkerStarted, logAttrWorkerID, workerID.String(), logAttrUseCount, handle.UseCount())

	probes := 0
	for seq := range r.ProbesPerWorker {
		if ctx.Err() != nil {
			break
		}

		if _, err := handle.Get().Probe(ctx, workerID, seq); err != nil {
			logger.Warn(logMsgProbeFailed, logAttrWorkerID, workerID.String(), logAttrError, err.Error())
			continue
		}

		probes++
	}

	logger.Debug(logMsgWorkerFinished, logAttrWorkerID, workerID.String(), logAttrProbes, probes)
}

type monitorResult struct {
	ticks   int
	expired bool
	maxUses sharedptr.UseCountInt64
}

// monitor promotes the weak handle once per tick until the pool has expired.
func (r Runner) monitor(ctx context.Context, observer *sharedptr.Weak[Pool], logger *slog.Logger) monitorResult {
	defer observer.Release()

	ticker := time.NewTicker(r.MonitorInterval)
	defer ticker.Stop()

	timeout := time.NewTimer(defaultMonitorTimeout + time.Duration(r.ProbesPerWorker)*r.MonitorInterval)
	defer timeout.Stop()

	var result monitorResult
	for {
		locked := observer.Lock()
		if !locked.Valid() {
			result.expired = true
			logger.Info(logMsgMonitorExpired, logAttrMonitorTicks, result.ticks, logAttrWeakObservers, observer.WeakUseCount())
			return result
		}

		result.ticks++
		// The promoted handle itself counts as one owner.
		uses := locked.UseCount() - 1
		result.maxUses = max(result.maxUses, uses)
		logger.Debug(logMsgMonitorTick, logAttrUseCount, uses)
		locked.Release()

		select {
		case <-ctx.Done():
			return result
		case <-timeout.C:
			return result
		case <-ticker.C:
		}
	}
}
