package sharedptr

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	logMsgBlockCreated     = "sharedptr: control block created"
	logMsgObjectDestroyed  = "sharedptr: managed object destroyed"
	logMsgBlockRetired     = "sharedptr: control block retired"
	logMsgDeleterFailed    = "sharedptr: deleter failed"
	logMsgPromotionRaced   = "sharedptr: promotion lost race against expiry"
	logAttrError           = "error"
	logAttrBlockID         = "block_id"
	logAttrLabel           = "label"
	logAttrType            = "type"
	logAttrLifetimeMS      = "lifetime_ms"
	logAttrWeakObservers   = "weak_observers"
	metricObjectsCreated   = "sharedptr_objects_created_total"
	metricObjectsDestroyed = "sharedptr_objects_destroyed_total"
	metricBlocksRetired    = "sharedptr_control_blocks_retired_total"
	metricPromotions       = "sharedptr_promotions_total"
	metricDeleterErrors    = "sharedptr_deleter_errors_total"
	metricObjectLifetime   = "sharedptr_object_lifetime_seconds"
	metricWeakAtExpiry     = "sharedptr_weak_observers_at_expiry"
	spanNameObjectLifetime = "sharedptr.object_lifetime"
	spanAttrBlockID        = "block_id"
	spanAttrLabel          = "label"
	spanAttrType           = "type"
	spanAttrLifetimeMS     = "lifetime_ms"
	spanAttrWeakObservers  = "weak_observers"
	spanAttrErrorType      = "error_type"
	labelType              = "type"
	labelLabel             = "label"
	labelStatus            = "status"
	statusSuccess          = "success"
	statusError            = "error"
	statusExpired          = "expired"
	errorTypeDeleter       = "deleter_failed"
)

// lifecycle carries the observability state of one control block.
// It is nil for control blocks constructed without options; all methods are nil-safe.
type lifecycle struct {
	cfg       *config
	id        uuid.UUID
	typeName  string
	createdAt time.Time
	ctx       context.Context
	span      SpanContext
}

// newLifecycle creates the lifecycle for a control block and emits the creation signals.
func newLifecycle(cfg *config, typeName string, block blockInspector) *lifecycle {
	if cfg == nil {
		return nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	lc := &lifecycle{
		cfg:       cfg,
		id:        id,
		typeName:  typeName,
		createdAt: time.Now(),
		ctx:       cfg.traceCtx,
	}

	if cfg.tracingCollector != nil {
		lc.ctx, lc.span = cfg.tracingCollector.StartSpan(cfg.traceCtx, spanNameObjectLifetime, map[string]string{
			spanAttrBlockID: id.String(),
			spanAttrType:    typeName,
			spanAttrLabel:   cfg.label,
		})
	}

	lc.logDebug(logMsgBlockCreated)
	lc.incrementCounter(metricObjectsCreated, lc.labels())

	if cfg.tracker != nil {
		cfg.tracker.register(lc, block)
	}

	return lc
}

// objectDestroyed emits the signals for the strong 1 -> 0 transition.
func (lc *lifecycle) objectDestroyed(deleterErr error, weakObservers UseCountInt64) {
	if lc == nil {
		return
	}

	lifetime := time.Since(lc.createdAt)

	if deleterErr != nil {
		lc.logError(logMsgDeleterFailed, deleterErr)
		lc.incrementCounter(metricDeleterErrors, lc.labels())
	}

	lc.logDebug(
		logMsgObjectDestroyed,
		logAttrLifetimeMS, toMilliseconds(lifetime),
		logAttrWeakObservers, weakObservers,
	)

	status := statusSuccess
	if deleterErr != nil {
		status = statusError
	}

	labels := lc.labels()
	lc.incrementCounter(metricObjectsDestroyed, labels)
	lc.recordDuration(metricObjectLifetime, lifetime, labels)
	lc.recordValue(metricWeakAtExpiry, float64(weakObservers), labels)

	lc.finishSpan(status, lifetime, weakObservers, deleterErr)
}

// blockRetired emits the signals for the weak 1 -> 0 transition.
func (lc *lifecycle) blockRetired() {
	if lc == nil {
		return
	}

	lc.logDebug(logMsgBlockRetired, logAttrLifetimeMS, toMilliseconds(time.Since(lc.createdAt)))
	lc.incrementCounter(metricBlocksRetired, lc.labels())

	if lc.cfg.tracker != nil {
		lc.cfg.tracker.unregister(lc.id)
	}
}

// promotion records the outcome of a weak-to-strong promotion attempt.
// raced is true when the strong count was positive at first sight but dropped to zero before the increment.
func (lc *lifecycle) promotion(succeeded, raced bool) {
	if lc == nil {
		return
	}

	status := statusSuccess
	if !succeeded {
		status = statusExpired
	}

	labels := lc.labels()
	labels[labelStatus] = status
	lc.incrementCounter(metricPromotions, labels)

	if raced {
		lc.logWarn(logMsgPromotionRaced)
	}
}

func (lc *lifecycle) labels() map[string]string {
	labels := map[string]string{
		labelType: lc.typeName,
	}

	if lc.cfg.label != "" {
		labels[labelLabel] = lc.cfg.label
	}

	return labels
}

func (lc *lifecycle) identity(args ...any) []any {
	allArgs := []any{logAttrBlockID, lc.id.String(), logAttrType, lc.typeName}
	if lc.cfg.label != "" {
		allArgs = append(allArgs, logAttrLabel, lc.cfg.label)
	}

	return append(allArgs, args...)
}

func (lc *lifecycle) logDebug(msg string, args ...any) {
	if lc.cfg.logger != nil {
		lc.cfg.logger.Debug(msg, lc.identity(args...)...)
	}

	if lc.cfg.contextualLogger != nil {
		lc.cfg.contextualLogger.DebugContext(lc.ctx, msg, lc.identity(args...)...)
	}
}

func (lc *lifecycle) logWarn(msg string, args ...any) {
	if lc.cfg.logger != nil {
		lc.cfg.logger.Warn(msg, lc.identity(args...)...)
	}

	if lc.cfg.contextualLogger != nil {
		lc.cfg.contextualLogger.WarnContext(lc.ctx, msg, lc.identity(args...)...)
	}
}

func (lc *lifecycle) logError(msg string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if lc.cfg.logger != nil {
		lc.cfg.logger.Error(msg, lc.identity(allArgs...)...)
	}

	if lc.cfg.contextualLogger != nil {
		lc.cfg.contextualLogger.ErrorContext(lc.ctx, msg, lc.identity(allArgs...)...)
	}
}

// incrementCounter uses the context-aware method if the collector supports it.
func (lc *lifecycle) incrementCounter(metric string, labels map[string]string) {
	collector := lc.cfg.metricsCollector
	if collector == nil {
		return
	}

	if contextualCollector, ok := collector.(ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(lc.ctx, metric, labels)
		return
	}

	collector.IncrementCounter(metric, labels)
}

func (lc *lifecycle) recordDuration(metric string, duration time.Duration, labels map[string]string) {
	collector := lc.cfg.metricsCollector
	if collector == nil {
		return
	}

	if contextualCollector, ok := collector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(lc.ctx, metric, duration, labels)
		return
	}

	collector.RecordDuration(metric, duration, labels)
}

func (lc *lifecycle) recordValue(metric string, value float64, labels map[string]string) {
	collector := lc.cfg.metricsCollector
	if collector == nil {
		return
	}

	if contextualCollector, ok := collector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(lc.ctx, metric, value, labels)
		return
	}

	collector.RecordValue(metric, value, labels)
}

func (lc *lifecycle) finishSpan(status string, lifetime time.Duration, weakObservers UseCountInt64, deleterErr error) {
	if lc.cfg.tracingCollector == nil || lc.span == nil {
		return
	}

	attrs := map[string]string{
		spanAttrLifetimeMS:    fmt.Sprintf("%.2f", toMilliseconds(lifetime)),
		spanAttrWeakObservers: fmt.Sprintf("%d", weakObservers),
	}

	lc.span.SetStatus(status)
	if deleterErr != nil {
		lc.span.AddAttribute(spanAttrErrorType, errorTypeDeleter)
		attrs[spanAttrErrorType] = errorTypeDeleter
	}

	lc.cfg.tracingCollector.FinishSpan(lc.span, status, attrs)
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
