package sharedptr

import (
	"context"
	"strings"
)

// config holds the optional observability settings of one control block.
type config struct {
	label            string
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
	traceCtx         context.Context
	tracker          *Tracker
}

// Option defines a functional option for configuring the control block created by a constructor.
// Handles derived from a control block (clones, aliases, weak handles) share its configuration.
type Option func(*config) error

// WithLabel names the managed object in logs, metrics, spans, and tracker reports.
func WithLabel(label string) Option {
	return func(c *config) error {
		label = strings.TrimSpace(label)
		if label == "" {
			return ErrEmptyLabel
		}

		c.label = label

		return nil
	}
}

// WithLogger sets the logger for the control block.
// The logger will receive messages at different levels:
//
// Debug level: control block created, managed object destroyed, control block retired
// Warn level: a promotion lost the race against the expiry of the managed object
// Error level: the deleter returned an error.
func WithLogger(logger Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the control block.
// Log calls receive the trace context (see WithTraceContext), which enables trace correlation
// when tracing is enabled as well.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(c *config) error {
		c.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the control block.
// The collector will receive object creation/destruction counters, control block retirements,
// promotion outcomes, deleter errors, and the lifetime of the managed object.
func WithMetrics(collector MetricsCollector) Option {
	return func(c *config) error {
		c.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the control block.
// A span named "sharedptr.object_lifetime" is started when the control block is created and
// finished when the managed object is destroyed.
func WithTracing(collector TracingCollector) Option {
	return func(c *config) error {
		c.tracingCollector = collector
		return nil
	}
}

// WithTraceContext sets the parent context for the lifetime span and for contextual logging.
// Handle operations never block, so the context is only used for correlation, never for cancellation.
func WithTraceContext(ctx context.Context) Option {
	return func(c *config) error {
		c.traceCtx = ctx
		return nil
	}
}

// WithTracker registers the control block in the given Tracker until it is retired.
func WithTracker(tracker *Tracker) Option {
	return func(c *config) error {
		if tracker == nil {
			return ErrNilTracker
		}

		c.tracker = tracker

		return nil
	}
}

// buildConfig applies the options. It returns a nil config when no options are given,
// which keeps plain control blocks free of any observability overhead.
func buildConfig(options []Option) (*config, error) {
	if len(options) == 0 {
		return nil, nil
	}

	c := &config{}
	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}

	if c.traceCtx == nil {
		c.traceCtx = context.Background()
	}

	return c, nil
}
