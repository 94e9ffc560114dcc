// Package helper provides test doubles for the sharedptr observability interfaces and deleters.
//
// This package contains a slog.Handler that captures log records, spies for the
// ContextualLogger, MetricsCollector and TracingCollector interfaces, and a DeleterSpy
// that records which managed objects were destroyed and how often.
package helper
