package sharedptr

import (
	"io"
)

// Deleter destroys a managed object. It is invoked exactly once, by whichever goroutine
// drops the last strong reference. It is never invoked with a nil pointer.
//
// A returned error cannot be handed back to the releasing caller, so it is reported
// through the configured Logger, ContextualLogger, MetricsCollector and TracingCollector.
type Deleter[T any] func(p *T) error

// DefaultDeleter closes the managed object if it (or the pointer to it) implements io.Closer
// and does nothing otherwise. Memory is reclaimed by the Go runtime once no handle refers to it.
func DefaultDeleter[T any]() Deleter[T] {
	return func(p *T) error {
		if closer, ok := any(p).(io.Closer); ok {
			return closer.Close()
		}

		if closer, ok := any(*p).(io.Closer); ok {
			return closer.Close()
		}

		return nil
	}
}

// CloseDeleter returns a Deleter that calls Close on the managed pointer, e.g. CloseDeleter[sql.DB]().
func CloseDeleter[T any, PT interface {
	*T
	io.Closer
}]() Deleter[T] {
	return func(p *T) error {
		return PT(p).Close()
	}
}

// FuncDeleter adapts a destruction function without an error result, e.g. (*pgxpool.Pool).Close.
func FuncDeleter[T any](destroy func(p *T)) Deleter[T] {
	return func(p *T) error {
		destroy(p)
		return nil
	}
}

// NoopDeleter leaves the managed object alone. Useful for handles that observe memory owned elsewhere.
func NoopDeleter[T any]() Deleter[T] {
	return func(*T) error {
		return nil
	}
}
