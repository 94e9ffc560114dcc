// Package sharedptr provides reference-counted shared ownership handles with
// non-owning weak observers.
//
// A Shared handle keeps a managed object alive as long as any clone of it exists.
// A Weak handle observes the same object without extending its lifetime and can be
// promoted back to a Shared handle while the object is still alive.
//
// Both handle types delegate their bookkeeping to a ControlBlock that carries two
// atomic counters:
//   - strong: the number of live Shared handles
//   - weak: the number of live Weak handles plus one unit held by all strong owners together
//
// When the strong count drops to zero the object's Deleter runs exactly once. When the
// weak count drops to zero the control block is retired. All counter transitions are
// lock-free and safe to use from many goroutines, as long as every goroutine works on
// its own handle (obtained via Clone, Weak or Lock).
//
// Go has no destructors, so handles are released explicitly. Release is idempotent and
// leaves the handle empty, which makes double releases through the handle API impossible.
//
// Key types:
//   - Shared: owning handle with Clone, Move, Alias, Assign, Swap, Reset and Release
//   - Weak: observing handle with Lock (promotion), Expired and UseCount
//   - Deleter: pluggable destruction logic, e.g. CloseDeleter for io.Closer resources
//   - Tracker: registry of live control blocks for leak diagnosis
//
// Common usage pattern:
//
//	db, err := sharedptr.NewWithDeleter(sqlDB, sharedptr.CloseDeleter[sql.DB](),
//		sharedptr.WithLabel("primary-db"),
//		sharedptr.WithLogger(slog.Default()),
//	)
//	if err != nil {
//		// handle error
//	}
//	defer db.Release()
//
//	worker := db.Clone() // hand this one to a goroutine, it must Release it
//	observer := db.Weak()
//
//	if alive := observer.Lock(); alive.Valid() {
//		defer alive.Release()
//		// use alive.Get()
//	}
package sharedptr
