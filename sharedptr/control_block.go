package sharedptr

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// State is the lifecycle state of a ControlBlock.
type State int32

const (
	// StateLive means at least one strong reference exists.
	StateLive State = iota
	// StateStrongExpired means the managed object was destroyed but weak observers keep the block.
	StateStrongExpired
	// StateDead means the control block was retired, no handle refers to it anymore.
	StateDead
)

func (s State) String() string {
	switch s {
	case StateLive:
		return "live"
	case StateStrongExpired:
		return "strong_expired"
	case StateDead:
		return "dead"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ControlBlock is the shared bookkeeping of one managed object: the strong and weak counters
// and the type-erased destruction strategy.
//
// Handles call these methods for you. Calling them directly is only needed when building
// custom handle types, and unbalanced calls are programming errors that panic.
type ControlBlock interface {
	// Acquire adds a strong reference. The block must not be expired.
	Acquire()
	// AcquireWeak adds a weak reference.
	AcquireWeak()
	// Release drops a strong reference. The last one destroys the managed object
	// and releases the weak unit held by strong ownership.
	Release()
	// ReleaseWeak drops a weak reference. The last one retires the control block.
	ReleaseWeak()
	// TryAcquire adds a strong reference only while the strong count is positive.
	TryAcquire() bool

	UseCount() UseCountInt64
	WeakUseCount() UseCountInt64
	Unique() bool
	Expired() bool
	State() State
	// Deleter returns the stored Deleter[T], where T is the type of the owned object.
	Deleter() any
}

// blockInspector is the read-only view the Tracker keeps of a control block.
type blockInspector interface {
	UseCount() UseCountInt64
	WeakUseCount() UseCountInt64
	State() State
}

// weakUnit is what one weak observer adds to controlBlock.weak.
const weakUnit = 2

// controlBlock is the ControlBlock for an owned *T.
// weak packs two things into one word: the low bit is the unit collectively held by all
// strong owners, the remaining bits count the weak observers (weakUnit each). Both are
// read in one load, and the block retires when the word drops to 0.
type controlBlock[T any] struct {
	strong  atomic.Int64
	weak    atomic.Int64
	owned   *T
	deleter Deleter[T]
	// zeroOnDestroy clears the owned value after the deleter ran. Set for blocks that embed
	// the value (see MakeShared), so weak observers do not keep its referents reachable.
	zeroOnDestroy bool
	lc            *lifecycle
}

func newControlBlock[T any](owned *T, deleter Deleter[T], cfg *config) *controlBlock[T] {
	cb := &controlBlock[T]{}
	cb.init(owned, deleter, cfg)

	return cb
}

func (cb *controlBlock[T]) init(owned *T, deleter Deleter[T], cfg *config) {
	cb.owned = owned
	cb.deleter = deleter
	cb.strong.Store(1)
	cb.weak.Store(1)
	cb.lc = newLifecycle(cfg, reflect.TypeFor[T]().String(), cb)
}

func (cb *controlBlock[T]) Acquire() {
	if n := cb.strong.Add(1); n <= 1 {
		panic(fmt.Errorf("%w: strong count was %d", ErrAcquireAfterExpiry, n-1))
	}
}

func (cb *controlBlock[T]) AcquireWeak() {
	if n := cb.weak.Add(weakUnit); n == weakUnit {
		panic(fmt.Errorf("%w: weak count was 0", ErrAcquireAfterExpiry))
	}
}

func (cb *controlBlock[T]) Release() {
	n := cb.strong.Add(-1)
	if n > 0 {
		return
	}

	if n < 0 {
		panic(fmt.Errorf("%w: strong count is %d", ErrCounterUnderflow, n))
	}

	// Runs even if the deleter panics, the block must still be retired once observers are gone.
	defer cb.releaseWeakUnits(1)

	cb.destroyObject()
}

// destroyObject runs exactly once, on the goroutine that dropped the strong count to zero.
func (cb *controlBlock[T]) destroyObject() {
	owned := cb.owned
	cb.owned = nil

	var deleterErr error
	if owned != nil && cb.deleter != nil {
		deleterErr = cb.deleter(owned)
	}

	if owned != nil && cb.zeroOnDestroy {
		var zero T
		*owned = zero
	}

	cb.lc.objectDestroyed(deleterErr, cb.weakObservers())
}

func (cb *controlBlock[T]) ReleaseWeak() {
	cb.releaseWeakUnits(weakUnit)
}

func (cb *controlBlock[T]) releaseWeakUnits(units int64) {
	n := cb.weak.Add(-units)
	if n > 0 {
		return
	}

	if n < 0 {
		panic(fmt.Errorf("%w: weak count is %d", ErrCounterUnderflow, (n-1)/weakUnit))
	}

	cb.lc.blockRetired()
}

func (cb *controlBlock[T]) weakObservers() UseCountInt64 {
	return cb.weak.Load() / weakUnit
}

func (cb *controlBlock[T]) TryAcquire() bool {
	sawAlive := false

	for {
		n := cb.strong.Load()
		if n == 0 {
			cb.lc.promotion(false, sawAlive)
			return false
		}

		sawAlive = true
		if cb.strong.CompareAndSwap(n, n+1) {
			cb.lc.promotion(true, false)
			return true
		}
	}
}

func (cb *controlBlock[T]) UseCount() UseCountInt64 {
	return cb.strong.Load()
}

// WeakUseCount counts weak observers only. The unit held by strong owners lives in the
// low bit of the same word, so a concurrent last Release never shows up here.
func (cb *controlBlock[T]) WeakUseCount() UseCountInt64 {
	return cb.weakObservers()
}

func (cb *controlBlock[T]) Unique() bool {
	return cb.strong.Load() == 1
}

func (cb *controlBlock[T]) Expired() bool {
	return cb.strong.Load() == 0
}

// State is derived from the counters, so it never disagrees with Expired. Once strong has
// dropped to 0 it stays there, which makes reading strong before weak safe.
func (cb *controlBlock[T]) State() State {
	if cb.strong.Load() > 0 {
		return StateLive
	}

	if cb.weak.Load() > 0 {
		return StateStrongExpired
	}

	return StateDead
}

func (cb *controlBlock[T]) Deleter() any {
	return cb.deleter
}

// Ensure controlBlock implements ControlBlock
var _ ControlBlock = (*controlBlock[int])(nil)
