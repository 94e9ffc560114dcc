package sharedptr

// Weak is a non-owning observer of an object managed by Shared handles. It keeps the control
// block alive, never the managed object. Use Lock to obtain a strong handle while the object lives.
//
// The zero value is an empty handle. Like Shared, a Weak value must not be copied by assignment;
// use Clone, and Release every handle exactly once. go vet's copylocks check reports such copies.
type Weak[T any] struct {
	_   noCopy
	ptr *T
	cb  ControlBlock
}

// NewWeak returns a weak observer of the object managed by s. Observing an empty handle yields
// an empty, expired Weak.
func NewWeak[T any](s *Shared[T]) *Weak[T] {
	if s.IsEmpty() {
		return &Weak[T]{}
	}

	s.cb.AcquireWeak()

	return &Weak[T]{ptr: s.ptr, cb: s.cb}
}

// Clone returns another observer of the same control block.
func (w *Weak[T]) Clone() *Weak[T] {
	if w == nil {
		return &Weak[T]{}
	}

	if w.cb != nil {
		w.cb.AcquireWeak()
	}

	return &Weak[T]{ptr: w.ptr, cb: w.cb}
}

// Move transfers the observation into a new handle and leaves w empty.
func (w *Weak[T]) Move() *Weak[T] {
	moved := &Weak[T]{}
	if w != nil {
		moved.Swap(w)
	}

	return moved
}

// Release drops this observer and leaves it empty. Releasing an empty handle is a no-op.
func (w *Weak[T]) Release() {
	if w == nil {
		return
	}

	cb := w.cb
	w.ptr, w.cb = nil, nil

	if cb != nil {
		cb.ReleaseWeak()
	}
}

// Swap exchanges the contents of two handles without touching any counter.
func (w *Weak[T]) Swap(other *Weak[T]) {
	w.ptr, other.ptr = other.ptr, w.ptr
	w.cb, other.cb = other.cb, w.cb
}

// Assign makes w observe what other observes.
func (w *Weak[T]) Assign(other *Weak[T]) {
	tmp := other.Clone()
	w.Swap(tmp)
	tmp.Release()
}

// AssignShared makes w observe the object managed by s.
func (w *Weak[T]) AssignShared(s *Shared[T]) {
	tmp := NewWeak(s)
	w.Swap(tmp)
	tmp.Release()
}

// AssignMove transfers other's observation into w. other is left empty.
func (w *Weak[T]) AssignMove(other *Weak[T]) {
	tmp := other.Move()
	w.Swap(tmp)
	tmp.Release()
}

// Reset drops the observation and leaves w empty.
func (w *Weak[T]) Reset() {
	tmp := &Weak[T]{}
	w.Swap(tmp)
	tmp.Release()
}

// Expired reports whether the managed object was destroyed (or w is empty).
func (w *Weak[T]) Expired() bool {
	return w == nil || w.cb == nil || w.cb.Expired()
}

// UseCount returns the number of strong handles of the observed object, 0 if expired or empty.
func (w *Weak[T]) UseCount() UseCountInt64 {
	if w == nil || w.cb == nil {
		return 0
	}

	return w.cb.UseCount()
}

// WeakUseCount returns the number of weak handles observing the same control block.
func (w *Weak[T]) WeakUseCount() UseCountInt64 {
	if w == nil || w.cb == nil {
		return 0
	}

	return w.cb.WeakUseCount()
}

// Lock promotes w to a strong handle. If the managed object has expired, including when it
// expires concurrently with the call, Lock returns an empty handle. A destroyed object is
// never resurrected.
func (w *Weak[T]) Lock() *Shared[T] {
	s, err := FromWeak(w)
	if err != nil {
		return &Shared[T]{}
	}

	return s
}

func (w *Weak[T]) controlBlock() ControlBlock {
	if w == nil {
		return nil
	}

	return w.cb
}
