package sharedptr

// Shared is an owning handle. It observes a pointer (Get) and shares ownership of a managed
// object through its ControlBlock. The observed pointer and the owned object usually coincide,
// but differ for handles created with Alias.
//
// The zero value is an empty handle: it holds no control block and observes nil.
// A Shared value must not be copied by assignment; use Clone, which accounts for the new owner.
// go vet's copylocks check reports such copies. Every handle obtained from a constructor,
// Clone, Alias, Move, FromWeak or Weak.Lock must be released exactly once with Release.
type Shared[T any] struct {
	_   noCopy
	ptr *T
	cb  ControlBlock
}

// Empty returns an empty, null handle.
func Empty[T any]() *Shared[T] {
	return &Shared[T]{}
}

// New takes ownership of p. The managed object is destroyed with DefaultDeleter once the last
// strong handle is released. A nil p yields an empty handle without a control block, so
// UseCount is 0. Use NewWithDeleter for an owning null handle.
func New[T any](p *T, options ...Option) (*Shared[T], error) {
	cfg, err := buildConfig(options)
	if err != nil {
		return nil, err
	}

	if p == nil {
		return &Shared[T]{}, nil
	}

	return &Shared[T]{ptr: p, cb: newControlBlock(p, DefaultDeleter[T](), cfg)}, nil
}

// NewWithDeleter takes ownership of p, which will be destroyed with deleter.
// Unlike New, a nil p still gets a control block (an owning null handle), but the
// deleter is not invoked for it.
func NewWithDeleter[T any](p *T, deleter Deleter[T], options ...Option) (*Shared[T], error) {
	cfg, err := buildConfig(options)
	if err != nil {
		return nil, err
	}

	if deleter == nil {
		deleter = DefaultDeleter[T]()
	}

	return &Shared[T]{ptr: p, cb: newControlBlock(p, deleter, cfg)}, nil
}

// Alias returns a handle that shares ownership with src but observes p.
// It is typically used to hand out a pointer to a field of the managed object
// while keeping the whole object alive. Aliasing an empty handle yields a handle
// without a control block that still observes p.
func Alias[T, U any](src *Shared[T], p *U) *Shared[U] {
	if src == nil || src.cb == nil {
		return &Shared[U]{ptr: p}
	}

	src.cb.Acquire()

	return &Shared[U]{ptr: p, cb: src.cb}
}

// FromWeak promotes w to a strong handle. It fails with ErrBadWeakReference if the managed
// object has already expired; the check and the increment are one atomic step.
func FromWeak[T any](w *Weak[T]) (*Shared[T], error) {
	if w == nil || w.cb == nil || !w.cb.TryAcquire() {
		return nil, ErrBadWeakReference
	}

	return &Shared[T]{ptr: w.ptr, cb: w.cb}, nil
}

// Clone returns a new owner of the same managed object.
func (s *Shared[T]) Clone() *Shared[T] {
	if s == nil {
		return &Shared[T]{}
	}

	if s.cb != nil {
		s.cb.Acquire()
	}

	return &Shared[T]{ptr: s.ptr, cb: s.cb}
}

// Move transfers the ownership of s into a new handle and leaves s empty.
func (s *Shared[T]) Move() *Shared[T] {
	moved := &Shared[T]{}
	if s != nil {
		moved.Swap(s)
	}

	return moved
}

// Release drops this handle's ownership and leaves it empty. The last release of a managed
// object runs its deleter on the calling goroutine. Releasing an empty handle is a no-op.
func (s *Shared[T]) Release() {
	if s == nil {
		return
	}

	cb := s.cb
	s.ptr, s.cb = nil, nil

	if cb != nil {
		cb.Release()
	}
}

// Swap exchanges the contents of two handles without touching any counter.
func (s *Shared[T]) Swap(other *Shared[T]) {
	s.ptr, other.ptr = other.ptr, s.ptr
	s.cb, other.cb = other.cb, s.cb
}

// Assign makes s another owner of other's managed object, releasing what s held before.
func (s *Shared[T]) Assign(other *Shared[T]) {
	tmp := other.Clone()
	s.Swap(tmp)
	tmp.Release()
}

// AssignMove transfers other's ownership into s, releasing what s held before. other is left empty.
func (s *Shared[T]) AssignMove(other *Shared[T]) {
	tmp := other.Move()
	s.Swap(tmp)
	tmp.Release()
}

// Reset releases the ownership held by s and leaves it empty.
func (s *Shared[T]) Reset() {
	tmp := &Shared[T]{}
	s.Swap(tmp)
	tmp.Release()
}

// ResetTo replaces the managed object of s with p, see New.
// On an option error s is left unchanged.
func (s *Shared[T]) ResetTo(p *T, options ...Option) error {
	tmp, err := New(p, options...)
	if err != nil {
		return err
	}

	s.Swap(tmp)
	tmp.Release()

	return nil
}

// ResetWithDeleter replaces the managed object of s with p, see NewWithDeleter.
// On an option error s is left unchanged.
func (s *Shared[T]) ResetWithDeleter(p *T, deleter Deleter[T], options ...Option) error {
	tmp, err := NewWithDeleter(p, deleter, options...)
	if err != nil {
		return err
	}

	s.Swap(tmp)
	tmp.Release()

	return nil
}

// Weak returns a weak observer of the managed object.
func (s *Shared[T]) Weak() *Weak[T] {
	return NewWeak(s)
}

// Get returns the observed pointer.
func (s *Shared[T]) Get() *T {
	if s == nil {
		return nil
	}

	return s.ptr
}

// Deref returns a copy of the observed value. It panics on a null handle.
func (s *Shared[T]) Deref() T {
	if s == nil || s.ptr == nil {
		panic(ErrNilDereference)
	}

	return *s.ptr
}

// Valid reports whether the observed pointer is non-nil.
func (s *Shared[T]) Valid() bool {
	return s != nil && s.ptr != nil
}

// IsNil reports whether s observes a nil pointer. An owning null handle is nil but not empty.
func (s *Shared[T]) IsNil() bool {
	return !s.Valid()
}

// IsEmpty reports whether s holds no control block.
func (s *Shared[T]) IsEmpty() bool {
	return s == nil || s.cb == nil
}

// UseCount returns the number of strong handles sharing the managed object, 0 if empty.
func (s *Shared[T]) UseCount() UseCountInt64 {
	if s.IsEmpty() {
		return 0
	}

	return s.cb.UseCount()
}

// Unique reports whether s is the only strong handle of its managed object.
func (s *Shared[T]) Unique() bool {
	return !s.IsEmpty() && s.cb.Unique()
}

// Deleter returns the type-erased deleter of the managed object, nil if empty. See GetDeleter.
func (s *Shared[T]) Deleter() any {
	if s.IsEmpty() {
		return nil
	}

	return s.cb.Deleter()
}

// SameOwner reports whether s and other (a Shared or Weak handle of any type) share one
// control block, regardless of the pointers they observe.
func (s *Shared[T]) SameOwner(other owner) bool {
	return !s.IsEmpty() && other != nil && s.cb == other.controlBlock()
}

// owner is implemented by Shared and Weak.
type owner interface {
	controlBlock() ControlBlock
}

func (s *Shared[T]) controlBlock() ControlBlock {
	if s == nil {
		return nil
	}

	return s.cb
}

// GetDeleter returns the deleter of the object owned by s, typed as Deleter[D] where D is the
// type of the owned object (which differs from U for aliasing handles).
func GetDeleter[D, U any](s *Shared[U]) (Deleter[D], bool) {
	deleter, ok := s.Deleter().(Deleter[D])
	return deleter, ok
}

// Index returns a pointer to element i of a slice payload. It panics on a null handle or when
// i is out of range.
func Index[E any](s *Shared[[]E], i int) *E {
	if !s.Valid() {
		panic(ErrNilDereference)
	}

	return &(*s.ptr)[i]
}
