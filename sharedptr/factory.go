package sharedptr

// inlineBlock places the managed value next to its control block, so MakeShared needs a single allocation.
type inlineBlock[T any] struct {
	controlBlock[T]
	value T
}

// MakeShared allocates value together with its control block and returns the only strong handle to it.
// The value is destroyed with DefaultDeleter and zeroed afterwards.
func MakeShared[T any](value T, options ...Option) (*Shared[T], error) {
	cfg, err := buildConfig(options)
	if err != nil {
		return nil, err
	}

	block := &inlineBlock[T]{value: value}
	block.zeroOnDestroy = true
	block.init(&block.value, DefaultDeleter[T](), cfg)

	return &Shared[T]{ptr: &block.value, cb: &block.controlBlock}, nil
}

// MakeSharedFunc is MakeShared for values whose construction can fail.
func MakeSharedFunc[T any](construct func() (T, error), options ...Option) (*Shared[T], error) {
	value, err := construct()
	if err != nil {
		return nil, err
	}

	return MakeShared(value, options...)
}
