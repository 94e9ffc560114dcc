package sharedptr

import (
	"errors"
)

var ErrBadWeakReference = errors.New("bad weak reference, the managed object has expired")
var ErrEmptyLabel = errors.New("empty label supplied")
var ErrNilTracker = errors.New("nil tracker supplied")
var ErrNilDereference = errors.New("dereference of a null handle")

// These indicate programming errors. They are raised as panics by ControlBlock
// implementations and are unreachable through the Shared and Weak handle API.
var ErrCounterUnderflow = errors.New("reference counter underflow")
var ErrAcquireAfterExpiry = errors.New("acquire on an expired control block")

// UseCountInt64 is a type alias for int64, representing a strong or weak reference count.
type UseCountInt64 = int64

// noCopy lets go vet's copylocks check report handles that are copied by value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
