package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfOrder indicates a stack deallocation that is not the most
	// recent live allocation.
	ErrOutOfOrder = errors.New("memory: out of order stack deallocation")

	// ErrStackNotEmpty indicates a stack allocator released with live allocations.
	ErrStackNotEmpty = errors.New("memory: stack released with live allocations")

	// ErrFrameLeak indicates a mark-less frame clear while frame bytes are still allocated.
	ErrFrameLeak = errors.New("memory: not all frame allocated bytes were released")

	// ErrNotOwned indicates memory handed to an allocator that did not
	// allocate it.
	ErrNotOwned = errors.New("memory: memory not owned by this allocator")

	// ErrStaticOverflow indicates a static allocation past the fixed capacity.
	ErrStaticOverflow = errors.New("memory: static allocator capacity exceeded")

	// ErrBadAlignment indicates an alignment that is not a positive power of two.
	ErrBadAlignment = errors.New("memory: alignment must be a power of two")

	// ErrBadHandle indicates a pool handle the pool does not own, or a slot
	// that is already free.
	ErrBadHandle = errors.New("memory: bad pool handle")

	// ErrTooLarge indicates a request larger than a fixed-size allocator slot.
	ErrTooLarge = errors.New("memory: request exceeds element size")

	// ErrReleased indicates use of an allocator after Release.
	ErrReleased = errors.New("memory: use after Release()")
)

// ContractError is the panic value for programmer errors: violations of an
// allocator's usage contract rather than runtime conditions.
type ContractError struct {
	Op  string
	Err error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ContractError) Unwrap() error { return e.Err }

func violate(op string, err error) {
	panic(&ContractError{Op: op, Err: err})
}
