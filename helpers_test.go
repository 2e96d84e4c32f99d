package memory

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireViolation runs fn and checks that it panics with a *ContractError
// wrapping want.
func requireViolation(t *testing.T, want error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic wrapping %v", want)
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)

		var ce *ContractError
		assert.ErrorAs(t, err, &ce)
		assert.ErrorIs(t, err, want)
	}()
	fn()
}

func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

type vec3 struct {
	X, Y, Z float64
}
