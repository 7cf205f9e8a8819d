package errs

import (
	"fmt"
	"testing"

	goerrors "github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestKindOf verifies classification through wrapping layers.
func TestKindOf(t *testing.T) {
	usage := Usage("release", "release unlocked lock")
	unsupported := Unsupported("fork", "not available on %s", "plan9")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"plain", fmt.Errorf("boom"), KindNone},
		{"usage", usage, KindUsage},
		{"unsupported", unsupported, KindPlatformUnsupported},
		{"fmt wrapped", fmt.Errorf("outer: %w", usage), KindUsage},
		{"go-errors wrapped", goerrors.Wrap(unsupported, 0), KindPlatformUnsupported},
		{"failure", Failure("spawn", "panic value", 0), KindWorkUnitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

// TestUsageAndUnsupportedAreDistinct ensures callers can tell a missing
// feature apart from a bug.
func TestUsageAndUnsupportedAreDistinct(t *testing.T) {
	usage := Usage("stack_size", "size not valid: %d bytes", 4096)
	unsupported := Unsupported("stack_size", "setting stack size not supported")

	assert.True(t, IsUsage(usage))
	assert.False(t, IsPlatformUnsupported(usage))
	assert.True(t, IsPlatformUnsupported(unsupported))
	assert.False(t, IsUsage(unsupported))
	assert.Equal(t, "stack_size: size not valid: 4096 bytes", usage.Error())
}

// TestFailureCarriesStack verifies Failure attaches a stack trace.
func TestFailureCarriesStack(t *testing.T) {
	err := Failure("spawn", fmt.Errorf("work unit failed"), 0)

	require.NotNil(t, err.Err)
	frames := Stack(err)
	require.NotEmpty(t, frames)
	assert.Contains(t, frames[0].Name, "TestFailureCarriesStack")
	assert.Contains(t, err.Error(), "work unit failed")
}

// TestStackPlainError returns nil for errors without a trace.
func TestStackPlainError(t *testing.T) {
	assert.Nil(t, Stack(fmt.Errorf("plain")))
	assert.Equal(t, "unknown", KindNone.String())
	assert.Equal(t, "usage error", KindUsage.String())
}

// TestMarkers verifies kind markers match through errors.Is.
func TestMarkers(t *testing.T) {
	usage := Usage("stack_size", "size not valid: %d bytes", 4096)
	stackMarker := &Error{Kind: KindUsage, Op: "stack_size"}

	assert.ErrorIs(t, usage, ErrUsage)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", usage), stackMarker)
	assert.NotErrorIs(t, usage, ErrPlatformUnsupported)
	assert.NotErrorIs(t, Usage("barrier", "bad"), stackMarker)
	assert.NotErrorIs(t, usage, Usage("stack_size", "size not valid: %d bytes", 4096),
		"errors with a message match by identity only")

	assert.ErrorIs(t, Unsupported("fork", "no"), ErrPlatformUnsupported)
	assert.Equal(t, "usage error", ErrUsage.Error())
	assert.Equal(t, "stack_size: usage error", stackMarker.Error())
}

func createdHere() error {
	return goerrors.Errorf("created with a trace")
}

// TestFailureKeepsExistingStack verifies a go-errors trace in the chain is
// reported instead of a new one taken at the wrapping site.
func TestFailureKeepsExistingStack(t *testing.T) {
	cause := fmt.Errorf("outer: %w", createdHere())
	err := Failure("spawn", cause, 0)

	assert.Same(t, cause, err.Err)
	assert.Equal(t, "outer: created with a trace", err.Msg)
	frames := Stack(err)
	require.NotEmpty(t, frames)
	assert.Contains(t, frames[0].Name, "createdHere")
	assert.Equal(t, KindWorkUnitFailure, KindOf(err))
}
