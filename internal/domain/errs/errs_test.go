package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("confirm order ORD-1: %w", ErrAmountMismatch)
	require.True(t, errors.Is(err, ErrAmountMismatch))
	require.Equal(t, CodeAmountMismatch, CodeOf(err))
	require.False(t, errors.Is(err, ErrGatewayFailure))
}

func TestCodeOfUnknown(t *testing.T) {
	require.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	require.Equal(t, Code(""), CodeOf(nil))
}

func TestCodeOfMultiWrapped(t *testing.T) {
	storage := errors.New("duplicate order id")
	err := fmt.Errorf("%w: %w", ErrOrderIDConflict, storage)
	require.ErrorIs(t, err, storage)
	require.Equal(t, CodeOrderIDConflict, CodeOf(err))
}
