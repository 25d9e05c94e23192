package commands

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExitCodeForNilIsZero(t *testing.T) {
	require.Equal(t, 0, ExitCodeFor(nil))
}

func TestExitCodeForWrappedErrorUsesItsCode(t *testing.T) {
	err := withExitCode(3, errors.New("replay diverged"))
	require.Equal(t, 3, ExitCodeFor(err))
}

func TestExitCodeForPlainErrorDefaultsToHarnessError(t *testing.T) {
	require.Equal(t, 2, ExitCodeFor(errors.New("boom")))
}

func TestWithExitCodeOfNilErrorIsNil(t *testing.T) {
	require.NoError(t, withExitCode(1, nil))
}

func TestCliErrorUnwrapsToOriginal(t *testing.T) {
	orig := errors.New("bug found")
	err := withExitCode(1, orig)
	require.ErrorIs(t, err, orig)
	require.Equal(t, orig.Error(), err.Error())
}
