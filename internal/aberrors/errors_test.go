package aberrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestElaboratePrependsContext(t *testing.T) {
	err := New(KindBadHeader, "missing magic")
	err.Elaborate("while parsing %s", "input.ab")
	require.Equal(t, "while parsing input.ab: missing magic", err.Error())
}

func TestIsMatchesKindThroughWrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindDecryptionFailed, cause, "decryption failed")
	require.True(t, Is(err, KindDecryptionFailed))
	require.False(t, Is(err, KindBadHeader))
	require.ErrorIs(t, err, cause)
}

func TestKindStringNamesAreStable(t *testing.T) {
	require.Equal(t, "BadHeader", KindBadHeader.String())
	require.Equal(t, "Unknown", KindUnknown.String())
}
