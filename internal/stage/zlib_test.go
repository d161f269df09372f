package stage

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZlibInflateDeflateRoundTrip(t *testing.T) {
	original := bytes.Repeat([]byte("compress me please, over and over\n"), 2000)

	var compressed bytes.Buffer
	dw := NewDeflateWriter(&compressed)
	_, err := dw.Write(original)
	require.NoError(t, err)
	require.NoError(t, dw.Close())
	require.Less(t, compressed.Len(), len(original))

	rc, err := NewInflateReader(bytes.NewReader(compressed.Bytes()))
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, original, got)
}
