package stage

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// upperStage uppercases data as it passes through and appends a
// trailing marker at EOF, purely to exercise the Stage contract in
// isolation from any real crypto/compression concern.
type upperStage struct{}

func (upperStage) OnData(data []byte) ([]byte, error) {
	return bytes.ToUpper(data), nil
}

func (upperStage) OnEOF() ([]byte, error) {
	return []byte("[EOF]"), nil
}

func TestFilterReaderAppliesStageAndFinalizer(t *testing.T) {
	src := strings.NewReader("hello world")
	fr := NewFilterReader(src, 4, upperStage{})
	got, err := fr.ReadAll()
	require.NoError(t, err)
	require.Equal(t, "HELLO WORLD[EOF]", string(got))
}

func TestFilterReaderSmallReadsAccumulateCorrectly(t *testing.T) {
	src := strings.NewReader("abcdefgh")
	fr := NewFilterReader(src, 3, upperStage{})
	buf := make([]byte, 2)
	var out []byte
	for {
		n, err := fr.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	require.Equal(t, "ABCDEFGH[EOF]", string(out))
}

func TestFilterWriteCloserFlushesFinalizerOnClose(t *testing.T) {
	var sink bytes.Buffer
	fw := NewFilterWriter(&sink, upperStage{})
	_, err := fw.Write([]byte("go "))
	require.NoError(t, err)
	_, err = fw.Write([]byte("lang"))
	require.NoError(t, err)
	require.NoError(t, fw.Close())
	require.Equal(t, "GO LANG[EOF]", sink.String())
}
