package stage

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func randKey(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

func TestEncryptDecryptBlobRoundTrip(t *testing.T) {
	key := randKey(32)
	iv := randKey(16)
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	ciphertext, err := EncryptBlob(plaintext, key, iv)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ciphertext)

	decoded, err := DecryptBlob(ciphertext, key, iv)
	require.NoError(t, err)
	require.Equal(t, plaintext, decoded)
}

func TestDecryptBlobWrongKeyFails(t *testing.T) {
	key := randKey(32)
	iv := randKey(16)
	ciphertext, err := EncryptBlob([]byte("secret payload!!"), key, iv)
	require.NoError(t, err)

	_, err = DecryptBlob(ciphertext, randKey(32), iv)
	require.Error(t, err)
}

func TestBodyEncryptDecryptStreamingRoundTrip(t *testing.T) {
	key := randKey(32)
	iv := randKey(16)

	plaintext := bytes.Repeat([]byte("streaming body content, not block aligned!"), 5000)

	var encoded bytes.Buffer
	ew, err := NewBodyEncryptWriter(&encoded, key, iv)
	require.NoError(t, err)

	// Write in small, irregular chunks to exercise cross-call buffering.
	chunks := []int{1, 7, 31, 512, 4096, 1}
	off := 0
	for _, c := range chunks {
		for off < len(plaintext) && c > 0 {
			end := off + c
			if end > len(plaintext) {
				end = len(plaintext)
			}
			_, err := ew.Write(plaintext[off:end])
			require.NoError(t, err)
			off = end
			c--
		}
	}
	_, err = ew.Write(plaintext[off:])
	require.NoError(t, err)
	require.NoError(t, ew.Close())

	require.True(t, encoded.Len()%16 == 0)
	require.NotEqual(t, 0, encoded.Len())

	decryptReader, err := NewBodyDecryptReader(bytes.NewReader(encoded.Bytes()), key, iv)
	require.NoError(t, err)
	got, err := io.ReadAll(decryptReader)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestBodyEncryptDecryptEmptyBody(t *testing.T) {
	key := randKey(32)
	iv := randKey(16)

	var encoded bytes.Buffer
	ew, err := NewBodyEncryptWriter(&encoded, key, iv)
	require.NoError(t, err)
	require.NoError(t, ew.Close())
	require.Equal(t, 16, encoded.Len()) // a full block of pure padding

	decryptReader, err := NewBodyDecryptReader(bytes.NewReader(encoded.Bytes()), key, iv)
	require.NoError(t, err)
	got, err := io.ReadAll(decryptReader)
	require.NoError(t, err)
	require.Empty(t, got)
}
