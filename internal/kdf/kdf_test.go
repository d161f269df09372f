package kdf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveIsDeterministic(t *testing.T) {
	salt := []byte("some-salt-bytes-some-salt-bytes")
	a := Derive(32, salt, 10000, []byte("hunter2"))
	b := Derive(32, salt, 10000, []byte("hunter2"))
	require.Equal(t, a, b)
	require.Len(t, a, 32)
}

func TestDeriveDiffersByPassphrase(t *testing.T) {
	salt := []byte("some-salt-bytes-some-salt-bytes")
	a := Derive(32, salt, 10000, []byte("hunter2"))
	b := Derive(32, salt, 10000, []byte("hunter3"))
	require.NotEqual(t, a, b)
}

func TestMangleLeavesASCIIUnchanged(t *testing.T) {
	in := []byte("hello world 123")
	require.Equal(t, in, Mangle(in))
}

func TestMangleExpandsHighBytesToThreeUTF8Bytes(t *testing.T) {
	// 0x80 -> codepoint 0xFF80, which requires 3 UTF-8 bytes: EF BE 80.
	out := Mangle([]byte{0x80})
	require.Equal(t, []byte{0xEF, 0xBE, 0x80}, out)
}

func TestMangleHandlesMixedInput(t *testing.T) {
	in := []byte{'a', 0xFF, 'b'}
	out := Mangle(in)
	// 'a' passes through, 0xFF -> codepoint 0xFFFF -> EF BF BF, 'b' passes through.
	require.Equal(t, []byte{'a', 0xEF, 0xBF, 0xBF, 'b'}, out)
}
