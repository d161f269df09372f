package abcodec

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abtool/abtool/internal/aberrors"
)

func TestWriteParseHeaderRoundTripUnencrypted(t *testing.T) {
	var buf bytes.Buffer
	params, err := WriteHeader(&buf, 5, true, false, nil, DefaultConfig())
	require.NoError(t, err)
	require.Nil(t, params)

	h, err := ParseHeader(bufio.NewReader(&buf), nil, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 5, h.Version)
	require.True(t, h.Compression)
	require.Equal(t, "NONE", h.Encryption)
}

func TestWriteParseHeaderRoundTripEncrypted(t *testing.T) {
	var buf bytes.Buffer
	passphrase := []byte("correct horse battery staple")
	params, err := WriteHeader(&buf, 4, false, true, passphrase, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, params)
	require.Len(t, params.MasterKey, 32)
	require.Len(t, params.MasterIV, 16)

	h, err := ParseHeader(bufio.NewReader(&buf), passphrase, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 4, h.Version)
	require.False(t, h.Compression)
	require.Equal(t, "AES-256", h.Encryption)
	require.Equal(t, params.MasterKey, h.MasterKey)
	require.Equal(t, params.MasterIV, h.MasterIV)
}

func TestParseHeaderWrongPassphraseFails(t *testing.T) {
	var buf bytes.Buffer
	_, err := WriteHeader(&buf, 4, false, true, []byte("right passphrase"), DefaultConfig())
	require.NoError(t, err)

	_, err = ParseHeader(bufio.NewReader(&buf), []byte("wrong passphrase"), DefaultConfig())
	require.Error(t, err)
	require.True(t, aberrors.Is(err, aberrors.KindDecryptionFailed))
}

func TestParseHeaderRejectsBadMagic(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader([]byte("NOT A BACKUP\n1\n0\nnone\n")))
	_, err := ParseHeader(r, nil, DefaultConfig())
	require.Error(t, err)
	require.True(t, aberrors.Is(err, aberrors.KindBadHeader))
}

func TestParseHeaderRejectsUnknownVersion(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader([]byte(Magic + "\n99\n0\nnone\n")))
	_, err := ParseHeader(r, nil, DefaultConfig())
	require.Error(t, err)
	require.True(t, aberrors.Is(err, aberrors.KindUnsupportedVersion))
}

func TestParseHeaderIgnoreChecksumAcceptsTamperedChecksum(t *testing.T) {
	var buf bytes.Buffer
	passphrase := []byte("a passphrase")
	_, err := WriteHeader(&buf, 4, false, true, passphrase, DefaultConfig())
	require.NoError(t, err)

	// Replacing checksum_salt (line 6) leaves the key blob decryptable
	// but makes the recomputed checksum disagree with the stored one.
	lines := bytes.Split(buf.Bytes(), []byte("\n"))
	lines[5] = bytes.Repeat([]byte("00"), len(lines[5])/2)
	tampered := bytes.Join(lines, []byte("\n"))

	_, err = ParseHeader(bufio.NewReader(bytes.NewReader(tampered)), passphrase, DefaultConfig())
	require.True(t, aberrors.Is(err, aberrors.KindDecryptionFailed))

	cfg := DefaultConfig()
	cfg.IgnoreChecksum = true
	_, err = ParseHeader(bufio.NewReader(bytes.NewReader(tampered)), passphrase, cfg)
	require.NoError(t, err)
}
