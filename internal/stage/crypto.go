package stage

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/abtool/abtool/internal/aberrors"
)

// cbcStage runs AES-CBC over complete blocks, buffering any partial
// remainder between calls. It has no opinion about padding; it is
// always composed with a PKCS7 pad/unpad stage on top or below it,
// per spec.md §4.2's requirement that the two concerns stay
// independently composable (this is what `--keep-compression` needs:
// decrypt and unpad without touching the compression layer above them).
type cbcStage struct {
	mode cipher.BlockMode
	buf  []byte
}

func (c *cbcStage) process(data []byte) []byte {
	c.buf = append(c.buf, data...)
	blockSize := c.mode.BlockSize()
	n := len(c.buf) / blockSize * blockSize
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	c.mode.CryptBlocks(out, c.buf[:n])
	c.buf = c.buf[n:]
	return out
}

func (c *cbcStage) finish() ([]byte, error) {
	if len(c.buf) != 0 {
		return nil, aberrors.New(aberrors.KindDecryptionFailed, "decryption failed, wrong passphrase?")
	}
	return nil, nil
}

// cbcEncryptStage encrypts complete blocks as they accumulate.
type cbcEncryptStage struct{ cbcStage }

// NewCBCEncryptStage builds an AES-256-CBC encrypt filter stage.
// Callers must feed it data whose total length is a multiple of the
// block size by the time OnEOF is called — i.e. compose a padding
// stage underneath it on the encode side.
func NewCBCEncryptStage(key, iv []byte) (Stage, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &cbcEncryptStage{cbcStage{mode: cipher.NewCBCEncrypter(block, iv)}}, nil
}

func (c *cbcEncryptStage) OnData(data []byte) ([]byte, error) { return c.process(data), nil }
func (c *cbcEncryptStage) OnEOF() ([]byte, error)              { return c.finish() }

// cbcDecryptStage decrypts complete blocks as they accumulate. The
// caller is expected to layer a PKCS7 unpad stage above this one,
// which is what withholds the final block for padding validation.
type cbcDecryptStage struct{ cbcStage }

// NewCBCDecryptStage builds an AES-256-CBC decrypt filter stage.
func NewCBCDecryptStage(key, iv []byte) (Stage, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &cbcDecryptStage{cbcStage{mode: cipher.NewCBCDecrypter(block, iv)}}, nil
}

func (c *cbcDecryptStage) OnData(data []byte) ([]byte, error) { return c.process(data), nil }
func (c *cbcDecryptStage) OnEOF() ([]byte, error)              { return c.finish() }

// pkcs7PadStage passes data through untouched except for a reserve of
// 1..blockSize withheld bytes (never zero, since a fully block-aligned
// input still needs a whole extra padding block per PKCS#7), so it
// never needs to buffer the entire stream to find out how to pad the
// tail at finalize.
type pkcs7PadStage struct {
	blockSize int
	pending   []byte
}

// NewPKCS7PadStage builds a PKCS#7 padding sink filter.
func NewPKCS7PadStage(blockSize int) Stage {
	return &pkcs7PadStage{blockSize: blockSize}
}

func (p *pkcs7PadStage) OnData(data []byte) ([]byte, error) {
	combined := append(p.pending, data...)
	if len(combined) == 0 {
		p.pending = combined
		return nil, nil
	}
	r := len(combined) % p.blockSize
	if r == 0 {
		r = p.blockSize
	}
	cut := len(combined) - r
	out := combined[:cut]
	p.pending = combined[cut:]
	return out, nil
}

func (p *pkcs7PadStage) OnEOF() ([]byte, error) {
	padLen := p.blockSize - len(p.pending)%p.blockSize
	if padLen == 0 {
		padLen = p.blockSize
	}
	out := append(append([]byte{}, p.pending...), make([]byte, padLen)...)
	for i := len(out) - padLen; i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out, nil
}

// pkcs7UnpadStage withholds the last blockSize bytes it has seen at
// all times, releasing everything before that as plaintext output; at
// finalize, it validates and strips the padding from the withheld
// block. This block-boundary-aware withholding is what lets it sit
// above a decrypt stage that may deliver plaintext in arbitrarily
// chunked pieces.
type pkcs7UnpadStage struct {
	blockSize int
	pending   []byte
}

// NewPKCS7UnpadStage builds a PKCS#7 unpadding source filter.
func NewPKCS7UnpadStage(blockSize int) Stage {
	return &pkcs7UnpadStage{blockSize: blockSize}
}

func (p *pkcs7UnpadStage) OnData(data []byte) ([]byte, error) {
	combined := append(p.pending, data...)
	if len(combined) <= p.blockSize {
		p.pending = combined
		return nil, nil
	}
	cut := len(combined) - p.blockSize
	out := combined[:cut]
	p.pending = combined[cut:]
	return out, nil
}

// EncryptBlob performs one-shot AES-256-CBC encryption with PKCS#7
// padding, used for the small encrypted key blob embedded in the AB
// header (spec.md §4.5) rather than the (potentially large) TAR body.
func EncryptBlob(plaintext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	mode := cipher.NewCBCEncrypter(block, iv)
	blockSize := mode.BlockSize()
	padLen := blockSize - len(plaintext)%blockSize
	padded := append(append([]byte{}, plaintext...), make([]byte, padLen)...)
	for i := len(padded) - padLen; i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	out := make([]byte, len(padded))
	mode.CryptBlocks(out, padded)
	return out, nil
}

// DecryptBlob performs one-shot AES-256-CBC decryption and PKCS#7
// unpadding of the encrypted key blob. Any failure - bad block
// alignment, bad padding - is surfaced uniformly, per spec.md §4.2,
// so a caller can never distinguish "wrong passphrase" from
// "corrupt padding".
func DecryptBlob(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	mode := cipher.NewCBCDecrypter(block, iv)
	blockSize := mode.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%blockSize != 0 {
		return nil, aberrors.New(aberrors.KindDecryptionFailed, "decryption failed, wrong passphrase?")
	}
	plain := make([]byte, len(ciphertext))
	mode.CryptBlocks(plain, ciphertext)
	padLen := int(plain[len(plain)-1])
	if padLen == 0 || padLen > blockSize {
		return nil, aberrors.New(aberrors.KindDecryptionFailed, "decryption failed, wrong passphrase?")
	}
	for i := len(plain) - padLen; i < len(plain); i++ {
		if plain[i] != byte(padLen) {
			return nil, aberrors.New(aberrors.KindDecryptionFailed, "decryption failed, wrong passphrase?")
		}
	}
	return plain[:len(plain)-padLen], nil
}

func (p *pkcs7UnpadStage) OnEOF() ([]byte, error) {
	if len(p.pending) != p.blockSize {
		return nil, aberrors.New(aberrors.KindDecryptionFailed, "decryption failed, wrong passphrase?")
	}
	padLen := int(p.pending[p.blockSize-1])
	if padLen == 0 || padLen > p.blockSize {
		return nil, aberrors.New(aberrors.KindDecryptionFailed, "decryption failed, wrong passphrase?")
	}
	for i := len(p.pending) - padLen; i < len(p.pending); i++ {
		if p.pending[i] != byte(padLen) {
			return nil, aberrors.New(aberrors.KindDecryptionFailed, "decryption failed, wrong passphrase?")
		}
	}
	return p.pending[:p.blockSize-padLen], nil
}
