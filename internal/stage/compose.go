package stage

import "io"

// aesBlockSize is fixed by AES regardless of key length.
const aesBlockSize = 16

// NewBodyDecryptReader composes the AES-256-CBC decrypt stage and the
// PKCS#7 unpad stage over inner, in that order, returning a reader of
// plaintext (still compressed, if the AB header said so - decompression
// is a separate, optional stage layered by the caller). This is the
// decryptor+unpadder half of spec.md §4.2.
func NewBodyDecryptReader(inner io.Reader, key, iv []byte) (io.Reader, error) {
	decrypt, err := NewCBCDecryptStage(key, iv)
	if err != nil {
		return nil, err
	}
	decrypted := NewFilterReader(inner, DefaultBlockSize, decrypt)
	unpad := NewPKCS7UnpadStage(aesBlockSize)
	return NewFilterReader(decrypted, DefaultBlockSize, unpad), nil
}

// NewBodyEncryptWriter composes the PKCS#7 pad stage and the
// AES-256-CBC encrypt stage over inner, in that order: the caller
// writes plaintext, the pad stage buffers the tail until Close, and
// its output (including the final padded block) is encrypted before
// reaching inner. Close flushes and finalizes both stages, then closes
// inner if it implements io.Closer.
func NewBodyEncryptWriter(inner io.Writer, key, iv []byte) (io.WriteCloser, error) {
	encrypt, err := NewCBCEncryptStage(key, iv)
	if err != nil {
		return nil, err
	}
	encrypted := NewFilterWriter(inner, encrypt)
	pad := NewPKCS7PadStage(aesBlockSize)
	return NewFilterWriter(encrypted, pad), nil
}
