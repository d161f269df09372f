// Package kdf implements the key derivation used by the Android Backup
// format: PBKDF2-HMAC-SHA1, and the legacy "mangled key" transform that
// reproduces a Java sign-extension artifact the reference Android
// implementation depends on for its checksum.
package kdf

import (
	"crypto/sha1" //nolint:gosec // required by the Android Backup format itself
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
)

// Derive computes PBKDF2-HMAC-SHA1(passphrase, salt, iterations, length).
func Derive(length int, salt []byte, iterations int, passphrase []byte) []byte {
	return pbkdf2.Key(passphrase, salt, iterations, length, sha1.New)
}

// Mangle reproduces Java's implicit byte->char->String->UTF-8 round trip
// that the reference Android backup code applies to the master key
// before computing the checksum. Java bytes are signed; casting one to
// char sign-extends it to a 32-bit int and then truncates to the
// low 16 bits, so a byte b >= 128 becomes the char 0xFF00|b, which the
// subsequent UTF-8 encoding emits as three bytes. A byte b < 128 passes
// through unchanged as ASCII. This is an unintentional quirk of the
// reference implementation and must be reproduced exactly, including
// this 1-byte-to-3-byte expansion, for backward-compatible checksums.
func Mangle(masterKey []byte) []byte {
	out := make([]byte, 0, len(masterKey)+2*len(masterKey))
	var buf [utf8.UTFMax]byte
	for _, b := range masterKey {
		if b < 128 {
			out = append(out, b)
			continue
		}
		cp := rune(0xFF00 | uint16(b))
		n := utf8.EncodeRune(buf[:], cp)
		out = append(out, buf[:n]...)
	}
	return out
}
