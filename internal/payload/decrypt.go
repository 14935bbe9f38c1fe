// Package payload decodes the encrypted invoice documents served by the remote
// API: "<iv>:<ciphertext>:<tag>", each part standard base64, AES-256-GCM.
package payload

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	keySize   = 32
	tagSize   = 16
	nonceSize = 12
	separator = ":"
)

// ErrDecrypt is returned for every decryption failure. The cause (shape,
// encoding or authentication) is deliberately not reported.
var ErrDecrypt = errors.New("payload: could not decrypt")

// DeriveKey turns a passphrase into an AES-256 key: its UTF-8 bytes truncated
// or zero-padded to 32 bytes. No hashing is involved.
func DeriveKey(passphrase string) []byte {
	key := make([]byte, keySize)
	copy(key, passphrase)
	return key
}

// Decrypt recovers the plaintext of an encoded payload. The IV may have any
// non-zero length.
func Decrypt(encoded, passphrase string) (string, error) {
	parts := strings.Split(encoded, separator)
	if len(parts) != 3 {
		return "", ErrDecrypt
	}

	iv, err := decodeSegment(parts[0])
	if err != nil {
		return "", ErrDecrypt
	}
	ciphertext, err := decodeSegment(parts[1])
	if err != nil {
		return "", ErrDecrypt
	}
	tag, err := decodeSegment(parts[2])
	if err != nil || len(iv) == 0 {
		return "", ErrDecrypt
	}

	aead, err := newAEAD(passphrase, len(iv))
	if err != nil {
		return "", ErrDecrypt
	}

	// The tag is the trailing tagSize bytes of ciphertext||tag, as GCM expects.
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plain, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

// decodeSegment reads standard base64 the way browsers' atob does: ASCII
// whitespace is ignored and '=' padding is optional.
func decodeSegment(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\f', '\r':
			return -1
		}
		return r
	}, s)
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// Encrypt produces the encoded form of plaintext with a random 12-byte IV.
func Encrypt(plaintext, passphrase string) (string, error) {
	iv := make([]byte, nonceSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}
	return EncryptWithIV(plaintext, passphrase, iv)
}

// EncryptWithIV is Encrypt with a caller-supplied IV of any non-zero length.
func EncryptWithIV(plaintext, passphrase string, iv []byte) (string, error) {
	if len(iv) == 0 {
		return "", errors.New("payload: empty iv")
	}

	aead, err := newAEAD(passphrase, len(iv))
	if err != nil {
		return "", err
	}

	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(iv),
		base64.StdEncoding.EncodeToString(ciphertext),
		base64.StdEncoding.EncodeToString(tag),
	}, separator), nil
}

func newAEAD(passphrase string, ivLen int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(DeriveKey(passphrase))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	if ivLen == nonceSize {
		return cipher.NewGCM(block)
	}
	return cipher.NewGCMWithNonceSize(block, ivLen)
}
