package payload

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassphrase = "UUe5aT9rjkcxMEXcyHbnVIk3AbKbdNhxTgYdTX84Al3x4Y3cMs"

func TestDeriveKey(t *testing.T) {
	t.Run("long passphrase is truncated", func(t *testing.T) {
		key := DeriveKey(testPassphrase)
		require.Len(t, key, 32)
		assert.Equal(t, []byte(testPassphrase[:32]), key)
	})

	t.Run("short passphrase is zero padded", func(t *testing.T) {
		key := DeriveKey("abc")
		require.Len(t, key, 32)
		assert.Equal(t, []byte("abc"), key[:3])
		assert.Equal(t, make([]byte, 29), key[3:])
	})

	t.Run("multibyte characters count as bytes", func(t *testing.T) {
		key := DeriveKey(strings.Repeat("ñ", 20))
		assert.Equal(t, []byte(strings.Repeat("ñ", 16)), key)
	})
}

func TestDecrypt_RoundTrip(t *testing.T) {
	plaintexts := []string{
		`[{"numero_factura":"F-1","importe_total":121}]`,
		"",
		"Facturación €ñ",
	}

	for _, p := range plaintexts {
		encoded, err := Encrypt(p, testPassphrase)
		require.NoError(t, err)
		assert.Len(t, strings.Split(encoded, ":"), 3)

		got, err := Decrypt(encoded, testPassphrase)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestDecrypt_MatchesIndependentEncryption(t *testing.T) {
	key := make([]byte, 32)
	copy(key, "short")
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)

	iv := []byte("0123456789ab")
	sealed := gcm.Seal(nil, iv, []byte("hola"), nil)
	ct, tag := sealed[:len(sealed)-16], sealed[len(sealed)-16:]
	encoded := base64.StdEncoding.EncodeToString(iv) + ":" +
		base64.StdEncoding.EncodeToString(ct) + ":" +
		base64.StdEncoding.EncodeToString(tag)

	got, err := Decrypt(encoded, "short")
	require.NoError(t, err)
	assert.Equal(t, "hola", got)
}

func TestDecrypt_NonStandardIVLength(t *testing.T) {
	iv := []byte("sixteen-byte-iv!")

	encoded, err := EncryptWithIV("payload", testPassphrase, iv)
	require.NoError(t, err)

	got, err := Decrypt(encoded, testPassphrase)
	require.NoError(t, err)
	assert.Equal(t, "payload", got)
}

func TestDecrypt_TamperedTag(t *testing.T) {
	encoded, err := Encrypt("secret", testPassphrase)
	require.NoError(t, err)

	parts := strings.Split(encoded, ":")
	tag, err := base64.StdEncoding.DecodeString(parts[2])
	require.NoError(t, err)

	for bit := 0; bit < len(tag)*8; bit++ {
		flipped := append([]byte(nil), tag...)
		flipped[bit/8] ^= 1 << (bit % 8)
		tampered := parts[0] + ":" + parts[1] + ":" + base64.StdEncoding.EncodeToString(flipped)

		got, err := Decrypt(tampered, testPassphrase)
		assert.ErrorIs(t, err, ErrDecrypt)
		assert.Empty(t, got)
	}
}

func TestDecrypt_LenientBase64(t *testing.T) {
	valid, err := Encrypt("secret!", testPassphrase)
	require.NoError(t, err)
	parts := strings.Split(valid, ":")
	require.True(t, strings.HasSuffix(parts[2], "=="))

	unpadded := strings.ReplaceAll(valid, "=", "")
	got, err := Decrypt(unpadded, testPassphrase)
	require.NoError(t, err)
	assert.Equal(t, "secret!", got)

	spaced := parts[0] + ":" + parts[1][:4] + "\r\n " + parts[1][4:] + ":\t" + parts[2] + "\n"
	got, err = Decrypt(spaced, testPassphrase)
	require.NoError(t, err)
	assert.Equal(t, "secret!", got)

	_, err = Decrypt(parts[0]+":"+parts[1]+":A", testPassphrase)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestDecrypt_Failures(t *testing.T) {
	valid, err := Encrypt("secret", testPassphrase)
	require.NoError(t, err)
	parts := strings.Split(valid, ":")

	tests := []struct {
		name       string
		encoded    string
		passphrase string
	}{
		{"single part", "onlyonepart", testPassphrase},
		{"two parts", parts[0] + ":" + parts[1], testPassphrase},
		{"four parts", valid + ":extra", testPassphrase},
		{"bad base64 iv", "!!!:" + parts[1] + ":" + parts[2], testPassphrase},
		{"bad base64 ciphertext", parts[0] + ":***:" + parts[2], testPassphrase},
		{"bad base64 tag", parts[0] + ":" + parts[1] + ":%%%", testPassphrase},
		{"short tag", parts[0] + ":" + parts[1] + ":" + base64.StdEncoding.EncodeToString([]byte("short")), testPassphrase},
		{"empty iv", ":" + parts[1] + ":" + parts[2], testPassphrase},
		{"wrong passphrase", valid, "another passphrase"},
		{"empty input", "", testPassphrase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				got, err := Decrypt(tt.encoded, tt.passphrase)
				assert.ErrorIs(t, err, ErrDecrypt)
				assert.Empty(t, got)
			})
		})
	}
}
