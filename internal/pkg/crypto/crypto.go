package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize    = 32
	iterations = 10000
)

// Salt is fixed so the same configured secret always derives the same key.
var kdfSalt = []byte("msnreports.field.v1")

// CryptoError wraps any failure to decode or decrypt a stored value.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto %s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// Codec encrypts and decrypts individual report fields with AES-256-CBC.
// Every Encrypt call uses a fresh random IV, so encrypting the same
// plaintext twice never yields the same token.
type Codec struct {
	key []byte
}

// New derives a symmetric key from the configured secret. The derivation
// is deterministic: equal secrets always produce equal keys.
func New(secret string) *Codec {
	key := pbkdf2.Key([]byte(secret), kdfSalt, iterations, keySize, sha256.New)
	return &Codec{key: key}
}

// Encrypt returns base64(iv || ciphertext) for the given plaintext.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", &CryptoError{Op: "encrypt", Err: err}
	}

	padded := pad([]byte(plaintext), aes.BlockSize)

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", &CryptoError{Op: "encrypt", Err: err}
	}

	out := make([]byte, len(iv)+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Malformed, truncated or wrong-key input
// returns a *CryptoError; callers decide how to degrade.
func (c *Codec) Decrypt(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", &CryptoError{Op: "decrypt", Err: err}
	}
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return "", &CryptoError{Op: "decrypt", Err: fmt.Errorf("ciphertext length %d invalid", len(raw))}
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", &CryptoError{Op: "decrypt", Err: err}
	}

	iv, body := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	unpadded, err := unpad(plain, aes.BlockSize)
	if err != nil {
		return "", &CryptoError{Op: "decrypt", Err: err}
	}
	return string(unpadded), nil
}

// pad applies PKCS#7 padding.
func pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips PKCS#7 padding, rejecting inconsistent bytes.
func unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(b))
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("invalid padding byte %d", n)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return b[:len(b)-n], nil
}
