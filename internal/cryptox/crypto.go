// Package cryptox groups the cryptographic primitives used by the kernel:
// verification-code hashing, session secret hashing and authenticated
// encryption of secrets at rest.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/blake2b"
)

// SessionSecretSize is the size in bytes of a session secret. Session tokens
// concatenate a 16-byte id with the secret, so their decoded size is fixed.
const SessionSecretSize = 64

// argon2id parameters for hashing short verification codes.
const (
	codeHashTime    = 1
	codeHashMemory  = 64 * 1024
	codeHashThreads = 4
	codeHashKeyLen  = 32
	codeHashSaltLen = 16
)

var ErrInvalidHashFormat = errors.New("cryptox: invalid hash format")

// RandBytes returns size cryptographically secure random bytes.
func RandBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// RandDigits returns a string of length cryptographically secure decimal
// digits, suitable for one-time verification codes.
func RandDigits(length int) (string, error) {
	const digits = "0123456789"

	var sb strings.Builder
	sb.Grow(length)
	for sb.Len() < length {
		raw, err := RandBytes(length - sb.Len())
		if err != nil {
			return "", err
		}
		for _, b := range raw {
			// 250 is the largest multiple of 10 that fits in a byte;
			// rejecting 250-255 keeps every digit equally likely.
			if b >= 250 {
				continue
			}
			sb.WriteByte(digits[int(b)%len(digits)])
		}
	}
	return sb.String(), nil
}

// HashCode hashes a verification code with argon2id and a random salt.
// The result embeds the salt: "salt_hex$hash_hex".
func HashCode(code string) (string, error) {
	salt, err := RandBytes(codeHashSaltLen)
	if err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(code), salt, codeHashTime, codeHashMemory, codeHashThreads, codeHashKeyLen)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

// VerifyCode re-derives the hash of code with the salt embedded in encoded
// and compares in constant time.
func VerifyCode(code, encoded string) (bool, error) {
	parts := strings.SplitN(encoded, "$", 2)
	if len(parts) != 2 {
		return false, ErrInvalidHashFormat
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false, ErrInvalidHashFormat
	}
	expected, err := hex.DecodeString(parts[1])
	if err != nil {
		return false, ErrInvalidHashFormat
	}

	hash := argon2.IDKey([]byte(code), salt, codeHashTime, codeHashMemory, codeHashThreads, codeHashKeyLen)
	return subtle.ConstantTimeCompare(hash, expected) == 1, nil
}

// HashSessionSecret derives the at-rest hash of a session secret:
// blake2b-512 keyed by the secret over the session id bytes. Keying by the
// session id prevents a hash from being replayed across sessions.
func HashSessionSecret(secret, sessionID []byte) ([]byte, error) {
	h, err := blake2b.New512(secret)
	if err != nil {
		return nil, fmt.Errorf("cryptox: hashing session secret: %w", err)
	}
	h.Write(sessionID)
	return h.Sum(nil), nil
}

// ConstantTimeCompare reports whether a and b are equal without leaking
// timing information.
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Encrypt seals plaintext with AES-256-GCM. A fresh 12-byte nonce is
// generated per call and returned alongside the ciphertext. The additional
// data binds the ciphertext to its context (e.g. the owning user id).
func Encrypt(plaintext, key, additionalData []byte) (ciphertext, nonce []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	nonce, err = RandBytes(aead.NonceSize())
	if err != nil {
		return nil, nil, err
	}

	ciphertext = aead.Seal(nil, nonce, plaintext, additionalData)
	return ciphertext, nonce, nil
}

// Decrypt opens an AES-256-GCM ciphertext produced by Encrypt.
func Decrypt(ciphertext, nonce, key, additionalData []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return aead.Open(nil, nonce, ciphertext, additionalData)
}
