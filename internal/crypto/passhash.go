// Package crypto implements password hashing for the stub backend.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. The stub hashes on every register and login, so
// these sit at the low end of the recommended range.
const (
	argonTime    uint32 = 2
	argonMemory  uint32 = 19 * 1024 // 19 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32

	SaltLen = 16
)

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// HashPassword returns Argon2id hash of password using the provided salt.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// NewPasswordHash draws a fresh salt and hashes password with it.
func NewPasswordHash(password string) (salt, hash []byte, err error) {
	salt, err = RandBytes(SaltLen)
	if err != nil {
		return nil, nil, err
	}
	return salt, HashPassword([]byte(password), salt), nil
}

// VerifyPassword verifies password against expected Argon2id hash and salt.
func VerifyPassword(password, salt, expected []byte) bool {
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}
