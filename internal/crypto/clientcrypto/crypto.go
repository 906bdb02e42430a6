// Package clientcrypto seals credentials persisted on the client.
//
// A master key is derived from a user passphrase with Argon2id; each stored
// entry gets its own key via HKDF-SHA256 with the entry name as info, and is
// sealed with XChaCha20-Poly1305 using the entry name as AAD, so a blob
// copied under another name fails to open.
package clientcrypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Params
const (
	KeyLen  = 32
	SaltLen = 16

	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 1
)

var (
	// ErrEmptyPassphrase is returned when sealing is requested without a passphrase.
	ErrEmptyPassphrase = errors.New("empty passphrase")
	// ErrShortBlob is returned for input shorter than a nonce.
	ErrShortBlob = errors.New("blob too short")
)

func Rand(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// DeriveMasterKey derives the master key from passphrase and salt using Argon2id.
func DeriveMasterKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, KeyLen)
}

// DeriveEntryKey derives a per-entry key via HKDF-SHA256 using name as info.
func DeriveEntryKey(master []byte, name string) ([]byte, error) {
	r := hkdf.New(sha256.New, master, nil, []byte(name))
	key := make([]byte, KeyLen)
	_, err := r.Read(key)
	return key, err
}

// Sealer encrypts and decrypts named entries under one master key.
type Sealer struct {
	master []byte
}

// NewSealer derives the master key. salt must be persisted next to the
// sealed entries.
func NewSealer(passphrase string, salt []byte) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	return &Sealer{master: DeriveMasterKey([]byte(passphrase), salt)}, nil
}

// Seal encrypts plaintext for entry name. Output is nonce||ciphertext.
func (s *Sealer) Seal(name string, plaintext []byte) ([]byte, error) {
	key, err := DeriveEntryKey(s.master, name)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce, err := Rand(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, plaintext, []byte(name))...)
	return out, nil
}

// Open decrypts a blob produced by Seal for the same entry name.
func (s *Sealer) Open(name string, blob []byte) ([]byte, error) {
	if len(blob) < chacha20poly1305.NonceSizeX {
		return nil, ErrShortBlob
	}
	key, err := DeriveEntryKey(s.master, name)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := blob[:chacha20poly1305.NonceSizeX]
	ct := blob[chacha20poly1305.NonceSizeX:]
	return aead.Open(nil, nonce, ct, []byte(name))
}
