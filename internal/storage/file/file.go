// Package file stores session credentials as a JSON document in the user's
// config directory, optionally sealed with a passphrase.
package file

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/and161185/rideshare/internal/crypto/clientcrypto"
	"github.com/and161185/rideshare/internal/storage"
)

// FileName is the document name inside the store directory.
const FileName = "session.json"

type document struct {
	Salt    string            `json:"salt,omitempty"` // base64, present when sealed
	Entries map[string]string `json:"entries"`
}

// Store keeps every entry in one file rewritten on each change.
type Store struct {
	mu         sync.Mutex
	path       string
	passphrase string
	sealer     *clientcrypto.Sealer
	salt       []byte
}

var _ storage.Store = (*Store)(nil)

// New opens (without creating) the store in dir. A non-empty passphrase
// seals every value; an existing sealed document requires the same one. A
// plain document opened with a passphrase is sealed in place.
func New(dir, passphrase string) (*Store, error) {
	s := &Store{path: filepath.Join(dir, FileName), passphrase: passphrase}
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	if doc.Salt != "" && passphrase == "" {
		return nil, errors.New("file store is sealed: passphrase required")
	}
	if passphrase == "" {
		return s, nil
	}
	if doc.Salt != "" {
		s.salt, err = base64.StdEncoding.DecodeString(doc.Salt)
		if err != nil {
			return nil, fmt.Errorf("file store salt: %w", err)
		}
	} else {
		s.salt, err = clientcrypto.Rand(clientcrypto.SaltLen)
		if err != nil {
			return nil, err
		}
	}
	s.sealer, err = clientcrypto.NewSealer(passphrase, s.salt)
	if err != nil {
		return nil, err
	}
	if doc.Salt == "" && len(doc.Entries) > 0 {
		if err := s.sealPlain(doc); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// sealPlain rewrites a document stored without a passphrase so every entry
// is sealed under the new one.
func (s *Store) sealPlain(doc document) error {
	for k, v := range doc.Entries {
		sealed, err := s.seal(k, v)
		if err != nil {
			return fmt.Errorf("file store seal %s: %w", k, err)
		}
		doc.Entries[k] = sealed
	}
	return s.write(doc)
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return "", err
	}
	v, ok := doc.Entries[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return s.open(key, v)
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	sealed, err := s.seal(key, value)
	if err != nil {
		return err
	}
	doc.Entries[key] = sealed
	return s.write(doc)
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := doc.Entries[k]; ok {
			delete(doc.Entries, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.write(doc)
}

func (s *Store) Close() error { return nil }

func (s *Store) seal(key, value string) (string, error) {
	if s.sealer == nil {
		return value, nil
	}
	blob, err := s.sealer.Seal(key, []byte(value))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}

func (s *Store) open(key, value string) (string, error) {
	if s.sealer == nil {
		return value, nil
	}
	blob, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("file store %s: %w", key, err)
	}
	pt, err := s.sealer.Open(key, blob)
	if err != nil {
		return "", fmt.Errorf("file store %s: %w", key, err)
	}
	return string(pt), nil
}

func (s *Store) read() (document, error) {
	doc := document{Entries: map[string]string{}}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("file store %s: %w", s.path, err)
	}
	if doc.Entries == nil {
		doc.Entries = map[string]string{}
	}
	return doc, nil
}

// write replaces the document atomically via a temp file in the same dir.
func (s *Store) write(doc document) error {
	if s.sealer != nil {
		doc.Salt = base64.StdEncoding.EncodeToString(s.salt)
	} else {
		doc.Salt = ""
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
