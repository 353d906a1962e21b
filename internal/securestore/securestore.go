// Package securestore is an encrypted key-value file used for secrets such as
// the bearer credential. Every write re-seals the whole file.
package securestore

import (
	"bytes"
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/theLastOfCats/storefront/internal/kv"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	magic = []byte("SFS1")

	ErrCorrupt = errors.New("secure store is corrupt or the key is wrong")
)

const saltLen = 16

type Store struct {
	path       string
	passphrase []byte

	mu   sync.Mutex
	salt []byte
	aead cipher.AEAD
}

var _ kv.Store = (*Store)(nil)

// New opens (or lazily creates) the sealed file at path.
func New(path, passphrase string) (*Store, error) {
	if passphrase == "" {
		return nil, errors.New("secure store passphrase is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create secure store directory: %w", err)
	}
	return &Store{path: path, passphrase: []byte(passphrase)}, nil
}

func (s *Store) deriveKey(salt []byte) error {
	if s.aead != nil && bytes.Equal(s.salt, salt) {
		return nil
	}
	key := argon2.IDKey(s.passphrase, salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return err
	}
	s.salt = salt
	s.aead = aead
	return nil
}

func (s *Store) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	header := len(magic) + saltLen + chacha20poly1305.NonceSizeX
	if len(raw) < header || !bytes.Equal(raw[:len(magic)], magic) {
		return nil, ErrCorrupt
	}
	salt := raw[len(magic) : len(magic)+saltLen]
	nonce := raw[len(magic)+saltLen : header]

	if err := s.deriveKey(append([]byte(nil), salt...)); err != nil {
		return nil, err
	}
	plain, err := s.aead.Open(nil, nonce, raw[header:], magic)
	if err != nil {
		return nil, ErrCorrupt
	}

	entries := map[string]string{}
	if err := json.Unmarshal(plain, &entries); err != nil {
		return nil, ErrCorrupt
	}
	return entries, nil
}

func (s *Store) save(entries map[string]string) error {
	if s.salt == nil {
		salt := make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return err
		}
		if err := s.deriveKey(salt); err != nil {
			return err
		}
	}

	plain, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}

	out := make([]byte, 0, len(magic)+saltLen+len(nonce)+len(plain)+chacha20poly1305.Overhead)
	out = append(out, magic...)
	out = append(out, s.salt...)
	out = append(out, nonce...)
	out = s.aead.Seal(out, nonce, plain, magic)

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return "", err
	}
	value, ok := entries[key]
	if !ok {
		return "", kv.ErrNotFound
	}
	return value, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[key] = value
	return s.save(entries)
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return s.save(entries)
}
