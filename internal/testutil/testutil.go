package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/theLastOfCats/storefront/internal/db"
	"github.com/theLastOfCats/storefront/internal/kv"
	"github.com/theLastOfCats/storefront/internal/logger"
)

// SetupTestDB creates an in-memory SQLite DB with schema, private to the test.
func SetupTestDB(t *testing.T) *db.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	database, err := db.New("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Failed to init in-memory db: %v", err)
	}
	// Shared-cache connections fail with SQLITE_LOCKED instead of waiting.
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// MockMailSender captures emails for testing
type MockMailSender struct {
	mu         sync.Mutex
	SentEmails []SentEmail
}

type SentEmail struct {
	To       string
	Subject  string
	TextBody string
	HtmlBody string
}

func (m *MockMailSender) Send(to string, subject string, textBody string, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentEmails = append(m.SentEmails, SentEmail{to, subject, textBody, htmlBody})
	logger.Logger.Debug().Str("to", to).Msg("mock email sent")
	return nil
}

func (m *MockMailSender) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.SentEmails...)
}

var ErrInjected = errors.New("injected store failure")

// MemoryStore is an in-memory kv.Store whose operations can be made to fail.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]string
	FailGet    bool
	FailSet    bool
	FailDelete bool
}

var _ kv.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]string{}}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailGet {
		return "", ErrInjected
	}
	v, ok := m.entries[key]
	if !ok {
		return "", kv.ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSet {
		return ErrInjected
	}
	m.entries[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete {
		return ErrInjected
	}
	delete(m.entries, key)
	return nil
}

// Has reports whether key is present regardless of injected failures.
func (m *MemoryStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}
