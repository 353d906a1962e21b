// Package apitest runs the storefront HTTP API against a private in-memory
// database for client-side tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/theLastOfCats/storefront/internal/api"
	"github.com/theLastOfCats/storefront/internal/auth"
	"github.com/theLastOfCats/storefront/internal/db"
	"github.com/theLastOfCats/storefront/internal/model"
	"github.com/theLastOfCats/storefront/internal/templates"
	"github.com/theLastOfCats/storefront/internal/testutil"
)

const Secret = "test-secret"

type Server struct {
	*httptest.Server
	DB     *db.DB
	Tokens *auth.Issuer
	Mailer *testutil.MockMailSender
}

func NewServer(t *testing.T) *Server {
	t.Helper()
	database := testutil.SetupTestDB(t)
	tokens := auth.NewIssuer(Secret, time.Hour)
	mailer := &testutil.MockMailSender{}

	srv := httptest.NewServer(api.NewRouter(api.Deps{
		DB:        database,
		Tokens:    tokens,
		Mailer:    mailer,
		Templates: templates.Default(),
		BaseURL:   "http://storefront.test",
	}))
	t.Cleanup(srv.Close)

	return &Server{Server: srv, DB: database, Tokens: tokens, Mailer: mailer}
}

// CreateUser registers a user directly in the database and returns it.
func (s *Server) CreateUser(t *testing.T, name, email, password string) *model.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	user, err := s.DB.CreateUser(name, email, hash)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

// Token issues a bearer token for userID without going through /auth/login.
func (s *Server) Token(t *testing.T, userID string) string {
	t.Helper()
	token, err := s.Tokens.GenerateToken(userID)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	return token
}

// Do sends a JSON request and returns the response; body may be nil.
func (s *Server) Do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
