// Package tokenstore persists the bearer credential and the small amount of
// session state the client keeps between runs.
//
// The credential is written to two backends, a secure store and a general
// store. Reads take the first non-empty value, so a crash between the two
// writes still leaves a usable credential.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/theLastOfCats/storefront/internal/kv"
	"github.com/theLastOfCats/storefront/internal/logger"
	"github.com/theLastOfCats/storefront/internal/model"
)

const (
	KeyToken    = "token"
	KeyUser     = "user"
	KeyDeviceID = "deviceId"
	KeyTheme    = "themeMode"
)

type ThemeMode string

const (
	ThemeLight  ThemeMode = "light"
	ThemeDark   ThemeMode = "dark"
	ThemeSystem ThemeMode = "system"
)

var ErrInvalidTheme = errors.New("theme must be light, dark or system")

type Store struct {
	secure  kv.Store
	general kv.Store
}

func New(secure, general kv.Store) *Store {
	return &Store{secure: secure, general: general}
}

// Token returns the credential or "" when neither backend holds one.
// A failing backend is skipped; the error is only returned when both fail.
func (s *Store) Token(ctx context.Context) (string, error) {
	var errs []error
	for _, backend := range []kv.Store{s.secure, s.general} {
		token, err := backend.Get(ctx, KeyToken)
		switch {
		case errors.Is(err, kv.ErrNotFound):
		case err != nil:
			logger.Logger.Warn().Err(err).Msg("token read failed")
			errs = append(errs, err)
		case token != "":
			return token, nil
		}
	}
	if len(errs) == 2 {
		return "", errors.Join(errs...)
	}
	return "", nil
}

func (s *Store) SetToken(ctx context.Context, token string) error {
	if err := s.secure.Set(ctx, KeyToken, token); err != nil {
		return fmt.Errorf("secure store: %w", err)
	}
	if err := s.general.Set(ctx, KeyToken, token); err != nil {
		return fmt.Errorf("general store: %w", err)
	}
	return nil
}

// Clear deletes the credential from both backends. Failures are logged and
// otherwise ignored.
func (s *Store) Clear(ctx context.Context) {
	if err := s.secure.Delete(ctx, KeyToken); err != nil {
		logger.Logger.Warn().Err(err).Msg("failed to clear token from secure store")
	}
	if err := s.general.Delete(ctx, KeyToken); err != nil {
		logger.Logger.Warn().Err(err).Msg("failed to clear token from general store")
	}
}

// Profile returns the cached user, or nil when none is stored or it cannot be read.
func (s *Store) Profile(ctx context.Context) (*model.User, error) {
	raw, err := s.general.Get(ctx, KeyUser)
	if errors.Is(err, kv.ErrNotFound) || raw == "" {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("decode cached user: %w", err)
	}
	return &user, nil
}

func (s *Store) SetProfile(ctx context.Context, user model.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.general.Set(ctx, KeyUser, string(raw))
}

func (s *Store) ClearProfile(ctx context.Context) {
	if err := s.general.Delete(ctx, KeyUser); err != nil {
		logger.Logger.Warn().Err(err).Msg("failed to clear cached user")
	}
}

// DeviceID returns the installation id, generating and caching it on first use.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	id, err := s.general.Get(ctx, KeyDeviceID)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return "", err
	}
	id = uuid.NewString()
	if err := s.general.Set(ctx, KeyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

// ThemeMode defaults to ThemeSystem.
func (s *Store) ThemeMode(ctx context.Context) ThemeMode {
	mode, err := s.general.Get(ctx, KeyTheme)
	if err != nil {
		return ThemeSystem
	}
	switch m := ThemeMode(mode); m {
	case ThemeLight, ThemeDark, ThemeSystem:
		return m
	default:
		return ThemeSystem
	}
}

func (s *Store) SetThemeMode(ctx context.Context, mode ThemeMode) error {
	switch mode {
	case ThemeLight, ThemeDark, ThemeSystem:
		return s.general.Set(ctx, KeyTheme, string(mode))
	default:
		return ErrInvalidTheme
	}
}
