// Package session owns the logged-in/logged-out state of the client.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/theLastOfCats/storefront/internal/apiclient"
	"github.com/theLastOfCats/storefront/internal/logger"
	"github.com/theLastOfCats/storefront/internal/model"
	"github.com/theLastOfCats/storefront/internal/tokenstore"
)

type State int

const (
	StateUnknown State = iota
	StateLoggedOut
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged_out"
	case StateLoggedIn:
		return "logged_in"
	default:
		return "unknown"
	}
}

// Session is a snapshot handed to callers and subscribers.
type Session struct {
	State      State
	User       *model.User
	IsLoggedIn bool
	IsLoading  bool
}

// Caller issues API requests.
type Caller interface {
	Call(ctx context.Context, req apiclient.Request) apiclient.Result
}

// PushTokenSource supplies the device's push notification token.
type PushTokenSource interface {
	PushToken(ctx context.Context) (string, error)
}

// PasswordOutcome reports a change-password attempt. SessionExpired is set
// when the credential was missing or rejected, and the caller should send
// the user back to login.
type PasswordOutcome struct {
	Success        bool
	Message        string
	SessionExpired bool
}

var ErrNoToken = errors.New("login response did not include a token")

type Manager struct {
	api      Caller
	tokens   *tokenstore.Store
	push     PushTokenSource
	platform string

	mu    sync.Mutex
	state State
	user  *model.User
	subs  map[int]func(Session)
	next  int

	wg sync.WaitGroup
}

type Option func(*Manager)

// WithPush enables push registration after login.
func WithPush(src PushTokenSource, platform string) Option {
	return func(m *Manager) {
		m.push = src
		m.platform = platform
	}
}

func New(api Caller, tokens *tokenstore.Store, opts ...Option) *Manager {
	m := &Manager{
		api:    api,
		tokens: tokens,
		subs:   make(map[int]func(Session)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Manager) snapshot() Session {
	s := Session{State: m.state, IsLoading: m.state == StateUnknown}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	s.IsLoggedIn = s.User != nil
	return s
}

// Subscribe calls fn after every state change. The returned func unsubscribes.
func (m *Manager) Subscribe(fn func(Session)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Manager) set(state State, user *model.User) Session {
	m.mu.Lock()
	m.state = state
	m.user = user
	s := m.snapshot()
	subs := make([]func(Session), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
	return s
}

// Bootstrap restores the session from storage without touching the network.
// Anything short of a stored credential and profile ends logged out.
func (m *Manager) Bootstrap(ctx context.Context) Session {
	token, err := m.tokens.Token(ctx)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("session bootstrap: token read failed")
		return m.set(StateLoggedOut, nil)
	}
	user, err := m.tokens.Profile(ctx)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("session bootstrap: profile read failed")
		return m.set(StateLoggedOut, nil)
	}
	if token == "" || user == nil {
		return m.set(StateLoggedOut, nil)
	}
	return m.set(StateLoggedIn, user)
}

// persist stores the credential and profile together. A partial write is
// undone so no credential outlives a failed login.
func (m *Manager) persist(ctx context.Context, login model.LoginResponse) error {
	err := m.tokens.SetToken(ctx, login.Token)
	if err == nil {
		err = m.tokens.SetProfile(ctx, login.User)
	}
	if err != nil {
		m.tokens.Clear(ctx)
		m.tokens.ClearProfile(ctx)
	}
	return err
}

func (m *Manager) Login(ctx context.Context, email, password string) (*model.User, error) {
	res := m.api.Call(ctx, apiclient.Request{
		Endpoint: "/auth/login",
		Method:   "POST",
		Data:     map[string]string{"email": email, "password": password},
		Public:   true,
	})
	var login model.LoginResponse
	if err := res.Decode(&login); err != nil {
		return nil, err
	}
	if login.Token == "" {
		return nil, ErrNoToken
	}

	if err := m.persist(ctx, login); err != nil {
		return nil, err
	}

	user := login.User
	m.set(StateLoggedIn, &user)
	logger.Logger.Info().Str("user_id", user.ID).Msg("logged in")

	if m.push != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.registerPush(context.WithoutCancel(ctx))
		}()
	}
	return &user, nil
}

// Register creates the account but leaves the session untouched.
func (m *Manager) Register(ctx context.Context, name, email, password string) error {
	res := m.api.Call(ctx, apiclient.Request{
		Endpoint: "/auth/register",
		Method:   "POST",
		Data:     map[string]string{"name": name, "email": email, "password": password},
		Public:   true,
	})
	return res.Err()
}

// Logout tells the server to forget this device, then clears local state
// whether or not that call succeeded.
func (m *Manager) Logout(ctx context.Context) {
	deviceID, err := m.tokens.DeviceID(ctx)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("logout: device id unavailable")
	}
	res := m.api.Call(ctx, apiclient.Request{
		Endpoint: "/auth/logout",
		Method:   "POST",
		Data:     map[string]string{"deviceId": deviceID},
	})
	if !res.Success {
		logger.Logger.Warn().Str("error", res.Error).Msg("logout: server call failed")
	}
	m.ForceLogout(ctx)
}

// ForceLogout drops the local session without contacting the server.
func (m *Manager) ForceLogout(ctx context.Context) {
	m.tokens.Clear(ctx)
	m.tokens.ClearProfile(ctx)
	m.set(StateLoggedOut, nil)
}

func (m *Manager) ChangePassword(ctx context.Context, oldPassword, newPassword string) PasswordOutcome {
	res := m.api.Call(ctx, apiclient.Request{
		Endpoint: "/auth/change-password",
		Method:   "PUT",
		Data:     map[string]string{"oldPassword": oldPassword, "newPassword": newPassword},
	})
	if res.Success {
		var body struct {
			Message string `json:"message"`
		}
		_ = res.Decode(&body)
		return PasswordOutcome{Success: true, Message: body.Message}
	}
	expired := res.Kind == apiclient.KindUnauthorized || res.Kind == apiclient.KindAuthRequired
	return PasswordOutcome{Message: res.Error, SessionExpired: expired}
}

// Wait blocks until background push registrations have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) registerPush(ctx context.Context) {
	pushToken, err := m.push.PushToken(ctx)
	if err != nil || pushToken == "" {
		logger.Logger.Warn().Err(err).Msg("push registration skipped: no push token")
		return
	}
	deviceID, err := m.tokens.DeviceID(ctx)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("push registration skipped: no device id")
		return
	}
	res := m.api.Call(ctx, apiclient.Request{
		Endpoint: "/devices/register",
		Method:   "POST",
		Data:     map[string]string{"deviceId": deviceID, "pushToken": pushToken, "platform": m.platform},
	})
	if !res.Success {
		logger.Logger.Warn().Str("error", res.Error).Msg("push registration failed")
		return
	}
	logger.Logger.Debug().Str("device_id", deviceID).Msg("push token registered")
}
