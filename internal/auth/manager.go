// Package auth drives the login lifecycle: login, registration, refresh and
// logout, on top of the session store and the REST client.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"watchstore/internal/apiclient"
	"watchstore/internal/apperr"
	"watchstore/internal/config"
	"watchstore/internal/models"
	"watchstore/internal/tokenstore"
)

type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// logoutTimeout bounds the server-side logout call; the local session is
// cleared whatever happens.
const logoutTimeout = 5 * time.Second

type Manager struct {
	api   *apiclient.Client
	store *tokenstore.Store
	log   *slog.Logger
	now   func() time.Time

	mu    sync.Mutex
	state State
}

// NewManager starts Authenticated when the store already holds a session.
// It registers itself as the client's refresher.
func NewManager(ctx context.Context, api *apiclient.Client, store *tokenstore.Store, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	m := &Manager{
		api:   api,
		store: store,
		log:   log.With("component", "auth"),
		now:   time.Now,
		state: Anonymous,
	}
	if store.IsAuthenticated(ctx) {
		m.state = Authenticated
	}
	api.SetRefresher(m)
	return m
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// IsAuthenticated reads the store; it is the source of truth, since the
// client clears it on 403 or failed refresh.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	ok := m.store.IsAuthenticated(ctx)
	if !ok {
		m.mu.Lock()
		if m.state == Authenticated {
			m.state = Anonymous
		}
		m.mu.Unlock()
	}
	return ok
}

// CurrentUser returns the identity decoded at login.
func (m *Manager) CurrentUser(ctx context.Context) (*models.User, bool) {
	return m.store.User(ctx)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a session and persists it. Claims the
// token lacks are filled in (id from the clock, name from the email). When
// the token cannot be decoded at all the session is still saved with that
// placeholder identity, and the error wraps apperr.ErrMalformedToken.
// Any other failure leaves the store empty.
func (m *Manager) Login(ctx context.Context, email, password string) (*models.Session, error) {
	m.setState(Authenticating)
	email = strings.TrimSpace(email)

	sess, err := m.login(ctx, email, password)
	if sess == nil {
		if cerr := m.store.Clear(ctx); cerr != nil {
			m.log.Error("clear after failed login", "error", cerr)
		}
		m.setState(Anonymous)
		m.log.Info("login failed", "email", email, "error", err)
		return nil, err
	}
	m.setState(Authenticated)
	m.log.Info("login", "user_id", sess.User.ID, "role", sess.User.Role)
	return sess, err
}

func (m *Manager) login(ctx context.Context, email, password string) (*models.Session, error) {
	resp, err := m.api.Do(ctx, apiclient.Request{
		Route:   config.RouteLogin,
		Body:    credentials{Email: email, Password: password},
		NoRetry: true,
	})
	if err != nil {
		switch apiclient.StatusOf(err) {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return nil, fmt.Errorf("auth: login: %w: %w", apperr.ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("auth: login: %w", err)
	}

	pair := apiclient.ExtractTokens(resp)
	if pair.Access == "" {
		return nil, fmt.Errorf("auth: login: %w: no token in response", apperr.ErrInvalidCredentials)
	}

	user, idErr := DecodeIdentity(pair.Access)
	if idErr != nil {
		m.log.Warn("unreadable token, using placeholder identity", "error", idErr)
	}
	if user.ID == "" {
		user.ID = fmt.Sprintf("%d", m.now().UnixMilli())
	}
	if user.Email == "" {
		user.Email = email
	}
	if user.Name == "" {
		user.Name = localPart(user.Email)
	}
	// The role follows the email typed at login, whatever the token says.
	user.Role = DeriveRole(email)

	sess := models.Session{AccessToken: pair.Access, RefreshToken: pair.Refresh, User: user}
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("auth: login: %w", err)
	}
	if idErr != nil {
		return &sess, fmt.Errorf("auth: login: %w: %w", apperr.ErrMalformedToken, idErr)
	}
	return &sess, nil
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	CPF             string
	PhoneNumber     string
	Street          string
	Number          string
	Block           string
	City            string
	State           string
}

// Register creates the account and logs in with the same credentials.
// On any failure no session exists.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (*models.Session, error) {
	if in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("auth: register: %w: email and password are required", apperr.ErrRegistrationFailed)
	}
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.Password {
		return nil, fmt.Errorf("auth: register: %w: passwords do not match", apperr.ErrRegistrationFailed)
	}

	first, last := SplitName(in.Name)
	client := models.Client{
		Name:         strings.TrimSpace(in.Name),
		FirstName:    first,
		LastName:     last,
		Email:        strings.TrimSpace(in.Email),
		Password:     in.Password,
		CPF:          in.CPF,
		PhoneNumber:  in.PhoneNumber,
		ActiveStatus: true,
	}
	if in.Street != "" || in.City != "" {
		client.Address = &models.Address{
			Street: in.Street,
			Number: in.Number,
			Block:  in.Block,
			City:   in.City,
			State:  in.State,
		}
	}

	_, err := m.api.Do(ctx, apiclient.Request{Route: config.RouteClientCreate, Body: client, NoRetry: true})
	if err != nil {
		return nil, fmt.Errorf("auth: register: %w: %w", apperr.ErrRegistrationFailed, err)
	}
	m.log.Info("account created", "email", client.Email)

	sess, err := m.Login(ctx, client.Email, in.Password)
	if err != nil && !errors.Is(err, apperr.ErrMalformedToken) {
		return nil, fmt.Errorf("auth: register: %w: %w", apperr.ErrRegistrationFailed, err)
	}
	return sess, err
}

// Refresh rotates the token pair. On failure the local session is cleared
// and the error wraps apperr.ErrSessionExpired.
func (m *Manager) Refresh(ctx context.Context) error {
	refresh := m.store.RefreshToken(ctx)
	if refresh == "" {
		m.expire(ctx)
		return fmt.Errorf("auth: refresh: %w: no refresh token", apperr.ErrSessionExpired)
	}

	resp, err := m.api.Do(ctx, apiclient.Request{
		Route:   config.RouteRefresh,
		Body:    map[string]string{"refreshToken": refresh},
		NoRetry: true,
	})
	if err != nil {
		m.expire(ctx)
		return fmt.Errorf("auth: refresh: %w: %w", apperr.ErrSessionExpired, err)
	}
	pair := apiclient.ExtractTokens(resp)
	if pair.Access == "" {
		m.expire(ctx)
		return fmt.Errorf("auth: refresh: %w: no token in response", apperr.ErrSessionExpired)
	}
	if err := m.store.UpdateTokens(ctx, pair.Access, pair.Refresh); err != nil {
		m.expire(ctx)
		return fmt.Errorf("auth: refresh: %w: %w", apperr.ErrSessionExpired, err)
	}
	m.log.Debug("tokens refreshed")
	return nil
}

func (m *Manager) expire(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.log.Error("clear expired session", "error", err)
	}
	m.setState(Anonymous)
}

// Logout tells the backend, then clears the local session even when the
// backend call fails.
func (m *Manager) Logout(ctx context.Context) error {
	if m.store.IsAuthenticated(ctx) {
		callCtx, cancel := context.WithTimeout(ctx, logoutTimeout)
		_, err := m.api.Do(callCtx, apiclient.Request{Route: config.RouteLogout, NoRetry: true})
		cancel()
		if err != nil {
			m.log.Warn("server logout failed, clearing locally", "error", err)
		}
	}
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("auth: logout: %w", err)
	}
	m.setState(Anonymous)
	m.log.Info("logout")
	return nil
}

// DeriveRole applies the storefront's admin convention: any email that
// contains "admin" is an administrator. The backend enforces the real
// permissions; this only drives what the client shows.
func DeriveRole(email string) models.Role {
	if strings.Contains(email, "admin") {
		return models.RoleAdmin
	}
	return models.RoleClient
}

// SplitName splits "First Middle Last" into "First" and "Middle Last".
func SplitName(name string) (first, last string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
