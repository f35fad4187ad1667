// Package tokenstore persists the login session: access token, refresh
// token and the identity decoded at login.
//
// A Store is built once by the application root and handed to every
// component that needs it; there is no package-level session.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"watchstore/internal/models"
)

// Keys used in the medium.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

var allKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

type Store struct {
	kv  KV
	log *slog.Logger
}

func New(kv KV, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{kv: kv, log: log.With("component", "tokenstore")}
}

// KV exposes the medium so other client-local state can share it.
func (s *Store) KV() KV { return s.kv }

// Save writes the three keys in one step.
func (s *Store) Save(ctx context.Context, sess models.Session) error {
	if sess.AccessToken == "" {
		return errors.New("tokenstore: refusing to save a session without access token")
	}
	user, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("tokenstore: encode user: %w", err)
	}
	err = s.kv.SetMany(ctx, map[string]string{
		KeyAccessToken:  sess.AccessToken,
		KeyRefreshToken: sess.RefreshToken,
		KeyUser:         string(user),
	})
	if err != nil {
		return fmt.Errorf("tokenstore: save: %w", err)
	}
	return nil
}

// Read returns the stored session. Missing keys, undecodable identity and
// medium errors all read as "no session"; Read never fails.
func (s *Store) Read(ctx context.Context) (*models.Session, bool) {
	access, ok, err := s.kv.Get(ctx, KeyAccessToken)
	if err != nil {
		s.log.Warn("read access token", "error", err)
		return nil, false
	}
	if !ok || access == "" {
		return nil, false
	}
	rawUser, ok, err := s.kv.Get(ctx, KeyUser)
	if err != nil || !ok {
		s.log.Warn("session without user record", "error", err)
		return nil, false
	}
	var user models.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		s.log.Warn("decode stored user", "error", err)
		return nil, false
	}
	refresh, _, err := s.kv.Get(ctx, KeyRefreshToken)
	if err != nil {
		s.log.Warn("read refresh token", "error", err)
	}
	return &models.Session{AccessToken: access, RefreshToken: refresh, User: user}, true
}

// UpdateTokens swaps the token pair after a refresh and keeps the identity.
// An empty refresh token keeps the previous one. All three keys are
// rewritten together so a medium with expiry renews them as one.
func (s *Store) UpdateTokens(ctx context.Context, access, refresh string) error {
	if access == "" {
		return errors.New("tokenstore: empty access token")
	}
	user, ok, err := s.kv.Get(ctx, KeyUser)
	if err != nil {
		return fmt.Errorf("tokenstore: update tokens: %w", err)
	}
	if !ok {
		return errors.New("tokenstore: update tokens: no stored session")
	}
	if refresh == "" {
		if refresh, _, err = s.kv.Get(ctx, KeyRefreshToken); err != nil {
			return fmt.Errorf("tokenstore: update tokens: %w", err)
		}
	}
	pairs := map[string]string{
		KeyAccessToken:  access,
		KeyRefreshToken: refresh,
		KeyUser:         user,
	}
	if err := s.kv.SetMany(ctx, pairs); err != nil {
		return fmt.Errorf("tokenstore: update tokens: %w", err)
	}
	return nil
}

// Clear removes every session key. Clearing an empty store is fine.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Del(ctx, allKeys...); err != nil {
		return fmt.Errorf("tokenstore: clear: %w", err)
	}
	return nil
}

// IsAuthenticated is true iff an access token is stored.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	return s.AccessToken(ctx) != ""
}

func (s *Store) AccessToken(ctx context.Context) string {
	v, _, err := s.kv.Get(ctx, KeyAccessToken)
	if err != nil {
		s.log.Warn("read access token", "error", err)
		return ""
	}
	return v
}

func (s *Store) RefreshToken(ctx context.Context) string {
	v, _, err := s.kv.Get(ctx, KeyRefreshToken)
	if err != nil {
		s.log.Warn("read refresh token", "error", err)
		return ""
	}
	return v
}

// User returns the identity saved at login.
func (s *Store) User(ctx context.Context) (*models.User, bool) {
	sess, ok := s.Read(ctx)
	if !ok {
		return nil, false
	}
	return &sess.User, true
}

// TokenSource adapts the store to oauth2.TokenSource. Each Token call reads
// the store again, so wrap it in an oauth2.Transport, not ReuseTokenSource.
func (s *Store) TokenSource(ctx context.Context) oauth2.TokenSource {
	return storeTokenSource{ctx: ctx, s: s}
}

type storeTokenSource struct {
	ctx context.Context
	s   *Store
}

func (t storeTokenSource) Token() (*oauth2.Token, error) {
	sess, ok := t.s.Read(t.ctx)
	if !ok {
		return nil, errors.New("tokenstore: no session")
	}
	return sess.Token(), nil
}
