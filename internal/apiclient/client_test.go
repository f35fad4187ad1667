package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"watchstore/internal/apperr"
	"watchstore/internal/config"
	"watchstore/internal/logger"
	"watchstore/internal/models"
	"watchstore/internal/tokenstore"
)

type stubRefresher struct {
	store *tokenstore.Store
	calls atomic.Int32
	fail  bool
}

func (r *stubRefresher) Refresh(ctx context.Context) error {
	r.calls.Add(1)
	if r.fail {
		return errors.New("refresh rejected")
	}
	return r.store.UpdateTokens(ctx, "fresh-token", "")
}

func setup(t *testing.T, h http.HandlerFunc) (*Client, *tokenstore.Store, *stubRefresher) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	routes, err := config.Preset(config.PresetV1)
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	store := tokenstore.New(tokenstore.NewMemoryKV(), logger.Discard())
	c := New(Options{BaseURL: ts.URL + "/", Routes: routes, TokenHeader: "token"}, store, logger.Discard())
	r := &stubRefresher{store: store}
	c.SetRefresher(r)

	err = store.Save(context.Background(), models.Session{
		AccessToken:  "stale-token",
		RefreshToken: "refresh-1",
		User:         models.User{ID: "u1", Email: "jane@shop.com", Role: models.RoleClient},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	return c, store, r
}

func TestBearerAndCustomHeader(t *testing.T) {
	var auth, custom, reqID string
	c, _, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
		auth, custom, reqID = r.Header.Get("Authorization"), r.Header.Get("token"), r.Header.Get("X-Request-ID")
		w.Write([]byte(`[]`))
	})
	if err := c.Call(context.Background(), config.RouteCartList, nil, nil, nil); err != nil {
		t.Fatalf("call: %v", err)
	}
	if auth != "Bearer stale-token" || custom != "stale-token" || reqID == "" {
		t.Fatalf("headers: auth=%q token=%q request id=%q", auth, custom, reqID)
	}
}

func TestUnauthorizedRefreshesOnceAndRetries(t *testing.T) {
	var hits atomic.Int32
	c, store, r := setup(t, func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		if req.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id":"c1","totalOrder":0,"activeStatus":true,"cartItemId":[]}`))
	})
	var cart models.Cart
	if err := c.Call(context.Background(), config.RouteCartGet, map[string]string{"id": "c1"}, nil, &cart); err != nil {
		t.Fatalf("call: %v", err)
	}
	if cart.ID != "c1" || hits.Load() != 2 || r.calls.Load() != 1 {
		t.Fatalf("cart=%+v hits=%d refreshes=%d", cart, hits.Load(), r.calls.Load())
	}
	if store.RefreshToken(context.Background()) != "refresh-1" {
		t.Fatal("refresh token lost on rotation without a new one")
	}
}

func TestSecondUnauthorizedEndsSession(t *testing.T) {
	var hits atomic.Int32
	c, store, r := setup(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	err := c.Call(context.Background(), config.RouteCartList, nil, nil, nil)
	if !errors.Is(err, apperr.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if hits.Load() != 2 || r.calls.Load() != 1 {
		t.Fatalf("hits=%d refreshes=%d", hits.Load(), r.calls.Load())
	}
	if store.IsAuthenticated(context.Background()) {
		t.Fatal("session kept")
	}
}

func TestFailedRefreshEndsSessionWithoutRetry(t *testing.T) {
	var hits atomic.Int32
	c, store, r := setup(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	r.fail = true
	err := c.Call(context.Background(), config.RouteCartList, nil, nil, nil)
	if !errors.Is(err, apperr.ErrSessionExpired) {
		t.Fatalf("err = %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d, want 1", hits.Load())
	}
	if store.IsAuthenticated(context.Background()) {
		t.Fatal("session kept")
	}
}

func TestNoRetrySkipsRefresh(t *testing.T) {
	c, store, r := setup(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.Do(context.Background(), Request{Route: config.RouteLogin, Body: map[string]string{}, NoRetry: true})
	if StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("err = %v", err)
	}
	if r.calls.Load() != 0 || !store.IsAuthenticated(context.Background()) {
		t.Fatal("NoRetry request touched the session")
	}
}

func TestForbiddenClearsWithoutRefresh(t *testing.T) {
	c, store, r := setup(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	err := c.Call(context.Background(), config.RouteClientList, nil, nil, nil)
	if !errors.Is(err, apperr.ErrForbidden) || StatusOf(err) != http.StatusForbidden {
		t.Fatalf("err = %v", err)
	}
	if r.calls.Load() != 0 {
		t.Fatal("403 triggered a refresh")
	}
	if store.IsAuthenticated(context.Background()) {
		t.Fatal("session kept after 403")
	}
}

func TestOtherStatusesPassThrough(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusInternalServerError} {
		c, store, r := setup(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":"nope"}`))
		})
		resp, err := c.Do(context.Background(), Request{Route: config.RouteProductList})
		var se *StatusError
		if !errors.As(err, &se) || se.Status != status || se.Body != `{"error":"nope"}` {
			t.Fatalf("status %d: err = %v", status, err)
		}
		if resp == nil || resp.Status != status {
			t.Fatalf("status %d: response = %+v", status, resp)
		}
		if r.calls.Load() != 0 || !store.IsAuthenticated(context.Background()) {
			t.Fatalf("status %d touched the session", status)
		}
	}
}

func TestTransportFailureIsNetworkFailure(t *testing.T) {
	c, store, _ := setup(t, func(w http.ResponseWriter, _ *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("response writer cannot hijack")
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
	})
	err := c.Call(context.Background(), config.RouteCartItemCreate, nil, map[string]int{"productQtd": 1}, nil)
	if !errors.Is(err, apperr.ErrNetworkFailure) {
		t.Fatalf("err = %v, want ErrNetworkFailure", err)
	}
	if !store.IsAuthenticated(context.Background()) {
		t.Fatal("network failure cleared the session")
	}
}

func TestExtractTokens(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		header http.Header
		want   TokenPair
	}{
		{"body", `{"token":"a","refreshToken":"r"}`, http.Header{}, TokenPair{"a", "r"}},
		{"camel", `{"accessToken":"a","refresh_token":"r"}`, http.Header{}, TokenPair{"a", "r"}},
		{"headers", `{"message":"ok"}`, http.Header{"Token": {"a"}, "Refresh_token": {"r"}}, TokenPair{"a", "r"}},
		{"authorization", `not json`, http.Header{"Authorization": {"Bearer a"}}, TokenPair{"a", ""}},
		{"body wins", `{"token":"b"}`, http.Header{"Token": {"h"}}, TokenPair{"b", ""}},
		{"none", ``, http.Header{}, TokenPair{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractTokens(&Response{Status: 200, Header: tc.header, Body: []byte(tc.body)})
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}
