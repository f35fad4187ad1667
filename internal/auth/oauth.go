package auth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// HTTPClient returns a client that sends the session's bearer token on
// every request, for calls outside the route table (image hosts, exports).
// Every request reads the store, so a refresh done by the REST client is
// picked up; this client never refreshes by itself.
func (m *Manager) HTTPClient(ctx context.Context) *http.Client {
	return &http.Client{Transport: &oauth2.Transport{Source: m.store.TokenSource(ctx)}}
}
