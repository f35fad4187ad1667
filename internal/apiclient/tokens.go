package apiclient

import (
	"encoding/json"
	"strings"
)

// Header names some backends use to hand tokens back instead of the body.
const (
	HeaderToken        = "token"
	HeaderRefreshToken = "refresh_token"
)

type TokenPair struct {
	Access  string
	Refresh string
}

// ExtractTokens reads a token pair from a login or refresh answer. The body
// wins ("token" or "accessToken", "refreshToken"); headers are the fallback.
func ExtractTokens(resp *Response) TokenPair {
	var body struct {
		Token             string `json:"token"`
		AccessToken       string `json:"accessToken"`
		AccessTokenSnake  string `json:"access_token"`
		RefreshToken      string `json:"refreshToken"`
		RefreshTokenSnake string `json:"refresh_token"`
	}
	// Non-JSON bodies simply fall through to the headers.
	_ = json.Unmarshal(resp.Body, &body)

	pair := TokenPair{
		Access:  firstNonEmpty(body.Token, body.AccessToken, body.AccessTokenSnake),
		Refresh: firstNonEmpty(body.RefreshToken, body.RefreshTokenSnake),
	}
	if pair.Access == "" {
		pair.Access = firstNonEmpty(
			resp.Header.Get(HeaderToken),
			bearer(resp.Header.Get("Authorization")),
		)
	}
	if pair.Refresh == "" {
		pair.Refresh = resp.Header.Get(HeaderRefreshToken)
	}
	return pair
}

func bearer(h string) string {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
