package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"golang.org/x/oauth2"

	"github.com/Tiliavir/trivial-demand-tracker/internal/storage"
)

var requiredScopes = []string{
	"https://graph.microsoft.com/Tasks.Read",
	"offline_access",
}

// tokenKey is the storage key of the cached Graph token.
const tokenKey = "msgraph_tokens"

func msEndpoint(tenantID, path string) string {
	return "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0/" + path
}

// oauth2Config returns the oauth2.Config for Microsoft Graph using the
// provided tenant and client IDs.
func oauth2Config(tenantID, clientID string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: clientID,
		Scopes:   requiredScopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: msEndpoint(tenantID, "devicecode"),
			TokenURL:      msEndpoint(tenantID, "token"),
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// TokenCache keeps the Graph token in a storage backend.
type TokenCache struct {
	backend storage.Backend
}

// NewTokenCache stores tokens in b.
func NewTokenCache(b storage.Backend) *TokenCache {
	return &TokenCache{backend: b}
}

// DefaultTokenCache stores tokens in ~/.tdt/auth/msgraph_tokens.json.
func DefaultTokenCache() (*TokenCache, error) {
	base, err := storage.BaseDir()
	if err != nil {
		return nil, err
	}
	b, err := storage.NewFileBackend(filepath.Join(base, "auth"))
	if err != nil {
		return nil, err
	}
	return NewTokenCache(b), nil
}

// Load returns the cached token, or nil when none is stored.
func (c *TokenCache) Load(ctx context.Context) (*oauth2.Token, error) {
	data, ok, err := c.backend.Get(ctx, tokenKey)
	if err != nil || !ok {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token cache (run 'tdt todo lists' to sign in again): %w", err)
	}
	return &tok, nil
}

// Save replaces the cached token.
func (c *TokenCache) Save(ctx context.Context, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	return c.backend.Put(ctx, tokenKey, data)
}

// Authenticate returns a token for Microsoft Graph. It reuses the cached
// token, refreshes it when expired, or runs the device code flow and prints
// the sign-in instructions to out.
func Authenticate(ctx context.Context, cache *TokenCache, tenantID, clientID string, out io.Writer) (*oauth2.Token, *oauth2.Config, error) {
	cfg := oauth2Config(tenantID, clientID)

	tok, err := cache.Load(ctx)
	if err != nil {
		slog.Warn("ignoring cached token", "err", err)
		tok = nil
	}
	if tok.Valid() {
		return tok, cfg, nil
	}

	if tok != nil && tok.RefreshToken != "" {
		refreshed, err := cfg.TokenSource(ctx, tok).Token()
		if err == nil {
			if err := cache.Save(ctx, refreshed); err != nil {
				slog.Warn("could not cache refreshed token", "err", err)
			}
			return refreshed, cfg, nil
		}
		slog.Warn("token refresh failed, signing in again", "err", err)
	}

	resp, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("device auth request failed: %w", err)
	}

	fmt.Fprintf(out, "\nTo sign in, open %s and enter the code %s\n\n", resp.VerificationURI, resp.UserCode)

	newTok, err := cfg.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, nil, fmt.Errorf("device authentication failed: %w", err)
	}
	if err := cache.Save(ctx, newTok); err != nil {
		slog.Warn("could not cache token", "err", err)
	}
	return newTok, cfg, nil
}
