package dynamics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	// ErrAuth marks identity-provider failures. No operation can proceed
	// without a token, so these propagate instead of degrading.
	ErrAuth = errors.New("authentication failed")

	// ErrRemoteCall marks a non-success status or transport failure on a
	// Web API call. Callers decide what a failed call means in context.
	ErrRemoteCall = errors.New("dynamics api call failed")
)

// Tokens within this margin of expiry are treated as expired so a call
// never starts with a token about to lapse mid-flight.
const tokenExpiryMargin = 5 * time.Minute

// TokenSource yields a bearer token for Web API requests.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

type tokenCache struct {
	AccessToken string `json:"access_token"`
	ExpiresOn   int64  `json:"expires_on"`
}

// TokenManager implements TokenSource under one of two strategies.
//
// The service-principal strategy exchanges client credentials on every
// acquisition: a headless host can always refresh without interaction,
// so nothing is persisted. The interactive strategy serves a cached
// token while it has more than tokenExpiryMargin left, and otherwise
// runs a blocking device-authorization flow and overwrites the cache
// file with the result.
type TokenManager struct {
	cfg Config

	// mu serializes acquisition: concurrent tool calls share one manager
	// and must not start two device flows or tear the cache file.
	mu      sync.Mutex
	acquire func(ctx context.Context) (*oauth2.Token, error)
	now     func() time.Time
}

func NewTokenManager(cfg Config) *TokenManager {
	tm := &TokenManager{cfg: cfg, now: time.Now}
	if cfg.AuthMode == AuthModeServicePrincipal {
		tm.acquire = tm.acquireServicePrincipal
	} else {
		tm.acquire = tm.acquireDeviceCode
	}
	return tm
}

func (tm *TokenManager) AccessToken(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	interactive := tm.cfg.AuthMode != AuthModeServicePrincipal
	if interactive {
		if cached, ok := tm.loadCache(); ok {
			log.Debug().Msg("using cached interactive token")
			return cached, nil
		}
	}

	tok, err := tm.acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	if tok == nil || tok.AccessToken == "" {
		return "", fmt.Errorf("%w: identity provider returned no access token", ErrAuth)
	}

	if interactive {
		tm.saveCache(tok)
	}
	return tok.AccessToken, nil
}

func (tm *TokenManager) acquireServicePrincipal(ctx context.Context) (*oauth2.Token, error) {
	cc := &clientcredentials.Config{
		ClientID:     tm.cfg.ClientID,
		ClientSecret: tm.cfg.ClientSecret,
		TokenURL:     tm.cfg.endpoint().TokenURL,
		Scopes:       tm.cfg.Scopes(),
	}
	tok, err := cc.Token(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug().Msg("service principal token acquired")
	return tok, nil
}

func (tm *TokenManager) acquireDeviceCode(ctx context.Context) (*oauth2.Token, error) {
	conf := &oauth2.Config{
		ClientID: tm.cfg.ClientID,
		Endpoint: tm.cfg.endpoint(),
		Scopes:   tm.cfg.Scopes(),
	}

	auth, err := conf.DeviceAuth(ctx)
	if err != nil {
		return nil, err
	}

	// stdout carries the MCP transport, so the prompt goes to stderr.
	fmt.Fprintf(os.Stderr, "To sign in, open %s and enter the code %s\n", auth.VerificationURI, auth.UserCode)

	tok, err := conf.DeviceAccessToken(ctx, auth)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("interactive token acquired")
	return tok, nil
}

func (tm *TokenManager) loadCache() (string, bool) {
	raw, err := os.ReadFile(tm.cfg.TokenCacheFile)
	if err != nil {
		return "", false
	}
	var cache tokenCache
	if err := json.Unmarshal(raw, &cache); err != nil {
		log.Debug().Err(err).Msg("token cache unreadable, re-authenticating")
		return "", false
	}
	if cache.AccessToken == "" {
		return "", false
	}
	expiresOn := time.Unix(cache.ExpiresOn, 0)
	if !expiresOn.After(tm.now().Add(tokenExpiryMargin)) {
		return "", false
	}
	return cache.AccessToken, true
}

func (tm *TokenManager) saveCache(tok *oauth2.Token) {
	cache := tokenCache{
		AccessToken: tok.AccessToken,
		ExpiresOn:   tokenExpiry(tok).Unix(),
	}
	payload, err := json.Marshal(cache)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode token cache")
		return
	}
	if err := os.WriteFile(tm.cfg.TokenCacheFile, payload, 0o600); err != nil {
		log.Warn().Err(err).Str("file", tm.cfg.TokenCacheFile).Msg("failed to write token cache")
	}
}

// tokenExpiry falls back to the JWT exp claim when the token response
// carried no expiry of its own.
func tokenExpiry(tok *oauth2.Token) time.Time {
	if !tok.Expiry.IsZero() {
		return tok.Expiry
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok.AccessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
