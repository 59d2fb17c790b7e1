package dynamics

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

const (
	AuthModeInteractive      = "interactive"
	AuthModeServicePrincipal = "service_principal"
)

// Config holds the Dataverse connection and authentication settings.
type Config struct {
	URL            string `split_words:"true" required:"true"`
	APIVersion     string `envconfig:"API_VERSION" default:"v9.2"`
	AuthMode       string `split_words:"true" default:"interactive"`
	TenantID       string `envconfig:"TENANT_ID"`
	ClientID       string `envconfig:"CLIENT_ID" required:"true"`
	ClientSecret   string `envconfig:"CLIENT_SECRET"`
	TokenCacheFile string `split_words:"true" default:"token_cache.json"`
}

func (c Config) Validate() error {
	orgURL := strings.TrimSpace(c.URL)
	if orgURL == "" {
		return errors.New("dynamics url is required")
	}
	if _, err := url.ParseRequestURI(orgURL); err != nil {
		return fmt.Errorf("invalid dynamics url: %w", err)
	}
	switch c.AuthMode {
	case "", AuthModeInteractive:
	case AuthModeServicePrincipal:
		if strings.TrimSpace(c.TenantID) == "" {
			return errors.New("tenant id is required for service principal auth")
		}
		if strings.TrimSpace(c.ClientSecret) == "" {
			return errors.New("client secret is required for service principal auth")
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.AuthMode)
	}
	return nil
}

// OrgURL is the organization root without a trailing slash.
func (c Config) OrgURL() string {
	return strings.TrimRight(strings.TrimSpace(c.URL), "/")
}

// BaseAPIURL is the Web API root, e.g. https://org.crm4.dynamics.com/api/data/v9.2.
func (c Config) BaseAPIURL() string {
	return fmt.Sprintf("%s/api/data/%s", c.OrgURL(), c.APIVersion)
}

// Authority is the Entra ID authority URL for the configured tenant.
// The device flow does not accept the "common" endpoint, so the
// interactive strategy falls back to "organizations" when no tenant is set.
func (c Config) Authority() string {
	tenant := strings.TrimSpace(c.TenantID)
	if tenant == "" {
		tenant = "organizations"
	}
	return "https://login.microsoftonline.com/" + tenant
}

func (c Config) Scopes() []string {
	if c.AuthMode == AuthModeServicePrincipal {
		return []string{c.OrgURL() + "/.default"}
	}
	return []string{c.OrgURL() + "/user_impersonation"}
}

func (c Config) endpoint() oauth2.Endpoint {
	authority := c.Authority()
	return oauth2.Endpoint{
		AuthURL:       authority + "/oauth2/v2.0/authorize",
		TokenURL:      authority + "/oauth2/v2.0/token",
		DeviceAuthURL: authority + "/oauth2/v2.0/devicecode",
	}
}
