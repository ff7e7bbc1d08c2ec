package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"golang.org/x/oauth2"
)

// OIDCAuthenticator accepts opaque access tokens by asking the issuer's
// userinfo endpoint who they belong to.
type OIDCAuthenticator struct {
	config      *oauth2.Config
	issuer      string
	userInfoURL string
	client      *http.Client
}

func NewOIDCAuthenticator(issuer, clientID, clientSecret string) (*OIDCAuthenticator, error) {
	if issuer == "" || clientID == "" {
		return nil, fmt.Errorf("OIDC configuration incomplete")
	}
	issuer = strings.TrimRight(issuer, "/")

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  issuer + "/authorize",
			TokenURL: issuer + "/token",
		},
		Scopes: []string{"openid", "profile", "email"},
	}

	return &OIDCAuthenticator{
		config:      config,
		issuer:      issuer,
		userInfoURL: issuer + "/userinfo",
	}, nil
}

// WithHTTPClient sets the base client used for userinfo calls.
func (a *OIDCAuthenticator) WithHTTPClient(client *http.Client) *OIDCAuthenticator {
	a.client = client
	return a
}

type userInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

func (a *OIDCAuthenticator) Authenticate(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, fmt.Errorf("token is empty")
	}
	if a.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)
	}
	client := a.config.Client(ctx, &oauth2.Token{AccessToken: token, TokenType: "Bearer"})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userInfoURL, nil)
	if err != nil {
		return Principal{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Principal{}, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Log.WithField("status", resp.StatusCode).Debug("userinfo rejected token")
		return Principal{}, fmt.Errorf("userinfo: %s", resp.Status)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Principal{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Subject == "" {
		return Principal{}, fmt.Errorf("userinfo missing subject")
	}
	return Principal{Subject: info.Subject, Email: info.Email, Role: info.Role}, nil
}

// AuthCodeURL starts the browser login flow for the dashboard.
func (a *OIDCAuthenticator) AuthCodeURL(state, redirectURL string) string {
	cfg := *a.config
	cfg.RedirectURL = redirectURL
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}
