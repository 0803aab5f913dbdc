package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/ems-platform/auth-service/internal/config"
	domainErrors "github.com/ems-platform/auth-service/internal/domain/errors"
	"github.com/ems-platform/auth-service/internal/domain/service"
)

// microsoftProvider drives the authorization-code flow against Microsoft
// identity platform endpoints and resolves the signed-in user's profile.
type microsoftProvider struct {
	oauthConfig *oauth2.Config
	userInfoURL string
}

// NewMicrosoftProvider builds the provider from configuration.
func NewMicrosoftProvider(cfg config.OAuthConfig) service.OAuthProvider {
	return &microsoftProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

func (p *microsoftProvider) AuthURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state)
}

// graphProfile is the subset of the Graph /me response the service needs.
// Personal accounts carry the address in userPrincipalName instead of mail.
type graphProfile struct {
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

func (p *microsoftProvider) ExchangeCode(ctx context.Context, code string) (*service.OAuthUserInfo, error) {
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange failed", domainErrors.ErrInvalidCredentials)
	}

	client := p.oauthConfig.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("userinfo endpoint returned status %d: %s", resp.StatusCode, detail)
	}

	var profile graphProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode user profile: %w", err)
	}

	email := profile.Mail
	if email == "" {
		email = profile.UserPrincipalName
	}
	if email == "" {
		return nil, fmt.Errorf("%w: profile carries no email address", domainErrors.ErrInvalidCredentials)
	}

	return &service.OAuthUserInfo{
		Email:    email,
		FullName: profile.DisplayName,
	}, nil
}

var _ service.OAuthProvider = (*microsoftProvider)(nil)
