package google

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/digitaldrywood/acreditacion/internal/session"
)

const issuer = "https://accounts.google.com"

// Profiles resolves the signed-in user's name and email from the OpenID
// userinfo endpoint.
type Profiles struct {
	provider *oidc.Provider
}

func NewProfiles(ctx context.Context, userInfoURL string) *Profiles {
	cfg := &oidc.ProviderConfig{
		IssuerURL:   issuer,
		AuthURL:     google.Endpoint.AuthURL,
		TokenURL:    google.Endpoint.TokenURL,
		UserInfoURL: userInfoURL,
	}
	return &Profiles{provider: cfg.NewProvider(ctx)}
}

func (p *Profiles) FetchProfile(ctx context.Context, accessToken string) (session.Profile, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	info, err := p.provider.UserInfo(ctx, ts)
	if err != nil {
		return session.Profile{}, fmt.Errorf("unable to fetch user info: %w", err)
	}

	var claims struct {
		Name string `json:"name"`
	}
	if err := info.Claims(&claims); err != nil {
		return session.Profile{}, fmt.Errorf("unable to decode user info: %w", err)
	}

	return session.Profile{Name: claims.Name, Email: info.Email}, nil
}
