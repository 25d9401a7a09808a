package social

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// oauthProvider holds the fixed OAuth endpoints of a platform.
type oauthProvider struct {
	endpoint oauth2.Endpoint
	scopes   []string
	pkce     bool
}

var oauthProviders = map[string]oauthProvider{
	"facebook": {
		endpoint: oauth2.Endpoint{
			AuthURL:  "https://www.facebook.com/v18.0/dialog/oauth",
			TokenURL: "https://graph.facebook.com/v18.0/oauth/access_token",
		},
		scopes: []string{"pages_manage_posts", "pages_read_engagement"},
	},
	"instagram": {
		endpoint: oauth2.Endpoint{
			AuthURL:  "https://www.facebook.com/v18.0/dialog/oauth",
			TokenURL: "https://graph.facebook.com/v18.0/oauth/access_token",
		},
		scopes: []string{"instagram_basic", "instagram_content_publish"},
	},
	"linkedin": {
		endpoint: oauth2.Endpoint{
			AuthURL:   "https://www.linkedin.com/oauth/v2/authorization",
			TokenURL:  "https://www.linkedin.com/oauth/v2/accessToken",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		scopes: []string{"openid", "profile", "w_member_social"},
	},
	"twitter": {
		endpoint: oauth2.Endpoint{
			AuthURL:   "https://twitter.com/i/oauth2/authorize",
			TokenURL:  "https://api.twitter.com/2/oauth2/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
		scopes: []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
		pkce:   true,
	},
}

// OAuthCredentials are the client credentials of one platform. AuthURL and
// TokenURL override the platform defaults when set.
type OAuthCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
}

// OAuthService runs the authorization code flow for social platforms.
type OAuthService struct {
	social  *Service
	states  *auth.StateSigner
	configs map[string]*oauth2.Config
}

// NewOAuthService creates an OAuth service. Platforms without a client id are
// left out and answer with ErrProviderDisabled.
func NewOAuthService(social *Service, states *auth.StateSigner, creds map[string]OAuthCredentials) *OAuthService {
	o := &OAuthService{social: social, states: states, configs: make(map[string]*oauth2.Config)}
	for platform, c := range creds {
		p, ok := oauthProviders[platform]
		if !ok || c.ClientID == "" {
			continue
		}
		endpoint := p.endpoint
		if c.AuthURL != "" {
			endpoint.AuthURL = c.AuthURL
		}
		if c.TokenURL != "" {
			endpoint.TokenURL = c.TokenURL
		}
		o.configs[platform] = &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       p.scopes,
		}
	}
	return o
}

// Enabled reports whether platform has OAuth credentials.
func (o *OAuthService) Enabled(platform string) bool {
	_, ok := o.configs[platform]
	return ok
}

// AuthURL returns the authorize URL that starts a connection of platform.
func (o *OAuthService) AuthURL(tenantID, userID uuid.UUID, platform string) (string, error) {
	cfg, ok := o.configs[platform]
	if !ok {
		return "", fmt.Errorf("%s: %w", platform, domain.ErrProviderDisabled)
	}

	st := auth.OAuthState{TenantID: tenantID, UserID: userID, Provider: platform}
	var opts []oauth2.AuthCodeOption
	if oauthProviders[platform].pkce {
		st.Verifier = oauth2.GenerateVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(st.Verifier))
	}
	state, err := o.states.Sign(st)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return cfg.AuthCodeURL(state, append(opts, oauth2.AccessTypeOffline)...), nil
}

// Callback exchanges the authorization code and stores the connected account.
func (o *OAuthService) Callback(ctx context.Context, platform, code, state string) (*domain.SocialAccount, error) {
	cfg, ok := o.configs[platform]
	if !ok {
		return nil, fmt.Errorf("%s: %w", platform, domain.ErrProviderDisabled)
	}
	if strings.TrimSpace(code) == "" {
		return nil, domain.Required("code")
	}
	st, err := o.states.Verify(state)
	if err != nil {
		return nil, err
	}
	if st.Provider != platform {
		return nil, domain.ErrInvalidToken
	}

	var opts []oauth2.AuthCodeOption
	if st.Verifier != "" {
		opts = append(opts, oauth2.VerifierOption(st.Verifier))
	}
	tok, err := cfg.Exchange(ctx, code, opts...)
	if err != nil {
		o.social.logger.WarnContext(ctx, "oauth code exchange failed", "platform", platform, "error", err)
		return nil, domain.NewValidationError("code", "authorization with %s failed", platform)
	}

	in := ConnectInput{
		Platform:     platform,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		in.ExpiresAt = &expiry
	}
	return o.social.Connect(ctx, st.TenantID, st.UserID, in)
}
