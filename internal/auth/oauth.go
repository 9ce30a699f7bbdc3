package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/sakif/messenger-auth/internal/apperror"
	"github.com/sakif/messenger-auth/internal/model"
)

// GoogleUserInfoURL is Google's profile endpoint for the email+profile scopes.
const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// DefaultProviderTimeout bounds each outbound call to the identity provider.
const DefaultProviderTimeout = 10 * time.Second

// ProviderConfig holds everything GoogleProvider needs. Endpoint URLs
// default to Google's; tests point them at an httptest.Server.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
	Timeout      time.Duration
}

// GoogleProvider wraps golang.org/x/oauth2 for the Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. We redirect the browser to the provider's authorization endpoint with
//     our ClientID, RedirectURL and scopes.
//  2. The user approves on the provider's consent screen.
//  3. The provider redirects back to RedirectURL with a single-use "code".
//  4. We exchange the code for an access token (server-to-server, using the
//     ClientSecret).
//  5. We call the profile endpoint with the access token.
//
// The access token is used once, for step 5, and then dropped. It is never
// stored and never reaches the browser.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
	timeout     time.Duration
	httpClient  *http.Client
}

// NewGoogleProvider creates a GoogleProvider. Empty endpoint URLs, scopes or
// timeout fall back to Google's endpoints, "email profile", and
// DefaultProviderTimeout.
func NewGoogleProvider(cfg ProviderConfig) *GoogleProvider {
	endpoint := endpoints.Google
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	// Client id and secret travel in the form body, not in Basic auth.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"email", "profile"}
	}

	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = GoogleUserInfoURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}

	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
		timeout:     timeout,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// AuthURL returns the provider URL to send the browser to.
//
// It is rebuilt on every call from the immutable config. The query carries
// client_id, the URL-encoded redirect_uri, response_type=code, the scopes
// and access_type=offline. No state parameter is added: an empty state is
// omitted by oauth2.Config.AuthCodeURL.
func (p *GoogleProvider) AuthURL() string {
	return p.config.AuthCodeURL("", oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for the user's Identity.
//
// Steps (sequential, the second needs the first's token):
//  1. POST the code to the token endpoint     → apperror.ErrTokenExchangeFailed
//  2. GET the profile with the bearer token   → apperror.ErrProfileFetchFailed
//
// Those two sentinels cover what the provider said (a rejected code, a
// non-200, a missing token) and calls that timed out. A call that never
// reached the provider (connection refused, DNS, TLS) is a fault on our
// side and is wrapped with apperror.ErrInternal instead.
//
// Each step gets its own timeout. Cancelling ctx (client disconnect)
// abandons whichever call is in flight.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*model.Identity, error) {
	// oauth2 picks up the *http.Client to use from the context.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.exchangeToken(ctx, code)
	if err != nil {
		return nil, err
	}

	return p.fetchProfile(ctx, token)
}

func (p *GoogleProvider) exchangeToken(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// Config.Exchange fails with *oauth2.RetrieveError when the endpoint
	// answers non-2xx, with a plain error when the response has no
	// access_token, and with the client's *url.Error on transport failures.
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		if isTransportFault(err) {
			return nil, fmt.Errorf("auth: exchanging OAuth code: %w: %w", apperror.ErrInternal, err)
		}
		return nil, apperror.TokenExchangeFailed(fmt.Errorf("auth: exchanging OAuth code: %w", err))
	}
	return token, nil
}

func (p *GoogleProvider) fetchProfile(ctx context.Context, token *oauth2.Token) (*model.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// Config.Client returns an *http.Client that adds
	// "Authorization: Bearer <token>" to every request.
	client := p.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building userinfo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		if isTransportFault(err) {
			return nil, fmt.Errorf("auth: calling userinfo: %w: %w", apperror.ErrInternal, err)
		}
		return nil, apperror.ProfileFetchFailed(fmt.Errorf("auth: calling userinfo: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.ProfileFetchFailed(fmt.Errorf("auth: userinfo returned status %d", resp.StatusCode))
	}

	// A 200 with a body we can't use is an unexpected provider response
	// shape, which is an internal fault rather than a failed login.
	var identity model.Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("auth: decoding userinfo response: %w: %w", apperror.ErrInternal, err)
	}
	if identity.ProviderID == "" {
		return nil, fmt.Errorf("auth: userinfo response has no id: %w", apperror.ErrInternal)
	}

	return &identity, nil
}

// isTransportFault reports whether err is an *url.Error from the HTTP
// client that is not a timeout: the request never got an answer.
func isTransportFault(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && !urlErr.Timeout()
}
