package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openconvo/authcore"
	"github.com/openconvo/authcore/internal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateCookie    = "oauthState"
	stateNonceLen  = 16
	userinfoURL    = "https://www.googleapis.com/oauth2/v3/userinfo"
	stateCookieTTL = 600 // seconds
)

// GoogleConfig wires the OAuth redirect flow.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	// CallbackURL must match a redirect URI registered with Google.
	CallbackURL string
	// SuccessURL receives the browser after a completed login.
	SuccessURL string
	// FailureURL receives the browser when the exchange fails.
	FailureURL string
}

type googleFlow struct {
	oauth      *oauth2.Config
	successURL string
	failureURL string
}

func newGoogleFlow(cfg *GoogleConfig) (*googleFlow, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.CallbackURL == "" {
		return nil, errors.New("httpapi: google client id, secret and callback are required")
	}
	if cfg.SuccessURL == "" || cfg.FailureURL == "" {
		return nil, errors.New("httpapi: google success and failure URLs are required")
	}
	return &googleFlow{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		successURL: cfg.SuccessURL,
		failureURL: cfg.FailureURL,
	}, nil
}

// handleGoogleRedirect starts the OAuth dance: a signed state value goes
// into a short-lived cookie and to Google, and the browser follows.
func (a *API) handleGoogleRedirect(c *gin.Context) {
	nonce, err := internal.NewNonce(stateNonceLen)
	if err != nil {
		a.writeError(c, err)
		return
	}
	state := nonce + "." + internal.SignNonce(a.cfg.SessionSecret, nonce)

	setCookie(c, stateCookie, state, stateCookieTTL, a.cfg.Secure, true)
	c.Redirect(http.StatusTemporaryRedirect, a.google.oauth.AuthCodeURL(state))
}

func (a *API) handleGoogleCallback(c *gin.Context) {
	state := c.Query("state")
	cookieState, _ := c.Cookie(stateCookie)
	setCookie(c, stateCookie, "", -1, a.cfg.Secure, true)

	if state == "" || state != cookieState || !a.csrfTokenValid(state) {
		a.googleFail(c, errors.New("oauth state mismatch"))
		return
	}
	code := c.Query("code")
	if code == "" {
		a.googleFail(c, errors.New("oauth callback without code"))
		return
	}

	ctx := c.Request.Context()
	profile, err := a.google.fetchProfile(ctx, code)
	if err != nil {
		a.googleFail(c, err)
		return
	}

	_, pair, err := a.engine.GoogleLogin(ctx, *profile)
	if err != nil {
		a.googleFail(c, err)
		return
	}

	a.setAuthCookies(c, pair, a.engine.AccessTokenTTL(), a.engine.RefreshTokenTTL())
	c.Redirect(http.StatusTemporaryRedirect, a.google.successURL)
}

func (a *API) googleFail(c *gin.Context, err error) {
	a.logger.Warn("google login failed", "error", err)
	c.Redirect(http.StatusTemporaryRedirect, a.google.failureURL)
}

// fetchProfile exchanges the authorization code and reads the OpenID
// userinfo document.
func (f *googleFlow) fetchProfile(ctx context.Context, code string) (*authcore.GoogleProfile, error) {
	token, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", err)
	}

	resp, err := f.oauth.Client(ctx, token).Get(userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("userinfo fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo fetch: status %d", resp.StatusCode)
	}

	var info struct {
		Sub        string `json:"sub"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Picture    string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("userinfo decode: %w", err)
	}
	if info.Sub == "" {
		return nil, errors.New("userinfo without subject")
	}

	return &authcore.GoogleProfile{
		GoogleID:  info.Sub,
		Email:     info.Email,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
		Photo:     info.Picture,
	}, nil
}
