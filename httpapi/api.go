// Package httpapi exposes the auth engine over HTTP with cookie-based
// sessions: signup, login, logout, silent refresh, the Google OAuth
// redirect pair, and a CSRF token endpoint.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openconvo/authcore"
)

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
	csrfCookie    = "csrfToken"

	csrfHeader = "X-CSRF-Token"
)

// Config wires the HTTP surface.
type Config struct {
	Engine *authcore.Engine
	Logger *slog.Logger

	// SessionSecret signs CSRF tokens and OAuth state. Required.
	SessionSecret []byte
	// Secure marks auth cookies Secure. On in production.
	Secure bool
	// CORSOrigin, when set, is the single origin allowed to call the API
	// with credentials.
	CORSOrigin string

	// Google enables the OAuth redirect routes when non-nil.
	Google *GoogleConfig
}

// API is the router-facing handler set.
type API struct {
	engine *authcore.Engine
	logger *slog.Logger
	cfg    Config
	google *googleFlow
}

// New builds the API. The gin engine it returns is ready to serve.
func New(cfg Config) (*API, *gin.Engine, error) {
	if cfg.Engine == nil {
		return nil, nil, errors.New("httpapi: engine is required")
	}
	if len(cfg.SessionSecret) == 0 {
		return nil, nil, errors.New("httpapi: session secret is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	a := &API{
		engine: cfg.Engine,
		logger: cfg.Logger,
		cfg:    cfg,
	}
	if cfg.Google != nil {
		flow, err := newGoogleFlow(cfg.Google)
		if err != nil {
			return nil, nil, err
		}
		a.google = flow
	}

	router := gin.New()
	router.Use(gin.Recovery(), a.requestContext(), a.corsMiddleware(), a.generalRateLimit())
	a.register(router)
	return a, router, nil
}

func (a *API) register(router *gin.Engine) {
	auth := router.Group("/auth")

	auth.GET("/csrf-token", a.handleCSRFToken)
	auth.POST("/signup", a.requireCSRF(), a.handleSignup)
	auth.POST("/login", a.requireCSRF(), a.handleLogin)
	auth.POST("/logout", a.requireCSRF(), a.requireAuth(), a.handleLogout)
	auth.POST("/refresh", a.requireCSRF(), a.handleRefresh)
	auth.GET("/me", a.handleMe)

	if a.google != nil {
		auth.GET("/google", a.handleGoogleRedirect)
		auth.GET("/google/callback", a.handleGoogleCallback)
	}
}

// setAuthCookies installs the access and refresh cookies with the token
// lifetimes as max-age.
func (a *API) setAuthCookies(c *gin.Context, pair *authcore.TokenPair, accessTTL, refreshTTL time.Duration) {
	setCookie(c, accessCookie, pair.AccessToken, int(accessTTL.Seconds()), a.cfg.Secure, true)
	setCookie(c, refreshCookie, pair.RefreshToken, int(refreshTTL.Seconds()), a.cfg.Secure, true)
}

func (a *API) clearAuthCookies(c *gin.Context) {
	setCookie(c, accessCookie, "", -1, a.cfg.Secure, true)
	setCookie(c, refreshCookie, "", -1, a.cfg.Secure, true)
}

func setCookie(c *gin.Context, name, value string, maxAge int, secure, httpOnly bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   secure,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteStrictMode,
	})
}
