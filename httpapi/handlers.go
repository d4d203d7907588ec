package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openconvo/authcore"
)

type signupRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	FirstName    string `json:"firstName" binding:"required"`
	LastName     string `json:"lastName" binding:"required"`
	ProfileSetup string `json:"profileSetup"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (a *API) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, authcore.ErrInvalidInput)
		return
	}

	user, pair, err := a.engine.Signup(c.Request.Context(), authcore.SignupInput{
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		ProfileSetup: req.ProfileSetup,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}

	a.setAuthCookies(c, pair, a.engine.AccessTokenTTL(), a.engine.RefreshTokenTTL())
	c.JSON(http.StatusCreated, gin.H{
		"user":        user,
		"accessToken": pair.AccessToken,
	})
}

func (a *API) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, authcore.ErrInvalidInput)
		return
	}

	user, pair, err := a.engine.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(c, err)
		return
	}

	a.setAuthCookies(c, pair, a.engine.AccessTokenTTL(), a.engine.RefreshTokenTTL())
	c.JSON(http.StatusOK, gin.H{
		"user":        user,
		"accessToken": pair.AccessToken,
	})
}

func (a *API) handleLogout(c *gin.Context) {
	callerID := c.GetString(ctxUserID)
	refresh, _ := c.Cookie(refreshCookie)

	if err := a.engine.Logout(c.Request.Context(), callerID, refresh); err != nil {
		a.writeError(c, err)
		return
	}

	a.clearAuthCookies(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleRefresh is the silent refresh: the browser presents the refresh
// cookie and receives a rotated pair in fresh cookies.
func (a *API) handleRefresh(c *gin.Context) {
	refresh, _ := c.Cookie(refreshCookie)

	pair, err := a.engine.Refresh(c.Request.Context(), refresh)
	if err != nil {
		// Drop the cookies only when the token itself is dead. A throttled
		// or transiently failed refresh must not log the client out.
		if errors.Is(err, authcore.ErrTokenExpired) ||
			errors.Is(err, authcore.ErrTokenInvalid) ||
			errors.Is(err, authcore.ErrRefreshRevoked) {
			a.clearAuthCookies(c)
		}
		a.writeError(c, err)
		return
	}

	a.setAuthCookies(c, pair, a.engine.AccessTokenTTL(), a.engine.RefreshTokenTTL())
	c.JSON(http.StatusOK, gin.H{"accessToken": pair.AccessToken})
}

func (a *API) handleMe(c *gin.Context) {
	user, err := a.engine.Verify(c.Request.Context(), bearerOrCookie(c))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError is the single error boundary: engine sentinels map to status
// codes and stable machine-readable codes; anything else is a 500 with a
// generic body so internals never leak.
func (a *API) writeError(c *gin.Context, err error) {
	status, body := http.StatusInternalServerError, errorBody{
		Code:    "internal",
		Message: "internal server error",
	}

	switch {
	case errors.Is(err, authcore.ErrInvalidInput):
		status, body = http.StatusBadRequest, errorBody{"invalid_input", "missing or malformed fields"}
	case errors.Is(err, authcore.ErrPasswordPolicy):
		status, body = http.StatusBadRequest, errorBody{"weak_password", "password does not meet the policy"}
	case errors.Is(err, authcore.ErrRefreshRequired):
		status, body = http.StatusBadRequest, errorBody{"refresh_required", "refresh token cookie is required"}
	case errors.Is(err, authcore.ErrInvalidCredentials):
		status, body = http.StatusUnauthorized, errorBody{"invalid_credentials", "invalid email or password"}
	case errors.Is(err, authcore.ErrTokenExpired):
		// Distinct from the other 401s so clients can attempt a silent
		// refresh instead of forcing a re-login.
		status, body = http.StatusUnauthorized, errorBody{"token_expired", "access token expired"}
	case errors.Is(err, authcore.ErrUnauthenticated),
		errors.Is(err, authcore.ErrTokenInvalid),
		errors.Is(err, authcore.ErrUserNotFound),
		errors.Is(err, authcore.ErrRefreshRevoked):
		status, body = http.StatusUnauthorized, errorBody{"unauthenticated", "authentication required"}
	case errors.Is(err, authcore.ErrEmailTaken):
		status, body = http.StatusConflict, errorBody{"email_taken", "an account with this email already exists"}
	case errors.Is(err, authcore.ErrAccountLocked):
		status, body = http.StatusLocked, errorBody{"account_locked", "account temporarily locked, try again later"}
	case errors.Is(err, authcore.ErrRateLimited):
		status, body = http.StatusTooManyRequests, errorBody{"rate_limited", "too many requests"}
	default:
		a.logger.Error("unhandled api error", "error", err, "path", c.FullPath())
	}

	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
