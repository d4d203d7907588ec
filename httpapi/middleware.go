package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/openconvo/authcore"
)

const (
	ctxUserID = "authcore.userID"
	ctxEmail  = "authcore.email"
)

// requestContext threads the caller's IP and User-Agent into the request
// context for the engine's rate limiter, audit trail, and ledger
// fingerprints.
func (a *API) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := authcore.WithClientIP(c.Request.Context(), c.ClientIP())
		ctx = authcore.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (a *API) corsMiddleware() gin.HandlerFunc {
	origin := a.cfg.CORSOrigin
	return func(c *gin.Context) {
		if origin == "" {
			c.Next()
			return
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+csrfHeader)
		c.Header("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (a *API) generalRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.engine.CheckRequest(c.Request.Context(), c.ClientIP()); err != nil {
			a.writeError(c, err)
			return
		}
		c.Next()
	}
}

// requireAuth verifies the access token from the auth cookie or an
// Authorization bearer header and stores the caller's identity on the gin
// context.
func (a *API) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := a.engine.VerifyClaims(bearerOrCookie(c))
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Next()
	}
}

func bearerOrCookie(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return token
		}
	}
	token, _ := c.Cookie(accessCookie)
	return token
}
