package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/openconvo/authcore/internal"
)

const csrfNonceBytes = 32

// handleCSRFToken issues a signed double-submit token. The cookie is
// readable by the frontend, which echoes it back in the X-CSRF-Token
// header; the HMAC tag ties the token to the session secret so a token
// cannot be forged from outside.
func (a *API) handleCSRFToken(c *gin.Context) {
	nonce, err := internal.NewNonce(csrfNonceBytes)
	if err != nil {
		a.writeError(c, err)
		return
	}
	token := nonce + "." + internal.SignNonce(a.cfg.SessionSecret, nonce)

	setCookie(c, csrfCookie, token, 0, a.cfg.Secure, false)
	c.JSON(http.StatusOK, gin.H{"csrfToken": token})
}

// requireCSRF enforces the double submit: header and cookie must carry the
// same validly signed token. Failure is 403, distinct from the 401 family,
// so clients can tell a stale CSRF token from a dead session.
func (a *API) requireCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(csrfHeader)
		cookie, _ := c.Cookie(csrfCookie)

		if !a.csrfTokenValid(header) ||
			subtle.ConstantTimeCompare([]byte(header), []byte(cookie)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": errorBody{Code: "csrf", Message: "missing or invalid csrf token"},
			})
			return
		}
		c.Next()
	}
}

func (a *API) csrfTokenValid(token string) bool {
	nonce, tag, ok := strings.Cut(token, ".")
	if !ok || nonce == "" || tag == "" {
		return false
	}
	return internal.VerifyNonce(a.cfg.SessionSecret, nonce, tag)
}
