package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
	"github.com/gin-gonic/gin"
)

// ExtractToken returns the bearer token of a request. Websocket clients cannot
// set headers from browsers, so the token query parameter is accepted as well.
func ExtractToken(c *gin.Context) (string, error) {
	if tokenStr := c.Query("token"); tokenStr != "" {
		return tokenStr, nil
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", auth.ErrMissingToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", auth.ErrMissingToken
	}
	return parts[1], nil
}

// AuthMiddleware verifies the request token and stores the identity under
// "userID", "userName" and "identity".
func AuthMiddleware(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := slogging.GetContextLogger(c)

		tokenStr, err := ExtractToken(c)
		if err != nil {
			logger.Warn("Authentication failed: missing token for path: %s", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, Error{
				Error:            "unauthorized",
				ErrorDescription: "Missing bearer token",
			})
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), tokenStr)
		if err != nil {
			logger.Warn("Authentication failed for path %s: %v", c.Request.URL.Path, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, Error{
				Error:            "unauthorized",
				ErrorDescription: "Invalid or expired token",
			})
			return
		}

		c.Set("identity", identity)
		c.Set("userID", identity.UserID)
		c.Set("userName", identity.DisplayName)
		c.Next()
	}
}

// closeCodeFor maps a verification failure onto the websocket close code
func closeCodeFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return wire.CloseMissingToken
	case errors.Is(err, auth.ErrMissingSubject):
		return wire.CloseMissingSubject
	default:
		return wire.CloseInvalidToken
	}
}
