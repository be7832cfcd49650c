package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// userIDKey is the gin context key under which AuthMiddleware stores the
// verified caller identity.
const userIDKey = "userID"

// TokenVerifier resolves a bearer token to a user identifier. Credential
// issuance and expiry live upstream; the gateway only asks "whose token is
// this".
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// StaticTokens is a TokenVerifier over a fixed token→user mapping, the
// simplest deployment shape for the gateway.
type StaticTokens map[string]string

func (tokens StaticTokens) Verify(token string) (string, error) {
	if userID, ok := tokens[token]; ok {
		return userID, nil
	}
	return "", errUnknownToken
}

var errUnknownToken = &unknownTokenError{}

type unknownTokenError struct{}

func (*unknownTokenError) Error() string { return "unknown token" }

// AuthMiddleware rejects requests without a verifiable bearer token and
// stores the caller identity for handlers.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized."})
			return
		}

		userID, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized."})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// CORSMiddleware applies an origin allow-list. Requests without an Origin
// header (non-browser clients) pass through untouched.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
