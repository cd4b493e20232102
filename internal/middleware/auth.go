package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var errInvalidToken = errors.New("invalid token")

// JWTVerifier validates HS256 bearer tokens issued by the auth
// collaborator and extracts the authenticated user id.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier constructs a verifier for the shared signing secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses the token (with or without the "Bearer " prefix) and
// returns the user id claim.
func (v *JWTVerifier) Verify(token string) (int, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return 0, errInvalidToken
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, errInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errInvalidToken
	}
	rawID, ok := claims["user_id"].(float64)
	if !ok || rawID <= 0 {
		return 0, errInvalidToken
	}
	return int(rawID), nil
}

// AuthMiddleware validates the Authorization header and stores the caller
// identity in the gin context.
func AuthMiddleware(verifier *JWTVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		userID, err := verifier.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
