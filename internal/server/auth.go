package server

import (
	"errors"
	"strings"

	"bulls-cows/internal/rules"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userIDKey = "userID"

var errInvalidToken = errors.New("invalid token")

type identityClaims struct {
	jwt.RegisteredClaims
}

// tokenVerifier checks HS256 bearer tokens issued by the identity provider.
// The subject claim is the opaque user id.
type tokenVerifier struct {
	secret []byte
}

func newTokenVerifier(secret string) *tokenVerifier {
	return &tokenVerifier{secret: []byte(secret)}
}

func (v *tokenVerifier) Verify(raw string) (string, error) {
	if len(v.secret) == 0 || raw == "" {
		return "", errInvalidToken
	}
	token, err := jwt.ParseWithClaims(raw, &identityClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		return "", errInvalidToken
	}
	claims, ok := token.Claims.(*identityClaims)
	if !ok || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := s.tokens.Verify(bearerToken(c))
		if err != nil {
			respondError(c, rules.ErrUnauthorized)
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// optionalUser attaches the user id when a valid token is present and lets
// anonymous callers through otherwise.
func (s *Server) optionalUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := bearerToken(c); raw != "" {
			if userID, err := s.tokens.Verify(raw); err == nil {
				c.Set(userIDKey, userID)
			}
		}
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter browsers use for websocket upgrades.
func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return strings.TrimSpace(c.Query("access_token"))
}

func currentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
