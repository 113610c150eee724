package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/coursegen-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type AuthConfig struct {
	// Secret is the HS256 signing key. Empty disables auth entirely.
	Secret string
	// Required rejects requests without a token instead of passing them through anonymously.
	Required bool
}

func LoadAuthConfig() AuthConfig {
	return AuthConfig{
		Secret:   envutil.String("JWT_SECRET", ""),
		Required: envutil.Bool("AUTH_REQUIRED", false),
	}
}

// RequestClaims are the claims accepted on a bearer token. requester_id wins
// over sub when both are present.
type RequestClaims struct {
	RequesterID string `json:"requester_id,omitempty"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	log      *logger.Logger
	secret   []byte
	required bool
}

func NewAuthMiddleware(log *logger.Logger, cfg AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{
		log:      log.With("Middleware", "AuthMiddleware"),
		secret:   []byte(strings.TrimSpace(cfg.Secret)),
		required: cfg.Required,
	}
}

func (am *AuthMiddleware) Enabled() bool { return am != nil && len(am.secret) > 0 }

// RequireAuth resolves the caller from a bearer token and attaches it as
// ctxutil.RequestData.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !am.Enabled() {
			c.Next()
			return
		}
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			if am.required {
				abortUnauthorized(c, "missing or invalid token")
				return
			}
			c.Next()
			return
		}
		rd, err := am.parse(tokenString)
		if err != nil {
			am.log.Debug("bearer token rejected", "error", err)
			abortUnauthorized(c, err.Error())
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

func (am *AuthMiddleware) parse(tokenString string) (*ctxutil.RequestData, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &RequestClaims{}, func(token *jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*RequestClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid or expired token")
	}
	requester := strings.TrimSpace(claims.RequesterID)
	if requester == "" {
		requester = strings.TrimSpace(claims.Subject)
	}
	if requester == "" {
		return nil, errors.New("token has no subject")
	}
	return &ctxutil.RequestData{RequesterID: requester, Subject: claims.Subject}, nil
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"message": msg, "code": "unauthorized"},
	})
}

func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
