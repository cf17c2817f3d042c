package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionCookie имя cookie с токеном сессии
	SessionCookie = "session"

	tenantIDKey = "tenant_id"
)

var errMissingSubject = errors.New("token has no subject")

// SessionAuth проверяет JWT (HS256) сессии дашборда.
// Subject токена: идентификатор владельца (tenant id).
type SessionAuth struct {
	secret []byte
}

func NewSessionAuth(secret string) *SessionAuth {
	return &SessionAuth{secret: []byte(secret)}
}

// Middleware пропускает запрос только с валидной сессией
func (a *SessionAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := sessionToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_session",
				"message": "Требуется авторизация: Authorization: Bearer или cookie session",
			})
			return
		}

		tenantID, err := a.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_session",
				"message": "Невалидная или истёкшая сессия",
			})
			return
		}

		c.Set(tenantIDKey, tenantID)
		c.Next()
	}
}

// Parse проверяет подпись и срок действия, возвращает tenant id
func (a *SessionAuth) Parse(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	if claims.Subject == "" {
		return "", errMissingSubject
	}
	return claims.Subject, nil
}

// Issue выпускает токен сессии для tenant id
func (a *SessionAuth) Issue(tenantID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   tenantID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func sessionToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// TenantIDFromContext извлекает tenant id, установленный SessionAuth
func TenantIDFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get(tenantIDKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
