package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sessionContextKey = "session_id"

// SessionManager выдает и проверяет cookie сессии. Значение cookie это
// HS256 JWT с id сессии в subject.
type SessionManager struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
	logger     *zap.Logger
}

// NewSessionManager создает менеджер сессий.
func NewSessionManager(secret, cookieName string, ttl time.Duration, secure bool, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		secret:     []byte(secret),
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		logger:     logger.Named("SessionManager"),
	}
}

// Middleware определяет id сессии по cookie. Отсутствующий, просроченный или
// поддельный токен заменяется новой сессией.
func (m *SessionManager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := ""
		if raw, err := c.Cookie(m.cookieName); err == nil && raw != "" {
			id, err := m.parse(raw)
			if err != nil {
				m.logger.Debug("Invalid session token, issuing a new one", zap.Error(err))
			} else {
				sessionID = id
			}
		}

		if sessionID == "" {
			sessionID = uuid.NewString()
			token, err := m.issue(sessionID, time.Now())
			if err != nil {
				m.logger.Error("Failed to sign session token", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					ErrorResponse{Code: ErrCodeInternal, Message: "An unexpected internal error occurred"})
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(m.cookieName, token, int(m.ttl.Seconds()), "/", "", m.secure, true)
		}

		c.Set(sessionContextKey, sessionID)
		c.Next()
	}
}

func (m *SessionManager) issue(sessionID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *SessionManager) parse(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("token parse error: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid session token")
	}
	return claims.Subject, nil
}

// SessionID id сессии, установленный Middleware.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionContextKey)
}
