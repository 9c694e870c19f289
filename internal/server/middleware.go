package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rundown-app/rundown/internal/auth"
	"github.com/rundown-app/rundown/internal/models"
	"github.com/rundown-app/rundown/internal/sessions"
)

const (
	bearerPrefix = "Bearer "

	sessionCookie    = "session"
	authStatusCookie = "auth_status"

	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"

	sessionKey      = "session"
	sessionModelKey = "session_model"
	userKey         = "user"

	loginPath = "/login"
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set(sessionKey, sessionData)
}

// GetSessionData returns the session attached by SessionAuthMiddleware
func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

// extractToken reads the session token from the Authorization header, then the session cookie
func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	}

	token, err := c.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return token
}

// wantsJSON reports whether the caller is a script rather than a page load
func wantsJSON(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest" ||
		strings.Contains(c.GetHeader("Content-Type"), "application/json") ||
		strings.Contains(c.GetHeader("Accept"), "application/json") ||
		strings.HasPrefix(c.Request.URL.Path, "/api/")
}

// SessionAuthMiddleware requires a valid session. Scripted requests receive a
// 401 with a redirect hint; page loads are redirected to the login page.
func SessionAuthMiddleware(svc *sessions.Service, secureCookies bool, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := svc.Validate(c.Request.Context(), extractToken(c))

		if result.Status != sessions.Valid {
			message := "Authentication required"
			if result.Status == sessions.Expired {
				message = "Session expired"
				clearSessionCookies(c, secureCookies)
			}
			log.Debug().
				Str("path", c.Request.URL.Path).
				Str("reason", message).
				Msg("Rejected unauthenticated request")

			if wantsJSON(c) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":    message,
					"redirect": loginPath,
				})
				return
			}
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}

		setSession(c, &auth.SessionData{
			SessionID: result.Session.ID,
			UserID:    result.User.ID,
			Email:     result.User.Email,
			Name:      result.User.Name,
		})
		c.Set(userKey, result.User)
		c.Set(sessionModelKey, result.Session)

		c.Next()
	}
}

func getSessionModel(c *gin.Context) (*models.Session, bool) {
	v, ok := c.Get(sessionModelKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*models.Session)
	return session, ok
}

// requestIDMiddleware propagates or assigns an X-Request-ID
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
