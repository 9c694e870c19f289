package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rundown-app/rundown/internal/models"
	"github.com/rundown-app/rundown/internal/sessions"
	"github.com/rundown-app/rundown/internal/watchdog"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *UserDetail `json:"user"`
}

// UserDetail represents user information returned in responses
type UserDetail struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func userDetail(u *models.User) *UserDetail {
	return &UserDetail{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

// StatusResponse is the payload of GET /auth/status
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	UserEmail     string `json:"user_email,omitempty"`
	UserName      string `json:"user_name,omitempty"`
	Error         string `json:"error,omitempty"`
	Message       string `json:"message,omitempty"`
}

// @Summary Session status
// @Description Reports whether the caller's session is valid
// @Tags auth
// @Produce json
// @Success 200 {object} StatusResponse
// @Failure 401 {object} StatusResponse
// @Router /auth/status [get]
func (s *Server) authStatus(c *gin.Context) {
	token := extractToken(c)
	result := s.sessions.Validate(c.Request.Context(), token)

	switch result.Status {
	case sessions.Valid:
		c.JSON(http.StatusOK, StatusResponse{
			Authenticated: true,
			UserID:        result.User.ID,
			UserEmail:     result.User.Email,
			UserName:      result.User.Name,
		})
	case sessions.Expired:
		clearSessionCookies(c, s.config.Session.SecureCookie)
		c.JSON(http.StatusUnauthorized, StatusResponse{
			Authenticated: false,
			Error:         "Token expired",
			Message:       watchdog.DefaultExpiredMessage,
		})
	default:
		c.JSON(http.StatusUnauthorized, StatusResponse{Authenticated: false})
	}
}

// @Summary Login
// @Description Authenticate with email and password, returning a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/login [post]
func (s *Server) loginJSON(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, session, user, err := s.startSession(c, req)
	if err != nil {
		if errors.Is(err, sessions.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      userDetail(user),
	})
}

func (s *Server) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login", gin.H{"Error": "", "Email": ""})
}

func (s *Server) loginForm(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusBadRequest, "login", gin.H{"Error": "Email and password are required", "Email": req.Email})
		return
	}

	token, _, _, err := s.startSession(c, req)
	if err != nil {
		status, message := http.StatusInternalServerError, "Something went wrong, please try again"
		if errors.Is(err, sessions.ErrInvalidCredentials) {
			status, message = http.StatusUnauthorized, "Invalid email or password"
		}
		c.HTML(status, "login", gin.H{"Error": message, "Email": req.Email})
		return
	}

	s.setSessionCookies(c, token)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) startSession(c *gin.Context, req LoginRequest) (string, *models.Session, *models.User, error) {
	user, err := s.sessions.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, sessions.ErrInvalidCredentials) {
			s.logger.Error().Err(err).Msg("Failed to authenticate user")
		}
		return "", nil, nil, err
	}

	token, session, err := s.sessions.Create(c.Request.Context(), user)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to create session")
		return "", nil, nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User logged in")
	return token, session, user, nil
}

// @Summary Refresh authentication
// @Description Ends the current session and sends the user back to login
// @Tags auth
// @Router /refresh-auth [get]
func (s *Server) refreshAuth(c *gin.Context) {
	s.endSession(c)
	c.Redirect(http.StatusFound, loginPath)
}

// @Summary Logout
// @Tags auth
// @Router /logout [get]
func (s *Server) logout(c *gin.Context) {
	s.endSession(c)
	c.Redirect(http.StatusFound, "/")
}

// endSession revokes whatever session the request carries and clears cookies
func (s *Server) endSession(c *gin.Context) {
	result := s.sessions.Validate(c.Request.Context(), extractToken(c))
	if result.Session != nil {
		if err := s.sessions.Revoke(c.Request.Context(), result.Session.ID); err != nil {
			s.logger.Error().Err(err).Msg("Failed to revoke session")
		}
	}
	clearSessionCookies(c, s.config.Session.SecureCookie)
}

func (s *Server) setSessionCookies(c *gin.Context, token string) {
	maxAge := int(s.sessions.TTL().Seconds())
	secure := s.config.Session.SecureCookie

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, maxAge, "/", "", secure, true)
	c.SetCookie(authStatusCookie, "authenticated", maxAge, "/", "", secure, false)
}

// clearSessionCookies expires both cookies with the attributes they were set with
func clearSessionCookies(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", secure, true)
	c.SetCookie(authStatusCookie, "", -1, "/", "", secure, false)
}

// @Summary Get current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserDetail
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	v, ok := c.Get(userKey)
	user, _ := v.(*models.User)
	if !ok || user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, userDetail(user))
}

// @Summary Current session
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Router /api/session [get]
func (s *Server) getSession(c *gin.Context) {
	sessionData, ok := GetSessionData(c)
	session, hasModel := getSessionModel(c)
	if !ok || !hasModel {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionData.SessionID,
		"user_id":    sessionData.UserID,
		"email":      sessionData.Email,
		"expires_at": session.ExpiresAt,
	})
}

func (s *Server) home(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	c.HTML(http.StatusOK, "home", gin.H{"Name": sessionData.Name, "Email": sessionData.Email})
}

const pageTemplates = `
{{define "login"}}<!doctype html>
<html><head><title>RunDown - Sign in</title></head>
<body>
<h1>Sign in to RunDown</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="/login">
<label>Email <input type="email" name="email" value="{{.Email}}" required></label>
<label>Password <input type="password" name="password" required></label>
<button type="submit">Sign in</button>
</form>
</body></html>{{end}}
{{define "home"}}<!doctype html>
<html><head><title>RunDown</title></head>
<body>
<p>Signed in as {{.Name}} ({{.Email}})</p>
<a href="/logout">Log out</a>
</body></html>{{end}}
`
