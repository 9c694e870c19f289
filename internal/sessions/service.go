// Package sessions manages server-side login sessions backed by the database.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rundown-app/rundown/internal/assert"
	"github.com/rundown-app/rundown/internal/auth"
	"github.com/rundown-app/rundown/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Status classifies a presented session token
type Status int

const (
	// Invalid means no usable token was presented
	Invalid Status = iota
	// Expired means the token referenced a session that is over or revoked
	Expired
	Valid
)

// Result is the outcome of validating a token
type Result struct {
	Status  Status
	Session *models.Session
	User    *models.User
}

// Service creates, validates and revokes sessions
type Service struct {
	db     *gorm.DB
	signer *auth.Signer
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a session service
func NewService(db *gorm.DB, signer *auth.Signer, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		signer: signer,
		ttl:    ttl,
		logger: logger.With().Str("component", "sessions").Logger(),
		now:    time.Now,
	}
}

// TTL returns the lifetime of new sessions
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// EnsureUser creates the user if no account with that email exists
func (s *Service) EnsureUser(ctx context.Context, email, name, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user = models.User{Email: email, Name: name, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User created")
	return &user, nil
}

// Authenticate checks an email and password pair
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// Create starts a new session for user and returns its signed token
func (s *Service) Create(ctx context.Context, user *models.User) (string, *models.Session, error) {
	session := &models.Session{
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}
	assert.Length(session.ID, 26) // ULID

	token, err := s.signer.GenerateToken(session.ID, user.ID, user.Email, user.Name, session.ExpiresAt)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info().Str("session_id", session.ID).Str("user_id", user.ID).Msg("Session created")
	return token, session, nil
}

// Validate resolves a token to its session. A token whose signature is fine
// but whose session row is gone, revoked or past expiry is Expired.
func (s *Service) Validate(ctx context.Context, token string) Result {
	if token == "" {
		return Result{Status: Invalid}
	}

	claims, err := s.signer.ValidateToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return Result{Status: Expired}
		}
		s.logger.Debug().Err(err).Msg("Rejected session token")
		return Result{Status: Invalid}
	}

	var session models.Session
	err = s.db.WithContext(ctx).Preload("User").Where("id = ?", claims.SessionID()).First(&session).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error().Err(err).Str("session_id", claims.SessionID()).Msg("Failed to load session")
			return Result{Status: Invalid}
		}
		return Result{Status: Expired}
	}

	if !session.Active(s.now()) {
		return Result{Status: Expired, Session: &session}
	}

	return Result{Status: Valid, Session: &session, User: &session.User}
}

// Revoke marks a session as revoked. Unknown IDs are ignored.
func (s *Service) Revoke(ctx context.Context, sessionID string) error {
	now := s.now()
	err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", &now).Error
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.logger.Info().Str("session_id", sessionID).Msg("Session revoked")
	return nil
}

// PurgeExpired deletes sessions that are past expiry or revoked
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ? OR revoked_at IS NOT NULL", s.now()).
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// StartPurger schedules PurgeExpired on schedule (a cron expression such as
// "@every 10m"). The returned cron must be stopped by the caller.
func (s *Service) StartPurger(schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		removed, err := s.PurgeExpired(context.Background())
		if err != nil {
			s.logger.Error().Err(err).Msg("Session purge failed")
			return
		}
		if removed > 0 {
			s.logger.Info().Int64("removed", removed).Msg("Purged expired sessions")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}

	c.Start()
	return c, nil
}
