package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/apex/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/lojf/garage/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
)

const minPasswordLen = 8

// Service owns users and sessions.
type Service struct {
	db        *gorm.DB
	secret    []byte
	ttl       time.Duration
	publicURL string
	mailer    Mailer
	cost      int
	now       func() time.Time
}

type Option func(*Service)

func WithMailer(m Mailer) Option { return func(s *Service) { s.mailer = m } }

// WithBcryptCost lets tests trade hash strength for speed.
func WithBcryptCost(c int) Option { return func(s *Service) { s.cost = c } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(gdb *gorm.DB, secret string, ttl time.Duration, publicURL string, opts ...Option) *Service {
	s := &Service{
		db:        gdb,
		secret:    []byte(secret),
		ttl:       ttl,
		publicURL: publicURL,
		mailer:    LogMailer{},
		cost:      bcrypt.DefaultCost,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) hash(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", ErrWeakPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	return string(b), err
}

// CreateUser registers a user; used by cmd/add_user and tests.
func (s *Service) CreateUser(ctx context.Context, email, password string) (*models.User, error) {
	e, ok := NormEmail(email)
	if !ok {
		return nil, ErrInvalidEmail
	}
	h, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	u := models.User{Email: e, PasswordHash: h}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Service) openSession(ctx context.Context, u *models.User, purpose string) (*Tokens, error) {
	exp := s.now().Add(s.ttl)
	sess := models.Session{UserID: u.ID, Purpose: purpose, ExpiresAt: exp}
	if err := s.db.WithContext(ctx).Create(&sess).Error; err != nil {
		return nil, err
	}
	return s.issue(u.ID, u.Email, sess.ID, purpose, exp)
}

// SignIn checks the password and opens an access session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Tokens, error) {
	e, _ := NormEmail(email)
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", e).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.openSession(ctx, &u, purposeAccess)
}

// Refresh trades a live access session's refresh token for a new pair.
// The old session is revoked so each refresh token works once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	c, err := s.parse(refreshToken, purposeRefresh)
	if err != nil {
		return nil, err
	}
	sess, err := s.liveSession(ctx, c, purposeAccess)
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", sess.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if err := s.revoke(ctx, sess.ID); err != nil {
		return nil, err
	}
	return s.openSession(ctx, &u, purposeAccess)
}

// Authenticate resolves a bearer access token to a live session.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*Session, error) {
	c, err := s.parse(accessToken, purposeAccess)
	if err != nil {
		return nil, err
	}
	return s.liveSession(ctx, c, purposeAccess)
}

func (s *Service) liveSession(ctx context.Context, c *claims, purpose string) (*Session, error) {
	var row models.Session
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND purpose = ?", c.SessionID, c.Subject, purpose).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if row.RevokedAt != nil || !s.now().Before(row.ExpiresAt) {
		return nil, ErrInvalidToken
	}
	return &Session{ID: row.ID, UserID: row.UserID, Email: c.Email}, nil
}

func (s *Service) revoke(ctx context.Context, sessionID string) error {
	now := s.now()
	return s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", &now).Error
}

// SignOut revokes the caller's session. A nil session is a no-op.
func (s *Service) SignOut(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	return s.revoke(ctx, sess.ID)
}

// RequestPasswordReset mails a recovery link. Unknown and malformed
// addresses succeed silently so the endpoint can't be used to probe for
// accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	e, ok := NormEmail(email)
	if !ok {
		log.WithField("email", e).Debug("password reset for malformed address")
		return nil
	}
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", e).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.WithField("email", e).Debug("password reset for unknown address")
			return nil
		}
		return err
	}
	tok, err := s.openSession(ctx, &u, purposeRecovery)
	if err != nil {
		return err
	}
	return s.mailer.SendPasswordReset(ctx, u.Email, s.RecoveryLink(tok))
}

// RecoveryLink builds /reset-password?access_token=..&refresh_token=..&type=recovery.
func (s *Service) RecoveryLink(tok *Tokens) string {
	q := url.Values{}
	q.Set("access_token", tok.AccessToken)
	q.Set("refresh_token", tok.RefreshToken)
	q.Set("type", purposeRecovery)
	return s.publicURL + "/reset-password?" + q.Encode()
}

// RecoverSession establishes a session from the tokens carried by a recovery link.
func (s *Service) RecoverSession(ctx context.Context, accessToken, refreshToken, typ string) (*Session, error) {
	if typ != purposeRecovery || accessToken == "" || refreshToken == "" {
		return nil, ErrInvalidToken
	}
	ac, err := s.parse(accessToken, purposeRecovery)
	if err != nil {
		return nil, err
	}
	rc, err := s.parse(refreshToken, purposeRefresh)
	if err != nil {
		return nil, err
	}
	if ac.SessionID != rc.SessionID || ac.Subject != rc.Subject {
		return nil, ErrInvalidToken
	}
	return s.liveSession(ctx, ac, purposeRecovery)
}

// ResetPassword sets a new password through a recovery session and burns it.
func (s *Service) ResetPassword(ctx context.Context, accessToken, refreshToken, typ, password string) error {
	sess, err := s.RecoverSession(ctx, accessToken, refreshToken, typ)
	if err != nil {
		return err
	}
	if err := s.UpdatePassword(ctx, sess, password); err != nil {
		return err
	}
	return s.revoke(ctx, sess.ID)
}

// UpdatePassword replaces the signed-in user's password.
func (s *Service) UpdatePassword(ctx context.Context, sess *Session, password string) error {
	if sess == nil {
		return ErrInvalidToken
	}
	h, err := s.hash(password)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", sess.UserID).
		Update("password_hash", h)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update password: %w", ErrInvalidToken)
	}
	log.WithField("user_id", sess.UserID).Info("password updated")
	return nil
}
