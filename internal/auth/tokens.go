package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	purposeAccess   = "access"
	purposeRefresh  = "refresh"
	purposeRecovery = "recovery"
	issuer          = "garage"
)

type claims struct {
	SessionID string `json:"sid"`
	Email     string `json:"email"`
	Purpose   string `json:"purpose"`
	jwt.RegisteredClaims
}

// Tokens are returned on sign-in and embedded in recovery links.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *Service) sign(userID, email, sessionID, purpose string, exp time.Time) (string, error) {
	c := claims{
		SessionID: sessionID,
		Email:     email,
		Purpose:   purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

func (s *Service) parse(token, purpose string) (*claims, error) {
	c := &claims{}
	tok, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if c.Purpose != purpose || c.SessionID == "" || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}

func (s *Service) issue(userID, email, sessionID, purpose string, exp time.Time) (*Tokens, error) {
	access, err := s.sign(userID, email, sessionID, purpose, exp)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(userID, email, sessionID, purposeRefresh, exp)
	if err != nil {
		return nil, err
	}
	return &Tokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}
