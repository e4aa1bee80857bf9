package auth

import "context"

// Session is the signed-in identity handed to code that needs to know who acts.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type ctxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by the auth middleware, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}

// UserIDPtr is nil-safe; it returns nil when there is no session.
func (s *Session) UserIDPtr() *string {
	if s == nil || s.UserID == "" {
		return nil
	}
	id := s.UserID
	return &id
}
