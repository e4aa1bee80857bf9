package handlers

import (
	"context"
	"net/http"

	"github.com/lojf/garage/internal/queries"
)

// Fixed notices for the auth endpoints, which do not go through the query client.
var okText = map[string]string{
	"signed_in":        "Signed in successfully",
	"signed_out":       "Signed out successfully",
	"reset_sent":       "Check your email for the password reset link",
	"password_updated": "Password updated successfully!",
}

var errText = map[string]string{
	"signin_failed":  "Failed to sign in",
	"signout_failed": "Failed to sign out",
	"reset_failed":   "Failed to send reset email",
	"update_failed":  "Failed to reset password",
	"rate_limited":   "Too many attempts, please wait a moment",
}

type noticesKey struct{}

// Notices gives every request its own notice collector.
func Notices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		col := &queries.Collector{}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), noticesKey{}, col)))
	})
}

func noticesFrom(r *http.Request) *queries.Collector {
	if col, ok := r.Context().Value(noticesKey{}).(*queries.Collector); ok {
		return col
	}
	return &queries.Collector{}
}

// client binds the query client to the request's notices.
func client(q *queries.Client, r *http.Request) *queries.Client {
	return q.With(noticesFrom(r))
}

func flashOK(r *http.Request, key string) {
	noticesFrom(r).Notify(queries.Success(okText[key]))
}

// flashErr raises the fixed error text for key, or the error's own
// message when the failure is one the user can act on.
func flashErr(r *http.Request, key string, err error) {
	text := errText[key]
	if err != nil && statusOf(err) != http.StatusInternalServerError {
		text = err.Error()
	}
	noticesFrom(r).Notify(queries.Failure(text))
}
