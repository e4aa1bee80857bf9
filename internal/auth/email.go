package auth

import (
	"net/mail"
	"strings"
)

// NormEmail lowercases and trims an address; ok is false when it doesn't parse.
func NormEmail(s string) (string, bool) {
	e := strings.TrimSpace(strings.ToLower(s))
	if e == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return e, false
	}
	return e, true
}
