package models

import "time"

// UserProfile comes from the identity provider and is read-only locally.
type UserProfile struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
}

// Session is an authenticated identity with its provider tokens.
type Session struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	User         UserProfile
}

// Expired reports whether the access token is past its expiry at now.
// A zero expiry never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.Expiry.IsZero() && !now.Before(s.Expiry)
}
