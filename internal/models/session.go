package models

import "time"

// Session is the authenticated context of one client. It is passed
// explicitly to every circulation call.
type Session struct {
	ID        string
	UserName  string
	Name      string
	Token     string
	ExpiresAt time.Time
}
