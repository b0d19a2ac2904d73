package domain

import "time"

// Session is an anonymous client context identified by an opaque token.
type Session struct {
	Token     string
	CreatedAt time.Time
}
