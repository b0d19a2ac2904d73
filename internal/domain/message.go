package domain

import "time"

// Message is a raw payload archived from the posted-messages stream.
type Message struct {
	ID        int64
	Content   string
	CreatedAt time.Time
}
