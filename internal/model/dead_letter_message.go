package model

import "time"

// DeadLetterEvent is a webhook event whose profile patch could not be written.
type DeadLetterEvent struct {
	ID        string    `db:"id"`
	Provider  string    `db:"provider"`
	EventID   string    `db:"event_id"`
	EventType string    `db:"event_type"`
	Payload   string    `db:"payload"` // raw JSON body as received
	Error     string    `db:"error"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
