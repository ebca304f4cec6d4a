package dto

import "time"

type SendMessageRequest struct {
	ToUsername string `json:"to_username"`
	Body       string `json:"body"`
}

// ReadReceipt is the mark-read response shape.
type ReadReceipt struct {
	ID     string     `json:"id"`
	ReadAt *time.Time `json:"read_at"`
}
