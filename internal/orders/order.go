// Package orders holds the order model and the local fallback order log.
package orders

import (
	"time"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Line is one priced article of an order.
type Line struct {
	Designation string `json:"designation"`
	Variant     string `json:"variant"`
	Quantity    int    `json:"qty"`
	UnitPrice   int    `json:"unitPrice"`
	Total       int    `json:"total"`
}

// Draft is an order held in per-user state while awaiting confirmation.
// ConfirmMessageID records the provider message ID that confirmed the draft,
// so a redelivered confirmation webhook is recognised as a replay.
type Draft struct {
	ID               string    `json:"id"`
	ClientPhone      string    `json:"clientPhone"`
	Lines            []Line    `json:"items"`
	TotalAmount      int       `json:"totalAmount"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
	ConfirmMessageID string    `json:"confirmMessageId,omitempty"`
}
