// README: Donor notification records and their response state machine.
package notification

import (
	"time"

	"lifelink/internal/types"
)

type Type string

const (
	TypeEmergency Type = "Emergency"
	TypeSystem    Type = "System"
	TypeReminder  Type = "Reminder"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusAccepted Status = "Accepted"
	StatusDeclined Status = "Declined"
)

// Decision is a donor's answer to an emergency notification.
type Decision = Status

type Notification struct {
	ID        types.ID  `json:"id"`
	DonorID   types.ID  `json:"donor_id"`
	RequestID types.ID  `json:"request_id"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	Status    Status    `json:"status"`
	IsRead    bool      `json:"is_read"`
	Timestamp time.Time `json:"timestamp"`
}

func (n *Notification) Clone() *Notification {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}

// Responded reports whether the donor already answered.
func (n *Notification) Responded() bool {
	return n.Status != StatusPending
}
