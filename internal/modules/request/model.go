// README: Emergency request aggregate and status definitions.
package request

import (
	"time"

	"lifelink/internal/types"
)

type Status string

const (
	StatusNone      Status = ""
	StatusPending   Status = "Pending"
	StatusAccepted  Status = "Accepted"
	StatusFulfilled Status = "Fulfilled"
	StatusCancelled Status = "Cancelled"
)

type Urgency string

const (
	UrgencyNormal   Urgency = "Normal"
	UrgencyUrgent   Urgency = "Urgent"
	UrgencyCritical Urgency = "Critical"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyNormal, UrgencyUrgent, UrgencyCritical:
		return true
	}
	return false
}

// Tracking is the last route estimate from the accepting donor to the request.
type Tracking struct {
	ETA      string `json:"eta"`
	Distance string `json:"distance"`
}

type Request struct {
	ID             types.ID         `json:"id"`
	PatientName    string           `json:"patient_name"`
	BloodGroup     types.BloodGroup `json:"blood_group"`
	Hospital       string           `json:"hospital"`
	HospitalID     types.ID         `json:"hospital_id"`
	Contact        string           `json:"contact"`
	Location       string           `json:"location"`
	Position       types.Point      `json:"position"`
	Urgency        Urgency          `json:"urgency"`
	RequiredWithin string           `json:"required_within"`
	Status         Status           `json:"status"`
	StatusVersion  int              `json:"status_version"`
	AcceptedBy     *types.ID        `json:"accepted_by,omitempty"`
	AcceptedByName *string          `json:"accepted_by_name,omitempty"`
	Tracking       *Tracking        `json:"tracking,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	AcceptedAt     *time.Time       `json:"accepted_at,omitempty"`
	FulfilledAt    *time.Time       `json:"fulfilled_at,omitempty"`
	CancelledAt    *time.Time       `json:"cancelled_at,omitempty"`
}

func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	if r.AcceptedBy != nil {
		v := *r.AcceptedBy
		c.AcceptedBy = &v
	}
	if r.AcceptedByName != nil {
		v := *r.AcceptedByName
		c.AcceptedByName = &v
	}
	if r.Tracking != nil {
		v := *r.Tracking
		c.Tracking = &v
	}
	c.AcceptedAt = cloneTime(r.AcceptedAt)
	c.FulfilledAt = cloneTime(r.FulfilledAt)
	c.CancelledAt = cloneTime(r.CancelledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Acceptance carries the donor that takes a request on Pending → Accepted.
type Acceptance struct {
	DonorID   types.ID
	DonorName string
}

type Event struct {
	ID         int64
	RequestID  types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the request state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusCancelled},
	StatusAccepted: {StatusFulfilled, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
