// README: Notification inbox: creation, donor responses and read receipts.
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lifelink/internal/metrics"
	"lifelink/internal/modules/donor"
	"lifelink/internal/modules/request"
	"lifelink/internal/types"
)

var (
	ErrNotFound         = errors.New("notification not found")
	ErrDuplicate        = errors.New("notification already exists")
	ErrAlreadyResponded = errors.New("notification already responded")
	ErrInvalidDecision  = errors.New("decision must be Accepted or Declined")
	ErrNotRecipient     = errors.New("notification belongs to another donor")
)

// RequestAcceptor takes a request on behalf of a donor iff it is still Pending.
type RequestAcceptor interface {
	Accept(ctx context.Context, cmd request.AcceptCommand) error
}

// DonorLookup resolves the display name stored on an accepted request.
type DonorLookup interface {
	GetDonor(ctx context.Context, id types.ID) (*donor.Donor, error)
}

type Service struct {
	store    Store
	requests RequestAcceptor
	donors   DonorLookup
	metrics  *metrics.Recorder
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store Store, requests RequestAcceptor, donors DonorLookup, m *metrics.Recorder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, requests: requests, donors: donors, metrics: m, log: log, now: time.Now}
}

type CreateCommand struct {
	DonorID   types.ID
	RequestID types.ID
	Message   string
	Type      Type
}

// Create persists a new unread Pending notification.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Notification, error) {
	typ := cmd.Type
	if typ == "" {
		typ = TypeEmergency
	}
	n := &Notification{
		ID:        types.NewID(),
		DonorID:   cmd.DonorID,
		RequestID: cmd.RequestID,
		Message:   cmd.Message,
		Type:      typ,
		Status:    StatusPending,
		IsRead:    false,
		Timestamp: s.now(),
	}
	if err := s.store.Save(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

type RespondCommand struct {
	NotificationID types.ID
	// ResponderID, when set, must be the notification's donor.
	ResponderID types.ID
	Decision    Decision
}

type RespondResult struct {
	Found bool `json:"found"`
	// RequestAccepted is true only for the donor whose acceptance moved the
	// request out of Pending.
	RequestAccepted bool          `json:"request_accepted"`
	Notification    *Notification `json:"notification,omitempty"`
}

// Respond records a donor's decision. A missing notification is reported via
// Found=false with a nil error. An Accepted decision also tries to take the
// request; losing that race still leaves the notification Accepted, while an
// unexpected store failure reopens it as Pending.
func (s *Service) Respond(ctx context.Context, cmd RespondCommand) (RespondResult, error) {
	if cmd.Decision != StatusAccepted && cmd.Decision != StatusDeclined {
		return RespondResult{}, ErrInvalidDecision
	}
	n, err := s.store.Get(ctx, cmd.NotificationID)
	if errors.Is(err, ErrNotFound) {
		return RespondResult{Found: false}, nil
	}
	if err != nil {
		return RespondResult{}, err
	}
	if cmd.ResponderID != "" && n.DonorID != cmd.ResponderID {
		return RespondResult{Found: true}, ErrNotRecipient
	}
	if n.Responded() {
		return RespondResult{Found: true, Notification: n}, ErrAlreadyResponded
	}

	ok, err := s.store.Respond(ctx, n.ID, cmd.Decision)
	if err != nil {
		return RespondResult{Found: true}, err
	}
	if !ok {
		return RespondResult{Found: true}, ErrAlreadyResponded
	}
	n.Status = cmd.Decision
	res := RespondResult{Found: true, Notification: n}

	if cmd.Decision != StatusAccepted {
		return res, nil
	}

	name := ""
	if s.donors != nil {
		if d, err := s.donors.GetDonor(ctx, n.DonorID); err == nil {
			name = d.Name
		}
	}
	err = s.requests.Accept(ctx, request.AcceptCommand{RequestID: n.RequestID, DonorID: n.DonorID, DonorName: name})
	switch {
	case err == nil:
		res.RequestAccepted = true
	case errors.Is(err, request.ErrConflict), errors.Is(err, request.ErrInvalidState):
		s.metrics.AcceptConflict()
		s.log.Info("request already taken",
			zap.String("request_id", string(n.RequestID)),
			zap.String("donor_id", string(n.DonorID)))
	case errors.Is(err, request.ErrNotFound):
		s.log.Warn("notification references missing request",
			zap.String("notification_id", string(n.ID)),
			zap.String("request_id", string(n.RequestID)))
	default:
		// The request was never taken, so the donor may answer again.
		if _, rerr := s.store.Reopen(ctx, n.ID, StatusAccepted); rerr != nil {
			s.log.Error("reopen notification after failed accept",
				zap.String("notification_id", string(n.ID)),
				zap.Error(rerr))
		}
		return RespondResult{Found: true}, fmt.Errorf("accept request %s: %w", n.RequestID, err)
	}
	return res, nil
}

// MarkRead flags a notification as read. It reports false for unknown ids.
func (s *Service) MarkRead(ctx context.Context, id types.ID) (bool, error) {
	return s.store.MarkRead(ctx, id)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Notification, error) {
	return s.store.Get(ctx, id)
}

// ListForDonor returns the donor's inbox, newest first.
func (s *Service) ListForDonor(ctx context.Context, donorID types.ID) ([]*Notification, error) {
	return s.store.List(ctx, donorID)
}

func (s *Service) List(ctx context.Context) ([]*Notification, error) {
	return s.store.List(ctx, "")
}
