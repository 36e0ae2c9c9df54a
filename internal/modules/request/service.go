// README: Request service implements state transitions and persistence.
package request

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lifelink/internal/modules/location"
	"lifelink/internal/types"
	"lifelink/internal/validate"
)

var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("request not found")
	ErrConflict     = errors.New("request state conflict")
	ErrBadRequest   = errors.New("bad request")
)

type Service struct {
	store    Store
	validate *validate.Validator
}

func NewService(store Store, v *validate.Validator) *Service {
	if v == nil {
		v = validate.New()
	}
	return &Service{store: store, validate: v}
}

type CreateCommand struct {
	PatientName    string      `json:"patient_name" validate:"required"`
	BloodGroup     string      `json:"blood_group" validate:"required,bloodgroup"`
	Hospital       string      `json:"hospital" validate:"required"`
	HospitalID     types.ID    `json:"hospital_id" validate:"required"`
	Contact        string      `json:"contact" validate:"required"`
	Location       string      `json:"location"`
	Position       types.Point `json:"position"`
	Urgency        Urgency     `json:"urgency" validate:"omitempty,oneof=Normal Urgent Critical"`
	RequiredWithin string      `json:"required_within"`
}

type AcceptCommand struct {
	RequestID types.ID
	DonorID   types.ID
	DonorName string
}

type FulfilCommand struct {
	RequestID types.ID
	ActorType string
	ActorID   types.ID
}

type CancelCommand struct {
	RequestID types.ID
	ActorType string
	ActorID   types.ID
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Request, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err := location.ValidPoint(cmd.Position); err != nil {
		return nil, err
	}
	bg, err := types.ParseBloodGroup(cmd.BloodGroup)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	urgency := cmd.Urgency
	if urgency == "" {
		urgency = UrgencyNormal
	}

	now := time.Now()
	r := &Request{
		ID:             types.NewID(),
		PatientName:    strings.TrimSpace(cmd.PatientName),
		BloodGroup:     bg,
		Hospital:       cmd.Hospital,
		HospitalID:     cmd.HospitalID,
		Contact:        cmd.Contact,
		Location:       cmd.Location,
		Position:       cmd.Position,
		Urgency:        urgency,
		RequiredWithin: cmd.RequiredWithin,
		Status:         StatusPending,
		StatusVersion:  0,
		CreatedAt:      now,
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	hospitalID := cmd.HospitalID
	_ = s.store.AppendEvent(ctx, &Event{
		RequestID:  r.ID,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorType:  "hospital",
		ActorID:    &hospitalID,
		CreatedAt:  now,
	})
	return r, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Request, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Request, error) {
	return s.store.List(ctx, "")
}

func (s *Service) ListByHospital(ctx context.Context, hospitalID types.ID) ([]*Request, error) {
	if hospitalID == "" {
		return nil, ErrBadRequest
	}
	return s.store.List(ctx, hospitalID)
}

// Accept assigns the request to a donor iff it is still Pending. Losers of a
// concurrent race get ErrConflict; a request that already left Pending gets
// ErrInvalidState.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) error {
	if cmd.DonorID == "" {
		return ErrBadRequest
	}
	donorID := cmd.DonorID
	return s.transition(ctx, cmd.RequestID, StatusAccepted, &Acceptance{DonorID: cmd.DonorID, DonorName: cmd.DonorName}, "donor", &donorID)
}

func (s *Service) Fulfil(ctx context.Context, cmd FulfilCommand) error {
	return s.transition(ctx, cmd.RequestID, StatusFulfilled, nil, cmd.ActorType, actorPtr(cmd.ActorID))
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) error {
	return s.transition(ctx, cmd.RequestID, StatusCancelled, nil, cmd.ActorType, actorPtr(cmd.ActorID))
}

func (s *Service) SetTracking(ctx context.Context, id types.ID, t Tracking) error {
	return s.store.SetTracking(ctx, id, t)
}

func (s *Service) transition(ctx context.Context, id types.ID, to Status, acc *Acceptance, actorType string, actorID *types.ID) error {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(r.Status, to) {
		return ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, r.ID, r.Status, to, r.StatusVersion, acc)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	_ = s.store.AppendEvent(ctx, &Event{
		RequestID:  r.ID,
		FromStatus: r.Status,
		ToStatus:   to,
		ActorType:  actorType,
		ActorID:    actorID,
		CreatedAt:  time.Now(),
	})
	return nil
}

func actorPtr(id types.ID) *types.ID {
	if id == "" {
		return nil
	}
	return &id
}
