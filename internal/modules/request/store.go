// README: Emergency request store backed by PostgreSQL.
package request

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lifelink/internal/types"
)

// Store persists requests. UpdateStatus is a compare-and-swap on
// (status, status_version) and reports whether this caller won.
type Store interface {
	Create(ctx context.Context, r *Request) error
	Get(ctx context.Context, id types.ID) (*Request, error)
	// List returns requests newest first; an empty hospitalID lists all.
	List(ctx context.Context, hospitalID types.ID) ([]*Request, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, acc *Acceptance) (bool, error)
	SetTracking(ctx context.Context, id types.ID, t Tracking) error
	AppendEvent(ctx context.Context, e *Event) error
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const requestColumns = `
	id, patient_name, blood_group, hospital, hospital_id, contact, location,
	lat, lng, urgency, required_within, status, status_version,
	accepted_by, accepted_by_name, tracking_eta, tracking_distance,
	created_at, accepted_at, fulfilled_at, cancelled_at`

func (s *PGStore) Create(ctx context.Context, r *Request) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO emergency_requests (
			id, patient_name, blood_group, hospital, hospital_id, contact, location,
			lat, lng, urgency, required_within, status, status_version, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13, $14
		)`,
		string(r.ID), r.PatientName, string(r.BloodGroup), r.Hospital, string(r.HospitalID),
		r.Contact, r.Location, r.Position.Lat, r.Position.Lng, string(r.Urgency),
		r.RequiredWithin, string(r.Status), r.StatusVersion, r.CreatedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Request, error) {
	row := s.db.QueryRow(ctx, "SELECT "+requestColumns+" FROM emergency_requests WHERE id = $1", string(id))
	r, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *PGStore) List(ctx context.Context, hospitalID types.ID) ([]*Request, error) {
	q := "SELECT " + requestColumns + " FROM emergency_requests"
	var args []any
	if hospitalID != "" {
		q += " WHERE hospital_id = $1"
		args = append(args, string(hospitalID))
	}
	q += " ORDER BY created_at DESC, id"

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, acc *Acceptance) (bool, error) {
	var donorID, donorName *string
	if acc != nil {
		d, n := string(acc.DonorID), acc.DonorName
		donorID, donorName = &d, &n
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE emergency_requests
		SET status = $1,
		    status_version = status_version + 1,
		    accepted_by = COALESCE($2, accepted_by),
		    accepted_by_name = COALESCE($3, accepted_by_name),
		    accepted_at = CASE WHEN $1 = 'Accepted' THEN NOW() ELSE accepted_at END,
		    fulfilled_at = CASE WHEN $1 = 'Fulfilled' THEN NOW() ELSE fulfilled_at END,
		    cancelled_at = CASE WHEN $1 = 'Cancelled' THEN NOW() ELSE cancelled_at END
		WHERE id = $4 AND status = $5 AND status_version = $6`,
		string(to),
		donorID,
		donorName,
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) SetTracking(ctx context.Context, id types.ID, t Tracking) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE emergency_requests
		SET tracking_eta = $1, tracking_distance = $2
		WHERE id = $3`, t.ETA, t.Distance, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO request_state_events (
			request_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.RequestID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func scanRequest(row pgx.Row) (*Request, error) {
	var (
		r              Request
		acceptedBy     *string
		acceptedByName *string
		trackETA       *string
		trackDist      *string
		accepted       *time.Time
		fulfilled      *time.Time
		cancelled      *time.Time
	)
	err := row.Scan(
		&r.ID, &r.PatientName, &r.BloodGroup, &r.Hospital, &r.HospitalID, &r.Contact, &r.Location,
		&r.Position.Lat, &r.Position.Lng, &r.Urgency, &r.RequiredWithin, &r.Status, &r.StatusVersion,
		&acceptedBy, &acceptedByName, &trackETA, &trackDist,
		&r.CreatedAt, &accepted, &fulfilled, &cancelled,
	)
	if err != nil {
		return nil, err
	}
	if acceptedBy != nil {
		id := types.ID(*acceptedBy)
		r.AcceptedBy = &id
	}
	r.AcceptedByName = acceptedByName
	if trackETA != nil || trackDist != nil {
		r.Tracking = &Tracking{ETA: deref(trackETA), Distance: deref(trackDist)}
	}
	r.AcceptedAt = accepted
	r.FulfilledAt = fulfilled
	r.CancelledAt = cancelled
	return &r, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
