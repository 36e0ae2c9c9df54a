// README: Donor directory store backed by PostgreSQL.
package donor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lifelink/internal/types"
)

// Filter narrows ListDonors. Zero values mean "any".
type Filter struct {
	Role          Role
	AvailableOnly bool
	VerifiedOnly  bool
	BloodGroup    types.BloodGroup
}

func (f Filter) match(d *Donor) bool {
	if f.Role != "" && d.Role != f.Role {
		return false
	}
	if f.AvailableOnly && !d.Available {
		return false
	}
	if f.VerifiedOnly && !d.IsVerified {
		return false
	}
	if f.BloodGroup != "" && d.BloodGroup != f.BloodGroup {
		return false
	}
	return true
}

// Store is the persistence boundary of the directory. Implementations return
// copies the caller may mutate freely.
type Store interface {
	ListDonors(ctx context.Context, f Filter) ([]*Donor, error)
	GetDonor(ctx context.Context, id types.ID) (*Donor, error)
	CreateDonor(ctx context.Context, d *Donor) error
	// UpdateDonor applies fn to the stored donor atomically. found is false
	// when id does not exist.
	UpdateDonor(ctx context.Context, id types.ID, fn func(*Donor) error) (found bool, err error)

	ListHospitals(ctx context.Context) ([]*Hospital, error)
	GetHospital(ctx context.Context, id types.ID) (*Hospital, error)
	CreateHospital(ctx context.Context, h *Hospital) error
}

const pgUniqueViolation = "23505"

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const donorColumns = `
	id, name, age, gender, blood_group, phone, email, password, city, state,
	lat, lng, last_donation, available, is_verified, reliability_score,
	response_rate, role, donation_history, total_donations, created_at`

func (s *PGStore) ListDonors(ctx context.Context, f Filter) ([]*Donor, error) {
	var (
		conds []string
		args  []any
	)
	if f.Role != "" {
		args = append(args, string(f.Role))
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.AvailableOnly {
		conds = append(conds, "available")
	}
	if f.VerifiedOnly {
		conds = append(conds, "is_verified")
	}
	if f.BloodGroup != "" {
		args = append(args, string(f.BloodGroup))
		conds = append(conds, fmt.Sprintf("blood_group = $%d", len(args)))
	}
	q := "SELECT " + donorColumns + " FROM donors"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at, id"

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Donor
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PGStore) GetDonor(ctx context.Context, id types.ID) (*Donor, error) {
	row := s.db.QueryRow(ctx, "SELECT "+donorColumns+" FROM donors WHERE id = $1", string(id))
	d, err := scanDonor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (s *PGStore) CreateDonor(ctx context.Context, d *Donor) error {
	history, err := json.Marshal(nonNilHistory(d.DonationHistory))
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO donors (`+donorColumns+`) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21
		)`,
		string(d.ID), d.Name, d.Age, d.Gender, string(d.BloodGroup), d.Phone,
		d.Email, d.Password, d.City, d.State,
		d.Position.Lat, d.Position.Lng, d.LastDonation, d.Available, d.IsVerified,
		d.ReliabilityScore, d.ResponseRate, string(d.Role), history,
		d.TotalDonations, d.CreatedAt,
	)
	return mapUniqueViolation(err)
}

func (s *PGStore) UpdateDonor(ctx context.Context, id types.ID, fn func(*Donor) error) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, "SELECT "+donorColumns+" FROM donors WHERE id = $1 FOR UPDATE", string(id))
	d, err := scanDonor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := fn(d); err != nil {
		return true, err
	}

	history, err := json.Marshal(nonNilHistory(d.DonationHistory))
	if err != nil {
		return true, err
	}
	_, err = tx.Exec(ctx, `
		UPDATE donors
		SET name = $2, age = $3, gender = $4, blood_group = $5, phone = $6,
		    city = $7, state = $8, lat = $9, lng = $10, last_donation = $11,
		    available = $12, is_verified = $13, reliability_score = $14,
		    response_rate = $15, donation_history = $16, total_donations = $17
		WHERE id = $1`,
		string(d.ID), d.Name, d.Age, d.Gender, string(d.BloodGroup), d.Phone,
		d.City, d.State, d.Position.Lat, d.Position.Lng, d.LastDonation,
		d.Available, d.IsVerified, d.ReliabilityScore,
		d.ResponseRate, history, d.TotalDonations,
	)
	if err != nil {
		return true, err
	}
	return true, tx.Commit(ctx)
}

func (s *PGStore) ListHospitals(ctx context.Context) ([]*Hospital, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, email, password, location, lat, lng,
		       contact_person, phone, verified, created_at
		FROM hospitals
		ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Hospital
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *PGStore) GetHospital(ctx context.Context, id types.ID) (*Hospital, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, email, password, location, lat, lng,
		       contact_person, phone, verified, created_at
		FROM hospitals
		WHERE id = $1`, string(id))
	h, err := scanHospital(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return h, err
}

func (s *PGStore) CreateHospital(ctx context.Context, h *Hospital) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO hospitals (
			id, name, email, password, location, lat, lng,
			contact_person, phone, verified, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		string(h.ID), h.Name, h.Email, h.Password, h.Location,
		h.Position.Lat, h.Position.Lng, h.ContactPerson, h.Phone, h.Verified, h.CreatedAt,
	)
	return mapUniqueViolation(err)
}

func scanDonor(row pgx.Row) (*Donor, error) {
	var (
		d       Donor
		last    *time.Time
		history []byte
	)
	err := row.Scan(
		&d.ID, &d.Name, &d.Age, &d.Gender, &d.BloodGroup, &d.Phone, &d.Email, &d.Password,
		&d.City, &d.State, &d.Position.Lat, &d.Position.Lng, &last, &d.Available,
		&d.IsVerified, &d.ReliabilityScore, &d.ResponseRate, &d.Role, &history,
		&d.TotalDonations, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.LastDonation = last
	if len(history) > 0 {
		if err := json.Unmarshal(history, &d.DonationHistory); err != nil {
			return nil, fmt.Errorf("decode donation history: %w", err)
		}
	}
	return &d, nil
}

func scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	err := row.Scan(
		&h.ID, &h.Name, &h.Email, &h.Password, &h.Location, &h.Position.Lat, &h.Position.Lng,
		&h.ContactPerson, &h.Phone, &h.Verified, &h.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateIdentity
	}
	return err
}

func nonNilHistory(h []DonationRecord) []DonationRecord {
	if h == nil {
		return []DonationRecord{}
	}
	return h
}
