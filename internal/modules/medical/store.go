package medical

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicate = errors.New("medical history already recorded")

type Store interface {
	Append(ctx context.Context, h *History) error
	// List returns matching records, most recent test first.
	List(ctx context.Context, scope Scope) ([]*History, error)
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Append(ctx context.Context, h *History) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO medical_histories (
			id, donor_id, donor_name, blood_group, hemoglobin_level, blood_pressure,
			weight, eligibility_status, medical_notes, test_date, hospital_name,
			hospital_id, verified_by, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, h.ID, h.DonorID, h.DonorName, h.BloodGroup, h.HemoglobinLevel, h.BloodPressure,
		h.Weight, h.EligibilityStatus, h.MedicalNotes, h.TestDate, h.HospitalName,
		h.HospitalID, h.VerifiedBy, h.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (s *PGStore) List(ctx context.Context, scope Scope) ([]*History, error) {
	var (
		where []string
		args  []interface{}
	)
	if scope.DonorID != "" {
		args = append(args, scope.DonorID)
		where = append(where, fmt.Sprintf("donor_id = $%d", len(args)))
	}
	if scope.HospitalID != "" {
		args = append(args, scope.HospitalID)
		where = append(where, fmt.Sprintf("hospital_id = $%d", len(args)))
	}
	query := `
		SELECT id, donor_id, donor_name, blood_group, hemoglobin_level, blood_pressure,
			weight, eligibility_status, medical_notes, test_date, hospital_name,
			hospital_id, verified_by, created_at
		FROM medical_histories`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY test_date DESC, created_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*History
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanHistory(row pgx.Row) (*History, error) {
	var h History
	err := row.Scan(
		&h.ID, &h.DonorID, &h.DonorName, &h.BloodGroup, &h.HemoglobinLevel, &h.BloodPressure,
		&h.Weight, &h.EligibilityStatus, &h.MedicalNotes, &h.TestDate, &h.HospitalName,
		&h.HospitalID, &h.VerifiedBy, &h.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// MemoryStore is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*History
	ids     map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: map[string]struct{}{}}
}

func (s *MemoryStore) Append(_ context.Context, h *History) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[string(h.ID)]; ok {
		return ErrDuplicate
	}
	c := *h
	s.records = append(s.records, &c)
	s.ids[string(h.ID)] = struct{}{}
	return nil
}

func (s *MemoryStore) List(_ context.Context, scope Scope) ([]*History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*History, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		if h := s.records[i]; scope.match(h) {
			c := *h
			out = append(out, &c)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(hs []*History) {
	sort.SliceStable(hs, func(i, j int) bool {
		if !hs[i].TestDate.Equal(hs[j].TestDate) {
			return hs[i].TestDate.After(hs[j].TestDate)
		}
		return hs[i].CreatedAt.After(hs[j].CreatedAt)
	})
}
