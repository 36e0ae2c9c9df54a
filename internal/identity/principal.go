// Package identity models who is calling: a donor, a hospital or an admin
// operator, each with its own capabilities.
package identity

import (
	"errors"
	"fmt"

	"lifelink/internal/types"
)

var (
	ErrForbidden   = errors.New("forbidden")
	ErrUnknownRole = errors.New("unknown role")
)

type Role string

const (
	RoleDonor    Role = "donor"
	RoleHospital Role = "hospital"
	RoleAdmin    Role = "admin"
)

// Principal is implemented only by Donor, Hospital and Admin.
type Principal interface {
	ID() types.ID
	Role() Role
	principal()
}

type Donor struct{ DonorID types.ID }

func (d Donor) ID() types.ID { return d.DonorID }
func (Donor) Role() Role      { return RoleDonor }
func (Donor) principal()      {}

type Hospital struct{ HospitalID types.ID }

func (h Hospital) ID() types.ID { return h.HospitalID }
func (Hospital) Role() Role      { return RoleHospital }
func (Hospital) principal()      {}

type Admin struct{ OperatorID types.ID }

func (a Admin) ID() types.ID { return a.OperatorID }
func (Admin) Role() Role      { return RoleAdmin }
func (Admin) principal()      {}

// FromClaims maps a verified token's uid and role claim to a principal.
// A missing role means donor, matching accounts created by self sign-up.
func FromClaims(uid, role string) (Principal, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: empty uid", ErrForbidden)
	}
	switch Role(role) {
	case RoleDonor, "":
		return Donor{DonorID: types.ID(uid)}, nil
	case RoleHospital:
		return Hospital{HospitalID: types.ID(uid)}, nil
	case RoleAdmin:
		return Admin{OperatorID: types.ID(uid)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
}

func IsAdmin(p Principal) bool {
	_, ok := p.(Admin)
	return ok
}

// CanSubmitRequest: hospitals and admins raise emergencies.
func CanSubmitRequest(p Principal) bool {
	switch p.(type) {
	case Hospital, Admin:
		return true
	}
	return false
}

// CanManageRequest reports whether p may complete, cancel or track a request
// owned by hospitalID.
func CanManageRequest(p Principal, hospitalID types.ID) bool {
	switch v := p.(type) {
	case Admin:
		return true
	case Hospital:
		return v.HospitalID == hospitalID
	}
	return false
}

// CanActForDonor reports whether p may change donorID's profile or inbox.
func CanActForDonor(p Principal, donorID types.ID) bool {
	switch v := p.(type) {
	case Admin:
		return true
	case Donor:
		return v.DonorID == donorID
	}
	return false
}

// Require turns a failed capability check into ErrForbidden.
func Require(ok bool) error {
	if !ok {
		return ErrForbidden
	}
	return nil
}
