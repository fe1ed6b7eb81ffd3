package booking

import "fmt"

// Role is a closed set of principal kinds. Handling is exhaustive: adding a
// role without updating the switches below is a compile-visible change, not a
// silent fallthrough on a string.
type Role uint8

const (
	RolePatient Role = iota
	RoleDoctor
	RoleAdmin
	RoleSuperAdmin
)

func ParseRole(s string) (Role, error) {
	switch s {
	case "PATIENT":
		return RolePatient, nil
	case "DOCTOR":
		return RoleDoctor, nil
	case "ADMIN":
		return RoleAdmin, nil
	case "SUPER_ADMIN":
		return RoleSuperAdmin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string {
	switch r {
	case RolePatient:
		return "PATIENT"
	case RoleDoctor:
		return "DOCTOR"
	case RoleAdmin:
		return "ADMIN"
	case RoleSuperAdmin:
		return "SUPER_ADMIN"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// CanCancelAppointment reports whether the role may cancel appointments at
// all; ownership checks are separate.
func (r Role) CanCancelAppointment() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// CanManageSlots gates slot generation and template administration.
func (r Role) CanManageSlots() bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin:
		return true
	case RolePatient, RoleDoctor:
		return false
	}
	return false
}
