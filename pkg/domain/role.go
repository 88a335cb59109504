package domain

import dErrors "krishichain/pkg/domain-errors"

// Role is a participant's position in the supply chain. Roles are immutable
// once a participant is registered.
type Role string

const (
	RoleFarmer      Role = "farmer"
	RoleDistributor Role = "distributor"
	RoleRetailer    Role = "retailer"
	RoleCustomer    Role = "customer"
)

// validRoles is the single source of truth for supported roles.
var validRoles = map[Role]bool{
	RoleFarmer:      true,
	RoleDistributor: true,
	RoleRetailer:    true,
	RoleCustomer:    true,
}

// IsValid reports whether the role is one of the supported values.
func (r Role) IsValid() bool { return validRoles[r] }

func (r Role) String() string { return string(r) }

// ParseRole constructs a Role from external input.
// Errors: CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported role: "+s)
	}
	return r, nil
}
