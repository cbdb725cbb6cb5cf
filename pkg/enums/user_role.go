package enums

import "fmt"

// UserRole is the marketplace-wide role stored on users.role.
type UserRole string

const (
	UserRoleBuyer           UserRole = "buyer"
	UserRoleArtist          UserRole = "artist"
	UserRoleShop            UserRole = "shop"
	UserRoleDeliveryPartner UserRole = "delivery_partner"
	UserRoleModerator       UserRole = "moderator"
	UserRoleAdmin           UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleBuyer,
	UserRoleArtist,
	UserRoleShop,
	UserRoleDeliveryPartner,
	UserRoleModerator,
	UserRoleAdmin,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
