package enums

import "fmt"

// UserStatus tracks whether an account may authenticate.
type UserStatus string

const (
	UserStatusUnverified UserStatus = "unverified"
	UserStatusVerified   UserStatus = "verified"
	UserStatusBanned     UserStatus = "banned"
)

var validUserStatuses = []UserStatus{
	UserStatusUnverified,
	UserStatusVerified,
	UserStatusBanned,
}

// String implements fmt.Stringer.
func (u UserStatus) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserStatus.
func (u UserStatus) IsValid() bool {
	for _, candidate := range validUserStatuses {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUserStatus converts raw input into a UserStatus.
func ParseUserStatus(value string) (UserStatus, error) {
	for _, candidate := range validUserStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user status %q", value)
}
