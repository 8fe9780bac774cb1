package enums

import "fmt"

// ConversationStatus tracks a support conversation through its lifecycle.
// pending: the customer has written and no staff member replied yet.
// open: a staff member is engaged. closed: resolved by staff.
type ConversationStatus string

const (
	ConversationStatusPending ConversationStatus = "pending"
	ConversationStatusOpen    ConversationStatus = "open"
	ConversationStatusClosed  ConversationStatus = "closed"
)

var validConversationStatuses = []ConversationStatus{
	ConversationStatusPending,
	ConversationStatusOpen,
	ConversationStatusClosed,
}

// String implements fmt.Stringer.
func (c ConversationStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ConversationStatus.
func (c ConversationStatus) IsValid() bool {
	for _, candidate := range validConversationStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseConversationStatus converts raw input into a ConversationStatus.
func ParseConversationStatus(value string) (ConversationStatus, error) {
	for _, candidate := range validConversationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid conversation status %q", value)
}

// ChatSenderRole identifies which side of a conversation sent a message.
type ChatSenderRole string

const (
	ChatSenderCustomer ChatSenderRole = "customer"
	ChatSenderStaff    ChatSenderRole = "staff"
)

// IsValid reports whether the value is a known ChatSenderRole.
func (c ChatSenderRole) IsValid() bool {
	return c == ChatSenderCustomer || c == ChatSenderStaff
}
