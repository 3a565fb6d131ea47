package enums

import "fmt"

// AccessAction maps to the action column on access_logs.
type AccessAction string

const (
	AccessActionOpen  AccessAction = "open"
	AccessActionClose AccessAction = "close"
)

var validAccessActions = []AccessAction{
	AccessActionOpen,
	AccessActionClose,
}

// IsValid reports whether the value matches a canonical access action.
func (a AccessAction) IsValid() bool {
	for _, candidate := range validAccessActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAccessAction converts raw input into AccessAction.
func ParseAccessAction(value string) (AccessAction, error) {
	for _, candidate := range validAccessActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid access action %q", value)
}
