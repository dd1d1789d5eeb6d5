package authz

import (
	"strings"
)

const (
	rolePrefix       = "role"
	subjectSeparator = ":"

	// ActionCommit is the action checked before a request kind may be applied.
	ActionCommit = "commit"
)

// Request encapsulates all parameters required to evaluate a Casbin rule.
type Request struct {
	Subject string
	Object  string
	Action  string
}

// NewRequest constructs a Request with normalized parts.
func NewRequest(subject, object, action string) Request {
	return Request{
		Subject: subject,
		Object:  strings.ToLower(strings.TrimSpace(object)),
		Action:  NormalizeAction(action),
	}
}

// SubjectForRole returns the canonical identifier for a role-based subject.
func SubjectForRole(roleSlug string) string {
	roleSlug = strings.TrimSpace(roleSlug)
	if roleSlug == "" {
		roleSlug = "unnamed"
	}
	if strings.HasPrefix(roleSlug, rolePrefix+subjectSeparator) {
		return roleSlug
	}
	return rolePrefix + subjectSeparator + strings.ToLower(roleSlug)
}

// NormalizeAction returns a normalized action string.
func NormalizeAction(action string) string {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		return ActionCommit
	}
	return action
}
