package policy

import "errors"

var (
	ErrTemplateNotFound  = errors.New("policy template not found")
	ErrTemplateProtected = errors.New("default policy template cannot be modified or deleted")
	ErrNoCompanyPolicy   = errors.New("company has no calculation policy")
)

// ValidationError rejects a malformed policy edit. It is surfaced to the
// caller and never auto-corrected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "policy validation failed: " + e.Field + " " + e.Reason
}

// ConfigurationError is fatal: calculation must not proceed on top of an
// unresolvable or half-formed policy.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "policy configuration error: " + e.Reason
}
