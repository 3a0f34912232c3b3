package resolver

import "fmt"

// ValidationError is returned when a required field is blank. It is raised
// before any gateway call or prompt.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// UserCancelledError is returned when the user declines to create a missing
// record.
type UserCancelledError struct {
	Entity string // "location", "trainer class" or "trainer"
	Name   string
}

func (e *UserCancelledError) Error() string {
	return fmt.Sprintf("creation of %s '%s' cancelled", e.Entity, e.Name)
}
