package students

import "errors"

var (
	// ErrStudentNotFound is returned when no student matches the lookup key.
	ErrStudentNotFound = errors.New("student not found")

	// ErrLinkConflict is returned when a registration is already linked to a
	// different phone, or the phone already belongs to another student.
	ErrLinkConflict = errors.New("registration already linked to another phone")
)
