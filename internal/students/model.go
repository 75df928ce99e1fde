package students

import "strings"

// Student is a cafeteria user identified by an externally issued
// registration number (prontuário). Active controls whether the automatic
// ordering job places lunches for them.
type Student struct {
	ID           int64
	Registration string
	Name         string
	Active       bool
}

// FirstName returns the leading word of the student's name for greetings.
func (s *Student) FirstName() string {
	if s == nil || s.Name == "" {
		return "Aluno"
	}
	return strings.Fields(s.Name)[0]
}

// FormattedRegistration renders the registration with its PT prefix, the
// form staff copy into the ordering site.
func (s *Student) FormattedRegistration() string {
	reg := strings.ToUpper(strings.TrimSpace(s.Registration))
	if strings.HasPrefix(reg, "PT") {
		return reg
	}
	return "PT" + reg
}

// Contact links a student to one inbound chat identifier. A student may
// accumulate several contacts because the transport substitutes opaque IDs
// for phone numbers over time.
type Contact struct {
	ID        int64
	StudentID int64
	Phone     string
}
