// Package conversation implements the per-user dialogue state machine:
// registration, preferences, dish blocking, and the cancellation flow with
// its confirmation step.
package conversation

// Step identifies where a user is in the dialogue.
type Step string

const (
	StepNew                 Step = "NEW"
	StepAwaitingConsent     Step = "AWAITING_CONSENT"
	StepAwaitingStudentID   Step = "AWAITING_STUDENT_ID"
	StepAwaitingWeekdays    Step = "AWAITING_WEEKDAYS"
	StepMainMenu            Step = "MAIN_MENU"
	StepSetWeekdays         Step = "SET_WEEKDAYS"
	StepSetBlockedDishes    Step = "SET_BLOCKED_DISHES"
	StepRemoveBlockedDishes Step = "REMOVE_BLOCKED_DISHES"
	StepConfirmCancellation Step = "CONFIRM_CANCELLATION"
)

// State is everything remembered about a user between messages. Dates are
// ISO (YYYY-MM-DD) strings so the state survives JSON round-trips without
// timezone drift.
type State struct {
	Step                Step   `json:"step"`
	StudentID           int64  `json:"student_id,omitempty"`
	PendingRegistration string `json:"pending_registration,omitempty"`
	PendingCancelDate   string `json:"pending_cancel_date,omitempty"`
	PendingCancelMethod string `json:"pending_cancel_method,omitempty"`
	LastCancelledDate   string `json:"last_cancelled_date,omitempty"`
}

// NewState is the state of a user who never talked to the bot.
func NewState() State {
	return State{Step: StepNew}
}

// clearTransient drops in-flight dialogue data while keeping identity and
// the duplicate-cancellation marker.
func (s *State) clearTransient() {
	s.PendingRegistration = ""
	s.PendingCancelDate = ""
	s.PendingCancelMethod = ""
}

// toMenu resets the user to the main menu, discarding transient data.
func (s *State) toMenu() {
	s.Step = StepMainMenu
	s.clearTransient()
}
