package reminder

import "errors"

var (
	// ErrNotFound is returned for unknown, delivered or canceled ids.
	ErrNotFound = errors.New("reminder: not found")
	// ErrNotOwner is returned when someone other than the owner cancels.
	ErrNotOwner = errors.New("reminder: not owned by caller")
	ErrStopped  = errors.New("reminder: service stopped")
)

// ValidationError is a problem with user input. Its message is shown to the
// user as is and it is not logged as a fault.
type ValidationError struct {
	Title   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Title == "" {
		return e.Message
	}
	return e.Title + ": " + e.Message
}

// UserMessage is the text shown to the user.
func (e *ValidationError) UserMessage() string { return e.Message }

// UserTitle is the heading shown above UserMessage.
func (e *ValidationError) UserTitle() string { return e.Title }

func invalidDuration(msg string) error {
	return &ValidationError{Title: "Invalid duration!", Message: msg}
}

var (
	errNoDuration      = invalidDuration("The duration wasn't specified or it was invalid!")
	errDuplicateUnits  = invalidDuration("There were duplicate units in the duration!")
	errZeroAmount      = invalidDuration("Amount can't be zero!")
	errDurationTooLong = invalidDuration("That duration is too long, the limit is 100 years!")
	errMissingText     = &ValidationError{Title: "Missing reminder!", Message: "You need to specify a reminder!"}
)
