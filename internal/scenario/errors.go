package scenario

import "fmt"

// NotFoundError reports a reference to a scenario id that does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("scenario %q not found", e.ID)
}

// DuplicateNameError reports a create or rename that collides with an
// existing scenario name.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("scenario name %q already exists", e.Name)
}
