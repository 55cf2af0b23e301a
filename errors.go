package regolith

import "fmt"

// Error is a typed interpreter failure surfaced through the facade.
// Codes follow the stable taxonomy of the ast package.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
