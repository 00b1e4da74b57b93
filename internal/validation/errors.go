package validation

import "fmt"

// ValidationError describes one invalid field in a request.
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects multiple field errors.
type ValidationErrors []ValidationError

// Add appends a field error.
func (v *ValidationErrors) Add(field, value, message string) {
	*v = append(*v, ValidationError{Field: field, Value: value, Message: message})
}

// HasErrors reports whether any errors were collected.
func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}
