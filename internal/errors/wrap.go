package errors

// New creates a new InternalError with a machine code and message
func New(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a machine code and message
func Wrap(err error, code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
