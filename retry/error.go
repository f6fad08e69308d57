package retry

type permanentError struct {
	error
}

func (e *permanentError) Unwrap() error {
	return e.error
}

// Abort wraps err so that Do stops retrying and returns err as is.
func Abort(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err}
}
