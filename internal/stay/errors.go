package stay

import "errors"

var (
	// ErrStayNotFound / ErrPlotNotFound: a referenced id does not resolve
	// to an existing row.
	ErrStayNotFound = errors.New("stay not found")
	ErrPlotNotFound = errors.New("plot not found")

	// ErrConflict: a concurrent writer won the race (optimistic version
	// check or redis plot lock).
	ErrConflict = errors.New("conflicting concurrent update")

	// ErrValidation: malformed or inconsistent input, rejected before any
	// store write.
	ErrValidation = errors.New("validation failed")
)
