package options

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrMissingParameter is matched by every MissingParameterError.
var ErrMissingParameter = errors.New("missing required parameter")

// MissingParameterError names the parameter an operation could not run without.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Name)
}

// Is reports whether target is ErrMissingParameter.
func (e *MissingParameterError) Is(target error) bool {
	return target == ErrMissingParameter
}

// Require checks that every name has a non-empty value in params and returns
// a *MissingParameterError for the first one that does not.
func Require(params url.Values, names ...string) error {
	for _, name := range names {
		if params.Get(name) == "" {
			return &MissingParameterError{Name: name}
		}
	}
	return nil
}
