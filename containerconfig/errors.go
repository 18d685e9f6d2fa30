package containerconfig

import "errors"

// ErrInvalidArgument indicates a setter was handed a value that can never
// be part of a valid container configuration. The failing call leaves the
// builder unchanged.
var ErrInvalidArgument = errors.New("containerconfig: invalid argument")
