package mines

import "errors"

var (
	ErrInvalidParams = errors.New("invalid board params")
	ErrBadAction     = errors.New("action must be one of 'reveal', 'flag'")
)
