package guests

import "errors"

var (
	ErrGuestNotFound      = errors.New("Guest not found")
	ErrTagNotFound        = errors.New("Tag not found")
	ErrDuplicatePhone     = errors.New("A guest with this phone number already exists")
	ErrDuplicateTagName   = errors.New("A tag with this name already exists")
	ErrCodeSpaceExhausted = errors.New("No free entry codes left for this couple")
	ErrInvalidTag         = errors.New("One or more tag references are invalid")
	ErrInvalidInput       = errors.New("Invalid guest input")
)
