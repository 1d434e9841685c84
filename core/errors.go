package core

import "errors"

var (
	ErrMalformedGuardFile = errors.New("malformed steam guard file")
	ErrInvalidSecret      = errors.New("secret is not valid base32")
)
