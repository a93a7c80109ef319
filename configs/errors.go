package configs

import "errors"

var (
	ErrInvalidURL     = errors.New("invalid url")
	ErrInvalidPattern = errors.New("invalid ignore pattern")
	ErrInvalidOption  = errors.New("invalid option")
)
