package config

import "errors"

// ErrInvalidValue indicates a configuration field is out of range.
var ErrInvalidValue = errors.New("invalid configuration value")
