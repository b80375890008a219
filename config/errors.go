package config

import "errors"

var (
	// ErrUnsupportedFile indicates a configuration file with an unknown extension.
	ErrUnsupportedFile = errors.New("unsupported configuration file")
	// ErrInvalidConfig indicates a configuration value that failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)
