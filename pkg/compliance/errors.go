package compliance

import "errors"

var (
	ErrInvalidPolicy  = errors.New("invalid compliance policy")
	ErrUnknownVersion = errors.New("unknown policy version")
)
