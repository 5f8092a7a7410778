package adg

import (
	"errors"
	"fmt"
)

var (
	// ErrParse classifies every failure to turn a byte stream into a Tree.
	ErrParse = errors.New("document parse failed")
	// ErrDepthExceeded indicates nesting beyond the configured limit.
	// It is a parse-class failure: errors matching it also match ErrParse.
	ErrDepthExceeded = errors.New("document nesting depth exceeded")
)

// ParseError kinds.
const (
	KindContainer = "container"
	KindTruncated = "truncated"
	KindSyntax    = "syntax"
	KindVersion   = "version"
	KindStructure = "structure"
	KindLimit     = "limit"
)

// ParseError describes a malformed, truncated, or unsupported document.
type ParseError struct {
	Kind   string
	Offset int64
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse %s: %s", e.Kind, e.Msg)
	if e.Offset > 0 {
		msg = fmt.Sprintf("%s (offset %d)", msg, e.Offset)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// DepthError reports that a push would exceed Limit.
type DepthError struct {
	Depth int
	Limit int
	Path  string
}

func (e *DepthError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("nesting depth %d exceeds limit %d at %s", e.Depth, e.Limit, e.Path)
	}
	return fmt.Sprintf("nesting depth %d exceeds limit %d", e.Depth, e.Limit)
}

func (e *DepthError) Is(target error) bool {
	return target == ErrDepthExceeded || target == ErrParse
}

func parseErr(kind string, offset int64, msg string, err error) *ParseError {
	return &ParseError{Kind: kind, Offset: offset, Msg: msg, Err: err}
}
