package adg

import "slices"

// Default reader limits.
const (
	DefaultMaxDepth = 1024
	DefaultMaxBytes = 64 << 20
	DefaultMaxNodes = 2_000_000
)

// DefaultMajorVersions lists the MajorVersion values of the Ableton
// document root accepted when Limits.SupportedMajorVersions is empty.
var DefaultMajorVersions = []string{"4", "5"}

// Limits bounds the resources a single Read may consume.
// Zero fields fall back to the package defaults.
type Limits struct {
	MaxDepth               int
	MaxBytes               int64
	MaxNodes               int
	SupportedMajorVersions []string
}

func (l Limits) resolve() Limits {
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxBytes
	}
	if l.MaxNodes <= 0 {
		l.MaxNodes = DefaultMaxNodes
	}
	if len(l.SupportedMajorVersions) == 0 {
		l.SupportedMajorVersions = DefaultMajorVersions
	}
	return l
}

func (l Limits) supports(major string) bool {
	return slices.Contains(l.SupportedMajorVersions, major)
}
