// Package chains discovers the nested chain hierarchy of a device-group
// document. Extraction walks the element tree with an explicit work stack,
// so hostile nesting fails with a depth error instead of exhausting the
// goroutine stack.
package chains

import (
	"path"

	"github.com/JaimeStill/racksmith/pkg/params"
)

// DefaultMaxDepth bounds chain nesting when Options.MaxDepth is unset.
const DefaultMaxDepth = 64

// Kind classifies a chain by the list it was found in.
type Kind string

const (
	KindNormal  Kind = "normal"
	KindReturn  Kind = "return"
	KindDrumPad Kind = "drum-pad"
	KindUnknown Kind = "unknown"
)

// Device describes one device inside a chain. Chains holds the identifiers
// of chains nested inside the device when it is itself a rack.
type Device struct {
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	StandardName string     `json:"standard_name"`
	Enabled      bool       `json:"enabled"`
	Parameters   params.Map `json:"parameters,omitempty"`
	Chains       []string   `json:"chains,omitempty"`
}

// Chain is one signal path of a rack. ParentID is nil for chains of the
// top-level rack.
type Chain struct {
	Identifier  string   `json:"identifier"`
	Name        string   `json:"name"`
	SourcePath  string   `json:"source_path"`
	ParentID    *string  `json:"parent_id"`
	Depth       int      `json:"depth"`
	Position    int      `json:"position"`
	DeviceCount int      `json:"device_count"`
	IsEmpty     bool     `json:"is_empty"`
	Kind        Kind     `json:"chain_kind"`
	Devices     []Device `json:"devices,omitempty"`
}

// ListPath returns the source path of the chain list holding c.
func (c *Chain) ListPath() string {
	return path.Dir(c.SourcePath)
}

// Extraction is the output of Extract. Chains are in pre-order with
// siblings in document order.
type Extraction struct {
	RackType      string   `json:"rack_type"`
	RackName      string   `json:"rack_name"`
	FormatVersion string   `json:"format_version"`
	Chains        []Chain  `json:"chains"`
	Warnings      []string `json:"warnings"`
}

// Options tunes extraction.
type Options struct {
	// MaxDepth is the number of chain levels allowed below the top-level
	// rack. Zero selects DefaultMaxDepth.
	MaxDepth int
}

func (o Options) resolve() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}

// MaxDepth returns the number of chain levels in list: 0 with no chains,
// 1 when only top-level chains exist.
func MaxDepth(list []Chain) int {
	levels := 0
	for i := range list {
		if d := list[i].Depth + 1; d > levels {
			levels = d
		}
	}
	return levels
}

// TotalDevices sums the device counts of every chain.
func TotalDevices(list []Chain) int {
	total := 0
	for i := range list {
		total += list[i].DeviceCount
	}
	return total
}

// DeviceTypeBreakdown counts devices by element type across every chain.
// Chains persisted without device descriptors contribute nothing.
func DeviceTypeBreakdown(list []Chain) map[string]int {
	out := make(map[string]int)
	for i := range list {
		for _, d := range list[i].Devices {
			out[d.Type]++
		}
	}
	return out
}
