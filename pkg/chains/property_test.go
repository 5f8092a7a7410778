package chains_test

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/JaimeStill/racksmith/pkg/adg"
	"github.com/JaimeStill/racksmith/pkg/chains"
)

const shapeDepth = 4

// shape turns a stream of small integers into a rack document. Each rack
// reads its chain count from the stream, each chain its device count, and
// each device whether it is a nested rack. An exhausted stream reads as 0.
type shape struct {
	stream []int
	pos    int
	chains int
	b      strings.Builder
}

func (s *shape) next() int {
	if s.pos >= len(s.stream) {
		return 0
	}
	v := s.stream[s.pos]
	s.pos++
	return v
}

func (s *shape) rack(depth int) {
	s.b.WriteString(`<Device><AudioEffectGroupDevice/></Device>`)
	n := s.next()
	if n == 0 {
		return
	}
	s.b.WriteString(`<BranchPresets>`)
	for range n {
		s.chains++
		s.b.WriteString(`<AudioEffectBranchPreset><DevicePresets>`)
		for range s.next() {
			if depth < shapeDepth && s.next() >= 2 {
				s.b.WriteString(`<GroupDevicePreset>`)
				s.rack(depth + 1)
				s.b.WriteString(`</GroupDevicePreset>`)
				continue
			}
			s.b.WriteString(`<AudioEffectPreset><Device><Utility/></Device></AudioEffectPreset>`)
		}
		s.b.WriteString(`</DevicePresets></AudioEffectBranchPreset>`)
	}
	s.b.WriteString(`</BranchPresets>`)
}

func build(stream []int) (string, int) {
	s := &shape{stream: stream}
	s.b.WriteString(`<Ableton MajorVersion="5"><GroupDevicePreset>`)
	s.rack(0)
	s.b.WriteString(`</GroupDevicePreset></Ableton>`)
	return s.b.String(), s.chains
}

func TestExtractionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	streams := gen.SliceOf(gen.IntRange(0, 3))

	extractShape := func(stream []int) (*adg.Tree, *chains.Extraction, int, bool) {
		doc, want := build(stream)
		tree, err := adg.Read([]byte(doc), adg.Limits{})
		if err != nil {
			return nil, nil, 0, false
		}
		x, err := chains.Extract(tree, chains.Options{})
		if err != nil {
			return nil, nil, 0, false
		}
		return tree, x, want, true
	}

	properties.Property("every chain entry is extracted", prop.ForAll(
		func(stream []int) bool {
			tree, x, want, ok := extractShape(stream)
			if !ok || len(x.Chains) != want {
				return false
			}

			counted := chains.CountChainEntries(tree)
			extracted := chains.CountByList(x.Chains)
			if len(counted) != len(extracted) {
				return false
			}
			for list, n := range counted {
				if extracted[list] != n {
					return false
				}
			}
			return true
		},
		streams,
	))

	properties.Property("depth follows the parent chain", prop.ForAll(
		func(stream []int) bool {
			_, x, _, ok := extractShape(stream)
			if !ok {
				return false
			}

			index := make(map[string]chains.Chain, len(x.Chains))
			for _, c := range x.Chains {
				if c.ParentID == nil {
					if c.Depth != 0 {
						return false
					}
				} else {
					parent, found := index[*c.ParentID]
					if !found || c.Depth != parent.Depth+1 {
						return false
					}
				}
				index[c.Identifier] = c
			}
			return true
		},
		streams,
	))

	properties.Property("identifiers are unique and positions ordered", prop.ForAll(
		func(stream []int) bool {
			_, x, _, ok := extractShape(stream)
			if !ok {
				return false
			}

			seen := make(map[string]bool, len(x.Chains))
			for i, c := range x.Chains {
				if seen[c.Identifier] || c.Position != i {
					return false
				}
				seen[c.Identifier] = true
			}
			return true
		},
		streams,
	))

	properties.Property("device counts match descriptors", prop.ForAll(
		func(stream []int) bool {
			_, x, _, ok := extractShape(stream)
			if !ok {
				return false
			}

			for _, c := range x.Chains {
				if c.DeviceCount != len(c.Devices) || c.IsEmpty != (c.DeviceCount == 0) {
					return false
				}
			}
			return true
		},
		streams,
	))

	properties.TestingRun(t)
}
