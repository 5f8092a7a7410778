package chains_test

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/JaimeStill/racksmith/pkg/adg"
	"github.com/JaimeStill/racksmith/pkg/chains"
	"github.com/JaimeStill/racksmith/pkg/params"
)

func readTree(t *testing.T, doc string) *adg.Tree {
	t.Helper()
	tree, err := adg.Read([]byte(doc), adg.Limits{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return tree
}

func readFixture(t *testing.T, name string) *adg.Tree {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return readTree(t, string(data))
}

func extract(t *testing.T, tree *adg.Tree) *chains.Extraction {
	t.Helper()
	x, err := chains.Extract(tree, chains.Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return x
}

func TestExtractNestedRack(t *testing.T) {
	x := extract(t, readFixture(t, "nested.xml"))

	if x.RackType != chains.AudioEffectRack {
		t.Errorf("RackType = %q", x.RackType)
	}
	if x.RackName != "Parallel Space" {
		t.Errorf("RackName = %q", x.RackName)
	}
	if x.FormatVersion != "5.12.0_12049" {
		t.Errorf("FormatVersion = %q", x.FormatVersion)
	}
	if len(x.Warnings) != 0 {
		t.Errorf("Warnings = %v", x.Warnings)
	}

	tests := []struct {
		id      string
		name    string
		parent  string
		depth   int
		devices int
	}{
		{"c0", "Dry", "", 0, 0},
		{"c1", "Wet", "", 0, 1},
		{"c1.d0.c0", "Verb", "c1", 1, 2},
	}

	if len(x.Chains) != len(tests) {
		t.Fatalf("chain count = %d, want %d", len(x.Chains), len(tests))
	}

	for i, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			c := x.Chains[i]
			if c.Identifier != tt.id {
				t.Errorf("Identifier = %q", c.Identifier)
			}
			if c.Name != tt.name {
				t.Errorf("Name = %q", c.Name)
			}
			if c.Position != i {
				t.Errorf("Position = %d", c.Position)
			}
			if tt.parent == "" && c.ParentID != nil {
				t.Errorf("ParentID = %q, want nil", *c.ParentID)
			}
			if tt.parent != "" && (c.ParentID == nil || *c.ParentID != tt.parent) {
				t.Errorf("ParentID = %v, want %q", c.ParentID, tt.parent)
			}
			if c.Depth != tt.depth {
				t.Errorf("Depth = %d", c.Depth)
			}
			if c.DeviceCount != tt.devices || c.IsEmpty != (tt.devices == 0) {
				t.Errorf("DeviceCount = %d, IsEmpty = %v", c.DeviceCount, c.IsEmpty)
			}
			if c.Kind != chains.KindNormal {
				t.Errorf("Kind = %q", c.Kind)
			}
		})
	}

	if got := chains.MaxDepth(x.Chains); got != 2 {
		t.Errorf("MaxDepth = %d, want 2", got)
	}
	if got := chains.TotalDevices(x.Chains); got != 3 {
		t.Errorf("TotalDevices = %d, want 3", got)
	}

	breakdown := chains.DeviceTypeBreakdown(x.Chains)
	if breakdown["Reverb"] != 1 || breakdown["Eq8"] != 1 || breakdown[chains.AudioEffectRack] != 1 {
		t.Errorf("DeviceTypeBreakdown = %v", breakdown)
	}
}

func TestExtractDeviceDescriptors(t *testing.T) {
	x := extract(t, readFixture(t, "nested.xml"))

	rack := x.Chains[1].Devices[0]
	if rack.Name != "Space Rack" || rack.StandardName != "Audio Effect Rack" {
		t.Errorf("rack device = %+v", rack)
	}
	if len(rack.Chains) != 1 || rack.Chains[0] != "c1.d0.c0" {
		t.Errorf("rack device chains = %v", rack.Chains)
	}

	verb := x.Chains[2].Devices[0]
	if verb.Name != "Reverb" || !verb.Enabled {
		t.Errorf("reverb = %+v", verb)
	}
	if v, ok := verb.Parameters.Float("DecayTime"); !ok || v != 2500 {
		t.Errorf("DecayTime = %v, %v", v, ok)
	}
	if v, ok := verb.Parameters.Flag("On"); !ok || !v {
		t.Errorf("On = %v, %v", v, ok)
	}
	diffusion, ok := verb.Parameters.Nested("Diffusion")
	if !ok {
		t.Fatalf("Diffusion missing: %v", verb.Parameters)
	}
	if diffusion["Shape"] != params.String("Smooth") {
		t.Errorf("Diffusion.Shape = %#v", diffusion["Shape"])
	}

	eq := x.Chains[2].Devices[1]
	if eq.Name != "EQ Eight" || eq.Enabled {
		t.Errorf("eq = %+v", eq)
	}
}

func TestExtractEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		ids      []string
		kinds    []chains.Kind
		warnings int
	}{
		{
			name: "empty chain list",
			doc: `<Ableton MajorVersion="5"><GroupDevicePreset><Device><AudioEffectGroupDevice/></Device>
				<BranchPresets/></GroupDevicePreset></Ableton>`,
		},
		{
			name: "missing preset",
			doc:  `<Ableton MajorVersion="5"><DeviceChain/></Ableton>`,
			warnings: 1,
		},
		{
			name: "chain lists on the device element",
			doc: `<Ableton MajorVersion="5"><GroupDevicePreset><Device><InstrumentGroupDevice>
				<BranchPresets><InstrumentBranchPreset/><InstrumentBranchPreset/></BranchPresets>
				</InstrumentGroupDevice></Device></GroupDevicePreset></Ableton>`,
			ids:   []string{"c0", "c1"},
			kinds: []chains.Kind{chains.KindNormal, chains.KindNormal},
		},
		{
			name: "drum pads and returns",
			doc: `<Ableton MajorVersion="5"><GroupDevicePreset><Device><DrumGroupDevice/></Device>
				<BranchPresets><DrumBranchPreset/><DrumBranchPreset/></BranchPresets>
				<ReturnBranchPresets><AudioEffectBranchPreset/></ReturnBranchPresets>
				</GroupDevicePreset></Ableton>`,
			ids:   []string{"p0", "p1", "r0"},
			kinds: []chains.Kind{chains.KindDrumPad, chains.KindDrumPad, chains.KindReturn},
		},
		{
			name: "unknown rack type",
			doc: `<Ableton MajorVersion="5"><GroupDevicePreset><Device><FutureGroupDevice/></Device>
				<BranchPresets><FutureBranchPreset/></BranchPresets></GroupDevicePreset></Ableton>`,
			ids:      []string{"c0"},
			kinds:    []chains.Kind{chains.KindUnknown},
			warnings: 1,
		},
		{
			name: "unexpected branch element",
			doc: `<Ableton MajorVersion="5"><GroupDevicePreset><Device><MidiEffectGroupDevice/></Device>
				<BranchPresets><MidiEffectBranchPreset/><AudioEffectBranchPreset/></BranchPresets>
				</GroupDevicePreset></Ableton>`,
			ids:      []string{"c0", "c1"},
			kinds:    []chains.Kind{chains.KindNormal, chains.KindUnknown},
			warnings: 1,
		},
		{
			name: "device preset without device",
			doc: `<Ableton MajorVersion="5"><GroupDevicePreset><Device><AudioEffectGroupDevice/></Device>
				<BranchPresets><AudioEffectBranchPreset><DevicePresets><AudioEffectPreset/></DevicePresets>
				</AudioEffectBranchPreset></BranchPresets></GroupDevicePreset></Ableton>`,
			ids:      []string{"c0"},
			kinds:    []chains.Kind{chains.KindUnknown},
			warnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := readTree(t, tt.doc)
			x := extract(t, tree)

			if len(x.Chains) != len(tt.ids) {
				t.Fatalf("chain count = %d, want %d", len(x.Chains), len(tt.ids))
			}
			for i, c := range x.Chains {
				if c.Identifier != tt.ids[i] || c.Kind != tt.kinds[i] {
					t.Errorf("chain %d = %s/%s, want %s/%s", i, c.Identifier, c.Kind, tt.ids[i], tt.kinds[i])
				}
				if !c.IsEmpty {
					t.Errorf("chain %s should be empty", c.Identifier)
				}
			}
			if len(x.Warnings) != tt.warnings {
				t.Errorf("warnings = %v, want %d", x.Warnings, tt.warnings)
			}

			total := 0
			for _, n := range chains.CountChainEntries(tree) {
				total += n
			}
			if total != len(x.Chains) {
				t.Errorf("CountChainEntries total = %d, extracted %d", total, len(x.Chains))
			}
		})
	}
}

func TestExtractDepthExceeded(t *testing.T) {
	tree := readFixture(t, "nested.xml")

	_, err := chains.Extract(tree, chains.Options{MaxDepth: 1})
	if !errors.Is(err, adg.ErrDepthExceeded) {
		t.Fatalf("error = %v, want ErrDepthExceeded", err)
	}

	var de *adg.DepthError
	if !errors.As(err, &de) {
		t.Fatalf("error %T is not *adg.DepthError", err)
	}
	if de.Depth != 2 || de.Limit != 1 {
		t.Errorf("DepthError = %+v", de)
	}
	want := "/Ableton/GroupDevicePreset/BranchPresets/AudioEffectBranchPreset[1]/DevicePresets/GroupDevicePreset/BranchPresets"
	if de.Path != want {
		t.Errorf("Path = %q", de.Path)
	}

	if _, err := chains.Extract(tree, chains.Options{MaxDepth: 2}); err != nil {
		t.Errorf("MaxDepth 2 should pass: %v", err)
	}
}

// nestedRacks builds a rack whose single chain holds a rack, levels deep.
func nestedRacks(levels int) string {
	var b strings.Builder
	b.WriteString(`<Ableton MajorVersion="5"><GroupDevicePreset><Device><AudioEffectGroupDevice/></Device>`)
	for range levels {
		b.WriteString(`<BranchPresets><AudioEffectBranchPreset><DevicePresets><GroupDevicePreset>`)
		b.WriteString(`<Device><AudioEffectGroupDevice/></Device>`)
	}
	for range levels {
		b.WriteString(`</GroupDevicePreset></DevicePresets></AudioEffectBranchPreset></BranchPresets>`)
	}
	b.WriteString(`</GroupDevicePreset></Ableton>`)
	return b.String()
}

func TestExtractDeepNesting(t *testing.T) {
	const levels = 200

	tree, err := adg.Read([]byte(nestedRacks(levels)), adg.Limits{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	x, err := chains.Extract(tree, chains.Options{MaxDepth: levels})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(x.Chains) != levels {
		t.Fatalf("chain count = %d, want %d", len(x.Chains), levels)
	}
	if got := chains.MaxDepth(x.Chains); got != levels {
		t.Errorf("MaxDepth = %d, want %d", got, levels)
	}
	if last := x.Chains[levels-1]; last.Depth != levels-1 {
		t.Errorf("deepest chain depth = %d", last.Depth)
	}

	if _, err := chains.Extract(tree, chains.Options{}); !errors.Is(err, adg.ErrDepthExceeded) {
		t.Errorf("default limit should reject %d levels, got %v", levels, err)
	}
}

func TestBuildTreeGolden(t *testing.T) {
	x := extract(t, readFixture(t, "nested.xml"))

	data, err := json.MarshalIndent(chains.BuildTree(x.Chains, false), "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "hierarchy", data)
}

func TestBuildTreeIncludesDevices(t *testing.T) {
	x := extract(t, readFixture(t, "nested.xml"))

	roots := chains.BuildTree(x.Chains, true)
	if len(roots) != 2 {
		t.Fatalf("roots = %d, want 2", len(roots))
	}
	wet := roots[1]
	if len(wet.Devices) != 1 || len(wet.Children) != 1 {
		t.Fatalf("wet = %+v", wet)
	}
	if got := len(wet.Children[0].Devices); got != 2 {
		t.Errorf("nested devices = %d, want 2", got)
	}
}

func TestBuildTreeKeepsOrphans(t *testing.T) {
	missing := "gone"
	list := []chains.Chain{
		{Identifier: "c1", Position: 1, ParentID: &missing, Depth: 1},
		{Identifier: "c0", Position: 0},
	}

	roots := chains.BuildTree(list, false)
	if len(roots) != 2 || roots[0].Identifier != "c0" || roots[1].Identifier != "c1" {
		t.Errorf("roots = %+v", roots)
	}
}

func TestFind(t *testing.T) {
	x := extract(t, readFixture(t, "nested.xml"))

	c, ok := chains.Find(x.Chains, "c1.d0.c0")
	if !ok || c.Name != "Verb" {
		t.Errorf("Find = %+v, %v", c, ok)
	}
	if _, ok := chains.Find(x.Chains, "c9"); ok {
		t.Error("Find should miss unknown identifier")
	}
}
