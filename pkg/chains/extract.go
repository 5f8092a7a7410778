package chains

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JaimeStill/racksmith/pkg/adg"
	"github.com/JaimeStill/racksmith/pkg/params"
)

const (
	presetElement   = "GroupDevicePreset"
	deviceElement   = "Device"
	devicesElement  = "DevicePresets"
	branchSuffix    = "BranchPreset"
	parameterLevels = 3
)

// elements never read as device parameters; the chain lists are walked by
// the extractor itself
var skipParams = map[string]bool{
	branchList:      true,
	returnList:      true,
	devicesElement:  true,
	"LastPresetRef": true,
	"SourceContext": true,
}

// pending is a chain element waiting on the work stack.
type pending struct {
	entry   int
	parent  int
	depth   int
	ordinal int
	id      string
	kind    Kind
}

type extractor struct {
	tree  *adg.Tree
	opts  Options
	out   *Extraction
	stack []pending
}

// Extract discovers every chain of the top-level rack in tree and of every
// rack nested inside those chains. Chains that cannot be classified are
// kept with KindUnknown and reported in Warnings; only nesting beyond
// opts.MaxDepth fails the extraction, with an *adg.DepthError.
func Extract(tree *adg.Tree, opts Options) (*Extraction, error) {
	x := &extractor{
		tree: tree,
		opts: opts.resolve(),
		out: &Extraction{
			FormatVersion: tree.FormatVersion(),
			Chains:        []Chain{},
			Warnings:      []string{},
		},
	}

	preset := tree.Child(tree.Root(), presetElement)
	if preset < 0 {
		x.warn("no %s under %s", presetElement, tree.Path(tree.Root()))
		return x.out, nil
	}

	if name, ok := tree.Value(preset, "Name"); ok {
		x.out.RackName = strings.TrimSpace(name)
	}

	devices := deviceElements(tree, preset)
	if len(devices) == 0 {
		x.warn("rack preset %s has no device element", tree.Path(preset))
		return x.out, nil
	}

	rack := devices[0]
	x.out.RackType = tree.Name(rack)

	top, err := x.rackChains(preset, rack, -1, "", 0)
	if err != nil {
		return nil, err
	}
	x.push(top)

	for len(x.stack) > 0 {
		p := x.stack[len(x.stack)-1]
		x.stack = x.stack[:len(x.stack)-1]
		if err := x.visit(p); err != nil {
			return nil, err
		}
	}

	return x.out, nil
}

// push adds entries so that the first entry is popped first, keeping the
// output in pre-order with siblings in document order.
func (x *extractor) push(entries []pending) {
	for i := len(entries) - 1; i >= 0; i-- {
		x.stack = append(x.stack, entries[i])
	}
}

func (x *extractor) visit(p pending) error {
	t := x.tree
	idx := len(x.out.Chains)

	ch := Chain{
		Identifier: p.id,
		Name:       "Chain " + strconv.Itoa(p.ordinal+1),
		SourcePath: t.Path(p.entry),
		Depth:      p.depth,
		Position:   idx,
		Kind:       p.kind,
		Devices:    []Device{},
	}
	if name, ok := t.Value(p.entry, "Name"); ok && strings.TrimSpace(name) != "" {
		ch.Name = name
	}
	if p.parent >= 0 {
		parentID := x.out.Chains[p.parent].Identifier
		ch.ParentID = &parentID
	}

	var nested []pending
	if presets := t.Child(p.entry, devicesElement); presets >= 0 {
		for _, preset := range t.Children(presets) {
			elems := deviceElements(t, preset)
			if len(elems) == 0 {
				x.warn("device preset %s has no device element", t.Path(preset))
				ch.Kind = KindUnknown
				continue
			}

			for k, el := range elems {
				d := x.describe(el)

				owner := -1
				if k == 0 {
					owner = preset
				}
				prefix := p.id + ".d" + strconv.Itoa(len(ch.Devices)) + "."

				children, err := x.rackChains(owner, el, idx, prefix, p.depth+1)
				if err != nil {
					return err
				}
				for _, c := range children {
					d.Chains = append(d.Chains, c.id)
				}

				nested = append(nested, children...)
				ch.Devices = append(ch.Devices, d)
			}
		}
	}

	ch.DeviceCount = len(ch.Devices)
	ch.IsEmpty = ch.DeviceCount == 0
	x.out.Chains = append(x.out.Chains, ch)

	x.push(nested)
	return nil
}

// rackChains collects the chain elements held by the chain lists of a rack
// device, looking on the device element and on its enclosing preset.
// preset may be -1.
func (x *extractor) rackChains(preset, device, parent int, prefix string, depth int) ([]pending, error) {
	t := x.tree
	rackType := t.Name(device)

	var lists []int
	for _, owner := range []int{device, preset} {
		if owner < 0 {
			continue
		}
		for _, c := range t.Children(owner) {
			if name := t.Name(c); name == branchList || name == returnList {
				lists = append(lists, c)
			}
		}
	}

	known := IsRack(rackType)
	var out []pending
	counters := map[byte]int{}

	for _, list := range lists {
		entries := t.Children(list)
		if len(entries) == 0 {
			continue
		}
		if depth >= x.opts.MaxDepth {
			return nil, &adg.DepthError{
				Depth: depth + 1,
				Limit: x.opts.MaxDepth,
				Path:  t.Path(list),
			}
		}
		if !known && len(out) == 0 {
			x.warn("device %s at %s holds chains but is not a known rack type", rackType, t.Path(device))
		}

		isReturn := t.Name(list) == returnList
		for ordinal, entry := range entries {
			kind, letter := x.classify(rackType, known, isReturn, entry)
			id := prefix + string(letter) + strconv.Itoa(counters[letter])
			counters[letter]++

			out = append(out, pending{
				entry:   entry,
				parent:  parent,
				depth:   depth,
				ordinal: ordinal,
				id:      id,
				kind:    kind,
			})
		}
	}

	return out, nil
}

func (x *extractor) classify(rackType string, known, isReturn bool, entry int) (Kind, byte) {
	name := x.tree.Name(entry)

	switch {
	case isReturn:
		if !strings.HasSuffix(name, branchSuffix) {
			x.warn("unexpected return chain element %s at %s", name, x.tree.Path(entry))
			return KindUnknown, 'r'
		}
		return KindReturn, 'r'
	case !known:
		return KindUnknown, 'c'
	case !acceptsBranch(rackType, name):
		x.warn("unexpected chain element %s in %s at %s", name, rackType, x.tree.Path(entry))
		return KindUnknown, 'c'
	case rackType == DrumRack:
		return KindDrumPad, 'p'
	default:
		return KindNormal, 'c'
	}
}

func (x *extractor) describe(el int) Device {
	t := x.tree
	typ := t.Name(el)
	std, _ := StandardName(typ)

	d := Device{
		Name:         std,
		Type:         typ,
		StandardName: std,
		Enabled:      true,
		Parameters:   parameters(t, el, parameterLevels),
	}

	if user, ok := t.Value(el, "UserName"); ok {
		if user = strings.TrimSpace(user); user != "" && user != std {
			d.Name = user
		}
	}

	if on, ok := manual(t, el, "On"); ok {
		d.Enabled = on == "true"
	}
	if bypass, ok := manual(t, el, "Bypass"); ok && bypass == "true" {
		d.Enabled = false
	}

	return d
}

func (x *extractor) warn(format string, args ...any) {
	x.out.Warnings = append(x.out.Warnings, fmt.Sprintf(format, args...))
}

// deviceElements returns the children of the Device element of a preset.
func deviceElements(t *adg.Tree, preset int) []int {
	dev := t.Child(preset, deviceElement)
	if dev < 0 {
		return nil
	}
	return t.Children(dev)
}

func manual(t *adg.Tree, el int, name string) (string, bool) {
	c := t.Child(el, name)
	if c < 0 {
		return "", false
	}
	return t.Value(c, "Manual")
}

// parameters reads every child carrying a Manual value. Children without
// one are searched for nested parameters down to levels deep.
func parameters(t *adg.Tree, el int, levels int) params.Map {
	var out params.Map

	for _, c := range t.Children(el) {
		name := t.Name(c)
		if skipParams[name] {
			continue
		}
		if _, exists := out[name]; exists {
			continue
		}

		var v params.Value
		if raw, ok := t.Value(c, "Manual"); ok {
			v = params.Parse(raw)
		} else if levels > 1 && len(t.Children(c)) > 0 {
			if nested := parameters(t, c, levels-1); len(nested) > 0 {
				v = nested
			}
		}
		if v == nil {
			continue
		}

		if out == nil {
			out = make(params.Map)
		}
		out[name] = v
	}

	return out
}
