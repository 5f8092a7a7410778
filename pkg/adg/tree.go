package adg

import (
	"strconv"
	"strings"
)

// Attr is a single element attribute in document order.
type Attr struct {
	Name  string
	Value string
}

// Node is an element in the arena. Parent is -1 for the root.
type Node struct {
	Name     string
	Attrs    []Attr
	Parent   int
	Children []int
	Depth    int
}

// Tree is an arena of element nodes. Index 0 is the document root.
// Character data is not retained; the document format stores every
// value in attributes.
type Tree struct {
	nodes        []Node
	MajorVersion string
	MinorVersion string
	Creator      string
}

// Len returns the number of elements in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Root returns the index of the root element.
func (t *Tree) Root() int {
	return 0
}

// Node returns the element at index i.
func (t *Tree) Node(i int) *Node {
	return &t.nodes[i]
}

// Name returns the element name at index i.
func (t *Tree) Name(i int) string {
	return t.nodes[i].Name
}

// Children returns the child element indices of i in document order.
func (t *Tree) Children(i int) []int {
	return t.nodes[i].Children
}

// Attr returns the named attribute of element i.
func (t *Tree) Attr(i int, name string) (string, bool) {
	for _, a := range t.nodes[i].Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first child of i with the given name, or -1.
func (t *Tree) Child(i int, name string) int {
	for _, c := range t.nodes[i].Children {
		if t.nodes[c].Name == name {
			return c
		}
	}
	return -1
}

// Descend follows a chain of child names from i and returns the final
// index, or -1 if any step is missing.
func (t *Tree) Descend(i int, names ...string) int {
	for _, name := range names {
		if i < 0 {
			return -1
		}
		i = t.Child(i, name)
	}
	return i
}

// Value returns the Value attribute of the first child of i named name.
// This is how the format stores scalar properties: <Name Value="..."/>.
func (t *Tree) Value(i int, name string) (string, bool) {
	c := t.Child(i, name)
	if c < 0 {
		return "", false
	}
	return t.Attr(c, "Value")
}

// FormatVersion returns MajorVersion.MinorVersion of the document root.
func (t *Tree) FormatVersion() string {
	if t.MinorVersion == "" {
		return t.MajorVersion
	}
	return t.MajorVersion + "." + t.MinorVersion
}

// Path returns a slash-separated location of element i. Segments carry a
// [k] suffix when the parent holds more than one element of that name.
func (t *Tree) Path(i int) string {
	var segments []string
	for i >= 0 {
		segments = append(segments, t.segment(i))
		i = t.nodes[i].Parent
	}

	var b strings.Builder
	for k := len(segments) - 1; k >= 0; k-- {
		b.WriteByte('/')
		b.WriteString(segments[k])
	}
	return b.String()
}

func (t *Tree) segment(i int) string {
	n := &t.nodes[i]
	if n.Parent < 0 {
		return n.Name
	}

	pos, count := 0, 0
	for _, sib := range t.nodes[n.Parent].Children {
		if t.nodes[sib].Name != n.Name {
			continue
		}
		if sib == i {
			pos = count
		}
		count++
	}

	if count < 2 {
		return n.Name
	}
	return n.Name + "[" + strconv.Itoa(pos) + "]"
}
