package chains

import (
	"cmp"
	"slices"
)

// Node is a chain with its nested chains attached.
type Node struct {
	Chain
	Children []*Node `json:"children"`
}

// BuildTree reconstructs the hierarchy from a flat chain list. Roots and
// siblings keep Position order. A chain whose parent is missing from list
// is returned as a root so no chain is lost. Device descriptors are
// dropped unless includeDevices is set.
func BuildTree(list []Chain, includeDevices bool) []*Node {
	ordered := slices.Clone(list)
	slices.SortStableFunc(ordered, func(a, b Chain) int {
		return cmp.Compare(a.Position, b.Position)
	})

	byID := make(map[string]*Node, len(ordered))
	nodes := make([]*Node, len(ordered))
	for i := range ordered {
		n := &Node{Chain: ordered[i], Children: []*Node{}}
		if !includeDevices {
			n.Devices = nil
		}
		byID[n.Identifier] = n
		nodes[i] = n
	}

	roots := []*Node{}
	for _, n := range nodes {
		if n.ParentID != nil {
			if parent, ok := byID[*n.ParentID]; ok && parent != n {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	return roots
}

// Find returns the chain with the given identifier.
func Find(list []Chain, id string) (Chain, bool) {
	for i := range list {
		if list[i].Identifier == id {
			return list[i], true
		}
	}
	return Chain{}, false
}
