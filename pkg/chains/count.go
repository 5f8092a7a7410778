package chains

import "github.com/JaimeStill/racksmith/pkg/adg"

// CountChainEntries walks the raw element arena, independently of Extract,
// and counts the elements held by every non-empty chain list. Keys are
// chain list paths, matching Chain.ListPath of the extracted chains.
func CountChainEntries(tree *adg.Tree) map[string]int {
	counts := make(map[string]int)
	for i := range tree.Len() {
		switch tree.Name(i) {
		case branchList, returnList:
			if n := len(tree.Children(i)); n > 0 {
				counts[tree.Path(i)] = n
			}
		}
	}
	return counts
}

// CountByList groups extracted chains by the chain list they came from.
func CountByList(list []Chain) map[string]int {
	counts := make(map[string]int)
	for i := range list {
		counts[list[i].ListPath()]++
	}
	return counts
}
