package event

// CascadeNode is one node of a consequence tree. Depth is counted from the
// root (root = 0).
type CascadeNode struct {
	Event    *Event         `json:"event"`
	Depth    int            `json:"depth"`
	Children []*CascadeNode `json:"children,omitempty"`
}

// Cascade builds the tree formed by recursively following Consequences links
// from the root event, down to maxDepth levels below the root.
//
// The cause/consequence graph is authored by domain systems and is not
// guaranteed acyclic, so traversal carries a visited-id set: an event already
// in the tree is never expanded again, and a cycle back to an ancestor is
// simply cut. Consequence ids that are missing from the log are skipped. The
// result is therefore always a finite partial tree, never an error.
func Cascade(log *Log, root ID, maxDepth int) (*CascadeNode, error) {
	rootEvent, err := log.ByID(root)
	if err != nil {
		return nil, err
	}
	visited := map[ID]struct{}{root: {}}
	node := &CascadeNode{Event: rootEvent, Depth: 0}
	expand(log, node, maxDepth, visited)
	return node, nil
}

func expand(log *Log, node *CascadeNode, maxDepth int, visited map[ID]struct{}) {
	if node.Depth >= maxDepth {
		return
	}
	for _, id := range node.Event.Consequences {
		if _, seen := visited[id]; seen {
			continue
		}
		child, err := log.ByID(id)
		if err != nil {
			continue
		}
		visited[id] = struct{}{}
		childNode := &CascadeNode{Event: child, Depth: node.Depth + 1}
		node.Children = append(node.Children, childNode)
		expand(log, childNode, maxDepth, visited)
	}
}

// CascadeSize returns the number of events in the tree, root included.
func CascadeSize(node *CascadeNode) int {
	if node == nil {
		return 0
	}
	n := 1
	for _, child := range node.Children {
		n += CascadeSize(child)
	}
	return n
}
