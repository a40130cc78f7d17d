package scene

import "strconv"

// Walk visits every node depth-first, parents before children. Returning
// false from fn skips the node's subtree.
func (s *Scene) Walk(fn func(n *Node) bool) {
	if s.Root == nil {
		return
	}
	walk(s.Root, fn)
}

func walk(n *Node, fn func(n *Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		walk(c, fn)
	}
}

// Nodes returns every node in the graph keyed by name.
func (s *Scene) Nodes() map[string]*Node {
	nodes := make(map[string]*Node)
	s.Walk(func(n *Node) bool {
		nodes[n.Name] = n
		return true
	})
	return nodes
}

// FindNode returns the node called name, or nil.
func (s *Scene) FindNode(name string) *Node {
	var found *Node
	s.Walk(func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.Name == name {
			found = n
			return false
		}
		return true
	})
	return found
}

// NameSet hands out node names that are unique within one graph.
type NameSet struct {
	used map[string]bool
	next map[string]int
}

// NewNameSet returns an empty NameSet.
func NewNameSet() *NameSet {
	return &NameSet{used: make(map[string]bool), next: make(map[string]int)}
}

// Unique returns name, or name with a numeric suffix when it is already
// taken. An empty name is replaced by fallback first.
func (ns *NameSet) Unique(name, fallback string) string {
	if name == "" {
		name = fallback
	}
	candidate := name
	for ns.used[candidate] {
		ns.next[name]++
		candidate = name + "_" + strconv.Itoa(ns.next[name])
	}
	ns.used[candidate] = true
	return candidate
}
