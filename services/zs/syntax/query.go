// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package syntax

// Closest returns the nearest strict ancestor whose kind is in kinds.
//
// Description:
//
//	The walk starts at the parent, so a node never matches itself.
//
// Outputs:
//
//	Node - The ancestor, or the null node when none matches.
func (n Node) Closest(kinds ...Kind) Node {
	for p := n.Parent(); !p.IsNull(); p = p.Parent() {
		if p.Kind().In(kinds...) {
			return p
		}
	}
	return Node{}
}

// DescendantsOfType returns nodes in the subtree rooted at n (n included)
// whose kind is in kinds, in pre-order.
func (n Node) DescendantsOfType(kinds ...Kind) []Node {
	if n.IsNull() {
		return nil
	}
	var out []Node
	stack := []NodeID{n.id}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.tree.nodes[id].kind.In(kinds...) {
			out = append(out, Node{tree: n.tree, id: id})
		}
		children := n.tree.nodes[id].children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out
}

// Walk visits the subtree rooted at n in pre-order. Returning false from fn
// skips the children of the visited node.
func (n Node) Walk(fn func(Node) bool) {
	if n.IsNull() {
		return
	}
	if !fn(n) {
		return
	}
	for _, id := range n.e().children {
		Node{tree: n.tree, id: id}.Walk(fn)
	}
}

// DescendantForPosition returns the smallest node whose span contains p.
//
// Description:
//
//	Spans are half-open: a node covers p when start <= p < end. Zero-width
//	nodes never match. When p is outside the node itself, n is returned
//	unchanged so callers always get a usable node.
//
// Inputs:
//
//	p - Zero-based row/column position.
//
// Outputs:
//
//	Node - The deepest covering node.
func (n Node) DescendantForPosition(p Point) Node {
	if n.IsNull() {
		return n
	}
	cur := n
descend:
	for {
		for _, id := range cur.e().children {
			e := &n.tree.nodes[id]
			if e.start == e.end {
				continue
			}
			if p.Before(e.startPt) {
				break
			}
			if p.Before(e.endPt) {
				cur = Node{tree: n.tree, id: id}
				continue descend
			}
		}
		return cur
	}
}

// NodeAt returns the smallest node containing p in the tree.
func (t *Tree) NodeAt(p Point) Node {
	return t.Root().DescendantForPosition(p)
}
