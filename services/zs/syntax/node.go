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

// Node is a handle to one arena entry.
//
// Description:
//
//	Node is a small value type and is comparable with ==. The zero Node
//	stands for "no node"; every query on it returns zero values, so callers
//	can chain lookups such as n.ChildForFieldName("type").LastChild()
//	without checking each step.
type Node struct {
	tree *Tree
	id   NodeID
}

// IsNull reports whether n refers to no node.
func (n Node) IsNull() bool {
	return n.tree == nil
}

// ID returns the arena index, or NoNode for the null node.
func (n Node) ID() NodeID {
	if n.tree == nil {
		return NoNode
	}
	return n.id
}

// Tree returns the owning tree.
func (n Node) Tree() *Tree {
	return n.tree
}

func (n Node) e() *entry {
	return &n.tree.nodes[n.id]
}

// Kind returns the node kind. The null node reports KindUnknown.
func (n Node) Kind() Kind {
	if n.tree == nil {
		return KindUnknown
	}
	return n.e().kind
}

// Type returns the grammar type string. Anonymous tokens return their
// literal text and foreign node types keep their original name.
func (n Node) Type() string {
	if n.tree == nil {
		return ""
	}
	e := n.e()
	if e.kind == KindToken || e.kind == KindUnknown {
		return e.symbol
	}
	return e.kind.String()
}

// Is reports whether the node's kind is one of kinds.
func (n Node) Is(kinds ...Kind) bool {
	return !n.IsNull() && n.Kind().In(kinds...)
}

// IsNamed reports whether the node is a named grammar node.
func (n Node) IsNamed() bool {
	return n.tree != nil && n.e().named
}

// IsMissing reports whether the node was inserted by error recovery.
func (n Node) IsMissing() bool {
	return n.tree != nil && n.e().missing
}

// IsError reports whether the node is an ERROR node.
func (n Node) IsError() bool {
	return n.Kind() == KindError
}

// HasError reports whether the node or any descendant is an ERROR or
// MISSING node.
func (n Node) HasError() bool {
	if n.IsNull() {
		return false
	}
	if n.IsError() || n.IsMissing() {
		return true
	}
	for _, c := range n.e().children {
		if (Node{tree: n.tree, id: c}).HasError() {
			return true
		}
	}
	return false
}

// StartByte returns the byte offset where the node begins.
func (n Node) StartByte() int {
	if n.tree == nil {
		return 0
	}
	return n.e().start
}

// EndByte returns the byte offset just past the node.
func (n Node) EndByte() int {
	if n.tree == nil {
		return 0
	}
	return n.e().end
}

// StartPoint returns the start position.
func (n Node) StartPoint() Point {
	if n.tree == nil {
		return Point{}
	}
	return n.e().startPt
}

// EndPoint returns the end position (exclusive).
func (n Node) EndPoint() Point {
	if n.tree == nil {
		return Point{}
	}
	return n.e().endPt
}

// Text returns the source text covered by the node.
func (n Node) Text() string {
	if n.tree == nil {
		return ""
	}
	e := n.e()
	return string(n.tree.source[e.start:e.end])
}

// FieldName returns the field this node occupies in its parent, if any.
func (n Node) FieldName() string {
	if n.tree == nil {
		return ""
	}
	return n.e().field
}

// Parent returns the parent node, or the null node for the root.
func (n Node) Parent() Node {
	if n.tree == nil || n.e().parent == NoNode {
		return Node{}
	}
	return Node{tree: n.tree, id: n.e().parent}
}

// ChildCount returns the number of children, named or not.
func (n Node) ChildCount() int {
	if n.tree == nil {
		return 0
	}
	return len(n.e().children)
}

// Child returns the i-th child or the null node.
func (n Node) Child(i int) Node {
	if n.tree == nil || i < 0 || i >= len(n.e().children) {
		return Node{}
	}
	return Node{tree: n.tree, id: n.e().children[i]}
}

// Children returns every child in source order.
func (n Node) Children() []Node {
	if n.tree == nil {
		return nil
	}
	ids := n.e().children
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = Node{tree: n.tree, id: id}
	}
	return out
}

// NamedChildren returns children excluding anonymous tokens.
func (n Node) NamedChildren() []Node {
	if n.tree == nil {
		return nil
	}
	var out []Node
	for _, id := range n.e().children {
		if n.tree.nodes[id].named {
			out = append(out, Node{tree: n.tree, id: id})
		}
	}
	return out
}

// FirstChild returns the first child.
func (n Node) FirstChild() Node {
	return n.Child(0)
}

// LastChild returns the last child.
func (n Node) LastChild() Node {
	return n.Child(n.ChildCount() - 1)
}

// NextSibling returns the following sibling.
func (n Node) NextSibling() Node {
	return n.sibling(1)
}

// PrevSibling returns the preceding sibling.
func (n Node) PrevSibling() Node {
	return n.sibling(-1)
}

func (n Node) sibling(delta int) Node {
	p := n.Parent()
	if p.IsNull() {
		return Node{}
	}
	for i, id := range p.e().children {
		if id == n.id {
			return p.Child(i + delta)
		}
	}
	return Node{}
}

// ChildForFieldName returns the first child stored under field.
func (n Node) ChildForFieldName(field string) Node {
	if n.tree == nil {
		return Node{}
	}
	for _, id := range n.e().children {
		if n.tree.nodes[id].field == field {
			return Node{tree: n.tree, id: id}
		}
	}
	return Node{}
}

// ChildrenForFieldName returns every child stored under field.
func (n Node) ChildrenForFieldName(field string) []Node {
	if n.tree == nil {
		return nil
	}
	var out []Node
	for _, id := range n.e().children {
		if n.tree.nodes[id].field == field {
			out = append(out, Node{tree: n.tree, id: id})
		}
	}
	return out
}
