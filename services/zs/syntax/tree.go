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

import (
	"fmt"
	"sort"
)

// NodeID addresses an entry in a Tree's node arena.
type NodeID int32

// NoNode is the NodeID of an absent node.
const NoNode NodeID = -1

// Point is a zero-based (row, column) source position. Column is a byte
// offset within the row.
type Point struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Before reports whether p sorts strictly before o.
func (p Point) Before(o Point) bool {
	if p.Row != o.Row {
		return p.Row < o.Row
	}
	return p.Column < o.Column
}

// String formats the point as "row:column".
func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Column)
}

// entry is one arena slot.
type entry struct {
	kind     Kind
	symbol   string
	named    bool
	missing  bool
	start    int
	end      int
	startPt  Point
	endPt    Point
	parent   NodeID
	field    string
	children []NodeID
}

// Tree is an immutable syntax tree stored as an arena of nodes.
//
// Description:
//
//	Nodes reference each other by NodeID. Every entry records its parent
//	index, so ancestor queries are index chasing instead of pointer graphs.
//	A Tree is built once by a Builder and never mutated afterwards.
//
// Thread Safety:
//
//	Safe for concurrent reads.
type Tree struct {
	source []byte
	nodes  []entry
	root   NodeID
	lines  []int
}

// Root returns the root node.
func (t *Tree) Root() Node {
	if t == nil || t.root == NoNode {
		return Node{}
	}
	return Node{tree: t, id: t.root}
}

// Source returns the bytes the tree was built from.
func (t *Tree) Source() []byte {
	return t.source
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the handle for id, or the null node if id is out of range.
func (t *Tree) Node(id NodeID) Node {
	if t == nil || id < 0 || int(id) >= len(t.nodes) {
		return Node{}
	}
	return Node{tree: t, id: id}
}

// PointAt converts a byte offset into a Point.
func (t *Tree) PointAt(offset int) Point {
	return pointAt(t.lines, offset)
}

// OffsetAt converts a Point into a byte offset, clamped to the source.
func (t *Tree) OffsetAt(p Point) int {
	if p.Row < 0 {
		return 0
	}
	if p.Row >= len(t.lines) {
		return len(t.source)
	}
	off := t.lines[p.Row] + p.Column
	if off > len(t.source) {
		return len(t.source)
	}
	return off
}

func lineStarts(src []byte) []int {
	lines := []int{0}
	for i, b := range src {
		if b == '\n' {
			lines = append(lines, i+1)
		}
	}
	return lines
}

func pointAt(lines []int, offset int) Point {
	row := sort.Search(len(lines), func(i int) bool { return lines[i] > offset }) - 1
	if row < 0 {
		row = 0
	}
	return Point{Row: row, Column: offset - lines[row]}
}

// =============================================================================
// BUILDER
// =============================================================================

// Child pairs a node with the field name it occupies in its parent.
type Child struct {
	ID    NodeID
	Field string
}

// Builder assembles a Tree bottom-up.
//
// Description:
//
//	Leaves are added first, then interior nodes referencing them. Finish
//	wires parent indices and computes row/column spans from byte offsets.
//	Parsers and tree adapters are the only expected callers.
//
// Thread Safety:
//
//	Not safe for concurrent use.
type Builder struct {
	tree *Tree
}

// NewBuilder starts a tree over src.
func NewBuilder(src []byte) *Builder {
	return &Builder{tree: &Tree{source: src, root: NoNode}}
}

// Leaf adds a childless node spanning src[start:end].
func (b *Builder) Leaf(kind Kind, symbol string, named bool, start, end int) NodeID {
	return b.add(entry{kind: kind, symbol: symbol, named: named, start: start, end: end})
}

// Missing adds a zero-width node the parser inserted during recovery.
func (b *Builder) Missing(kind Kind, symbol string, named bool, at int) NodeID {
	return b.add(entry{kind: kind, symbol: symbol, named: named, missing: true, start: at, end: at})
}

// Node adds an interior node. A node with children spans from its first
// child to its last; a childless node spans [at, at).
func (b *Builder) Node(kind Kind, at int, children []Child) NodeID {
	e := entry{kind: kind, named: true, start: at, end: at}
	if len(children) > 0 {
		e.start = b.tree.nodes[children[0].ID].start
		e.end = b.tree.nodes[children[len(children)-1].ID].end
	}
	id := b.add(e)
	ids := make([]NodeID, len(children))
	for i, c := range children {
		ids[i] = c.ID
		b.tree.nodes[c.ID].field = c.Field
	}
	b.tree.nodes[id].children = ids
	return id
}

// SetSpan overrides the byte span of id.
func (b *Builder) SetSpan(id NodeID, start, end int) {
	b.tree.nodes[id].start = start
	b.tree.nodes[id].end = end
}

// SetSymbol records the grammar type string of id. Adapters use it for
// node types outside the ZS vocabulary.
func (b *Builder) SetSymbol(id NodeID, symbol string) {
	b.tree.nodes[id].symbol = symbol
}

// SetMissing flags id as inserted by error recovery.
func (b *Builder) SetMissing(id NodeID) {
	b.tree.nodes[id].missing = true
}

// Unnamed marks id as an anonymous node.
func (b *Builder) Unnamed(id NodeID) {
	b.tree.nodes[id].named = false
}

// Finish seals the tree with root as its root node.
func (b *Builder) Finish(root NodeID) *Tree {
	t := b.tree
	t.root = root
	t.lines = lineStarts(t.source)
	for i := range t.nodes {
		t.nodes[i].parent = NoNode
	}
	for i := range t.nodes {
		for _, c := range t.nodes[i].children {
			t.nodes[c].parent = NodeID(i)
		}
		t.nodes[i].startPt = pointAt(t.lines, t.nodes[i].start)
		t.nodes[i].endPt = pointAt(t.lines, t.nodes[i].end)
	}
	b.tree = nil
	return t
}

func (b *Builder) add(e entry) NodeID {
	b.tree.nodes = append(b.tree.nodes, e)
	return NodeID(len(b.tree.nodes) - 1)
}
