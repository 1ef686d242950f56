// trace_tree.go - Arena-backed call/loop tree with display line bookkeeping

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"unsafe"
)

// TraceNodeKind identifies what a tree node represents.
type TraceNodeKind uint8

const (
	TraceNodeRoot TraceNodeKind = iota
	TraceNodeInstructions
	TraceNodeRepeat
	TraceNodeLabel
	TraceNodeInterrupt
)

func (k TraceNodeKind) String() string {
	switch k {
	case TraceNodeRoot:
		return "root"
	case TraceNodeInstructions:
		return "insns"
	case TraceNodeRepeat:
		return "repeat"
	case TraceNodeLabel:
		return "label"
	case TraceNodeInterrupt:
		return "interrupt"
	default:
		return fmt.Sprintf("kind%d", uint8(k))
	}
}

// NodeRef addresses a node in a CallTree. A ref goes stale when its node is
// removed; stale and zero refs fail Valid.
type NodeRef struct {
	index uint32
	gen   uint32
}

// IsNil reports whether r is the zero ref.
func (r NodeRef) IsNil() bool { return r.index == 0 }

func (r NodeRef) String() string {
	if r.IsNil() {
		return "<nil>"
	}
	return fmt.Sprintf("#%d.%d", r.index, r.gen)
}

type treeNode struct {
	gen      uint32
	live     bool
	kind     TraceNodeKind
	expanded bool

	parent, prev, next uint32
	first, last        uint32
	children           int

	offset     int64 // first trace index (instruction runs)
	count      int   // instructions in a run
	blockSize  int
	iterations int
	text       string

	// lines is the number of visible display lines of this subtree.
	lines int
}

// CallTree owns every node of a trace tree. Index 0 is never allocated so the
// zero NodeRef is nil.
type CallTree struct {
	nodes []treeNode
	free  []uint32
	root  uint32
	live  int
}

// NewCallTree creates a tree holding only the root.
func NewCallTree() *CallTree {
	t := &CallTree{}
	t.Clear()
	return t
}

// Clear discards every node except the root. Refs to discarded nodes go stale.
func (t *CallTree) Clear() {
	if t.nodes == nil {
		t.nodes = make([]treeNode, 2, 1024)
		t.nodes[1].gen = 1
	}
	t.free = t.free[:0]
	for i := len(t.nodes) - 1; i >= 2; i-- {
		n := &t.nodes[i]
		if n.live {
			n.gen++
		}
		*n = treeNode{gen: n.gen}
		t.free = append(t.free, uint32(i))
	}
	t.root = 1
	t.nodes[1] = treeNode{gen: t.nodes[1].gen, live: true, kind: TraceNodeRoot, expanded: true}
	t.live = 1
}

func (t *CallTree) ref(idx uint32) NodeRef {
	if idx == 0 {
		return NodeRef{}
	}
	return NodeRef{index: idx, gen: t.nodes[idx].gen}
}

// Valid reports whether r addresses a live node.
func (t *CallTree) Valid(r NodeRef) bool {
	return r.index != 0 && int(r.index) < len(t.nodes) &&
		t.nodes[r.index].live && t.nodes[r.index].gen == r.gen
}

func (t *CallTree) node(r NodeRef) *treeNode {
	if !t.Valid(r) {
		panic(fmt.Sprintf("CallTree: stale node ref %v", r))
	}
	return &t.nodes[r.index]
}

func (t *CallTree) alloc(kind TraceNodeKind) uint32 {
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		t.nodes = append(t.nodes, treeNode{})
		idx = uint32(len(t.nodes) - 1)
	}
	n := &t.nodes[idx]
	*n = treeNode{gen: n.gen + 1, live: true, kind: kind, expanded: kind != TraceNodeRepeat}
	t.live++
	return idx
}

// Root returns the tree anchor.
func (t *CallTree) Root() NodeRef { return t.ref(t.root) }

// NodeCount returns the number of live nodes including the root.
func (t *CallTree) NodeCount() int { return t.live }

// Footprint returns the bytes held by the node arena.
func (t *CallTree) Footprint() int {
	return cap(t.nodes)*int(unsafe.Sizeof(treeNode{})) + cap(t.free)*4
}

func (t *CallTree) Kind(r NodeRef) TraceNodeKind { return t.node(r).kind }
func (t *CallTree) Parent(r NodeRef) NodeRef     { return t.ref(t.node(r).parent) }
func (t *CallTree) FirstChild(r NodeRef) NodeRef { return t.ref(t.node(r).first) }
func (t *CallTree) LastChild(r NodeRef) NodeRef  { return t.ref(t.node(r).last) }
func (t *CallTree) Next(r NodeRef) NodeRef       { return t.ref(t.node(r).next) }
func (t *CallTree) Prev(r NodeRef) NodeRef       { return t.ref(t.node(r).prev) }
func (t *CallTree) ChildCount(r NodeRef) int     { return t.node(r).children }
func (t *CallTree) Offset(r NodeRef) int64       { return t.node(r).offset }
func (t *CallTree) Count(r NodeRef) int          { return t.node(r).count }
func (t *CallTree) BlockSize(r NodeRef) int      { return t.node(r).blockSize }
func (t *CallTree) Iterations(r NodeRef) int     { return t.node(r).iterations }
func (t *CallTree) Text(r NodeRef) string        { return t.node(r).text }
func (t *CallTree) Expanded(r NodeRef) bool      { return t.node(r).expanded }

// IsLeafRun reports whether r is an instruction run without children.
func (t *CallTree) IsLeafRun(r NodeRef) bool {
	n := t.node(r)
	return n.kind == TraceNodeInstructions && n.children == 0
}

// RunEnd returns the trace offset just past an instruction run.
func (t *CallTree) RunEnd(r NodeRef) int64 {
	n := t.node(r)
	return n.offset + int64(n.count)
}

// headerLines is the number of lines a node shows before its children.
func headerLines(n *treeNode) int {
	switch n.kind {
	case TraceNodeRoot:
		return 0
	case TraceNodeInstructions:
		return n.count
	default:
		return 1
	}
}

func childrenVisible(n *treeNode) bool {
	return n.kind == TraceNodeRoot || n.expanded
}

// bubble applies a change of delta lines in idx's subtree to its ancestors,
// stopping at the first collapsed one.
func (t *CallTree) bubble(idx uint32, delta int) {
	if delta == 0 {
		return
	}
	for p := t.nodes[idx].parent; p != 0; p = t.nodes[p].parent {
		pn := &t.nodes[p]
		if !childrenVisible(pn) {
			return
		}
		pn.lines += delta
	}
}

// link inserts the detached node idx under parent after sibling after (0 = first).
func (t *CallTree) link(idx, parent, after uint32) {
	n := &t.nodes[idx]
	p := &t.nodes[parent]
	n.parent = parent
	n.prev = after
	if after == 0 {
		n.next = p.first
		p.first = idx
	} else {
		a := &t.nodes[after]
		if a.parent != parent {
			panic(fmt.Sprintf("CallTree: insert after #%d which is not a child of #%d", after, parent))
		}
		n.next = a.next
		a.next = idx
	}
	if n.next != 0 {
		t.nodes[n.next].prev = idx
	} else {
		p.last = idx
	}
	p.children++
}

// InsertNode creates a node of the given kind under parent after sibling
// after. A nil after inserts the node as the first child.
func (t *CallTree) InsertNode(parent, after NodeRef, offset int64, kind TraceNodeKind) NodeRef {
	t.node(parent)
	if kind == TraceNodeRoot {
		panic("CallTree: cannot insert a root")
	}
	var afterIdx uint32
	if !after.IsNil() {
		t.node(after)
		afterIdx = after.index
	}
	idx := t.alloc(kind)
	n := &t.nodes[idx]
	n.offset = offset
	n.lines = 1
	if kind == TraceNodeInstructions {
		n.count = 1
	}
	t.link(idx, parent.index, afterIdx)
	t.bubble(idx, n.lines)
	return t.ref(idx)
}

// InsertLabel creates a text node (Label or Interrupt marker).
func (t *CallTree) InsertLabel(parent, after NodeRef, kind TraceNodeKind, text string) NodeRef {
	r := t.InsertNode(parent, after, -1, kind)
	t.nodes[r.index].text = text
	return r
}

// GrowRun adds n instructions to the end of a run.
func (t *CallTree) GrowRun(r NodeRef, n int) {
	nd := t.node(r)
	nd.count += n
	nd.lines += n
	t.bubble(r.index, n)
}

// SplitRun splits a childless run after its first at instructions and returns
// the node holding the remainder, inserted as the next sibling.
func (t *CallTree) SplitRun(r NodeRef, at int) NodeRef {
	nd := t.node(r)
	if nd.kind != TraceNodeInstructions || nd.children != 0 || at <= 0 || at >= nd.count {
		panic(fmt.Sprintf("CallTree: bad split of %v at %d", r, at))
	}
	idx := t.alloc(TraceNodeInstructions)
	nd = &t.nodes[r.index]
	tail := &t.nodes[idx]
	tail.offset = nd.offset + int64(at)
	tail.count = nd.count - at
	tail.lines = tail.count
	nd.count = at
	nd.lines = at
	t.link(idx, nd.parent, r.index)
	return t.ref(idx)
}

// SetRepeat records the loop attributes of a Repeat node.
func (t *CallTree) SetRepeat(r NodeRef, blockSize, iterations int) {
	nd := t.node(r)
	nd.blockSize = blockSize
	nd.iterations = iterations
}

// SpliceNodes moves the sibling range first..last (inclusive) under
// newParent after sibling after.
func (t *CallTree) SpliceNodes(first, last, newParent, after NodeRef) {
	fn := t.node(first)
	t.node(last)
	t.node(newParent)
	oldParent := fn.parent

	moved, lines := 0, 0
	for i := first.index; ; i = t.nodes[i].next {
		if i == 0 || t.nodes[i].parent != oldParent {
			panic(fmt.Sprintf("CallTree: splice range %v..%v is not a sibling run", first, last))
		}
		if i == newParent.index {
			panic("CallTree: splice into own range")
		}
		moved++
		lines += t.nodes[i].lines
		if i == last.index {
			break
		}
	}

	t.bubble(first.index, -lines)

	op := &t.nodes[oldParent]
	before, beyond := t.nodes[first.index].prev, t.nodes[last.index].next
	if before == 0 {
		op.first = beyond
	} else {
		t.nodes[before].next = beyond
	}
	if beyond == 0 {
		op.last = before
	} else {
		t.nodes[beyond].prev = before
	}
	op.children -= moved

	np := &t.nodes[newParent.index]
	var afterIdx uint32
	if !after.IsNil() {
		if t.node(after).parent != newParent.index {
			panic(fmt.Sprintf("CallTree: splice after %v which is not a child of %v", after, newParent))
		}
		afterIdx = after.index
	}
	var follow uint32
	if afterIdx == 0 {
		follow = np.first
		np.first = first.index
	} else {
		follow = t.nodes[afterIdx].next
		t.nodes[afterIdx].next = first.index
	}
	t.nodes[first.index].prev = afterIdx
	t.nodes[last.index].next = follow
	if follow == 0 {
		np.last = last.index
	} else {
		t.nodes[follow].prev = last.index
	}
	np.children += moved
	for i := first.index; ; i = t.nodes[i].next {
		t.nodes[i].parent = newParent.index
		if i == last.index {
			break
		}
	}

	t.bubble(first.index, lines)
}

// RemoveNode unlinks r and frees its whole subtree.
func (t *CallTree) RemoveNode(r NodeRef) {
	nd := t.node(r)
	if nd.kind == TraceNodeRoot {
		panic("CallTree: cannot remove the root")
	}
	t.bubble(r.index, -nd.lines)
	p := &t.nodes[nd.parent]
	if nd.prev == 0 {
		p.first = nd.next
	} else {
		t.nodes[nd.prev].next = nd.next
	}
	if nd.next == 0 {
		p.last = nd.prev
	} else {
		t.nodes[nd.next].prev = nd.prev
	}
	p.children--
	t.release(r.index)
}

func (t *CallTree) release(idx uint32) {
	for c := t.nodes[idx].first; c != 0; {
		next := t.nodes[c].next
		t.release(c)
		c = next
	}
	n := &t.nodes[idx]
	*n = treeNode{gen: n.gen}
	t.free = append(t.free, idx)
	t.live--
}

func (t *CallTree) childLines(idx uint32) int {
	sum := 0
	for c := t.nodes[idx].first; c != 0; c = t.nodes[c].next {
		sum += t.nodes[c].lines
	}
	return sum
}

// SetExpanded shows or hides the children of r.
func (t *CallTree) SetExpanded(r NodeRef, expanded bool) {
	nd := t.node(r)
	if nd.kind == TraceNodeRoot || nd.expanded == expanded {
		return
	}
	delta := t.childLines(r.index)
	if !expanded {
		delta = -delta
	}
	nd.expanded = expanded
	nd.lines += delta
	t.bubble(r.index, delta)
}

// ExpandAll expands or collapses every node of the given kind.
func (t *CallTree) ExpandAll(kind TraceNodeKind, expanded bool) {
	t.expandSubtree(t.root, kind, expanded)
}

func (t *CallTree) expandSubtree(idx uint32, kind TraceNodeKind, expanded bool) {
	for c := t.nodes[idx].first; c != 0; c = t.nodes[c].next {
		t.expandSubtree(c, kind, expanded)
	}
	if t.nodes[idx].kind == kind {
		t.SetExpanded(t.ref(idx), expanded)
	}
}

// LineCount returns the number of visible display lines.
func (t *CallTree) LineCount() int { return t.nodes[t.root].lines }

// DisplayLine returns the first display line of r, or of its nearest
// visible ancestor when r is hidden inside a collapsed node.
func (t *CallTree) DisplayLine(r NodeRef) int {
	t.node(r)
	var path []uint32
	for i := r.index; i != t.root; i = t.nodes[i].parent {
		path = append(path, i)
	}
	line := 0
	p := t.root
	for i := len(path) - 1; i >= 0; i-- {
		pn := &t.nodes[p]
		if !childrenVisible(pn) {
			return line
		}
		c := path[i]
		suffix := 0
		for s := c; s != 0; s = t.nodes[s].next {
			suffix += t.nodes[s].lines
		}
		line += pn.lines - suffix
		p = c
	}
	return line
}

// verify checks the structural invariants of the whole tree.
func (t *CallTree) verify() error {
	live := 0
	for i := range t.nodes {
		if t.nodes[i].live {
			live++
		}
	}
	if live != t.live {
		return fmt.Errorf("live count %d, tree says %d", live, t.live)
	}
	seen := 0
	if _, err := t.verifyNode(t.root, &seen); err != nil {
		return err
	}
	if seen != t.live {
		return fmt.Errorf("%d nodes reachable, %d live", seen, t.live)
	}
	return nil
}

func (t *CallTree) verifyNode(idx uint32, seen *int) (int, error) {
	*seen++
	n := &t.nodes[idx]
	count, sum := 0, 0
	var prev uint32
	for c := n.first; c != 0; c = t.nodes[c].next {
		cn := &t.nodes[c]
		if !cn.live {
			return 0, fmt.Errorf("node #%d has dead child #%d", idx, c)
		}
		if cn.parent != idx {
			return 0, fmt.Errorf("node #%d child #%d has parent #%d", idx, c, cn.parent)
		}
		if cn.prev != prev {
			return 0, fmt.Errorf("node #%d prev link %d, want %d", c, cn.prev, prev)
		}
		lines, err := t.verifyNode(c, seen)
		if err != nil {
			return 0, err
		}
		sum += lines
		count++
		prev = c
	}
	if n.last != prev {
		return 0, fmt.Errorf("node #%d last child %d, want %d", idx, n.last, prev)
	}
	if n.children != count {
		return 0, fmt.Errorf("node #%d child count %d, want %d", idx, n.children, count)
	}
	switch n.kind {
	case TraceNodeInstructions:
		if n.count < 1 {
			return 0, fmt.Errorf("run #%d has %d instructions", idx, n.count)
		}
		if n.count > 1 && count > 0 {
			return 0, fmt.Errorf("run #%d of %d instructions has children", idx, n.count)
		}
	case TraceNodeRepeat:
		if n.blockSize < 1 || n.iterations < 2 {
			return 0, fmt.Errorf("repeat #%d block %d x%d", idx, n.blockSize, n.iterations)
		}
	}
	want := headerLines(n)
	if childrenVisible(n) {
		want += sum
	}
	if n.lines != want {
		return 0, fmt.Errorf("node #%d (%s) lines %d, want %d", idx, n.kind, n.lines, want)
	}
	return n.lines, nil
}
