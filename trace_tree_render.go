// trace_tree_render.go - Visible line extraction, structural dumps and digests for CallTree

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
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// TreeLine is one visible display line of a CallTree.
type TreeLine struct {
	Line     int
	Depth    int
	Node     NodeRef
	Kind     TraceNodeKind
	Offset   int64 // trace offset for instruction lines, -1 otherwise
	Text     string
	Block    int
	Count    int
	Expanded bool
	Children bool
}

// Lines returns up to count visible lines starting at display line from.
func (t *CallTree) Lines(from, count int) []TreeLine {
	if from < 0 {
		from = 0
	}
	if count <= 0 || from >= t.LineCount() {
		return nil
	}
	w := lineWalker{t: t, skip: from, want: count, line: from}
	w.walkChildren(t.root, 0)
	return w.out
}

type lineWalker struct {
	t    *CallTree
	skip int
	want int
	line int
	out  []TreeLine
}

func (w *lineWalker) done() bool { return len(w.out) >= w.want }

func (w *lineWalker) walkChildren(idx uint32, depth int) {
	for c := w.t.nodes[idx].first; c != 0 && !w.done(); c = w.t.nodes[c].next {
		n := &w.t.nodes[c]
		if w.skip >= n.lines {
			w.skip -= n.lines
			continue
		}
		w.walkNode(c, depth)
	}
}

func (w *lineWalker) walkNode(idx uint32, depth int) {
	n := &w.t.nodes[idx]
	base := TreeLine{
		Depth:    depth,
		Node:     w.t.ref(idx),
		Kind:     n.kind,
		Offset:   -1,
		Text:     n.text,
		Block:    n.blockSize,
		Count:    n.iterations,
		Expanded: n.expanded,
		Children: n.children > 0,
	}
	header := headerLines(n)
	if w.skip >= header {
		w.skip -= header
	} else {
		for i := w.skip; i < header && !w.done(); i++ {
			l := base
			l.Line = w.line
			if n.kind == TraceNodeInstructions {
				l.Offset = n.offset + int64(i)
				l.Count = n.count
				// only the last instruction of a run can own children
				l.Children = l.Children && i == header-1
			}
			w.out = append(w.out, l)
			w.line++
		}
		w.skip = 0
	}
	if childrenVisible(n) && !w.done() {
		w.walkChildren(idx, depth+1)
	}
}

// FindOffset returns the display line showing trace offset off, or -1 when
// the instruction is hidden or no longer in the tree.
func (t *CallTree) FindOffset(off int64) int {
	return t.locate(off, false)
}

// RevealOffset expands every collapsed node hiding trace offset off and
// returns its display line, or -1 when the offset is not in the tree.
func (t *CallTree) RevealOffset(off int64) int {
	return t.locate(off, true)
}

func (t *CallTree) locate(off int64, reveal bool) int {
	line := 0
	idx := t.root
	for {
		found := false
		for c := t.nodes[idx].first; c != 0; c = t.nodes[c].next {
			n := &t.nodes[c]
			if n.kind == TraceNodeInstructions && off >= n.offset && off < n.offset+int64(n.count) {
				return line + int(off-n.offset)
			}
			if n.children > 0 && off >= t.firstOffset(c) && off < t.endOffset(c) {
				if !childrenVisible(n) {
					if !reveal {
						return -1
					}
					t.SetExpanded(t.ref(c), true)
				}
				line += headerLines(n)
				idx = c
				found = true
				break
			}
			line += n.lines
		}
		if !found {
			return -1
		}
	}
}

func (t *CallTree) firstOffset(idx uint32) int64 {
	for ; idx != 0; idx = t.nodes[idx].first {
		if t.nodes[idx].kind == TraceNodeInstructions {
			return t.nodes[idx].offset
		}
		if t.nodes[idx].first == 0 {
			break
		}
	}
	return -1
}

func (t *CallTree) endOffset(idx uint32) int64 {
	for ; idx != 0; idx = t.nodes[idx].last {
		n := &t.nodes[idx]
		if n.last == 0 {
			if n.kind == TraceNodeInstructions {
				return n.offset + int64(n.count)
			}
			break
		}
	}
	return -1
}

// Dump writes one line per node, indented by depth, without line numbers or
// trace offsets so two builds of the same stream compare equal.
func (t *CallTree) Dump() string {
	var sb strings.Builder
	t.dumpChildren(&sb, t.root, 0)
	return sb.String()
}

func (t *CallTree) dumpChildren(sb *strings.Builder, idx uint32, depth int) {
	for c := t.nodes[idx].first; c != 0; c = t.nodes[c].next {
		n := &t.nodes[c]
		sb.WriteString(strings.Repeat("  ", depth))
		switch n.kind {
		case TraceNodeInstructions:
			fmt.Fprintf(sb, "insns %d\n", n.count)
		case TraceNodeRepeat:
			fmt.Fprintf(sb, "repeat %dx%d\n", n.iterations, n.blockSize)
		default:
			fmt.Fprintf(sb, "%s %q\n", n.kind, n.text)
		}
		t.dumpChildren(sb, c, depth+1)
	}
}

// Digest hashes the tree structure in pre-order. Expansion state, line
// numbers and trace offsets are excluded.
func (t *CallTree) Digest() uint64 {
	d := xxhash.New()
	var buf [32]byte
	var walk func(idx uint32)
	walk = func(idx uint32) {
		for c := t.nodes[idx].first; c != 0; c = t.nodes[c].next {
			n := &t.nodes[c]
			b := buf[:0]
			b = append(b, byte(n.kind))
			b = binary.LittleEndian.AppendUint32(b, uint32(n.count))
			b = binary.LittleEndian.AppendUint32(b, uint32(n.blockSize))
			b = binary.LittleEndian.AppendUint32(b, uint32(n.iterations))
			b = binary.LittleEndian.AppendUint32(b, uint32(n.children))
			d.Write(b)
			d.WriteString(n.text)
			walk(c)
		}
		d.Write([]byte{0xFF})
	}
	walk(t.root)
	return d.Sum64()
}

// CallTreeStats counts nodes by kind.
type CallTreeStats struct {
	Nodes        int
	Runs         int
	Instructions int
	Repeats      int
	Labels       int
	Interrupts   int
	MaxDepth     int
}

// Stats walks the tree and counts its nodes.
func (t *CallTree) Stats() CallTreeStats {
	var s CallTreeStats
	var walk func(idx uint32, depth int)
	walk = func(idx uint32, depth int) {
		if depth > s.MaxDepth {
			s.MaxDepth = depth
		}
		for c := t.nodes[idx].first; c != 0; c = t.nodes[c].next {
			n := &t.nodes[c]
			s.Nodes++
			switch n.kind {
			case TraceNodeInstructions:
				s.Runs++
				s.Instructions += n.count
			case TraceNodeRepeat:
				s.Repeats++
			case TraceNodeLabel:
				s.Labels++
			case TraceNodeInterrupt:
				s.Interrupts++
			}
			walk(c, depth+1)
		}
	}
	walk(t.root, 0)
	return s
}
