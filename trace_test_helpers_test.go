package main

import (
	"strings"
	"testing"
)

// nop6502 is a plain record at pc with stack pointer sp.
func nop6502(pc uint32, sp uint8) CanonicalInsn {
	return CanonicalInsn{PC: pc, Opcode: 0xEA, S: sp}
}

// loopBody returns body repeated k times.
func loopBody(body []CanonicalInsn, k int) []CanonicalInsn {
	out := make([]CanonicalInsn, 0, len(body)*k)
	for range k {
		out = append(out, body...)
	}
	return out
}

// distinctBody returns n records with distinct fingerprints at sp.
func distinctBody(base uint32, n int, sp uint8) []CanonicalInsn {
	out := make([]CanonicalInsn, n)
	for i := range out {
		out[i] = CanonicalInsn{PC: base + uint32(i)*3, Opcode: uint8(0x80 + i%64), S: sp}
	}
	return out
}

// newTestBuilder returns a builder on a fresh tree.
func newTestBuilder(opts TraceTreeOptions) (*TraceTreeBuilder, *CallTree) {
	tree := NewCallTree()
	return NewTraceTreeBuilder(tree, opts), tree
}

// feed runs one update batch starting at offset start and checks every
// invariant afterwards.
func feed(t *testing.T, b *TraceTreeBuilder, start int64, insns []CanonicalInsn, track bool) (int, NodeRef) {
	t.Helper()
	b.BeginUpdate(track)
	b.Update(start, insns)
	line, last := b.EndUpdate()
	if err := b.verify(); err != nil {
		t.Fatalf("after batch at %d: %v\n%s", start, err, b.tree.Dump())
	}
	return line, last
}

// buildTree feeds insns one batch at a time from offset zero.
func buildTree(t *testing.T, opts TraceTreeOptions, insns []CanonicalInsn) (*TraceTreeBuilder, *CallTree) {
	t.Helper()
	b, tree := newTestBuilder(opts)
	feed(t, b, 0, insns, false)
	return b, tree
}

func loopsOnly() TraceTreeOptions { return TraceTreeOptions{CollapseLoops: true} }

func allFolding() TraceTreeOptions {
	return TraceTreeOptions{CollapseLoops: true, CollapseCalls: true, CollapseInterrupts: true}
}

// wantDump compares a tree dump, ignoring a trailing newline.
func wantDump(t *testing.T, tree *CallTree, want string) {
	t.Helper()
	got := tree.Dump()
	if strings.TrimRight(got, "\n") != strings.TrimRight(want, "\n") {
		t.Fatalf("tree mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

// testEntries6502 builds raw entries for a 6502 program: a delay loop
// called from a main loop.
func testEntries6502(frames int) []TraceEntry {
	var out []TraceEntry
	sp := uint16(0x01FF)
	for range frames {
		out = append(out, TraceEntry{PC: 0x0800, Opcode: 0xA9, Operands: [2]uint8{0x05}, SP: sp}) // LDA #$05
		out = append(out, TraceEntry{PC: 0x0802, Opcode: 0x20, Operands: [2]uint8{0x00, 0x09}, SP: sp - 2})
		out = append(out, TraceEntry{PC: 0x0900, Opcode: 0xA2, Operands: [2]uint8{0x04}, SP: sp - 2}) // LDX #$04
		for x := 4; x > 0; x-- {
			out = append(out, TraceEntry{PC: 0x0902, Opcode: 0xCA, SP: sp - 2})                          // DEX
			out = append(out, TraceEntry{PC: 0x0903, Opcode: 0xD0, Operands: [2]uint8{0xFD}, SP: sp - 2}) // BNE
		}
		out = append(out, TraceEntry{PC: 0x0905, Opcode: 0x60, SP: sp})                                  // RTS
		out = append(out, TraceEntry{PC: 0x0805, Opcode: 0x4C, Operands: [2]uint8{0x00, 0x08}, SP: sp}) // JMP $0800
	}
	return out
}
