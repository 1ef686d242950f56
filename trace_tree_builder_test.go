package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTraceTreeBuilder_SingleInstructionLoop(t *testing.T) {
	b, tree := newTestBuilder(loopsOnly())
	insns := loopBody([]CanonicalInsn{nop6502(0x2000, 0xFF)}, 5)

	line, last := feed(t, b, 0, insns[:2], true)
	wantDump(t, tree, "insns 2")
	if line != TRACE_INVALIDATION_UNSET {
		t.Fatalf("invalidation after appending = %d, want %d", line, TRACE_INVALIDATION_UNSET)
	}
	if tree.Kind(last) != TraceNodeInstructions {
		t.Fatalf("last node kind %s, want insns", tree.Kind(last))
	}

	line, last = feed(t, b, 2, insns[2:3], true)
	wantDump(t, tree, "insns 1\nrepeat 2x1\n  insns 2")
	if line != 1 {
		t.Fatalf("invalidation after folding = %d, want 1", line)
	}
	if tree.Kind(last) != TraceNodeRepeat {
		t.Fatalf("last node kind %s, want repeat", tree.Kind(last))
	}

	feed(t, b, 3, insns[3:], false)
	wantDump(t, tree, "insns 1\nrepeat 4x1\n  insns 4")

	s := b.Stats()
	if s.Instructions != 5 || s.RepeatsCreated != 1 || s.IterationsFolded != 2 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestTraceTreeBuilder_LoopFolding(t *testing.T) {
	tests := []struct {
		body, iterations int
	}{
		{2, 3},
		{2, 4},
		{3, 10},
		{7, 3},
		{16, 5},
		{1000, 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d", tt.body, tt.iterations), func(t *testing.T) {
			insns := loopBody(distinctBody(0x4000, tt.body, 0xF0), tt.iterations)
			_, tree := buildTree(t, loopsOnly(), insns)
			k := tt.iterations - 1
			wantDump(t, tree, fmt.Sprintf("insns %d\nrepeat %dx%d\n  insns %d", tt.body, k, tt.body, k*tt.body))
		})
	}
}

func TestTraceTreeBuilder_NoFalseFolding(t *testing.T) {
	tests := []struct {
		name  string
		insns []CanonicalInsn
		want  string
	}{
		{"distinct", distinctBody(0x1000, 50, 0xFF), "insns 50"},
		{"two iterations", loopBody(distinctBody(0x1000, 5, 0xFF), 2), "insns 10"},
		{"single repeat", loopBody([]CanonicalInsn{nop6502(0x2000, 0xFF)}, 2), "insns 2"},
		{"beyond search reach", loopBody(distinctBody(0x1000, 1400, 0xFF), 3), "insns 4200"},
		{"window sized period", loopBody(distinctBody(0x1000, TRACE_REPEAT_WINDOW_SIZE, 0xFF), 3),
			fmt.Sprintf("insns %d", 3*TRACE_REPEAT_WINDOW_SIZE)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, tree := buildTree(t, loopsOnly(), tt.insns)
			wantDump(t, tree, tt.want)
			if b.Stats().RepeatsCreated != 0 {
				t.Fatalf("created %d repeats", b.Stats().RepeatsCreated)
			}
		})
	}
}

func TestTraceTreeBuilder_LoopsOffLeavesRuns(t *testing.T) {
	insns := loopBody(distinctBody(0x4000, 4, 0xF0), 10)
	_, tree := buildTree(t, TraceTreeOptions{}, insns)
	wantDump(t, tree, "insns 40")
}

func TestTraceTreeBuilder_LoopOutlivesWindow(t *testing.T) {
	const body, iterations = 10, 1000
	insns := loopBody(distinctBody(0x3000, body, 0xFF), iterations)
	b, tree := buildTree(t, loopsOnly(), insns)
	k := iterations - 1
	wantDump(t, tree, fmt.Sprintf("insns %d\nrepeat %dx%d\n  insns %d", body, k, body, k*body))
	if b.Stats().RepeatsCreated != 1 {
		t.Fatalf("created %d repeats, want 1", b.Stats().RepeatsCreated)
	}
}

func TestTraceTreeBuilder_LoopThenExit(t *testing.T) {
	insns := loopBody(distinctBody(0x3000, 3, 0xFF), 4)
	insns = append(insns, distinctBody(0x5000, 2, 0xFF)...)
	_, tree := buildTree(t, loopsOnly(), insns)
	wantDump(t, tree, "insns 3\nrepeat 3x3\n  insns 9\ninsns 2")
}

// callStream enters depth nested subroutines and returns from each.
func callStream(depth int) []CanonicalInsn {
	var out []CanonicalInsn
	pc := uint32(0x0800)
	sp := uint8(0xFF)
	add := func(op uint8, s uint8) {
		out = append(out, CanonicalInsn{PC: pc, Opcode: op, S: s})
		pc += 3
	}
	add(0xEA, sp)
	for range depth {
		sp -= 2
		add(0x20, sp) // JSR
		add(0xEA, sp)
	}
	for range depth {
		sp += 2
		add(0x60, sp) // RTS
		add(0xEA, sp)
	}
	return out
}

func TestTraceTreeBuilder_CallRoundTrip(t *testing.T) {
	b, tree := buildTree(t, TraceTreeOptions{CollapseCalls: true}, callStream(2))
	wantDump(t, tree, strings.Join([]string{
		"insns 1",
		"insns 1",
		"  insns 1",
		"  insns 1",
		"    insns 2",
		"  insns 2",
		"insns 1",
	}, "\n"))
	if b.Stats().CallMarkers != 2 {
		t.Fatalf("CallMarkers = %d, want 2", b.Stats().CallMarkers)
	}
	if got := tree.Stats().MaxDepth; got != 3 {
		t.Fatalf("MaxDepth = %d, want 3", got)
	}
	if tree.Parent(b.lastNode) != tree.Root() {
		t.Fatal("code after the last return is not back at the root")
	}
}

func TestTraceTreeBuilder_CallsOffStaysFlat(t *testing.T) {
	_, tree := buildTree(t, TraceTreeOptions{CollapseLoops: true}, callStream(3))
	wantDump(t, tree, "insns 13")
}

func TestTraceTreeBuilder_DeepCallsStayBounded(t *testing.T) {
	b, tree := buildTree(t, TraceTreeOptions{CollapseCalls: true}, callStream(60))
	if got := tree.Stats().MaxDepth; got > TRACE_MAX_NESTING_DEPTH+1 {
		t.Fatalf("MaxDepth = %d, exceeds the nesting limit", got)
	}
	if b.Stats().CallMarkers != TRACE_MAX_NESTING_DEPTH {
		t.Fatalf("CallMarkers = %d, want %d", b.Stats().CallMarkers, TRACE_MAX_NESTING_DEPTH)
	}
}

func TestTraceTreeBuilder_PushesAreNotCalls(t *testing.T) {
	insns := []CanonicalInsn{
		nop6502(0x1000, 0xFF),
		{PC: 0x1001, Opcode: 0x48, S: 0xFE, PushCount: 1}, // PHA
		nop6502(0x1002, 0xFE),
		{PC: 0x1003, Opcode: 0x68, S: 0xFF}, // PLA
		nop6502(0x1004, 0xFF),
	}
	b, tree := buildTree(t, allFolding(), insns)
	wantDump(t, tree, "insns 5")
	if b.Stats().CallMarkers != 0 {
		t.Fatalf("CallMarkers = %d, want 0", b.Stats().CallMarkers)
	}
}

func TestTraceTreeBuilder_BulkStackReset(t *testing.T) {
	insns := []CanonicalInsn{
		nop6502(0x1000, 0xFF),
		{PC: 0x1001, Opcode: 0x9A, S: 0x40}, // TXS
		nop6502(0x1002, 0x40),
	}
	b, tree := buildTree(t, allFolding(), insns)
	wantDump(t, tree, "insns 3")
	if b.Stats().CallMarkers != 0 {
		t.Fatalf("CallMarkers = %d, want 0", b.Stats().CallMarkers)
	}
}

// interruptStream nests n interrupt entries, each pushing three bytes.
func interruptStream(n int) []CanonicalInsn {
	out := []CanonicalInsn{nop6502(0x1000, 0xFF)}
	for i := 1; i <= n; i++ {
		out = append(out, CanonicalInsn{PC: 0xF000 + uint32(i), Opcode: 0x00, S: uint8(0xFF - 3*i), Interrupt: true})
	}
	return append(out, nop6502(0x2000, uint8(0xFF-3*n)))
}

func TestTraceTreeBuilder_InterruptMarkers(t *testing.T) {
	insns := []CanonicalInsn{
		nop6502(0x1000, 0xFF),
		{PC: 0x1001, Opcode: 0xEA, S: 0xFC, Interrupt: true},
		nop6502(0xF000, 0xFC),
		{PC: 0xF001, Opcode: 0x40, S: 0xFF}, // RTI
		nop6502(0x1002, 0xFF),
	}
	b, tree := buildTree(t, allFolding(), insns)
	wantDump(t, tree, "insns 2\ninterrupt \"Interrupt\"\n  insns 2\ninsns 1")
	if b.Stats().InterruptMarkers != 1 {
		t.Fatalf("InterruptMarkers = %d, want 1", b.Stats().InterruptMarkers)
	}
}

func TestTraceTreeBuilder_InterruptNestingCap(t *testing.T) {
	tests := []struct {
		entries         int
		markers, resets int64
	}{
		{1, 1, 0},
		{TRACE_MAX_NESTING_DEPTH, TRACE_MAX_NESTING_DEPTH, 0},
		{40, 39, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.entries), func(t *testing.T) {
			b, tree := buildTree(t, allFolding(), interruptStream(tt.entries))
			s := b.Stats()
			if s.InterruptMarkers != tt.markers || s.ForcedResets != tt.resets {
				t.Fatalf("markers %d resets %d, want %d and %d", s.InterruptMarkers, s.ForcedResets, tt.markers, tt.resets)
			}
			if got := tree.Stats().MaxDepth; got > TRACE_MAX_NESTING_DEPTH+1 {
				t.Fatalf("MaxDepth = %d, exceeds the nesting limit", got)
			}
		})
	}
}

func TestTraceTreeBuilder_InterruptsOffIgnoresEntries(t *testing.T) {
	b, tree := buildTree(t, loopsOnly(), interruptStream(5))
	wantDump(t, tree, "insns 7")
	if b.Stats().InterruptMarkers != 0 {
		t.Fatal("markers created with interrupts off")
	}
}

func TestTraceTreeBuilder_BatchSplitInvariance(t *testing.T) {
	tr, err := NewTraceTranslator("6502")
	if err != nil {
		t.Fatal(err)
	}
	insns := tr.Translate(nil, testEntries6502(20))
	_, whole := buildTree(t, allFolding(), insns)

	for _, size := range []int{1, 2, 7, 64} {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			b, tree := newTestBuilder(allFolding())
			for start := 0; start < len(insns); start += size {
				end := min(start+size, len(insns))
				feed(t, b, int64(start), insns[start:end], start%2 == 0)
			}
			if tree.Digest() != whole.Digest() {
				t.Fatalf("batches of %d built a different tree\ngot:\n%s\nwant:\n%s", size, tree.Dump(), whole.Dump())
			}
		})
	}
}

func TestTraceTreeBuilder_ReplayIsDeterministic(t *testing.T) {
	tr, _ := NewTraceTranslator("6502")
	insns := tr.Translate(nil, testEntries6502(12))
	_, a := buildTree(t, allFolding(), insns)
	_, b := buildTree(t, allFolding(), insns)
	if a.Dump() != b.Dump() || a.Digest() != b.Digest() {
		t.Fatal("two builds of one stream differ")
	}
	// the delay loop is folded inside the called routine
	if a.Stats().Repeats == 0 {
		t.Fatalf("no repeats in\n%s", a.Dump())
	}
}

func TestTraceTreeBuilder_Discontinuity(t *testing.T) {
	b, tree := newTestBuilder(loopsOnly())
	feed(t, b, 0, distinctBody(0x1000, 5, 0xFF), false)
	feed(t, b, 10, distinctBody(0x2000, 3, 0xFF), false)
	wantDump(t, tree, "insns 5\ninsns 3")
	if b.Stats().Discontinuities != 1 {
		t.Fatalf("Discontinuities = %d, want 1", b.Stats().Discontinuities)
	}
}

func TestTraceTreeBuilder_LoopsDoNotSpanGaps(t *testing.T) {
	b, tree := newTestBuilder(loopsOnly())
	body := distinctBody(0x1000, 4, 0xFF)
	feed(t, b, 0, loopBody(body, 2), false)
	feed(t, b, 100, body, false)
	wantDump(t, tree, "insns 8\ninsns 4")
	if b.Stats().RepeatsCreated != 0 {
		t.Fatal("a loop matched across a gap")
	}
}

func TestTraceTreeBuilder_Reset(t *testing.T) {
	b, tree := newTestBuilder(loopsOnly())
	feed(t, b, 0, loopBody([]CanonicalInsn{nop6502(0x2000, 0xFF)}, 5), false)
	b.Reset()
	if b.Stats() != (TraceTreeStats{}) {
		t.Fatalf("stats after Reset = %+v", b.Stats())
	}
	feed(t, b, 0, distinctBody(0x3000, 2, 0xFF), false)
	wantDump(t, tree, "insns 1\nrepeat 4x1\n  insns 4\ninsns 2")
	if b.Stats().Discontinuities != 0 {
		t.Fatal("restart after Reset counted as a discontinuity")
	}
}

func TestTraceTreeBuilder_SetOptionsResets(t *testing.T) {
	b, _ := newTestBuilder(loopsOnly())
	feed(t, b, 0, distinctBody(0x3000, 4, 0xFF), false)
	b.SetOptions(allFolding())
	if b.Options() != allFolding() {
		t.Fatalf("Options = %+v", b.Options())
	}
	if b.Stats().Instructions != 0 {
		t.Fatal("SetOptions kept the counters")
	}
}

func TestTraceTreeBuilder_InvalidationDisabled(t *testing.T) {
	b, _ := newTestBuilder(loopsOnly())
	line, _ := feed(t, b, 0, loopBody([]CanonicalInsn{nop6502(0x2000, 0xFF)}, 5), false)
	if line != TRACE_NO_INVALIDATION {
		t.Fatalf("invalidation = %d, want %d", line, TRACE_NO_INVALIDATION)
	}
}

func TestTraceTreeBuilder_CallSiteSplitInvalidates(t *testing.T) {
	b, _ := newTestBuilder(TraceTreeOptions{CollapseCalls: true})
	insns := callStream(1)
	feed(t, b, 0, insns[:2], true)
	line, _ := feed(t, b, 2, insns[2:3], true)
	if line != 1 {
		t.Fatalf("invalidation = %d, want 1 for the split call site", line)
	}
}

func TestTraceTreeBuilder_StackResetThreshold(t *testing.T) {
	insns := []CanonicalInsn{
		nop6502(0x1000, 0xFF),
		{PC: 0x1001, Opcode: 0x20, S: 0xF1},
		nop6502(0x1002, 0xF1),
	}
	// a drop of 14 is a bulk reset by default
	b, _ := buildTree(t, TraceTreeOptions{CollapseCalls: true}, insns)
	if b.Stats().CallMarkers != 0 {
		t.Fatal("default threshold treated a 14 byte drop as a push")
	}
	b, tree := buildTree(t, TraceTreeOptions{CollapseCalls: true, StackResetThreshold: 16}, insns)
	if b.Stats().CallMarkers != 1 {
		t.Fatalf("CallMarkers = %d with a raised threshold, want 1", b.Stats().CallMarkers)
	}
	wantDump(t, tree, "insns 1\ninsns 1\n  insns 1")
}

func TestResolveParent(t *testing.T) {
	t.Run("root fallback", func(t *testing.T) {
		b, tree := newTestBuilder(allFolding())
		parent, depth := b.ResolveParent(0x80)
		if parent != tree.Root() || depth != 0 {
			t.Fatalf("ResolveParent = %v, %d, want the root", parent, depth)
		}
		if b.Stats().CallMarkers != 0 || tree.NodeCount() != 1 {
			t.Fatal("fallback created nodes")
		}
		if slot, ok := b.stack.lookup(tree, 0x80); !ok || slot.node != tree.Root() {
			t.Fatal("fallback was not cached")
		}
	})

	t.Run("call label", func(t *testing.T) {
		b, tree := newTestBuilder(TraceTreeOptions{CollapseCalls: true})
		b.stack.set(0xFF, tree.Root(), 0)
		parent, depth := b.ResolveParent(0xFD)
		if depth != 1 || tree.Kind(parent) != TraceNodeLabel || tree.Text(parent) != TRACE_SUBROUTINE_CALL_TEXT {
			t.Fatalf("ResolveParent = %v (%s), %d", parent, tree.Kind(parent), depth)
		}
		again, _ := b.ResolveParent(0xFD)
		if again != parent {
			t.Fatal("second lookup did not hit the cache")
		}
		wantDump(t, tree, "label \"Subroutine call\"")
		if err := b.verify(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("calls off", func(t *testing.T) {
		b, tree := newTestBuilder(loopsOnly())
		b.stack.set(0xFF, tree.Root(), 0)
		if parent, depth := b.ResolveParent(0xFD); parent != tree.Root() || depth != 0 {
			t.Fatalf("ResolveParent = %v, %d, want the root", parent, depth)
		}
	})
}

func TestTraceTreeBuilder_VerifyWrapsInvariantError(t *testing.T) {
	b, tree := newTestBuilder(loopsOnly())
	feed(t, b, 0, distinctBody(0x1000, 3, 0xFF), false)
	stale := tree.FirstChild(tree.Root())
	b.stack.set(0x10, stale, 0)
	tree.RemoveNode(stale)
	err := b.verify()
	if !errors.Is(err, errTraceTreeInvariant) {
		t.Fatalf("verify = %v, want errTraceTreeInvariant", err)
	}
}

func BenchmarkTraceTreeBuilder(b *testing.B) {
	tr, _ := NewTraceTranslator("6502")
	insns := tr.Translate(nil, testEntries6502(2000))
	b.ReportAllocs()
	for b.Loop() {
		builder, _ := newTestBuilder(allFolding())
		builder.BeginUpdate(false)
		builder.Update(0, insns)
		builder.EndUpdate()
	}
}

func BenchmarkTraceTreeBuilderTracked(b *testing.B) {
	tr, _ := NewTraceTranslator("6502")
	insns := tr.Translate(nil, testEntries6502(2000))
	b.ReportAllocs()
	for b.Loop() {
		builder, _ := newTestBuilder(allFolding())
		for start := 0; start < len(insns); start += 256 {
			end := min(start+256, len(insns))
			builder.BeginUpdate(true)
			builder.Update(int64(start), insns[start:end])
			builder.EndUpdate()
		}
	}
}
