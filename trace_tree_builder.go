// trace_tree_builder.go - Online call/loop tree builder for the instruction history

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
	"errors"
	"fmt"
)

// TraceTreeOptions selects which structures the builder folds. Set once per
// session; SetOptions resets the builder state.
type TraceTreeOptions struct {
	CollapseLoops      bool
	CollapseCalls      bool
	CollapseInterrupts bool

	// StackResetThreshold overrides TRACE_STACK_RESET_DEFAULT when non-zero.
	StackResetThreshold int
}

// TraceTreeStats counts what the builder has done since the last Reset.
type TraceTreeStats struct {
	Instructions     int64
	RepeatsCreated   int64
	IterationsFolded int64
	CallMarkers      int64
	InterruptMarkers int64
	ForcedResets     int64
	Discontinuities  int64
}

// TraceTreeBuilder turns canonical instruction records into CallTree nodes.
// It is not safe for concurrent use; TraceSession serializes access.
type TraceTreeBuilder struct {
	tree   *CallTree
	opts   TraceTreeOptions
	stack  traceStackCache
	window *traceRepeatWindow

	started    bool
	nextOffset int64
	curS       uint8 // stack pointer in effect for the next record
	// stack effect of the previous record, consulted when the next record
	// resolves at a new stack level
	prevInterrupt bool
	prevCall      bool

	lastBlockSize int

	invalidation int
	lastNode     NodeRef
	stats        TraceTreeStats
}

// NewTraceTreeBuilder creates a builder appending to tree.
func NewTraceTreeBuilder(tree *CallTree, opts TraceTreeOptions) *TraceTreeBuilder {
	b := &TraceTreeBuilder{
		tree:         tree,
		opts:         opts,
		window:       newTraceRepeatWindow(),
		invalidation: TRACE_NO_INVALIDATION,
	}
	return b
}

// Options returns the current configuration.
func (b *TraceTreeBuilder) Options() TraceTreeOptions { return b.opts }

// SetOptions changes the configuration and resets the builder state.
func (b *TraceTreeBuilder) SetOptions(opts TraceTreeOptions) {
	b.opts = opts
	b.Reset()
}

// Stats returns the builder counters.
func (b *TraceTreeBuilder) Stats() TraceTreeStats { return b.stats }

// Reset clears the ancestor cache, the repeat window and its chains. Tree
// nodes are left alone; new records attach under the root.
func (b *TraceTreeBuilder) Reset() {
	b.stack.clearAll()
	b.window.reset()
	b.started = false
	b.nextOffset = 0
	b.curS = 0
	b.prevInterrupt = false
	b.prevCall = false
	b.lastBlockSize = 0
	b.lastNode = NodeRef{}
	b.stats = TraceTreeStats{}
}

// resetStack drops all nesting state and stops loops from matching across
// the current position.
func (b *TraceTreeBuilder) resetStack() {
	b.stack.clearAll()
	b.window.advanceTail(b.window.head + 1)
	b.lastBlockSize = 0
}

func (b *TraceTreeBuilder) threshold() int {
	if b.opts.StackResetThreshold > 0 {
		return b.opts.StackResetThreshold
	}
	return TRACE_STACK_RESET_DEFAULT
}

// BeginUpdate starts a batch. With invalidation disabled the builder skips
// display line lookups entirely.
func (b *TraceTreeBuilder) BeginUpdate(invalidation bool) {
	if invalidation {
		b.invalidation = TRACE_INVALIDATION_UNSET
	} else {
		b.invalidation = TRACE_NO_INVALIDATION
	}
	b.lastNode = NodeRef{}
}

// EndUpdate returns the earliest disturbed display line (or one of the
// TRACE_*INVALIDATION* values) and the node touched last.
func (b *TraceTreeBuilder) EndUpdate() (int, NodeRef) {
	return b.invalidation, b.lastNode
}

func (b *TraceTreeBuilder) invalidate(r NodeRef) {
	if b.invalidation == TRACE_NO_INVALIDATION {
		return
	}
	line := b.tree.DisplayLine(r)
	if b.invalidation == TRACE_INVALIDATION_UNSET || line < b.invalidation {
		b.invalidation = line
	}
}

// Update processes a batch of records; start is the trace offset of batch[0].
func (b *TraceTreeBuilder) Update(start int64, batch []CanonicalInsn) {
	for i := range batch {
		b.add(start+int64(i), &batch[i])
	}
}

func (b *TraceTreeBuilder) add(off int64, insn *CanonicalInsn) {
	if !b.started || off != b.nextOffset {
		if b.started {
			b.stats.Discontinuities++
			b.resetStack()
		}
		b.started = true
		b.curS = insn.S
		b.prevInterrupt = false
		b.prevCall = false
	}
	b.stats.Instructions++

	s := b.curS
	parent, depth := b.ResolveParent(s)
	node := b.place(parent, off)
	if b.opts.CollapseLoops {
		node = b.detectLoop(insn.fingerprint(), node, parent, off)
	}
	b.lastNode = node

	b.moveStack(insn.S, insn.ImplicitCall)
	if insn.PushCount > 0 && !insn.ImplicitCall {
		b.stack.associate(s, int(insn.PushCount), parent, depth)
	}
	b.prevInterrupt = insn.Interrupt
	b.prevCall = insn.ImplicitCall
	b.nextOffset = off + 1
}

// moveStack invalidates the ancestor slots crossed by a stack pointer change.
func (b *TraceTreeBuilder) moveStack(to uint8, call bool) {
	from := b.curS
	b.curS = to
	if from == to {
		return
	}
	if call || stackGrewDown(from, to, b.threshold()) {
		b.stack.clearDown(from, to)
	} else {
		b.stack.clearUp(from, to)
	}
}

// ResolveParent returns the node that parents code running with stack
// pointer s, opening call or interrupt markers when s is a new level.
func (b *TraceTreeBuilder) ResolveParent(s uint8) (NodeRef, int) {
	t := b.tree
	if slot, ok := b.stack.lookup(t, s); ok {
		return slot.node, slot.depth
	}

	parent, depth := t.Root(), 0
	slot, found := b.stack.scan(t, s)
	if found {
		parent, depth = slot.node, slot.depth
	}

	switch {
	case b.prevInterrupt && b.opts.CollapseInterrupts:
		if depth < TRACE_MAX_NESTING_DEPTH {
			parent = t.InsertLabel(parent, t.LastChild(parent), TraceNodeInterrupt, "Interrupt")
			depth++
			b.stats.InterruptMarkers++
			b.invalidate(parent)
			// loops never span an interrupt entry
			b.window.advanceTail(b.window.head + 1)
			b.lastBlockSize = 0
		} else {
			b.stats.ForcedResets++
			b.resetStack()
			parent, depth = t.Root(), 0
		}
	case found && b.opts.CollapseCalls && depth < TRACE_MAX_NESTING_DEPTH:
		parent = b.openCall(parent)
		depth++
		b.stats.CallMarkers++
	}

	b.stack.set(s, parent, depth)
	return parent, depth
}

// openCall picks the node the callee's code attaches to: the calling
// instruction when it ends a run, otherwise a label.
func (b *TraceTreeBuilder) openCall(parent NodeRef) NodeRef {
	t := b.tree
	last := t.LastChild(parent)
	if !last.IsNil() && t.IsLeafRun(last) {
		n := t.Count(last)
		if n == 1 {
			return last
		}
		site := t.SplitRun(last, n-1)
		b.window.retarget(last, site, t.Offset(site))
		b.invalidate(site)
		return site
	}
	label := t.InsertLabel(parent, last, TraceNodeLabel, TRACE_SUBROUTINE_CALL_TEXT)
	b.invalidate(label)
	return label
}

// place appends one instruction under parent, extending the last run when
// it ends right before off.
func (b *TraceTreeBuilder) place(parent NodeRef, off int64) NodeRef {
	t := b.tree
	last := t.LastChild(parent)
	if !last.IsNil() && t.IsLeafRun(last) && t.RunEnd(last) == off {
		t.GrowRun(last, 1)
		return last
	}
	return t.InsertNode(parent, last, off, TraceNodeInstructions)
}

func (b *TraceTreeBuilder) removeNode(r NodeRef) {
	// callers repoint window entries covering r before removing it
	b.stack.forget(r)
	b.tree.RemoveNode(r)
}

// detectLoop records the instruction just placed as node and folds the block
// it completes into a Repeat. It returns the node now representing the
// instruction.
func (b *TraceTreeBuilder) detectLoop(fp uint32, node, parent NodeRef, off int64) NodeRef {
	w := b.window
	head := w.push(fp, node, off)

	limit := w.tail
	if reach := head - TRACE_REPEAT_SEARCH_REACH; reach > limit {
		limit = reach
	}

	verified := 0
	result := node
	probes := 0
	for p := w.chain(fp); p >= limit && probes < TRACE_REPEAT_MAX_PROBES; p = w.at(p).next {
		probes++
		e := w.at(p)
		if e.fp != fp {
			continue
		}
		bs := int(head - p)
		start := p - int64(bs) + 1
		if start < w.tail {
			break
		}
		if w.checksum(start, p) != w.checksum(p+1, head) {
			continue
		}
		if bs != b.lastBlockSize && !w.equal(start, p+1, bs) {
			continue
		}
		if verified == 0 {
			verified = bs
		}
		if r, ok := b.fold(parent, head, p, bs); ok {
			verified = bs
			if !r.IsNil() {
				result = r
			}
			break
		}
	}
	b.lastBlockSize = verified
	w.link(head)
	return result
}

// repeatAt returns the Repeat of period bs directly under parent that holds
// window position pos.
func (b *TraceTreeBuilder) repeatAt(pos int64, parent NodeRef, bs int) (NodeRef, bool) {
	w, t := b.window, b.tree
	if !w.valid(pos) {
		return NodeRef{}, false
	}
	r := w.at(pos).node
	if !t.Valid(r) || t.Kind(r) != TraceNodeRepeat || t.BlockSize(r) != bs || t.Parent(r) != parent {
		return NodeRef{}, false
	}
	return r, true
}

// topLevel climbs from n to its ancestor directly under parent.
func (b *TraceTreeBuilder) topLevel(n, parent NodeRef) (NodeRef, bool) {
	t := b.tree
	if !t.Valid(n) {
		return NodeRef{}, false
	}
	for {
		if n == parent {
			return NodeRef{}, false
		}
		p := t.Parent(n)
		if p.IsNil() {
			return NodeRef{}, false
		}
		if p == parent {
			return n, true
		}
		n = p
	}
}

// blockStart finds the child of parent whose first instruction is window
// position pos, splitting a run when allowed and pos falls inside one.
func (b *TraceTreeBuilder) blockStart(parent NodeRef, pos int64, split bool) (NodeRef, bool) {
	w, t := b.window, b.tree
	if !w.valid(pos) {
		return NodeRef{}, false
	}
	e := w.at(pos)
	top, ok := b.topLevel(e.node, parent)
	if !ok {
		return NodeRef{}, false
	}
	if t.Kind(top) == TraceNodeInstructions {
		at := e.offset - t.Offset(top)
		switch {
		case at == 0:
			return top, true
		case at > 0 && split && t.IsLeafRun(top):
			tail := t.SplitRun(top, int(at))
			w.retarget(top, tail, e.offset)
			return tail, true
		default:
			return NodeRef{}, false
		}
	}
	// markers and repeats carry no offset: the previous instruction must
	// belong to a different child
	if !w.valid(pos - 1) {
		return NodeRef{}, false
	}
	if prev, ok := b.topLevel(w.at(pos-1).node, parent); ok && prev == top {
		return NodeRef{}, false
	}
	return top, true
}

// fold decides what the verified match of block [p+1, head] against
// [p-bs+1, p] means for the tree. A nil ref with ok means the match
// continues an iteration still in progress.
func (b *TraceTreeBuilder) fold(parent NodeRef, head, p int64, bs int) (NodeRef, bool) {
	w, t := b.window, b.tree
	size := int64(bs)

	if _, ok := b.repeatAt(p+1, parent, bs); ok {
		return NodeRef{}, true
	}

	if rep, ok := b.repeatAt(p, parent, bs); ok {
		first, ok := b.blockStart(parent, p+1, false)
		if !ok || t.Prev(first) != rep {
			return NodeRef{}, false
		}
		last := t.LastChild(parent)
		trailing := t.LastChild(rep)
		t.SpliceNodes(first, last, rep, trailing)
		w.setNodes(p+1, head, rep)
		if !trailing.IsNil() && t.IsLeafRun(trailing) && t.IsLeafRun(first) && t.RunEnd(trailing) == t.Offset(first) {
			t.GrowRun(trailing, t.Count(first))
			b.removeNode(first)
		}
		t.SetRepeat(rep, bs, t.Iterations(rep)+1)
		w.unlinkRange(p-size+1, p)
		b.stats.IterationsFolded++
		b.invalidate(rep)
		return rep, true
	}

	// a new Repeat must show two full iterations, so the block has to occur
	// a third time before them
	third := p - 2*size + 1
	if third < w.tail || !w.equal(third, p-size+1, bs) {
		return NodeRef{}, false
	}
	first, ok := b.blockStart(parent, p-size+1, true)
	if !ok {
		return NodeRef{}, false
	}
	last := t.LastChild(parent)
	rep := t.InsertNode(parent, t.Prev(first), t.Offset(first), TraceNodeRepeat)
	t.SpliceNodes(first, last, rep, NodeRef{})
	t.SetRepeat(rep, bs, 2)
	w.setNodes(p-size+1, head, rep)
	w.unlinkRange(p-size+1, p)
	b.stats.RepeatsCreated++
	b.invalidate(rep)
	return rep, true
}

// errTraceTreeInvariant wraps every verify failure.
var errTraceTreeInvariant = errors.New("trace tree invariant violated")

// verify checks the tree, the ancestor cache and the repeat window. It is
// for tests and fuzzing; the update path never calls it.
func (b *TraceTreeBuilder) verify() error {
	if err := b.tree.verify(); err != nil {
		return fmt.Errorf("%w: tree: %v", errTraceTreeInvariant, err)
	}
	if err := b.stack.verify(b.tree); err != nil {
		return fmt.Errorf("%w: stack: %v", errTraceTreeInvariant, err)
	}
	if err := b.window.verify(b.tree); err != nil {
		return fmt.Errorf("%w: window: %v", errTraceTreeInvariant, err)
	}
	if b.window.head >= 0 && b.lastBlockSize > int(b.window.head-b.window.tail+1) {
		return fmt.Errorf("%w: last block size %d exceeds window", errTraceTreeInvariant, b.lastBlockSize)
	}
	return nil
}
