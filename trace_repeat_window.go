// trace_repeat_window.go - Rolling fingerprint window and hash chains for loop detection

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

import "fmt"

// repeatEntry is one instruction in the repeat window. Positions are
// absolute and only grow; an entry is current while entries[pos&mask].pos == pos.
type repeatEntry struct {
	pos    int64
	fp     uint32
	sum    uint32 // prefix sum of fingerprints up to and including this entry
	node   NodeRef
	offset int64 // trace offset of the instruction
	next   int64 // older entry in the same chain, -1 at the end
	prev   int64 // newer entry in the same chain, -1 at the chain head
	linked bool
}

// traceRepeatWindow holds the last TRACE_REPEAT_WINDOW_SIZE instructions.
// Chains are newest-first; positions below tail are never searched.
type traceRepeatWindow struct {
	entries [TRACE_REPEAT_WINDOW_SIZE]repeatEntry
	heads   [TRACE_REPEAT_HASH_SIZE]int64
	head    int64
	tail    int64
}

func newTraceRepeatWindow() *traceRepeatWindow {
	w := &traceRepeatWindow{}
	w.reset()
	return w
}

func (w *traceRepeatWindow) reset() {
	for i := range w.entries {
		w.entries[i] = repeatEntry{pos: -1, next: -1, prev: -1}
	}
	for i := range w.heads {
		w.heads[i] = -1
	}
	w.head = -1
	w.tail = 0
}

func repeatHash(fp uint32) uint16 {
	return uint16((fp * 0x9E3779B1) >> 16)
}

func (w *traceRepeatWindow) at(p int64) *repeatEntry {
	return &w.entries[p&TRACE_REPEAT_WINDOW_MASK]
}

// valid reports whether position p is still held and searchable.
func (w *traceRepeatWindow) valid(p int64) bool {
	return p >= w.tail && p <= w.head && w.at(p).pos == p
}

// push appends an instruction at the head and returns its position. The
// entry is linked into its chain separately, after the search.
func (w *traceRepeatWindow) push(fp uint32, node NodeRef, offset int64) int64 {
	pos := w.head + 1
	e := w.at(pos)
	if e.pos >= 0 && e.linked {
		w.unlink(e.pos)
	}
	var sum uint32
	if pos > 0 && w.at(pos-1).pos == pos-1 {
		sum = w.at(pos - 1).sum
	}
	*e = repeatEntry{
		pos:    pos,
		fp:     fp,
		sum:    sum + fp,
		node:   node,
		offset: offset,
		next:   -1,
		prev:   -1,
	}
	w.head = pos
	if oldest := pos - TRACE_REPEAT_WINDOW_SIZE + 1; w.tail < oldest {
		w.tail = oldest
	}
	return pos
}

// advanceTail stops every position before p from being matched again.
func (w *traceRepeatWindow) advanceTail(p int64) {
	if p > w.tail {
		w.tail = p
	}
}

// chain returns the newest linked position whose fingerprint hashes like fp.
func (w *traceRepeatWindow) chain(fp uint32) int64 {
	return w.heads[repeatHash(fp)]
}

func (w *traceRepeatWindow) link(p int64) {
	e := w.at(p)
	h := repeatHash(e.fp)
	e.next = w.heads[h]
	e.prev = -1
	if e.next >= 0 {
		w.at(e.next).prev = p
	}
	w.heads[h] = p
	e.linked = true
}

func (w *traceRepeatWindow) unlink(p int64) {
	e := w.at(p)
	if !e.linked {
		return
	}
	if e.prev >= 0 {
		w.at(e.prev).next = e.next
	} else {
		w.heads[repeatHash(e.fp)] = e.next
	}
	if e.next >= 0 {
		w.at(e.next).prev = e.prev
	}
	e.next, e.prev, e.linked = -1, -1, false
}

// unlinkRange removes positions a..b from their chains.
func (w *traceRepeatWindow) unlinkRange(a, b int64) {
	for p := a; p <= b; p++ {
		if w.at(p).pos == p {
			w.unlink(p)
		}
	}
}

// checksum returns the fingerprint sum over positions a..b.
func (w *traceRepeatWindow) checksum(a, b int64) uint32 {
	ea := w.at(a)
	return w.at(b).sum - ea.sum + ea.fp
}

// equal compares n fingerprints starting at a and b.
func (w *traceRepeatWindow) equal(a, b int64, n int) bool {
	for i := int64(0); i < int64(n); i++ {
		if w.at(a+i).fp != w.at(b+i).fp {
			return false
		}
	}
	return true
}

// setNodes points positions a..b at node.
func (w *traceRepeatWindow) setNodes(a, b int64, node NodeRef) {
	for p := a; p <= b; p++ {
		if e := w.at(p); e.pos == p {
			e.node = node
		}
	}
}

// retarget moves positions of from at or after trace offset off to to,
// following a run split.
func (w *traceRepeatWindow) retarget(from, to NodeRef, off int64) {
	for p := w.head; p >= 0; p-- {
		e := w.at(p)
		if e.pos != p || e.offset < off {
			return
		}
		if e.node == from {
			e.node = to
		}
	}
}

func (w *traceRepeatWindow) verify(t *CallTree) error {
	for h, p := range w.heads {
		steps := 0
		prev := int64(-1)
		for p >= 0 {
			e := w.at(p)
			if e.pos != p || !e.linked {
				return fmt.Errorf("chain %04X reaches stale position %d", h, p)
			}
			if int(repeatHash(e.fp)) != h {
				return fmt.Errorf("position %d in chain %04X hashes to %04X", p, h, repeatHash(e.fp))
			}
			if e.prev != prev {
				return fmt.Errorf("position %d prev %d, want %d", p, e.prev, prev)
			}
			if e.next >= p {
				return fmt.Errorf("position %d links forward to %d", p, e.next)
			}
			if steps++; steps > TRACE_REPEAT_WINDOW_SIZE {
				return fmt.Errorf("chain %04X does not terminate", h)
			}
			prev = p
			p = e.next
		}
	}
	for p := w.tail; p <= w.head; p++ {
		e := w.at(p)
		if e.pos != p {
			return fmt.Errorf("position %d missing from window", p)
		}
		if !e.node.IsNil() && !t.Valid(e.node) {
			return fmt.Errorf("position %d holds stale node %v", p, e.node)
		}
	}
	return nil
}
