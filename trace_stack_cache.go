// trace_stack_cache.go - Stack-pointer indexed ancestor cache for the trace tree builder

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

// stackSlot associates one stack pointer value with the node that parents
// code running at that value.
type stackSlot struct {
	node  NodeRef
	depth int
}

// traceStackCache maps each 8-bit stack pointer value to its logical parent.
// Slots hold weak refs: lookups validate them against the tree.
type traceStackCache struct {
	slots [TRACE_STACK_SLOTS]stackSlot
}

func (c *traceStackCache) clearAll() {
	c.slots = [TRACE_STACK_SLOTS]stackSlot{}
}

func (c *traceStackCache) set(s uint8, node NodeRef, depth int) {
	c.slots[s] = stackSlot{node: node, depth: depth}
}

// lookup returns the slot for s when it names a live node.
func (c *traceStackCache) lookup(t *CallTree, s uint8) (stackSlot, bool) {
	slot := c.slots[s]
	if slot.node.IsNil() || !t.Valid(slot.node) {
		return stackSlot{}, false
	}
	return slot, true
}

// scan probes the slots above s, wrapping at the top of the stack page.
func (c *traceStackCache) scan(t *CallTree, s uint8) (stackSlot, bool) {
	for i := 1; i <= TRACE_ANCESTOR_SCAN; i++ {
		if slot, ok := c.lookup(t, s+uint8(i)); ok {
			return slot, true
		}
	}
	return stackSlot{}, false
}

// stackGrewDown decides whether a stack pointer change from -> to is a
// small push (true) or a pop / bulk reinitialization (false). The wraparound
// makes the direction ambiguous; drops below threshold are taken as pushes.
// This is an approximation, not a reconstruction.
func stackGrewDown(from, to uint8, threshold int) bool {
	d := int(from - to)
	return d != 0 && d < threshold
}

// clearDown invalidates the slots a push crossed: from-1 down to to.
func (c *traceStackCache) clearDown(from, to uint8) {
	for s := from - 1; ; s-- {
		c.slots[s] = stackSlot{}
		if s == to {
			return
		}
	}
}

// clearUp invalidates the slots a pop left behind: from up to to-1.
func (c *traceStackCache) clearUp(from, to uint8) {
	for s := from; s != to; s++ {
		c.slots[s] = stackSlot{}
	}
}

// associate binds the n slots below s to node, so data pushed there is not
// mistaken for a call frame when the stack pointer reaches it.
func (c *traceStackCache) associate(s uint8, n int, node NodeRef, depth int) {
	for i := 1; i <= n; i++ {
		c.slots[s-uint8(i)] = stackSlot{node: node, depth: depth}
	}
}

// forget drops every slot naming node.
func (c *traceStackCache) forget(node NodeRef) {
	for i := range c.slots {
		if c.slots[i].node == node {
			c.slots[i] = stackSlot{}
		}
	}
}

func (c *traceStackCache) verify(t *CallTree) error {
	for i, slot := range c.slots {
		if slot.node.IsNil() {
			continue
		}
		if !t.Valid(slot.node) {
			return fmt.Errorf("stack slot $%02X holds stale node %v", i, slot.node)
		}
		if slot.depth < 0 || slot.depth > TRACE_MAX_NESTING_DEPTH {
			return fmt.Errorf("stack slot $%02X depth %d out of range", i, slot.depth)
		}
	}
	return nil
}
