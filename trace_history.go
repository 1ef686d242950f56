// trace_history.go - Ring buffer of executed instructions addressed by absolute offset

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

// TraceHistory keeps the most recent entries of an instruction trace. Offsets
// grow monotonically from zero; entries older than the capacity are dropped.
type TraceHistory struct {
	entries []TraceEntry
	mask    int64
	next    int64
}

// NewTraceHistory creates a history holding 1<<shift entries.
func NewTraceHistory(shift int) *TraceHistory {
	if shift < 1 || shift > 30 {
		panic(fmt.Sprintf("TraceHistory: capacity shift %d out of range", shift))
	}
	size := int64(1) << shift
	return &TraceHistory{entries: make([]TraceEntry, size), mask: size - 1}
}

// Cap returns the number of entries the history can hold.
func (h *TraceHistory) Cap() int { return len(h.entries) }

// Next returns the offset the next appended entry will get.
func (h *TraceHistory) Next() int64 { return h.next }

// Oldest returns the offset of the oldest entry still held.
func (h *TraceHistory) Oldest() int64 {
	if h.next > int64(len(h.entries)) {
		return h.next - int64(len(h.entries))
	}
	return 0
}

// Len returns the number of entries held.
func (h *TraceHistory) Len() int { return int(h.next - h.Oldest()) }

// Append records entries and returns the offset of the first one.
func (h *TraceHistory) Append(entries ...TraceEntry) int64 {
	start := h.next
	for i := range entries {
		h.entries[h.next&h.mask] = entries[i]
		h.next++
	}
	return start
}

// Entry returns the entry at off.
func (h *TraceHistory) Entry(off int64) (TraceEntry, bool) {
	if off < h.Oldest() || off >= h.next {
		return TraceEntry{}, false
	}
	return h.entries[off&h.mask], true
}

// Range appends the entries in [from, to) to dst, clamped to what is held,
// and returns the offset of the first entry copied.
func (h *TraceHistory) Range(dst []TraceEntry, from, to int64) ([]TraceEntry, int64) {
	if oldest := h.Oldest(); from < oldest {
		from = oldest
	}
	if to > h.next {
		to = h.next
	}
	for off := from; off < to; off++ {
		dst = append(dst, h.entries[off&h.mask])
	}
	return dst, from
}

// Clear drops every entry and restarts offsets at zero.
func (h *TraceHistory) Clear() {
	clear(h.entries)
	h.next = 0
}
