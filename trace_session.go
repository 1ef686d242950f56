// trace_session.go - Trace session: history, translator, tree builder and monitor scrollback

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
	"os"
	"strings"
	"sync"
)

// OutputLine holds styled text for the session scrollback buffer.
type OutputLine struct {
	Text  string
	Color uint32 // RGBA packed
}

// Color constants (RGBA packed as 0xRRGGBBAA)
const (
	colorWhite  = 0xFFFFFFFF
	colorCyan   = 0x64C8FFFF
	colorYellow = 0xFFFF55FF
	colorRed    = 0xFF5555FF
	colorGreen  = 0x55FF55FF
	colorDim    = 0x5555FFFF
)

// traceSessionBatch is the number of history entries translated per update.
const traceSessionBatch = 4096

// TraceSession owns a trace history and the call tree built from it. All
// methods are safe for concurrent use; the tree is only read between
// update batches.
type TraceSession struct {
	mu sync.Mutex

	history    *TraceHistory
	translator TraceTranslator
	tree       *CallTree
	builder    *TraceTreeBuilder

	built int64 // next history offset the builder has not seen
	raw   []TraceEntry
	canon []CanonicalInsn

	top       int // first display line shown by "show"
	pageLines int

	outputLines []OutputLine
	maxOutput   int

	cmdHistory  []string
	macros      map[string][]string
	scriptDepth int
}

// NewTraceSession creates a session with a history of 1<<historyShift entries.
func NewTraceSession(tr TraceTranslator, opts TraceTreeOptions, historyShift int) *TraceSession {
	if opts.StackResetThreshold == 0 {
		opts.StackResetThreshold = tr.StackResetThreshold()
	}
	tree := NewCallTree()
	return &TraceSession{
		history:    NewTraceHistory(historyShift),
		translator: tr,
		tree:       tree,
		builder:    NewTraceTreeBuilder(tree, opts),
		pageLines:  20,
		maxOutput:  500,
		macros:     make(map[string][]string),
	}
}

// Record appends entries to the history without building.
func (s *TraceSession) Record(entries ...TraceEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Append(entries...)
}

// Sync feeds every unbuilt history entry to the builder and returns the
// earliest display line disturbed, or TRACE_NO_INVALIDATION when tracking
// is off.
func (s *TraceSession) Sync(track bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync(track)
}

func (s *TraceSession) sync(track bool) int {
	inval := TRACE_NO_INVALIDATION
	if track {
		inval = TRACE_INVALIDATION_UNSET
	}
	if oldest := s.history.Oldest(); s.built < oldest {
		// entries were overwritten before they were built; the builder sees
		// the offset gap and resets its stack state
		s.built = oldest
	}
	for s.built < s.history.Next() {
		var start int64
		s.raw, start = s.history.Range(s.raw[:0], s.built, s.built+traceSessionBatch)
		s.canon = s.translator.Translate(s.canon[:0], s.raw)

		s.builder.BeginUpdate(track)
		s.builder.Update(start, s.canon)
		line, _ := s.builder.EndUpdate()
		if line >= 0 && (inval < 0 || line < inval) {
			inval = line
		}
		s.built = start + int64(len(s.raw))
	}
	return inval
}

// Load replaces the history with a capture and rebuilds the tree. A nil
// translator keeps the current one when it matches the capture architecture
// and otherwise picks the built-in one.
func (s *TraceSession) Load(c *TraceCapture, tr TraceTranslator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(c, tr)
}

func (s *TraceSession) load(c *TraceCapture, tr TraceTranslator) error {
	if tr == nil {
		if c.Arch == s.translator.Name() {
			tr = s.translator
		} else {
			var err error
			if tr, err = NewTraceTranslator(c.Arch); err != nil {
				return err
			}
		}
	}
	if len(c.Entries) > s.history.Cap() {
		fmt.Fprintf(os.Stderr, "ietrace: capture holds %d entries, keeping the last %d\n", len(c.Entries), s.history.Cap())
	}
	s.translator = tr
	opts := s.builder.Options()
	opts.StackResetThreshold = tr.StackResetThreshold()
	s.history.Clear()
	s.history.Append(c.Entries...)
	s.rebuild(opts)
	return nil
}

// SetOptions changes the collapse switches and rebuilds the tree from the
// entries still held.
func (s *TraceSession) SetOptions(opts TraceTreeOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setOptions(opts)
}

func (s *TraceSession) setOptions(opts TraceTreeOptions) {
	if opts.StackResetThreshold == 0 {
		opts.StackResetThreshold = s.translator.StackResetThreshold()
	}
	s.rebuild(opts)
}

// Options returns the builder configuration.
func (s *TraceSession) Options() TraceTreeOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Options()
}

// Rebuild discards the tree and builds it again from the history.
func (s *TraceSession) Rebuild() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuild(s.builder.Options())
}

func (s *TraceSession) rebuild(opts TraceTreeOptions) {
	s.tree.Clear()
	s.builder.SetOptions(opts)
	s.built = s.history.Oldest()
	s.top = 0
	s.sync(false)
}

// TraceSessionStats is a snapshot of session counters.
type TraceSessionStats struct {
	Arch     string
	Held     int
	Capacity int
	Next     int64
	Lines    int
	Tree     CallTreeStats
	Builder  TraceTreeStats
}

// Stats returns the current counters.
func (s *TraceSession) Stats() TraceSessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TraceSessionStats{
		Arch:     s.translator.Name(),
		Held:     s.history.Len(),
		Capacity: s.history.Cap(),
		Next:     s.history.Next(),
		Lines:    s.tree.LineCount(),
		Tree:     s.tree.Stats(),
		Builder:  s.builder.Stats(),
	}
}

// Digest returns the structural digest of the current tree.
func (s *TraceSession) Digest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Digest()
}

// ViewLine is a rendered display line.
type ViewLine struct {
	Line  int
	Text  string
	Color uint32
}

// View renders count display lines starting at from.
func (s *TraceSession) View(from, count int) []ViewLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.render(from, count)
}

func (s *TraceSession) render(from, count int) []ViewLine {
	lines := s.tree.Lines(from, count)
	out := make([]ViewLine, 0, len(lines))
	for _, l := range lines {
		text, color := s.formatLine(l)
		out = append(out, ViewLine{Line: l.Line, Text: text, Color: color})
	}
	return out
}

func (s *TraceSession) formatLine(l TreeLine) (string, uint32) {
	marker := "  "
	if l.Children {
		marker = "+ "
		if l.Expanded {
			marker = "- "
		}
	}
	indent := strings.Repeat("  ", l.Depth)
	switch l.Kind {
	case TraceNodeInstructions:
		e, ok := s.history.Entry(l.Offset)
		if !ok {
			return fmt.Sprintf("%s%s%8d  <dropped>", indent, marker, l.Offset), colorDim
		}
		return fmt.Sprintf("%s%s%8d  $%04X  %s", indent, marker, l.Offset, e.PC, s.translator.Mnemonic(e)), colorWhite
	case TraceNodeRepeat:
		return fmt.Sprintf("%s%sRepeat %d times (%d instructions)", indent, marker, l.Count, l.Block), colorYellow
	case TraceNodeInterrupt:
		return indent + marker + l.Text, colorRed
	default:
		return indent + marker + l.Text, colorCyan
	}
}

// Output returns a copy of the scrollback.
func (s *TraceSession) Output() []OutputLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OutputLine(nil), s.outputLines...)
}

// DrainOutput returns the scrollback and empties it.
func (s *TraceSession) DrainOutput() []OutputLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.outputLines
	s.outputLines = nil
	return out
}

// appendOutput adds a line to the scrollback buffer.
func (s *TraceSession) appendOutput(text string, color uint32) {
	s.outputLines = append(s.outputLines, OutputLine{Text: text, Color: color})
	if len(s.outputLines) > s.maxOutput {
		s.outputLines = s.outputLines[len(s.outputLines)-s.maxOutput:]
	}
}

// SetPageLines sets the default number of lines "show" prints.
func (s *TraceSession) SetPageLines(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.pageLines = n
	}
}
