package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func newTestSession(t *testing.T, opts TraceTreeOptions, shift int) *TraceSession {
	t.Helper()
	return NewTraceSession(mustTranslator(t, "6502"), opts, shift)
}

func TestTraceSession_Load(t *testing.T) {
	s := newTestSession(t, allFolding(), 12)
	entries := testEntries6502(10)
	if err := s.Load(&TraceCapture{Arch: "6502", Entries: entries}, nil); err != nil {
		t.Fatal(err)
	}
	st := s.Stats()
	if st.Arch != "6502" || st.Held != len(entries) || st.Capacity != 4096 || st.Next != int64(len(entries)) {
		t.Fatalf("stats = %+v", st)
	}
	if st.Builder.Instructions != int64(len(entries)) {
		t.Fatalf("built %d instructions, want %d", st.Builder.Instructions, len(entries))
	}
	if st.Lines == 0 || st.Lines != s.tree.LineCount() {
		t.Fatalf("Lines = %d", st.Lines)
	}
}

func TestTraceSession_LoadSwitchesArch(t *testing.T) {
	s := newTestSession(t, loopsOnly(), 10)
	c := &TraceCapture{Arch: "6809", Entries: []TraceEntry{{PC: 0x1000, Opcode: 0x12, SP: 0x7FFF}}}
	if err := s.Load(c, nil); err != nil {
		t.Fatal(err)
	}
	if s.Stats().Arch != "6809" {
		t.Fatalf("Arch = %q", s.Stats().Arch)
	}
	if got := s.Options().StackResetThreshold; got != 16 {
		t.Fatalf("StackResetThreshold = %d, want the 6809 value", got)
	}

	c.Arch = "vax"
	if err := s.Load(c, nil); !errors.Is(err, ErrUnknownArch) {
		t.Fatalf("Load = %v, want ErrUnknownArch", err)
	}
	if s.Stats().Arch != "6809" {
		t.Fatal("failed load replaced the translator")
	}
}

func TestTraceSession_IncrementalSyncMatchesLoad(t *testing.T) {
	entries := testEntries6502(30)

	whole := newTestSession(t, allFolding(), 12)
	if err := whole.Load(&TraceCapture{Arch: "6502", Entries: entries}, nil); err != nil {
		t.Fatal(err)
	}

	inc := newTestSession(t, allFolding(), 12)
	for start := 0; start < len(entries); start += 17 {
		end := min(start+17, len(entries))
		inc.Record(entries[start:end]...)
		line := inc.Sync(true)
		if line < TRACE_INVALIDATION_UNSET {
			t.Fatalf("tracked sync returned %d", line)
		}
		if line >= 0 && line > inc.tree.LineCount() {
			t.Fatalf("invalidation line %d beyond %d lines", line, inc.tree.LineCount())
		}
	}
	if inc.Digest() != whole.Digest() {
		t.Fatalf("incremental build differs\ngot:\n%s\nwant:\n%s", inc.tree.Dump(), whole.tree.Dump())
	}
	if got := inc.Sync(false); got != TRACE_NO_INVALIDATION {
		t.Fatalf("untracked Sync = %d", got)
	}
}

func TestTraceSession_SyncWithNothingNew(t *testing.T) {
	s := newTestSession(t, loopsOnly(), 8)
	if got := s.Sync(true); got != TRACE_INVALIDATION_UNSET {
		t.Fatalf("Sync on an empty history = %d", got)
	}
}

func TestTraceSession_DroppedEntries(t *testing.T) {
	s := newTestSession(t, TraceTreeOptions{}, 4)
	s.Record(testEntries6502(2)[:16]...)
	s.Sync(false)
	if got := s.tree.LineCount(); got != 16 {
		t.Fatalf("LineCount = %d, want 16", got)
	}

	// overwrite half the history before the tree sees it
	more := testEntries6502(2)
	s.Record(more[:24]...)
	view := s.View(0, 1)
	if len(view) != 1 || !strings.Contains(view[0].Text, "<dropped>") || view[0].Color != colorDim {
		t.Fatalf("View(0, 1) = %+v, want a dropped line", view)
	}

	s.Sync(false)
	if got := s.Stats().Builder.Discontinuities; got != 1 {
		t.Fatalf("Discontinuities = %d, want 1", got)
	}
	if got := s.tree.LineCount(); got != 32 {
		t.Fatalf("LineCount = %d, want 32", got)
	}
}

func TestTraceSession_SetOptionsRebuilds(t *testing.T) {
	entries := testEntries6502(15)
	c := &TraceCapture{Arch: "6502", Entries: entries}

	s := newTestSession(t, TraceTreeOptions{}, 12)
	if err := s.Load(c, nil); err != nil {
		t.Fatal(err)
	}
	if s.Stats().Tree.Repeats != 0 {
		t.Fatal("repeats built with loops off")
	}
	s.SetOptions(allFolding())

	fresh := newTestSession(t, allFolding(), 12)
	if err := fresh.Load(c, nil); err != nil {
		t.Fatal(err)
	}
	if s.Digest() != fresh.Digest() {
		t.Fatalf("SetOptions build differs\ngot:\n%s\nwant:\n%s", s.tree.Dump(), fresh.tree.Dump())
	}
	if s.Options().StackResetThreshold != TRACE_STACK_RESET_DEFAULT {
		t.Fatal("SetOptions lost the translator threshold")
	}

	before := s.Digest()
	s.Rebuild()
	if s.Digest() != before {
		t.Fatal("Rebuild changed the tree")
	}
}

func TestTraceSession_View(t *testing.T) {
	s := newTestSession(t, TraceTreeOptions{CollapseCalls: true}, 10)
	if err := s.Load(&TraceCapture{Arch: "6502", Entries: testEntries6502(1)}, nil); err != nil {
		t.Fatal(err)
	}
	view := s.View(0, 4)
	want := []struct {
		prefix string
		suffix string
	}{
		{"  ", "0  $0800  LDA #$05"},
		{"- ", "1  $0802  JSR $0900"},
		{"    ", "2  $0900  LDX #$04"},
		{"    ", "3  $0902  DEX"},
	}
	if len(view) != len(want) {
		t.Fatalf("View returned %d lines\n%s", len(view), s.tree.Dump())
	}
	for i, w := range want {
		v := view[i]
		if v.Line != i || !strings.HasPrefix(v.Text, w.prefix) || !strings.HasSuffix(v.Text, w.suffix) {
			t.Errorf("line %d = %q, want prefix %q suffix %q", i, v.Text, w.prefix, w.suffix)
		}
		if v.Color != colorWhite {
			t.Errorf("line %d color %08X", i, v.Color)
		}
	}
}

func TestTraceSession_FormatMarkers(t *testing.T) {
	s := newTestSession(t, loopsOnly(), 8)
	tests := []struct {
		line  TreeLine
		text  string
		color uint32
	}{
		{TreeLine{Kind: TraceNodeRepeat, Count: 3, Block: 4, Children: true}, "+ Repeat 3 times (4 instructions)", colorYellow},
		{TreeLine{Kind: TraceNodeLabel, Depth: 1, Text: TRACE_SUBROUTINE_CALL_TEXT, Children: true, Expanded: true}, "  - Subroutine call", colorCyan},
		{TreeLine{Kind: TraceNodeInterrupt, Text: "Interrupt"}, "  Interrupt", colorRed},
	}
	for _, tt := range tests {
		text, color := s.formatLine(tt.line)
		if text != tt.text || color != tt.color {
			t.Errorf("formatLine(%s) = %q %08X, want %q %08X", tt.line.Kind, text, color, tt.text, tt.color)
		}
	}
}

func TestTraceSession_OutputBuffer(t *testing.T) {
	s := newTestSession(t, loopsOnly(), 8)
	for i := range 600 {
		s.appendOutput(fmt.Sprint(i), colorWhite)
	}
	out := s.Output()
	if len(out) != 500 || out[0].Text != "100" || out[499].Text != "599" {
		t.Fatalf("Output kept %d lines from %q", len(out), out[0].Text)
	}
	if len(s.DrainOutput()) != 500 || len(s.Output()) != 0 {
		t.Fatal("DrainOutput did not empty the buffer")
	}

	s.SetPageLines(0)
	if s.pageLines != 20 {
		t.Fatal("SetPageLines accepted zero")
	}
	s.SetPageLines(50)
	if s.pageLines != 50 {
		t.Fatal("SetPageLines ignored a valid size")
	}
}

func BenchmarkTraceSessionSync(b *testing.B) {
	tr, _ := NewTraceTranslator("6502")
	entries := testEntries6502(4000)
	b.ReportAllocs()
	for b.Loop() {
		s := NewTraceSession(tr, allFolding(), 16)
		s.Record(entries...)
		s.Sync(false)
	}
}
