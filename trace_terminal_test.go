package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestAnsiColor(t *testing.T) {
	got := ansiColor("hi", 0xFF8000FF)
	if got != "\033[38;2;255;128;0mhi\033[0m" {
		t.Fatalf("ansiColor = %q", got)
	}
}

func TestTraceTerminal_RunLines(t *testing.T) {
	s := newCommandSession(t)
	in := strings.NewReader("# setup\n\nshow 0 2\nbogus\nx\nstats\n")
	var out bytes.Buffer
	if err := NewTraceTerminal(s).RunLines(in, &out); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("printed %d lines:\n%s", len(lines), text)
	}
	if !strings.HasSuffix(lines[0], "LDA #$05") || lines[2] != "Unknown command: bogus" {
		t.Fatalf("output:\n%s", text)
	}
	if strings.Contains(text, "Architecture:") {
		t.Fatal("commands after x were executed")
	}
}

func TestTraceTerminal_RunLinesToEOF(t *testing.T) {
	s := newCommandSession(t)
	var out bytes.Buffer
	if err := NewTraceTerminal(s).RunLines(strings.NewReader("stats"), &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Architecture:   6502") {
		t.Fatalf("output:\n%s", out.String())
	}
}

func TestTraceTerminal_FlushColors(t *testing.T) {
	s := newCommandSession(t)
	h := NewTraceTerminal(s)
	h.color = true
	s.ExecuteCommand("bogus")
	var out bytes.Buffer
	h.flush(&out)
	if out.String() != ansiColor("Unknown command: bogus", colorRed)+"\n" {
		t.Fatalf("flush wrote %q", out.String())
	}
	out.Reset()
	h.flush(&out)
	if out.Len() != 0 {
		t.Fatal("flush repeated drained output")
	}
}
