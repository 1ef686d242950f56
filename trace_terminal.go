// trace_terminal.go - Interactive host for the trace tree monitor

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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const traceMonitorPrompt = "trace> "

// ansiColor wraps text in a 24-bit foreground colour escape.
func ansiColor(text string, c uint32) string {
	return fmt.Sprintf("\033[38;2;%d;%d;%dm%s\033[0m", byte(c>>24), byte(c>>16), byte(c>>8), text)
}

// TraceTerminal runs the monitor command loop against a session.
type TraceTerminal struct {
	session *TraceSession
	color   bool
}

// NewTraceTerminal creates a command loop for s.
func NewTraceTerminal(s *TraceSession) *TraceTerminal {
	return &TraceTerminal{session: s}
}

// flush writes pending scrollback lines to w. term.Terminal translates
// newlines for raw mode itself.
func (h *TraceTerminal) flush(w io.Writer) {
	for _, l := range h.session.DrainOutput() {
		text := l.Text
		if h.color {
			text = ansiColor(text, l.Color)
		}
		fmt.Fprintln(w, text)
	}
}

// Run reads commands from stdin until "x" or end of input. A terminal gets
// raw mode line editing and a page size matching its height; anything else
// is read line by line.
func (h *TraceTerminal) Run() error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return h.RunLines(os.Stdin, os.Stdout)
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("trace terminal: failed to set raw mode: %w", err)
	}
	defer func() { _ = term.Restore(fd, oldState) }()

	if _, rows, err := term.GetSize(fd); err == nil && rows > 4 {
		h.session.SetPageLines(rows - 2)
	}

	rw := struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}
	t := term.NewTerminal(rw, traceMonitorPrompt)
	h.color = true
	for {
		line, err := t.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("trace terminal: %w", err)
		}
		exit := h.session.ExecuteCommand(line)
		h.flush(t)
		if exit {
			return nil
		}
	}
}

// RunLines executes one command per input line without terminal handling.
func (h *TraceTerminal) RunLines(r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		exit := h.session.ExecuteCommand(line)
		for _, l := range h.session.DrainOutput() {
			fmt.Fprintln(w, l.Text)
		}
		if exit {
			return nil
		}
	}
	return sc.Err()
}
