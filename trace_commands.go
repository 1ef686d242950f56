// trace_commands.go - Command parser and handlers for the trace tree monitor

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
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// MonitorCommand is a parsed command with name and arguments.
type MonitorCommand struct {
	Name string
	Args []string
}

// ParseCommand splits a raw input line into a command name and arguments.
func ParseCommand(input string) MonitorCommand {
	input = strings.TrimSpace(input)
	if input == "" {
		return MonitorCommand{}
	}
	parts := strings.Fields(input)
	return MonitorCommand{
		Name: strings.ToLower(parts[0]),
		Args: parts[1:],
	}
}

// ParseAddress parses a monitor address in various formats:
// $hex, 0xhex, bare hex, #decimal
func ParseAddress(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	// #decimal
	if strings.HasPrefix(s, "#") {
		v, err := strconv.ParseUint(s[1:], 10, 64)
		return v, err == nil
	}

	// $hex
	if strings.HasPrefix(s, "$") {
		v, err := strconv.ParseUint(s[1:], 16, 64)
		return v, err == nil
	}

	// 0x or 0X hex
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 64)
		return v, err == nil
	}

	// bare hex (try hex first)
	v, err := strconv.ParseUint(s, 16, 64)
	return v, err == nil
}

// parseCount parses a line number or count. Unlike addresses these default
// to decimal; $hex and 0xhex are still accepted.
func parseCount(s string) (int, bool) {
	if strings.HasPrefix(s, "$") || strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") || strings.HasPrefix(s, "#") {
		v, ok := ParseAddress(s)
		return int(v), ok && v <= 1<<31
	}
	v, err := strconv.Atoi(s)
	return v, err == nil && v >= 0
}

// ExecuteCommand runs one command line. Returns true if the monitor should exit.
func (s *TraceSession) ExecuteCommand(input string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execute(input)
}

func (s *TraceSession) execute(input string) bool {
	cmd := ParseCommand(input)
	if cmd.Name == "" {
		return false
	}

	if len(s.cmdHistory) == 0 || s.cmdHistory[len(s.cmdHistory)-1] != input {
		s.cmdHistory = append(s.cmdHistory, input)
	}

	switch cmd.Name {
	case "load":
		return s.cmdLoad(cmd)
	case "append":
		return s.cmdAppend(cmd)
	case "show", "l":
		return s.cmdShow(cmd)
	case "expand", "+":
		return s.cmdExpand(cmd, true)
	case "collapse", "-":
		return s.cmdExpand(cmd, false)
	case "find", "f":
		return s.cmdFind(cmd)
	case "stats":
		return s.cmdStats(cmd)
	case "reset":
		return s.cmdReset(cmd)
	case "rebuild":
		return s.cmdRebuild(cmd)
	case "set":
		return s.cmdSet(cmd)
	case "copy":
		return s.cmdCopy(cmd)
	case "png":
		return s.cmdPNG(cmd)
	case "script":
		return s.cmdScript(cmd)
	case "macro":
		return s.cmdMacro(cmd)
	case "x", "quit":
		return true
	case "?", "help":
		return s.cmdHelp(cmd)
	default:
		if cmds, ok := s.macros[cmd.Name]; ok {
			return s.executeMacro(cmds)
		}
		s.appendOutput(fmt.Sprintf("Unknown command: %s", cmd.Name), colorRed)
		return false
	}
}

func (s *TraceSession) cmdLoad(cmd MonitorCommand) bool {
	if len(cmd.Args) < 1 {
		s.appendOutput("Usage: load <capture> [translator.lua]", colorRed)
		return false
	}
	c, err := ReadCapture(cmd.Args[0])
	if err != nil {
		s.appendOutput(fmt.Sprintf("Error: %s", err), colorRed)
		return false
	}
	var tr TraceTranslator
	if len(cmd.Args) > 1 {
		if tr, err = LoadLuaTranslator(cmd.Args[1]); err != nil {
			s.appendOutput(fmt.Sprintf("Error: %s", err), colorRed)
			return false
		}
	}
	if err := s.load(c, tr); err != nil {
		s.appendOutput(fmt.Sprintf("Error: %s", err), colorRed)
		return false
	}
	s.appendOutput(fmt.Sprintf("Loaded %s %s entries, %s lines",
		humanize.Comma(int64(len(c.Entries))), s.translator.Name(), humanize.Comma(int64(s.tree.LineCount()))), colorCyan)
	return false
}

// cmdAppend records a capture after the current history and builds it
// incrementally, reporting the first line that needs a redraw.
func (s *TraceSession) cmdAppend(cmd MonitorCommand) bool {
	if len(cmd.Args) != 1 {
		s.appendOutput("Usage: append <capture>", colorRed)
		return false
	}
	c, err := ReadCapture(cmd.Args[0])
	if err != nil {
		s.appendOutput(fmt.Sprintf("Error: %s", err), colorRed)
		return false
	}
	if c.Arch != s.translator.Name() {
		s.appendOutput(fmt.Sprintf("Capture is %s, session is %s", c.Arch, s.translator.Name()), colorRed)
		return false
	}
	s.history.Append(c.Entries...)
	line := s.sync(true)
	switch {
	case line >= 0:
		s.appendOutput(fmt.Sprintf("Appended %s entries, redraw from line %d",
			humanize.Comma(int64(len(c.Entries))), line), colorCyan)
	default:
		s.appendOutput(fmt.Sprintf("Appended %s entries", humanize.Comma(int64(len(c.Entries)))), colorCyan)
	}
	return false
}

func (s *TraceSession) cmdShow(cmd MonitorCommand) bool {
	from, count := s.top, s.pageLines
	if len(cmd.Args) > 0 {
		v, ok := parseCount(cmd.Args[0])
		if !ok {
			s.appendOutput(fmt.Sprintf("Invalid line: %s", cmd.Args[0]), colorRed)
			return false
		}
		from = v
	}
	if len(cmd.Args) > 1 {
		v, ok := parseCount(cmd.Args[1])
		if !ok || v == 0 {
			s.appendOutput(fmt.Sprintf("Invalid count: %s", cmd.Args[1]), colorRed)
			return false
		}
		count = v
	}
	lines := s.render(from, count)
	if len(lines) == 0 {
		s.appendOutput(fmt.Sprintf("No lines at %d (%d total)", from, s.tree.LineCount()), colorDim)
		return false
	}
	for _, l := range lines {
		s.appendOutput(fmt.Sprintf("%6d %s", l.Line, l.Text), l.Color)
	}
	s.top = lines[len(lines)-1].Line + 1
	return false
}

// cmdExpand opens or closes the node shown on a display line, or every
// node of the folding kinds with "all".
func (s *TraceSession) cmdExpand(cmd MonitorCommand, expanded bool) bool {
	verb := "expand"
	if !expanded {
		verb = "collapse"
	}
	if len(cmd.Args) != 1 {
		s.appendOutput(fmt.Sprintf("Usage: %s <line|all>", verb), colorRed)
		return false
	}
	if strings.EqualFold(cmd.Args[0], "all") {
		for _, k := range []TraceNodeKind{TraceNodeRepeat, TraceNodeLabel, TraceNodeInterrupt, TraceNodeInstructions} {
			s.tree.ExpandAll(k, expanded)
		}
		s.appendOutput(fmt.Sprintf("%d lines", s.tree.LineCount()), colorCyan)
		return false
	}
	line, ok := parseCount(cmd.Args[0])
	if !ok {
		s.appendOutput(fmt.Sprintf("Invalid line: %s", cmd.Args[0]), colorRed)
		return false
	}
	l := s.tree.Lines(line, 1)
	if len(l) == 0 {
		s.appendOutput(fmt.Sprintf("No line %d", line), colorRed)
		return false
	}
	if !l[0].Children {
		s.appendOutput(fmt.Sprintf("Line %d has nothing to %s", line, verb), colorDim)
		return false
	}
	s.tree.SetExpanded(l[0].Node, expanded)
	s.appendOutput(fmt.Sprintf("%d lines", s.tree.LineCount()), colorCyan)
	return false
}

// cmdFind locates the next executed instruction at a PC, searching forward
// from the offset shown at the top line and wrapping once.
func (s *TraceSession) cmdFind(cmd MonitorCommand) bool {
	if len(cmd.Args) != 1 {
		s.appendOutput("Usage: find <pc>", colorRed)
		return false
	}
	pc, ok := ParseAddress(cmd.Args[0])
	if !ok || pc > 0xFFFFFFFF {
		s.appendOutput(fmt.Sprintf("Invalid address: %s", cmd.Args[0]), colorRed)
		return false
	}

	start := s.history.Oldest()
	if l := s.tree.Lines(s.top, 1); len(l) == 1 && l[0].Offset >= 0 {
		start = l[0].Offset + 1
	}
	oldest, next := s.history.Oldest(), s.history.Next()
	for i := int64(0); i < next-oldest; i++ {
		off := start + i
		if off >= next {
			off = oldest + (off - next)
		}
		e, _ := s.history.Entry(off)
		if e.PC != uint32(pc) {
			continue
		}
		line := s.tree.RevealOffset(off)
		if line < 0 {
			continue
		}
		s.top = line
		s.appendOutput(fmt.Sprintf("$%04X at offset %d, line %d", pc, off, line), colorCyan)
		return false
	}
	s.appendOutput(fmt.Sprintf("$%04X not found", pc), colorRed)
	return false
}

func (s *TraceSession) cmdStats(_ MonitorCommand) bool {
	ts := s.tree.Stats()
	bs := s.builder.Stats()
	opts := s.builder.Options()
	lines := []string{
		fmt.Sprintf("Architecture:   %s", s.translator.Name()),
		fmt.Sprintf("History:        %s of %s entries (next %s)",
			humanize.Comma(int64(s.history.Len())), humanize.Comma(int64(s.history.Cap())), humanize.Comma(s.history.Next())),
		fmt.Sprintf("Folding:        loops %s, calls %s, irqs %s",
			onOff(opts.CollapseLoops), onOff(opts.CollapseCalls), onOff(opts.CollapseInterrupts)),
		fmt.Sprintf("Tree:           %s nodes, %s lines, depth %d",
			humanize.Comma(int64(ts.Nodes)), humanize.Comma(int64(s.tree.LineCount())), ts.MaxDepth),
		fmt.Sprintf("  runs          %s (%s instructions)", humanize.Comma(int64(ts.Runs)), humanize.Comma(int64(ts.Instructions))),
		fmt.Sprintf("  repeats       %s", humanize.Comma(int64(ts.Repeats))),
		fmt.Sprintf("  calls         %s", humanize.Comma(int64(ts.Labels))),
		fmt.Sprintf("  interrupts    %s", humanize.Comma(int64(ts.Interrupts))),
		fmt.Sprintf("Builder:        %s instructions, %s folds, %s forced resets, %s gaps",
			humanize.Comma(bs.Instructions), humanize.Comma(bs.IterationsFolded+bs.RepeatsCreated),
			humanize.Comma(bs.ForcedResets), humanize.Comma(bs.Discontinuities)),
		fmt.Sprintf("Memory:         %s of nodes", humanize.Bytes(uint64(s.tree.Footprint()))),
		fmt.Sprintf("Digest:         %016X", s.tree.Digest()),
	}
	for _, l := range lines {
		s.appendOutput(l, colorCyan)
	}
	return false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// cmdReset drops the builder's stack and loop state. The tree is kept and
// later entries attach under the root.
func (s *TraceSession) cmdReset(_ MonitorCommand) bool {
	s.builder.Reset()
	s.appendOutput("Builder state reset", colorCyan)
	return false
}

func (s *TraceSession) cmdRebuild(_ MonitorCommand) bool {
	s.rebuild(s.builder.Options())
	s.appendOutput(fmt.Sprintf("Rebuilt %s lines", humanize.Comma(int64(s.tree.LineCount()))), colorCyan)
	return false
}

func (s *TraceSession) cmdSet(cmd MonitorCommand) bool {
	if len(cmd.Args) != 2 {
		s.appendOutput("Usage: set loops|calls|irqs on|off, set page <lines>", colorRed)
		return false
	}
	name := strings.ToLower(cmd.Args[0])
	if name == "page" {
		n, ok := parseCount(cmd.Args[1])
		if !ok || n == 0 {
			s.appendOutput(fmt.Sprintf("Invalid count: %s", cmd.Args[1]), colorRed)
			return false
		}
		s.pageLines = n
		return false
	}

	var on bool
	switch strings.ToLower(cmd.Args[1]) {
	case "on", "1", "true":
		on = true
	case "off", "0", "false":
	default:
		s.appendOutput(fmt.Sprintf("Invalid value: %s", cmd.Args[1]), colorRed)
		return false
	}
	opts := s.builder.Options()
	switch name {
	case "loops":
		opts.CollapseLoops = on
	case "calls":
		opts.CollapseCalls = on
	case "irqs":
		opts.CollapseInterrupts = on
	default:
		s.appendOutput(fmt.Sprintf("Unknown option: %s", cmd.Args[0]), colorRed)
		return false
	}
	s.setOptions(opts)
	s.appendOutput(fmt.Sprintf("%s %s, %s lines", name, onOff(on), humanize.Comma(int64(s.tree.LineCount()))), colorCyan)
	return false
}

// copyLimit caps the lines put on the clipboard.
const copyLimit = 10000

// viewText renders up to count lines from from as plain text.
func (s *TraceSession) viewText(from, count int) string {
	var sb strings.Builder
	for _, l := range s.render(from, count) {
		fmt.Fprintf(&sb, "%6d %s\n", l.Line, l.Text)
	}
	return sb.String()
}

func (s *TraceSession) cmdCopy(_ MonitorCommand) bool {
	n := min(s.tree.LineCount(), copyLimit)
	if err := clipboardWriter(s.viewText(0, n)); err != nil {
		s.appendOutput(fmt.Sprintf("Error: %s", err), colorRed)
		return false
	}
	s.appendOutput(fmt.Sprintf("Copied %d lines", n), colorCyan)
	return false
}

func (s *TraceSession) cmdPNG(cmd MonitorCommand) bool {
	if len(cmd.Args) != 1 {
		s.appendOutput("Usage: png <file>", colorRed)
		return false
	}
	header := fmt.Sprintf("%s trace, lines %d-%d of %d", s.translator.Name(), s.top, s.top+s.pageLines-1, s.tree.LineCount())
	if err := NewTraceOverlay().SavePNG(cmd.Args[0], header, s.render(s.top, s.pageLines)); err != nil {
		s.appendOutput(fmt.Sprintf("Error: %s", err), colorRed)
		return false
	}
	s.appendOutput(fmt.Sprintf("Saved %s", cmd.Args[0]), colorCyan)
	return false
}

func (s *TraceSession) cmdHelp(_ MonitorCommand) bool {
	helpLines := []string{
		"Trace Tree Commands:",
		"  load <file> [lua]    Load capture (.bin, .zst, .txt), optional translator script",
		"  append <file>        Append capture and build incrementally",
		"  show [line] [count]  Show display lines (l)",
		"  expand <line|all>    Expand node (+)",
		"  collapse <line|all>  Collapse node (-)",
		"  find <pc>            Find next execution of address (f)",
		"  stats                Tree and builder statistics",
		"  set loops|calls|irqs on|off   Folding switches (rebuilds)",
		"  set page <lines>     Lines per show",
		"  reset                Reset builder stack and loop state",
		"  rebuild              Rebuild tree from history",
		"  copy                 Copy view to clipboard",
		"  png <file>           Save current page as PNG",
		"  script <file>        Run command script",
		"  macro <name> <cmds..> Define macro (;-separated)",
		"  x                    Exit",
		"",
		"Addresses: $hex, 0xhex, bare hex, #decimal",
	}
	for _, line := range helpLines {
		s.appendOutput(line, colorCyan)
	}
	return false
}

func (s *TraceSession) cmdScript(cmd MonitorCommand) bool {
	if len(cmd.Args) < 1 {
		s.appendOutput("Usage: script <filename>", colorRed)
		return false
	}

	data, err := os.ReadFile(cmd.Args[0])
	if err != nil {
		s.appendOutput(fmt.Sprintf("Error: %s", err), colorRed)
		return false
	}

	s.scriptDepth++
	if s.scriptDepth > 8 {
		s.scriptDepth--
		s.appendOutput("Script recursion limit reached", colorRed)
		return false
	}

	for line := range strings.SplitSeq(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if s.execute(line) {
			s.scriptDepth--
			return true
		}
	}

	s.scriptDepth--
	return false
}

func (s *TraceSession) cmdMacro(cmd MonitorCommand) bool {
	if len(cmd.Args) < 2 {
		s.appendOutput("Usage: macro <name> <cmd1> ; <cmd2> ; ...", colorRed)
		return false
	}

	name := strings.ToLower(cmd.Args[0])
	body := strings.Join(cmd.Args[1:], " ")
	var cleaned []string
	for _, c := range strings.Split(body, ";") {
		c = strings.TrimSpace(c)
		if c != "" {
			cleaned = append(cleaned, c)
		}
	}

	s.macros[name] = cleaned
	s.appendOutput(fmt.Sprintf("Macro '%s' defined (%d commands)", name, len(cleaned)), colorCyan)
	return false
}

func (s *TraceSession) executeMacro(cmds []string) bool {
	s.scriptDepth++
	if s.scriptDepth > 8 {
		s.scriptDepth--
		s.appendOutput("Macro recursion limit reached", colorRed)
		return false
	}

	if slices.ContainsFunc(cmds, s.execute) {
		s.scriptDepth--
		return true
	}

	s.scriptDepth--
	return false
}
