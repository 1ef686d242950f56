// main.go - Command line front end for the trace tree builder

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
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147m ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████\033[0m\n\033[38;2;255;50;147m▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀\033[0m\n\033[38;2;255;80;147m▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███\033[0m\n\033[38;2;255;110;147m░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄\033[0m\n\033[38;2;255;140;147m░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒\033[0m\n\033[38;2;255;170;147m░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░\033[0m\n\033[38;2;255;200;147m ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░\033[0m\n\033[38;2;255;230;147m ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░\033[0m\n\033[38;2;255;255;147m ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░\033[0m")
	fmt.Println("\nTrace tree builder for the Machine Monitor instruction history.")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IntuitionEngine")
	fmt.Println("License: GPLv3 or later")
}

// traceConfig holds the parsed command line.
type traceConfig struct {
	arch        string
	luaScript   string
	loops       bool
	calls       bool
	irqs        bool
	from        int
	lines       int
	expand      bool
	pngPath     string
	copyView    bool
	interactive bool
	historyBits int
	quiet       bool
	capture     string
}

// parseFlags reads the command line. flag.ErrHelp is returned after the
// usage text has been printed.
func parseFlags(args []string) (traceConfig, error) {
	var cfg traceConfig

	flagSet := flag.NewFlagSet("ietrace", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&cfg.arch, "arch", "", "Architecture when the capture does not name one (6502, 65c02, z80, 6809)")
	flagSet.StringVar(&cfg.luaScript, "lua", "", "Translator script for an architecture without a built-in table")
	flagSet.BoolVar(&cfg.loops, "loops", true, "Fold repeated instruction blocks")
	flagSet.BoolVar(&cfg.calls, "calls", true, "Nest subroutine calls")
	flagSet.BoolVar(&cfg.irqs, "irqs", true, "Nest interrupt handlers")
	flagSet.IntVar(&cfg.from, "from", 0, "First display line to print")
	flagSet.IntVar(&cfg.lines, "lines", 40, "Number of display lines to print (0 = none)")
	flagSet.BoolVar(&cfg.expand, "expand", false, "Expand every folded node before printing")
	flagSet.StringVar(&cfg.pngPath, "png", "", "Save the printed lines as a PNG image")
	flagSet.BoolVar(&cfg.copyView, "copy", false, "Copy the printed lines to the clipboard")
	flagSet.BoolVar(&cfg.interactive, "i", false, "Start the interactive monitor after loading")
	flagSet.IntVar(&cfg.historyBits, "history", TRACE_HISTORY_DEFAULT_SHIFT, "History capacity as a power of two")
	flagSet.BoolVar(&cfg.quiet, "q", false, "Do not print the banner")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./ietrace [-arch 6502] [-lua table.lua] [-loops=false] [-calls=false] [-irqs=false] [-from N] [-lines N] [-expand] [-png out.png] [-copy] [-i] capture")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.Usage()
		}
		return cfg, err
	}
	cfg.capture = flagSet.Arg(0)

	if cfg.capture == "" && !cfg.interactive {
		return cfg, errors.New("a capture file is required unless -i is given")
	}
	if cfg.historyBits < 10 || cfg.historyBits > 26 {
		return cfg, fmt.Errorf("-history %d out of range 10..26", cfg.historyBits)
	}
	if cfg.from < 0 || cfg.lines < 0 {
		return cfg, errors.New("-from and -lines must not be negative")
	}
	return cfg, nil
}

func (cfg traceConfig) options() TraceTreeOptions {
	return TraceTreeOptions{
		CollapseLoops:      cfg.loops,
		CollapseCalls:      cfg.calls,
		CollapseInterrupts: cfg.irqs,
	}
}

// translator picks the script translator, the -arch one, or the 6502 default.
func (cfg traceConfig) translator() (TraceTranslator, error) {
	if cfg.luaScript != "" {
		return LoadLuaTranslator(cfg.luaScript)
	}
	if cfg.arch != "" {
		return NewTraceTranslator(cfg.arch)
	}
	return NewTraceTranslator("6502")
}

// newSessionFromConfig creates a session and loads the capture, if any.
func newSessionFromConfig(cfg traceConfig) (*TraceSession, error) {
	tr, err := cfg.translator()
	if err != nil {
		return nil, err
	}
	s := NewTraceSession(tr, cfg.options(), cfg.historyBits)
	if cfg.capture == "" {
		return s, nil
	}
	c, err := ReadCapture(cfg.capture)
	if err != nil {
		return nil, err
	}
	var explicit TraceTranslator
	if cfg.luaScript != "" || (cfg.arch != "" && cfg.arch != c.Arch) {
		explicit = tr
	}
	if err := s.Load(c, explicit); err != nil {
		return nil, err
	}
	return s, nil
}

func printSummary(s *TraceSession) {
	st := s.Stats()
	fmt.Printf("%s: %s instructions, %s nodes, %s lines, %s repeats, %s calls, %s interrupts\n",
		st.Arch, humanize.Comma(st.Builder.Instructions), humanize.Comma(int64(st.Tree.Nodes)),
		humanize.Comma(int64(st.Lines)), humanize.Comma(int64(st.Tree.Repeats)),
		humanize.Comma(st.Builder.CallMarkers), humanize.Comma(st.Builder.InterruptMarkers))
	if st.Builder.ForcedResets > 0 {
		fmt.Printf("warning: nesting limit hit %d times\n", st.Builder.ForcedResets)
	}
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if !cfg.quiet {
		boilerPlate()
	}

	s, err := newSessionFromConfig(cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.capture != "" {
		printSummary(s)
		if cfg.expand {
			s.ExecuteCommand("expand all")
			s.DrainOutput()
		}
		view := s.View(cfg.from, cfg.lines)
		for _, l := range view {
			fmt.Printf("%6d %s\n", l.Line, l.Text)
		}
		if cfg.pngPath != "" {
			header := fmt.Sprintf("%s trace, lines %d-%d", s.Stats().Arch, cfg.from, cfg.from+len(view)-1)
			if err := NewTraceOverlay().SavePNG(cfg.pngPath, header, view); err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
		}
		if cfg.copyView {
			text := ""
			for _, l := range view {
				text += fmt.Sprintf("%6d %s\n", l.Line, l.Text)
			}
			if err := clipboardWriter(text); err != nil {
				fmt.Fprintf(os.Stderr, "ietrace: %v\n", err)
			}
		}
	}

	if cfg.interactive {
		if err := NewTraceTerminal(s).Run(); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}
}
