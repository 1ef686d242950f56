// trace_insn.go - Raw trace entries, canonical records and the translator interface

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

// TraceEntry is one raw history entry as recorded by a CPU core.
type TraceEntry struct {
	PC       uint32
	Opcode   uint8
	Operands [2]uint8
	Flags    uint8  // TRACE_FLAG_*
	SP       uint16 // stack pointer after the instruction executed
}

// CanonicalInsn is the architecture-neutral record consumed by the trace tree builder.
type CanonicalInsn struct {
	PC           uint32
	Opcode       uint8
	S            uint8 // stack pointer after execution, low 8 bits
	Interrupt    bool  // this record entered a hardware interrupt
	ImplicitCall bool  // pushes a return address without being a conventional call
	PushCount    uint8 // stack slots consumed for non-PC data (0-2)
}

// fingerprint combines PC and opcode for loop detection.
func (c CanonicalInsn) fingerprint() uint32 {
	return c.PC<<8 ^ uint32(c.Opcode)
}

// TraceTranslator converts raw history entries for one CPU architecture.
type TraceTranslator interface {
	Name() string
	// StackResetThreshold is the smallest stack pointer drop treated as a
	// bulk reinitialization rather than pushes.
	StackResetThreshold() int
	Translate(dst []CanonicalInsn, src []TraceEntry) []CanonicalInsn
	Mnemonic(e TraceEntry) string
}

// opClass is the per-opcode stack behaviour of an architecture.
type opClass struct {
	interrupt    bool
	implicitCall bool
	pushes       uint8
}

// tableTranslator is a TraceTranslator driven by a 256-entry opcode table.
// Interrupt acknowledges recorded in TraceEntry.Flags override the table.
type tableTranslator struct {
	name      string
	threshold int
	classes   [256]opClass
	irqPushes uint8
	mnemonic  func(e TraceEntry) string
	// refine adjusts records whose stack effect depends on operands.
	refine func(e *TraceEntry, insn *CanonicalInsn)
}

func (t *tableTranslator) Name() string             { return t.name }
func (t *tableTranslator) StackResetThreshold() int { return t.threshold }

func (t *tableTranslator) Translate(dst []CanonicalInsn, src []TraceEntry) []CanonicalInsn {
	for i := range src {
		e := &src[i]
		cls := t.classes[e.Opcode]
		insn := CanonicalInsn{
			PC:           e.PC,
			Opcode:       e.Opcode,
			S:            uint8(e.SP),
			ImplicitCall: cls.implicitCall,
			PushCount:    cls.pushes,
			Interrupt:    cls.interrupt,
		}
		if t.refine != nil {
			t.refine(e, &insn)
		}
		if e.Flags&(TRACE_FLAG_IRQ|TRACE_FLAG_NMI) != 0 {
			insn.Interrupt = true
			insn.ImplicitCall = false
			insn.PushCount = t.irqPushes
		}
		dst = append(dst, insn)
	}
	return dst
}

func (t *tableTranslator) Mnemonic(e TraceEntry) string {
	if t.mnemonic != nil {
		return t.mnemonic(e)
	}
	return fmt.Sprintf("db $%02X", e.Opcode)
}

// translatorFactories lists the built-in architectures.
var translatorFactories = map[string]func() TraceTranslator{
	"6502":  newTranslator6502,
	"65c02": newTranslator65C02,
	"z80":   newTranslatorZ80,
	"6809":  newTranslator6809,
}

// NewTraceTranslator returns the built-in translator for arch.
func NewTraceTranslator(arch string) (TraceTranslator, error) {
	f, ok := translatorFactories[arch]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArch, arch)
	}
	return f(), nil
}
