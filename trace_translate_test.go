package main

import (
	"errors"
	"testing"
)

func mustTranslator(t *testing.T, arch string) TraceTranslator {
	t.Helper()
	tr, err := NewTraceTranslator(arch)
	if err != nil {
		t.Fatalf("NewTraceTranslator(%q): %v", arch, err)
	}
	if tr.Name() != arch {
		t.Fatalf("Name() = %q, want %q", tr.Name(), arch)
	}
	return tr
}

func TestNewTraceTranslator_UnknownArch(t *testing.T) {
	_, err := NewTraceTranslator("pdp11")
	if !errors.Is(err, ErrUnknownArch) {
		t.Fatalf("err = %v, want ErrUnknownArch", err)
	}
}

type mnemonicCase struct {
	name  string
	entry TraceEntry
	want  string
}

func checkMnemonics(t *testing.T, tr TraceTranslator, tests []mnemonicCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.Mnemonic(tt.entry); got != tt.want {
				t.Errorf("Mnemonic(%+v) = %q, want %q", tt.entry, got, tt.want)
			}
		})
	}
}

func TestTranslator6502_Mnemonics(t *testing.T) {
	checkMnemonics(t, mustTranslator(t, "6502"), []mnemonicCase{
		{"JSR", TraceEntry{PC: 0x1000, Opcode: 0x20, Operands: [2]uint8{0x34, 0x12}}, "JSR $1234"},
		{"LDA imm", TraceEntry{Opcode: 0xA9, Operands: [2]uint8{0x05}}, "LDA #$05"},
		{"LDA ind y", TraceEntry{Opcode: 0xB1, Operands: [2]uint8{0x20}}, "LDA ($20),Y"},
		{"JMP ind", TraceEntry{Opcode: 0x6C, Operands: [2]uint8{0x00, 0x03}}, "JMP ($0300)"},
		{"ASL A", TraceEntry{Opcode: 0x0A}, "ASL A"},
		{"BNE back", TraceEntry{PC: 0x1000, Opcode: 0xD0, Operands: [2]uint8{0xFE}}, "BNE $1000"},
		{"NOP", TraceEntry{Opcode: 0xEA}, "NOP"},
		{"illegal", TraceEntry{Opcode: 0x02}, "db $02"},
		{"no BRA on NMOS", TraceEntry{Opcode: 0x80}, "db $80"},
	})
}

func TestTranslator65C02_Mnemonics(t *testing.T) {
	checkMnemonics(t, mustTranslator(t, "65c02"), []mnemonicCase{
		{"BRA", TraceEntry{PC: 0x2000, Opcode: 0x80, Operands: [2]uint8{0x10}}, "BRA $2012"},
		{"STZ abs", TraceEntry{Opcode: 0x9C, Operands: [2]uint8{0x00, 0xD0}}, "STZ $D000"},
		{"LDA zp ind", TraceEntry{Opcode: 0xB2, Operands: [2]uint8{0x40}}, "LDA ($40)"},
		{"PHX", TraceEntry{Opcode: 0xDA}, "PHX"},
	})
}

func TestTranslator6502_Translate(t *testing.T) {
	nmos := mustTranslator(t, "6502")
	cmos := mustTranslator(t, "65c02")
	tests := []struct {
		name  string
		tr    TraceTranslator
		entry TraceEntry
		want  CanonicalInsn
	}{
		{"plain", nmos, TraceEntry{PC: 0x0801, Opcode: 0xEA, SP: 0x01FD},
			CanonicalInsn{PC: 0x0801, Opcode: 0xEA, S: 0xFD}},
		{"BRK", nmos, TraceEntry{PC: 0x0900, Opcode: 0x00, SP: 0x01FC},
			CanonicalInsn{PC: 0x0900, Opcode: 0x00, S: 0xFC, Interrupt: true, PushCount: 1}},
		{"PHA", nmos, TraceEntry{Opcode: 0x48, SP: 0x01FE},
			CanonicalInsn{Opcode: 0x48, S: 0xFE, PushCount: 1}},
		{"PHX on NMOS", nmos, TraceEntry{Opcode: 0xDA, SP: 0x01FE},
			CanonicalInsn{Opcode: 0xDA, S: 0xFE}},
		{"PHX on CMOS", cmos, TraceEntry{Opcode: 0xDA, SP: 0x01FE},
			CanonicalInsn{Opcode: 0xDA, S: 0xFE, PushCount: 1}},
		{"JSR", nmos, TraceEntry{Opcode: 0x20, SP: 0x01FD},
			CanonicalInsn{Opcode: 0x20, S: 0xFD}},
		{"IRQ", nmos, TraceEntry{PC: 0xE000, Opcode: 0xA9, Flags: TRACE_FLAG_IRQ, SP: 0x01FA},
			CanonicalInsn{PC: 0xE000, Opcode: 0xA9, S: 0xFA, Interrupt: true, PushCount: 1}},
		{"NMI", cmos, TraceEntry{PC: 0xE000, Opcode: 0x48, Flags: TRACE_FLAG_NMI, SP: 0x01FA},
			CanonicalInsn{PC: 0xE000, Opcode: 0x48, S: 0xFA, Interrupt: true, PushCount: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.tr.Translate(nil, []TraceEntry{tt.entry})
			if len(got) != 1 || got[0] != tt.want {
				t.Fatalf("Translate = %+v, want %+v", got, tt.want)
			}
		})
	}
	if nmos.StackResetThreshold() != TRACE_STACK_RESET_DEFAULT {
		t.Fatalf("StackResetThreshold = %d", nmos.StackResetThreshold())
	}
}

func TestTranslate_AppendsToDst(t *testing.T) {
	tr := mustTranslator(t, "6502")
	dst := make([]CanonicalInsn, 1, 8)
	dst = tr.Translate(dst, testEntries6502(1))
	if len(dst) != 1+13 {
		t.Fatalf("len = %d, want 14", len(dst))
	}
	if dst[0] != (CanonicalInsn{}) || dst[1].PC != 0x0800 || dst[2].S != 0xFD {
		t.Fatalf("unexpected records %+v", dst[:3])
	}
}

func TestTranslatorZ80_Mnemonics(t *testing.T) {
	checkMnemonics(t, mustTranslator(t, "z80"), []mnemonicCase{
		{"CALL", TraceEntry{Opcode: 0xCD, Operands: [2]uint8{0x34, 0x12}}, "CALL $1234"},
		{"LD A,n", TraceEntry{Opcode: 0x3E, Operands: [2]uint8{0x05}}, "LD A,$05"},
		{"RET", TraceEntry{Opcode: 0xC9}, "RET"},
		{"RET NZ", TraceEntry{Opcode: 0xC0}, "RET NZ"},
		{"RST", TraceEntry{Opcode: 0xFF}, "RST $38"},
		{"HALT", TraceEntry{Opcode: 0x76}, "HALT"},
		{"DJNZ", TraceEntry{PC: 0x0100, Opcode: 0x10, Operands: [2]uint8{0xFE}}, "DJNZ $0100"},
		{"LDIR", TraceEntry{Opcode: 0xED, Operands: [2]uint8{0xB0}}, "LDIR"},
		{"BIT", TraceEntry{Opcode: 0xCB, Operands: [2]uint8{0x47}}, "BIT 0,A"},
		{"PUSH IX", TraceEntry{Opcode: 0xDD, Operands: [2]uint8{0xE5}}, "PUSH IX"},
		{"LD A,(IX+d)", TraceEntry{Opcode: 0xDD, Operands: [2]uint8{0x7E, 0x05}}, "LD A,(IX+$05)"},
		{"PUSH AF", TraceEntry{Opcode: 0xF5}, "PUSH AF"},
	})
}

func TestTranslatorZ80_Translate(t *testing.T) {
	tr := mustTranslator(t, "z80")
	in := []TraceEntry{
		{Opcode: 0xC5, SP: 0xFFFC},                           // PUSH BC
		{Opcode: 0xFD, Operands: [2]uint8{0xE5}, SP: 0xFFFA}, // PUSH IY
		{Opcode: 0xCD, SP: 0xFFF8},                           // CALL
		{Opcode: 0xFD, Operands: [2]uint8{0x21}, SP: 0xFFF8}, // LD IY,nn
		{Opcode: 0x00, Flags: TRACE_FLAG_IRQ, SP: 0xFFF6},
	}
	got := tr.Translate(nil, in)
	want := []uint8{2, 2, 0, 0, 0}
	for i := range got {
		if got[i].PushCount != want[i] {
			t.Errorf("record %d PushCount = %d, want %d", i, got[i].PushCount, want[i])
		}
	}
	if !got[4].Interrupt || got[0].Interrupt {
		t.Error("interrupt flags not carried")
	}
	if got[1].S != 0xFA {
		t.Errorf("S = $%02X, want the low byte of SP", got[1].S)
	}
}

func TestTranslator6809_Mnemonics(t *testing.T) {
	checkMnemonics(t, mustTranslator(t, "6809"), []mnemonicCase{
		{"BSR", TraceEntry{PC: 0x1000, Opcode: 0x8D, Operands: [2]uint8{0x10}}, "BSR $1012"},
		{"JSR ext", TraceEntry{Opcode: 0xBD, Operands: [2]uint8{0x12, 0x34}}, "JSR $1234"},
		{"LDA imm", TraceEntry{Opcode: 0x86, Operands: [2]uint8{0x05}}, "LDA #$05"},
		{"LDD imm", TraceEntry{Opcode: 0xCC, Operands: [2]uint8{0x12, 0x34}}, "LDD #$1234"},
		{"PSHS", TraceEntry{Opcode: 0x34, Operands: [2]uint8{0x06}}, "PSHS B,A"},
		{"PSHU", TraceEntry{Opcode: 0x36, Operands: [2]uint8{0x40}}, "PSHU S"},
		{"BNE", TraceEntry{PC: 0x2000, Opcode: 0x26, Operands: [2]uint8{0xFE}}, "BNE $2000"},
		{"RTS", TraceEntry{Opcode: 0x39}, "RTS"},
		{"SWI", TraceEntry{Opcode: 0x3F}, "SWI"},
		{"SWI2", TraceEntry{Opcode: 0x10, Operands: [2]uint8{0x3F}}, "SWI2"},
		{"SWI3", TraceEntry{Opcode: 0x11, Operands: [2]uint8{0x3F}}, "SWI3"},
		{"unknown", TraceEntry{Opcode: 0x01}, "db $01"},
	})
}

func TestTranslator6809_Translate(t *testing.T) {
	tr := mustTranslator(t, "6809")
	if tr.StackResetThreshold() != 16 {
		t.Fatalf("StackResetThreshold = %d, want 16", tr.StackResetThreshold())
	}
	tests := []struct {
		name  string
		entry TraceEntry
		want  CanonicalInsn
	}{
		{"PSHS B,A", TraceEntry{Opcode: 0x34, Operands: [2]uint8{0x06}, SP: 0x7FFE},
			CanonicalInsn{Opcode: 0x34, S: 0xFE, PushCount: 2}},
		{"PSHS CC", TraceEntry{Opcode: 0x34, Operands: [2]uint8{0x01}, SP: 0x7FFF},
			CanonicalInsn{Opcode: 0x34, S: 0xFF, PushCount: 1}},
		{"PSHS all but PC", TraceEntry{Opcode: 0x34, Operands: [2]uint8{0x7F}, SP: 0x7FF6},
			CanonicalInsn{Opcode: 0x34, S: 0xF6, PushCount: 2}},
		{"PSHS PC", TraceEntry{Opcode: 0x34, Operands: [2]uint8{0x80}, SP: 0x7FFE},
			CanonicalInsn{Opcode: 0x34, S: 0xFE, ImplicitCall: true}},
		{"SWI", TraceEntry{Opcode: 0x3F, SP: 0x7FF4},
			CanonicalInsn{Opcode: 0x3F, S: 0xF4, Interrupt: true, PushCount: 2}},
		{"SWI2", TraceEntry{Opcode: 0x10, Operands: [2]uint8{0x3F}, SP: 0x7FF4},
			CanonicalInsn{Opcode: 0x10, S: 0xF4, Interrupt: true, PushCount: 2}},
		{"LBRN is not SWI2", TraceEntry{Opcode: 0x10, Operands: [2]uint8{0x21}, SP: 0x7FFF},
			CanonicalInsn{Opcode: 0x10, S: 0xFF}},
		{"CWAI", TraceEntry{Opcode: 0x3C, Operands: [2]uint8{0xEF}, SP: 0x7FF4},
			CanonicalInsn{Opcode: 0x3C, S: 0xF4, PushCount: 2}},
		{"FIRQ", TraceEntry{Opcode: 0x12, Flags: TRACE_FLAG_IRQ, SP: 0x7FFB},
			CanonicalInsn{Opcode: 0x12, S: 0xFB, Interrupt: true, PushCount: 2}},
		{"IRQ on PSHS PC", TraceEntry{Opcode: 0x34, Operands: [2]uint8{0x80}, Flags: TRACE_FLAG_NMI, SP: 0x7FF0},
			CanonicalInsn{Opcode: 0x34, S: 0xF0, Interrupt: true, PushCount: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tr.Translate(nil, []TraceEntry{tt.entry})
			if got[0] != tt.want {
				t.Fatalf("Translate = %+v, want %+v", got[0], tt.want)
			}
		})
	}
}
