// trace_translate_6502.go - 6502 and 65C02 trace translators

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

const (
	am6502Imp  = iota // Implied
	am6502Acc         // Accumulator
	am6502Imm         // #nn
	am6502Zp          // nn
	am6502ZpX         // nn,X
	am6502ZpY         // nn,Y
	am6502Abs         // nnnn
	am6502AbsX        // nnnn,X
	am6502AbsY        // nnnn,Y
	am6502Ind         // (nnnn)
	am6502IndX        // (nn,X)
	am6502IndY        // (nn),Y
	am6502Rel         // relative
	am6502ZpI         // (nn), 65C02
	am6502AbsIX       // (nnnn,X), 65C02
)

type op6502 struct {
	name string
	mode int
}

// group6502 lists the opcodes of one mnemonic in groupModes6502 order.
// 0 marks a missing mode; no grouped opcode is $00.
type group6502 struct {
	name  string
	codes [9]uint8
}

var groups6502 = []group6502{
	{"ORA", [9]uint8{0x09, 0x05, 0x15, 0, 0x0D, 0x1D, 0x19, 0x01, 0x11}},
	{"AND", [9]uint8{0x29, 0x25, 0x35, 0, 0x2D, 0x3D, 0x39, 0x21, 0x31}},
	{"EOR", [9]uint8{0x49, 0x45, 0x55, 0, 0x4D, 0x5D, 0x59, 0x41, 0x51}},
	{"ADC", [9]uint8{0x69, 0x65, 0x75, 0, 0x6D, 0x7D, 0x79, 0x61, 0x71}},
	{"STA", [9]uint8{0, 0x85, 0x95, 0, 0x8D, 0x9D, 0x99, 0x81, 0x91}},
	{"LDA", [9]uint8{0xA9, 0xA5, 0xB5, 0, 0xAD, 0xBD, 0xB9, 0xA1, 0xB1}},
	{"CMP", [9]uint8{0xC9, 0xC5, 0xD5, 0, 0xCD, 0xDD, 0xD9, 0xC1, 0xD1}},
	{"SBC", [9]uint8{0xE9, 0xE5, 0xF5, 0, 0xED, 0xFD, 0xF9, 0xE1, 0xF1}},
	{"LDX", [9]uint8{0xA2, 0xA6, 0, 0xB6, 0xAE, 0, 0xBE, 0, 0}},
	{"LDY", [9]uint8{0xA0, 0xA4, 0xB4, 0, 0xAC, 0xBC, 0, 0, 0}},
	{"STX", [9]uint8{0, 0x86, 0, 0x96, 0x8E, 0, 0, 0, 0}},
	{"STY", [9]uint8{0, 0x84, 0x94, 0, 0x8C, 0, 0, 0, 0}},
	{"CPX", [9]uint8{0xE0, 0xE4, 0, 0, 0xEC, 0, 0, 0, 0}},
	{"CPY", [9]uint8{0xC0, 0xC4, 0, 0, 0xCC, 0, 0, 0, 0}},
	{"BIT", [9]uint8{0, 0x24, 0, 0, 0x2C, 0, 0, 0, 0}},
	{"ASL", [9]uint8{0, 0x06, 0x16, 0, 0x0E, 0x1E, 0, 0, 0}},
	{"ROL", [9]uint8{0, 0x26, 0x36, 0, 0x2E, 0x3E, 0, 0, 0}},
	{"LSR", [9]uint8{0, 0x46, 0x56, 0, 0x4E, 0x5E, 0, 0, 0}},
	{"ROR", [9]uint8{0, 0x66, 0x76, 0, 0x6E, 0x7E, 0, 0, 0}},
	{"INC", [9]uint8{0, 0xE6, 0xF6, 0, 0xEE, 0xFE, 0, 0, 0}},
	{"DEC", [9]uint8{0, 0xC6, 0xD6, 0, 0xCE, 0xDE, 0, 0, 0}},
}

var groupModes6502 = [9]int{am6502Imm, am6502Zp, am6502ZpX, am6502ZpY, am6502Abs, am6502AbsX, am6502AbsY, am6502IndX, am6502IndY}

var singles6502 = map[uint8]op6502{
	0x00: {"BRK", am6502Imp}, 0x08: {"PHP", am6502Imp}, 0x0A: {"ASL", am6502Acc},
	0x10: {"BPL", am6502Rel}, 0x18: {"CLC", am6502Imp},
	0x20: {"JSR", am6502Abs}, 0x28: {"PLP", am6502Imp}, 0x2A: {"ROL", am6502Acc},
	0x30: {"BMI", am6502Rel}, 0x38: {"SEC", am6502Imp},
	0x40: {"RTI", am6502Imp}, 0x48: {"PHA", am6502Imp}, 0x4A: {"LSR", am6502Acc}, 0x4C: {"JMP", am6502Abs},
	0x50: {"BVC", am6502Rel}, 0x58: {"CLI", am6502Imp},
	0x60: {"RTS", am6502Imp}, 0x68: {"PLA", am6502Imp}, 0x6A: {"ROR", am6502Acc}, 0x6C: {"JMP", am6502Ind},
	0x70: {"BVS", am6502Rel}, 0x78: {"SEI", am6502Imp},
	0x88: {"DEY", am6502Imp}, 0x8A: {"TXA", am6502Imp},
	0x90: {"BCC", am6502Rel}, 0x98: {"TYA", am6502Imp}, 0x9A: {"TXS", am6502Imp},
	0xA8: {"TAY", am6502Imp}, 0xAA: {"TAX", am6502Imp},
	0xB0: {"BCS", am6502Rel}, 0xB8: {"CLV", am6502Imp}, 0xBA: {"TSX", am6502Imp},
	0xC8: {"INY", am6502Imp}, 0xCA: {"DEX", am6502Imp},
	0xD0: {"BNE", am6502Rel}, 0xD8: {"CLD", am6502Imp},
	0xE8: {"INX", am6502Imp}, 0xEA: {"NOP", am6502Imp},
	0xF0: {"BEQ", am6502Rel}, 0xF8: {"SED", am6502Imp},
}

var singles65C02 = map[uint8]op6502{
	0x04: {"TSB", am6502Zp}, 0x0C: {"TSB", am6502Abs},
	0x14: {"TRB", am6502Zp}, 0x1C: {"TRB", am6502Abs},
	0x1A: {"INC", am6502Acc}, 0x3A: {"DEC", am6502Acc},
	0x34: {"BIT", am6502ZpX}, 0x3C: {"BIT", am6502AbsX}, 0x89: {"BIT", am6502Imm},
	0x5A: {"PHY", am6502Imp}, 0x7A: {"PLY", am6502Imp},
	0xDA: {"PHX", am6502Imp}, 0xFA: {"PLX", am6502Imp},
	0x64: {"STZ", am6502Zp}, 0x74: {"STZ", am6502ZpX}, 0x9C: {"STZ", am6502Abs}, 0x9E: {"STZ", am6502AbsX},
	0x7C: {"JMP", am6502AbsIX}, 0x80: {"BRA", am6502Rel},
	0x12: {"ORA", am6502ZpI}, 0x32: {"AND", am6502ZpI}, 0x52: {"EOR", am6502ZpI}, 0x72: {"ADC", am6502ZpI},
	0x92: {"STA", am6502ZpI}, 0xB2: {"LDA", am6502ZpI}, 0xD2: {"CMP", am6502ZpI}, 0xF2: {"SBC", am6502ZpI},
}

var modeFormats6502 = [...]string{
	am6502Imp:   "%s",
	am6502Acc:   "%s A",
	am6502Imm:   "%s #$%02X",
	am6502Zp:    "%s $%02X",
	am6502ZpX:   "%s $%02X,X",
	am6502ZpY:   "%s $%02X,Y",
	am6502Abs:   "%s $%04X",
	am6502AbsX:  "%s $%04X,X",
	am6502AbsY:  "%s $%04X,Y",
	am6502Ind:   "%s ($%04X)",
	am6502IndX:  "%s ($%02X,X)",
	am6502IndY:  "%s ($%02X),Y",
	am6502Rel:   "%s $%04X",
	am6502ZpI:   "%s ($%02X)",
	am6502AbsIX: "%s ($%04X,X)",
}

func build6502Table(cmos bool) *[256]op6502 {
	var t [256]op6502
	for _, g := range groups6502 {
		for i, code := range g.codes {
			if code != 0 {
				t[code] = op6502{g.name, groupModes6502[i]}
			}
		}
	}
	for code, op := range singles6502 {
		t[code] = op
	}
	if cmos {
		for code, op := range singles65C02 {
			t[code] = op
		}
	}
	return &t
}

func format6502(table *[256]op6502, e TraceEntry) string {
	op := table[e.Opcode]
	if op.name == "" {
		return fmt.Sprintf("db $%02X", e.Opcode)
	}
	lo, hi := e.Operands[0], e.Operands[1]
	switch op.mode {
	case am6502Imp, am6502Acc:
		return fmt.Sprintf(modeFormats6502[op.mode], op.name)
	case am6502Abs, am6502AbsX, am6502AbsY, am6502Ind, am6502AbsIX:
		return fmt.Sprintf(modeFormats6502[op.mode], op.name, uint16(lo)|uint16(hi)<<8)
	case am6502Rel:
		return fmt.Sprintf(modeFormats6502[op.mode], op.name, uint16(e.PC)+2+uint16(int8(lo)))
	default:
		return fmt.Sprintf(modeFormats6502[op.mode], op.name, lo)
	}
}

func new6502Translator(name string, cmos bool) *tableTranslator {
	table := build6502Table(cmos)
	t := &tableTranslator{
		name:      name,
		threshold: TRACE_STACK_RESET_DEFAULT,
		irqPushes: 1, // status register; the return address is the call frame
		mnemonic:  func(e TraceEntry) string { return format6502(table, e) },
	}
	t.classes[0x00] = opClass{interrupt: true, pushes: 1} // BRK
	t.classes[0x08] = opClass{pushes: 1}                  // PHP
	t.classes[0x48] = opClass{pushes: 1}                  // PHA
	if cmos {
		t.classes[0x5A] = opClass{pushes: 1} // PHY
		t.classes[0xDA] = opClass{pushes: 1} // PHX
	}
	return t
}

func newTranslator6502() TraceTranslator  { return new6502Translator("6502", false) }
func newTranslator65C02() TraceTranslator { return new6502Translator("65c02", true) }
