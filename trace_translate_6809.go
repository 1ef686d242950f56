// trace_translate_6809.go - 6809 trace translator

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
	"strings"
)

var (
	m6809RMW    = [16]string{"NEG", "", "", "COM", "LSR", "", "ROR", "ASR", "ASL", "ROL", "DEC", "", "INC", "TST", "JMP", "CLR"}
	m6809Branch = [16]string{"BRA", "BRN", "BHI", "BLS", "BCC", "BCS", "BNE", "BEQ", "BVC", "BVS", "BPL", "BMI", "BGE", "BLT", "BGT", "BLE"}
	m6809ALU    = [16]string{"SUB", "CMP", "SBC", "", "AND", "BIT", "LD", "ST", "EOR", "ADC", "OR", "ADD", "", "", "", ""}
	// register-pair ops in the A (0x80) and B (0xC0) halves
	m6809WordA = map[uint8]string{0x3: "SUBD", 0xC: "CMPX", 0xD: "JSR", 0xE: "LDX", 0xF: "STX"}
	m6809WordB = map[uint8]string{0x3: "ADDD", 0xC: "LDD", 0xD: "STD", 0xE: "LDU", 0xF: "STU"}
	m6809Row1  = map[uint8]string{
		0x12: "NOP", 0x13: "SYNC", 0x16: "LBRA", 0x17: "LBSR", 0x19: "DAA", 0x1A: "ORCC",
		0x1C: "ANDCC", 0x1D: "SEX", 0x1E: "EXG", 0x1F: "TFR",
	}
	m6809Row3 = [16]string{"LEAX", "LEAY", "LEAS", "LEAU", "PSHS", "PULS", "PSHU", "PULU", "", "RTS", "ABX", "RTI", "CWAI", "MUL", "", "SWI"}
	// PSHS/PULS postbyte bits from PC down to CC
	m6809PushRegs  = [8]string{"PC", "U", "Y", "X", "DP", "B", "A", "CC"}
	m6809PushBytes = [8]int{2, 2, 2, 2, 1, 1, 1, 1}
)

// operandText6809 renders the operand bytes for an addressing mode row.
func operandText6809(row uint8, wide bool, lo, hi uint8) string {
	switch row {
	case 0: // immediate
		if wide {
			return fmt.Sprintf("#$%04X", uint16(lo)<<8|uint16(hi))
		}
		return fmt.Sprintf("#$%02X", lo)
	case 1: // direct
		return fmt.Sprintf("<$%02X", lo)
	case 2: // indexed, postbyte only
		return fmt.Sprintf("[$%02X]", lo)
	default: // extended
		return fmt.Sprintf("$%04X", uint16(lo)<<8|uint16(hi))
	}
}

func format6809(e TraceEntry) string {
	op, lo, hi := e.Opcode, e.Operands[0], e.Operands[1]
	pc := uint16(e.PC)
	hiNib, k := op>>4, op&0xF
	unknown := fmt.Sprintf("db $%02X", op)

	switch {
	case op == 0x10 || op == 0x11:
		if lo == 0x3F {
			return [2]string{"SWI2", "SWI3"}[op-0x10]
		}
		if op == 0x10 && lo >= 0x21 && lo <= 0x2F {
			return "L" + m6809Branch[lo&0xF] + " (long)"
		}
		return fmt.Sprintf("db $%02X,$%02X", op, lo)
	case hiNib == 0x0 || hiNib == 0x6 || hiNib == 0x7:
		if m6809RMW[k] == "" {
			return unknown
		}
		row := map[uint8]uint8{0x0: 1, 0x6: 2, 0x7: 3}[hiNib]
		return m6809RMW[k] + " " + operandText6809(row, false, lo, hi)
	case hiNib == 0x4 || hiNib == 0x5:
		if m6809RMW[k] == "" || k == 0xE {
			return unknown
		}
		return m6809RMW[k] + string("AB"[hiNib-4])
	case hiNib == 0x1:
		name, ok := m6809Row1[op]
		if !ok {
			return unknown
		}
		switch op {
		case 0x16, 0x17:
			return fmt.Sprintf("%s $%04X", name, pc+3+(uint16(lo)<<8|uint16(hi)))
		case 0x1A, 0x1C:
			return fmt.Sprintf("%s #$%02X", name, lo)
		case 0x1E, 0x1F:
			return fmt.Sprintf("%s $%02X", name, lo)
		}
		return name
	case hiNib == 0x2:
		return fmt.Sprintf("%s $%04X", m6809Branch[k], pc+2+uint16(int8(lo)))
	case hiNib == 0x3:
		name := m6809Row3[k]
		switch {
		case name == "":
			return unknown
		case k <= 0x3:
			return name + " " + operandText6809(2, false, lo, hi)
		case k <= 0x7:
			return name + " " + pushList6809(lo, k >= 0x6)
		case k == 0xC:
			return fmt.Sprintf("%s #$%02X", name, lo)
		}
		return name
	}

	// 0x80-0xFF: accumulator ops, rows imm/direct/indexed/extended
	row := (hiNib - 0x8) & 3
	b := hiNib >= 0xC
	name := m6809ALU[k]
	wide := false
	if name != "" {
		name += string("AB"[boolIndex(b)])
	} else {
		words := m6809WordA
		if b {
			words = m6809WordB
		}
		name = words[k]
		wide = true
	}
	if op == 0x8D {
		return fmt.Sprintf("BSR $%04X", pc+2+uint16(int8(lo)))
	}
	if name == "" || (row == 0 && (k == 0x7 || k == 0xD || k == 0xF)) {
		return unknown
	}
	return name + " " + operandText6809(row, wide, lo, hi)
}

func boolIndex(b bool) int {
	if b {
		return 1
	}
	return 0
}

// pushList6809 names the registers in a PSH/PUL postbyte. The user stack
// variants name S where the system variants name U.
func pushList6809(post uint8, user bool) string {
	var regs []string
	for i, r := range m6809PushRegs {
		if post&(0x80>>i) == 0 {
			continue
		}
		if r == "U" && user {
			r = "S"
		}
		regs = append(regs, r)
	}
	return strings.Join(regs, ",")
}

// pushBytes6809 counts the data bytes a PSHS postbyte moves, PC excluded.
func pushBytes6809(post uint8) int {
	n := 0
	for i := 1; i < 8; i++ {
		if post&(0x80>>i) != 0 {
			n += m6809PushBytes[i]
		}
	}
	return n
}

func newTranslator6809() TraceTranslator {
	t := &tableTranslator{
		name:      "6809",
		threshold: 16, // a full interrupt frame is twelve bytes
		irqPushes: 2,
		mnemonic:  format6809,
		refine: func(e *TraceEntry, insn *CanonicalInsn) {
			switch e.Opcode {
			case 0x34: // PSHS
				post := e.Operands[0]
				if post&0x80 != 0 {
					insn.ImplicitCall = true
					insn.PushCount = 0
					return
				}
				insn.PushCount = uint8(min(pushBytes6809(post), 2))
			case 0x10, 0x11: // SWI2, SWI3
				if e.Operands[0] == 0x3F {
					insn.Interrupt = true
					insn.PushCount = 2
				}
			}
		},
	}
	t.classes[0x3F] = opClass{interrupt: true, pushes: 2} // SWI
	t.classes[0x3C] = opClass{pushes: 2}                  // CWAI stacks the entire state
	return t
}
