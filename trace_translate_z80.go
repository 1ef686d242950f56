// trace_translate_z80.go - Z80 trace translator

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
	z80Reg   = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	z80RP    = [4]string{"BC", "DE", "HL", "SP"}
	z80RP2   = [4]string{"BC", "DE", "HL", "AF"}
	z80Cond  = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
	z80ALU   = [8]string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}
	z80Rot   = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}
	z80Accum = [8]string{"RLCA", "RRCA", "RLA", "RRA", "DAA", "CPL", "SCF", "CCF"}
	z80Misc  = [8]string{"JP $%04X", "", "OUT ($%02X),A", "IN A,($%02X)", "EX (SP),HL", "EX DE,HL", "DI", "EI"}
)

var z80ED = map[uint8]string{
	0x44: "NEG", 0x45: "RETN", 0x4D: "RETI", 0x46: "IM 0", 0x56: "IM 1", 0x5E: "IM 2",
	0x47: "LD I,A", 0x4F: "LD R,A", 0x57: "LD A,I", 0x5F: "LD A,R", 0x67: "RRD", 0x6F: "RLD",
	0xA0: "LDI", 0xA1: "CPI", 0xA2: "INI", 0xA3: "OUTI",
	0xA8: "LDD", 0xA9: "CPD", 0xAA: "IND", 0xAB: "OUTD",
	0xB0: "LDIR", 0xB1: "CPIR", 0xB2: "INIR", 0xB3: "OTIR",
	0xB8: "LDDR", 0xB9: "CPDR", 0xBA: "INDR", 0xBB: "OTDR",
}

// decodeZ80Base decodes an unprefixed opcode from its x/y/z fields.
// lo and hi are the bytes following the opcode.
func decodeZ80Base(op, lo, hi uint8, pc uint16) string {
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1
	nn := uint16(lo) | uint16(hi)<<8
	rel := pc + 2 + uint16(int8(lo))

	switch x {
	case 0:
		switch z {
		case 0:
			switch {
			case y == 0:
				return "NOP"
			case y == 1:
				return "EX AF,AF'"
			case y == 2:
				return fmt.Sprintf("DJNZ $%04X", rel)
			case y == 3:
				return fmt.Sprintf("JR $%04X", rel)
			default:
				return fmt.Sprintf("JR %s,$%04X", z80Cond[y-4], rel)
			}
		case 1:
			if q == 0 {
				return fmt.Sprintf("LD %s,$%04X", z80RP[p], nn)
			}
			return "ADD HL," + z80RP[p]
		case 2:
			ind := [4]string{"(BC)", "(DE)", fmt.Sprintf("($%04X)", nn), fmt.Sprintf("($%04X)", nn)}
			reg := "A"
			if p == 2 {
				reg = "HL"
			}
			if q == 0 {
				return "LD " + ind[p] + "," + reg
			}
			return "LD " + reg + "," + ind[p]
		case 3:
			if q == 0 {
				return "INC " + z80RP[p]
			}
			return "DEC " + z80RP[p]
		case 4:
			return "INC " + z80Reg[y]
		case 5:
			return "DEC " + z80Reg[y]
		case 6:
			return fmt.Sprintf("LD %s,$%02X", z80Reg[y], lo)
		default:
			return z80Accum[y]
		}
	case 1:
		if y == 6 && z == 6 {
			return "HALT"
		}
		return "LD " + z80Reg[y] + "," + z80Reg[z]
	case 2:
		return z80ALU[y] + z80Reg[z]
	}

	switch z {
	case 0:
		return "RET " + z80Cond[y]
	case 1:
		if q == 0 {
			return "POP " + z80RP2[p]
		}
		return [4]string{"RET", "EXX", "JP (HL)", "LD SP,HL"}[p]
	case 2:
		return fmt.Sprintf("JP %s,$%04X", z80Cond[y], nn)
	case 3:
		switch y {
		case 0:
			return fmt.Sprintf(z80Misc[y], nn)
		case 2, 3:
			return fmt.Sprintf(z80Misc[y], lo)
		default:
			return z80Misc[y]
		}
	case 4:
		return fmt.Sprintf("CALL %s,$%04X", z80Cond[y], nn)
	case 5:
		if q == 0 {
			return "PUSH " + z80RP2[p]
		}
		if p == 0 {
			return fmt.Sprintf("CALL $%04X", nn)
		}
		return fmt.Sprintf("db $%02X", op)
	case 6:
		return fmt.Sprintf("%s$%02X", z80ALU[y], lo)
	default:
		return fmt.Sprintf("RST $%02X", y*8)
	}
}

func formatZ80(e TraceEntry) string {
	pc := uint16(e.PC)
	op, lo, hi := e.Opcode, e.Operands[0], e.Operands[1]
	switch op {
	case 0xCB:
		x, y, z := lo>>6, (lo>>3)&7, lo&7
		switch x {
		case 0:
			return z80Rot[y] + " " + z80Reg[z]
		case 1:
			return fmt.Sprintf("BIT %d,%s", y, z80Reg[z])
		case 2:
			return fmt.Sprintf("RES %d,%s", y, z80Reg[z])
		default:
			return fmt.Sprintf("SET %d,%s", y, z80Reg[z])
		}
	case 0xED:
		if s, ok := z80ED[lo]; ok {
			return s
		}
		return fmt.Sprintf("db $ED,$%02X", lo)
	case 0xDD, 0xFD:
		idx := "IX"
		if op == 0xFD {
			idx = "IY"
		}
		// the displacement is the only operand byte left in the entry
		s := decodeZ80Base(lo, hi, 0, pc)
		s = strings.Replace(s, "(HL)", fmt.Sprintf("(%s+$%02X)", idx, hi), 1)
		return strings.Replace(s, "HL", idx, 1)
	}
	return decodeZ80Base(op, lo, hi, pc)
}

func newTranslatorZ80() TraceTranslator {
	t := &tableTranslator{
		name:      "z80",
		threshold: TRACE_STACK_RESET_DEFAULT,
		mnemonic:  formatZ80,
		refine: func(e *TraceEntry, insn *CanonicalInsn) {
			// PUSH IX / PUSH IY
			if (e.Opcode == 0xDD || e.Opcode == 0xFD) && e.Operands[0] == 0xE5 && !insn.Interrupt {
				insn.PushCount = 2
			}
		},
	}
	for _, op := range []uint8{0xC5, 0xD5, 0xE5, 0xF5} {
		t.classes[op] = opClass{pushes: 2}
	}
	return t
}
