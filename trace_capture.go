// trace_capture.go - Trace capture files for offline tree building

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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

var (
	ErrBadCapture  = errors.New("bad trace capture")
	ErrUnknownArch = errors.New("unknown architecture")
)

// TraceCapture is a recorded instruction history for one architecture.
type TraceCapture struct {
	Arch    string
	Entries []TraceEntry
}

// WriteCapture saves a capture. A .txt path writes the text form, a .zst
// path the zstd-compressed binary form, anything else plain binary.
func WriteCapture(path string, c *TraceCapture) error {
	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data = encodeTextCapture(c)
	case ".zst":
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("creating zstd encoder: %w", err)
		}
		data = enc.EncodeAll(encodeCapture(c), nil)
		enc.Close()
	default:
		data = encodeCapture(c)
	}
	return os.WriteFile(path, data, 0644)
}

// ReadCapture loads a capture written by WriteCapture.
func ReadCapture(path string) (*TraceCapture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return decodeTextCapture(bytes.NewReader(data))
	case ".zst":
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer dec.Close()
		if data, err = dec.DecodeAll(data, nil); err != nil {
			return nil, fmt.Errorf("%w: decompressing: %v", ErrBadCapture, err)
		}
	}
	return decodeCapture(data)
}

func encodeCapture(c *TraceCapture) []byte {
	var buf bytes.Buffer
	buf.Grow(len(TRACE_CAPTURE_MAGIC) + 2 + len(c.Arch) + len(c.Entries)*TRACE_CAPTURE_RECORD_SIZE)

	buf.WriteString(TRACE_CAPTURE_MAGIC)
	buf.WriteByte(TRACE_CAPTURE_VERSION)
	buf.WriteByte(byte(len(c.Arch)))
	buf.WriteString(c.Arch)

	var rec [TRACE_CAPTURE_RECORD_SIZE]byte
	for _, e := range c.Entries {
		binary.LittleEndian.PutUint32(rec[0:], e.PC)
		rec[4] = e.Opcode
		rec[5] = e.Operands[0]
		rec[6] = e.Operands[1]
		rec[7] = e.Flags
		binary.LittleEndian.PutUint16(rec[8:], e.SP)
		buf.Write(rec[:])
	}
	return buf.Bytes()
}

func decodeCapture(data []byte) (*TraceCapture, error) {
	r := bytes.NewReader(data)

	magic := make([]byte, len(TRACE_CAPTURE_MAGIC))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("%w: reading magic: %v", ErrBadCapture, err)
	}
	if string(magic) != TRACE_CAPTURE_MAGIC {
		return nil, fmt.Errorf("%w: invalid magic %q", ErrBadCapture, string(magic))
	}

	version, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: reading version: %v", ErrBadCapture, err)
	}
	if version != TRACE_CAPTURE_VERSION {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadCapture, version)
	}

	archLen, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: reading architecture length: %v", ErrBadCapture, err)
	}
	if archLen == 0 || archLen > TRACE_CAPTURE_MAX_ARCH {
		return nil, fmt.Errorf("%w: architecture name length %d", ErrBadCapture, archLen)
	}
	arch := make([]byte, archLen)
	if _, err := io.ReadFull(r, arch); err != nil {
		return nil, fmt.Errorf("%w: reading architecture: %v", ErrBadCapture, err)
	}

	body := data[len(data)-r.Len():]
	if len(body)%TRACE_CAPTURE_RECORD_SIZE != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrBadCapture, len(body)%TRACE_CAPTURE_RECORD_SIZE)
	}
	entries := make([]TraceEntry, len(body)/TRACE_CAPTURE_RECORD_SIZE)
	for i := range entries {
		rec := body[i*TRACE_CAPTURE_RECORD_SIZE:]
		entries[i] = TraceEntry{
			PC:       binary.LittleEndian.Uint32(rec[0:]),
			Opcode:   rec[4],
			Operands: [2]uint8{rec[5], rec[6]},
			Flags:    rec[7],
			SP:       binary.LittleEndian.Uint16(rec[8:]),
		}
	}
	return &TraceCapture{Arch: string(arch), Entries: entries}, nil
}

// Text captures hold one entry per line:
//
//	arch 6502
//	PC OP SP [B1 [B2]] [irq|nmi]
//
// Numbers use the monitor's address syntax; ';' starts a comment.
func encodeTextCapture(c *TraceCapture) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "arch %s\n", c.Arch)
	for _, e := range c.Entries {
		fmt.Fprintf(&sb, "$%04X $%02X $%04X $%02X $%02X", e.PC, e.Opcode, e.SP, e.Operands[0], e.Operands[1])
		if e.Flags&TRACE_FLAG_IRQ != 0 {
			sb.WriteString(" irq")
		}
		if e.Flags&TRACE_FLAG_NMI != 0 {
			sb.WriteString(" nmi")
		}
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

func decodeTextCapture(r io.Reader) (*TraceCapture, error) {
	c := &TraceCapture{}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if strings.EqualFold(fields[0], "arch") {
			if len(fields) != 2 {
				return nil, fmt.Errorf("%w: line %d: arch takes one name", ErrBadCapture, lineNo)
			}
			c.Arch = strings.ToLower(fields[1])
			continue
		}
		e, err := parseTextEntry(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadCapture, lineNo, err)
		}
		c.Entries = append(c.Entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading text capture: %w", err)
	}
	if c.Arch == "" {
		return nil, fmt.Errorf("%w: missing arch line", ErrBadCapture)
	}
	return c, nil
}

func parseTextEntry(fields []string) (TraceEntry, error) {
	var e TraceEntry
	if len(fields) < 3 {
		return e, fmt.Errorf("want PC OP SP, got %d fields", len(fields))
	}
	pc, ok := ParseAddress(fields[0])
	if !ok || pc > 0xFFFFFFFF {
		return e, fmt.Errorf("bad PC %q", fields[0])
	}
	op, ok := ParseAddress(fields[1])
	if !ok || op > 0xFF {
		return e, fmt.Errorf("bad opcode %q", fields[1])
	}
	sp, ok := ParseAddress(fields[2])
	if !ok || sp > 0xFFFF {
		return e, fmt.Errorf("bad stack pointer %q", fields[2])
	}
	e.PC, e.Opcode, e.SP = uint32(pc), uint8(op), uint16(sp)

	operands := 0
	for _, f := range fields[3:] {
		switch strings.ToLower(f) {
		case "irq":
			e.Flags |= TRACE_FLAG_IRQ
			continue
		case "nmi":
			e.Flags |= TRACE_FLAG_NMI
			continue
		}
		v, ok := ParseAddress(f)
		if !ok || v > 0xFF || operands == len(e.Operands) {
			return e, fmt.Errorf("bad operand %q", f)
		}
		e.Operands[operands] = uint8(v)
		operands++
	}
	return e, nil
}
