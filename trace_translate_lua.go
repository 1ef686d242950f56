// trace_translate_lua.go - Lua-scripted opcode tables for architectures without a built-in translator

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

	lua "github.com/yuin/gopher-lua"
)

/*
A translator script sets globals and returns nothing:

	name = "mycpu"
	stack_reset_threshold = 14  -- optional
	irq_pushes = 1              -- optional, data slots of an interrupt frame
	opcodes = {
	    [0x00] = { interrupt = true, push = 1, mnemonic = "BRK" },
	    [0x48] = { push = 1, mnemonic = "PHA" },
	    [0x9C] = { call = true },   -- pushes a return address outside a call
	}

The script is run once when loaded. The resulting translator is a plain
table lookup; no Lua runs on the trace path.
*/

// LoadLuaTranslator reads a translator script from path.
func LoadLuaTranslator(path string) (TraceTranslator, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lua translator: %w", err)
	}
	return NewLuaTranslator(string(src))
}

// NewLuaTranslator builds a translator from script source.
func NewLuaTranslator(src string) (TraceTranslator, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	// base library only: the script needs no io or os access
	L.Push(L.NewFunction(lua.OpenBase))
	L.Push(lua.LString(lua.BaseLibName))
	L.Call(1, 0)

	if err := L.DoString(src); err != nil {
		return nil, fmt.Errorf("lua translator: %w", err)
	}

	t := &tableTranslator{name: "lua", threshold: TRACE_STACK_RESET_DEFAULT}
	if v, ok := L.GetGlobal("name").(lua.LString); ok && v != "" {
		t.name = string(v)
	}
	if v, ok := L.GetGlobal("stack_reset_threshold").(lua.LNumber); ok {
		if v < 1 || v > 255 {
			return nil, fmt.Errorf("lua translator: stack_reset_threshold %v out of range", v)
		}
		t.threshold = int(v)
	}
	if v, ok := L.GetGlobal("irq_pushes").(lua.LNumber); ok {
		n, err := luaPushCount(v)
		if err != nil {
			return nil, fmt.Errorf("lua translator: irq_pushes: %w", err)
		}
		t.irqPushes = n
	}

	ops, ok := L.GetGlobal("opcodes").(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("lua translator: script does not define an opcodes table")
	}
	var names [256]string
	var ferr error
	ops.ForEach(func(k, v lua.LValue) {
		if ferr != nil {
			return
		}
		code, ok := k.(lua.LNumber)
		if !ok || code < 0 || code > 255 || code != lua.LNumber(int(code)) {
			ferr = fmt.Errorf("lua translator: bad opcode key %v", k)
			return
		}
		entry, ok := v.(*lua.LTable)
		if !ok {
			ferr = fmt.Errorf("lua translator: opcode $%02X: entry is %s, want table", int(code), v.Type())
			return
		}
		var cls opClass
		cls.interrupt = lua.LVAsBool(entry.RawGetString("interrupt"))
		cls.implicitCall = lua.LVAsBool(entry.RawGetString("call"))
		if p, ok := entry.RawGetString("push").(lua.LNumber); ok {
			n, err := luaPushCount(p)
			if err != nil {
				ferr = fmt.Errorf("lua translator: opcode $%02X: %w", int(code), err)
				return
			}
			cls.pushes = n
		}
		t.classes[int(code)] = cls
		if m, ok := entry.RawGetString("mnemonic").(lua.LString); ok {
			names[int(code)] = string(m)
		}
	})
	if ferr != nil {
		return nil, ferr
	}
	t.mnemonic = func(e TraceEntry) string {
		if n := names[e.Opcode]; n != "" {
			return n
		}
		return fmt.Sprintf("db $%02X", e.Opcode)
	}
	return t, nil
}

func luaPushCount(v lua.LNumber) (uint8, error) {
	if v < 0 || v > 2 || v != lua.LNumber(int(v)) {
		return 0, fmt.Errorf("push count %v not in 0..2", v)
	}
	return uint8(v), nil
}
