// trace_constants.go - Constants for the trace history and trace tree builder

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

// Ancestor cache
const (
	TRACE_STACK_SLOTS          = 256 // one slot per 8-bit stack pointer value
	TRACE_ANCESTOR_SCAN        = 14  // neighbouring slots probed when a slot is empty
	TRACE_STACK_RESET_DEFAULT  = 14  // default threshold for stackGrewDown
	TRACE_MAX_NESTING_DEPTH    = 32  // call/interrupt markers between root and current position
	TRACE_SUBROUTINE_CALL_TEXT = "Subroutine call"
)

// Repeat window
const (
	TRACE_REPEAT_WINDOW_SHIFT = 12
	TRACE_REPEAT_WINDOW_SIZE  = 1 << TRACE_REPEAT_WINDOW_SHIFT
	TRACE_REPEAT_WINDOW_MASK  = TRACE_REPEAT_WINDOW_SIZE - 1
	TRACE_REPEAT_HASH_SIZE    = 1 << 16
	TRACE_REPEAT_MAX_PROBES   = 16                           // chain candidates examined per instruction
	TRACE_REPEAT_SEARCH_REACH = TRACE_REPEAT_WINDOW_SIZE / 3 // head - reach bounds the chain walk
)

// Invalidation accumulator values returned by EndUpdate.
const (
	TRACE_NO_INVALIDATION    = -2 // tracking disabled for this update
	TRACE_INVALIDATION_UNSET = -1 // tracking enabled, nothing disturbed
)

// Trace history
const (
	TRACE_HISTORY_DEFAULT_SHIFT = 20
	TRACE_HISTORY_DEFAULT_SIZE  = 1 << TRACE_HISTORY_DEFAULT_SHIFT
)

// TraceEntry flags
const (
	TRACE_FLAG_IRQ = 1 << 0 // CPU acknowledged a maskable interrupt on this entry
	TRACE_FLAG_NMI = 1 << 1 // CPU acknowledged a non-maskable interrupt on this entry
)

// Capture files
const (
	TRACE_CAPTURE_MAGIC       = "IETR"
	TRACE_CAPTURE_VERSION     = 1
	TRACE_CAPTURE_RECORD_SIZE = 10
	TRACE_CAPTURE_MAX_ARCH    = 32
)
