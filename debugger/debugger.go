// Package debugger implements an interactive line-mode REPL over a
// core.Driver, following the session-state shape of the teacher's
// debugger.Debugger (breakpoints + watchpoints + history bundled with the
// running machine) while replacing its tui/gui front ends with a single
// bufio-based command loop.
package debugger

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aarch64sim/aarch64sim/core"
)

// Debugger bundles a running core.Driver with breakpoint, watchpoint and
// command-history state for one interactive session.
type Debugger struct {
	Driver      *core.Driver
	Breakpoints *BreakpointManager
	Watchpoints *WatchpointManager
	History     *CommandHistory

	Symbols map[string]uint64

	in  *bufio.Scanner
	out io.Writer
}

// New creates a debugger session wrapping the given driver.
func New(dr *core.Driver, in io.Reader, out io.Writer) *Debugger {
	return &Debugger{
		Driver:      dr,
		Breakpoints: NewBreakpointManager(),
		Watchpoints: NewWatchpointManager(),
		History:     NewCommandHistory(),
		Symbols:     make(map[string]uint64),
		in:          bufio.NewScanner(in),
		out:         out,
	}
}

// LoadSymbols installs a label-to-address table used by ResolveAddress.
func (d *Debugger) LoadSymbols(symbols map[string]uint64) {
	d.Symbols = symbols
}

// ResolveAddress resolves a symbol name, or parses a literal hexadecimal
// address (with or without a 0x prefix).
func (d *Debugger) ResolveAddress(s string) (uint64, error) {
	if addr, ok := d.Symbols[s]; ok {
		return addr, nil
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	addr, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return addr, nil
}

// RunREPL reads commands from the session's input until "quit"/"q" or EOF.
func (d *Debugger) RunREPL() error {
	fmt.Fprintln(d.out, "aarch64sim debugger. Type 'help' for commands.")
	for {
		fmt.Fprint(d.out, "(dbg) ")
		if !d.in.Scan() {
			return d.in.Err()
		}
		line := strings.TrimSpace(d.in.Text())
		if line == "" {
			if last := d.History.GetLast(); last != "" {
				line = last
			} else {
				continue
			}
		}
		d.History.Add(line)
		if done := d.dispatch(line); done {
			return nil
		}
	}
}

func (d *Debugger) dispatch(line string) (quit bool) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "quit", "q", "exit":
		return true
	case "help", "h":
		d.printHelp()
	case "step", "s":
		n := 1
		if len(args) > 0 {
			if v, err := strconv.Atoi(args[0]); err == nil {
				n = v
			}
		}
		d.step(n)
	case "continue", "c":
		d.cont()
	case "break", "b":
		d.setBreak(args, false)
	case "tbreak":
		d.setBreak(args, true)
	case "delete", "d":
		d.deleteBreak(args)
	case "info":
		d.info(args)
	case "regs", "r":
		d.printRegs()
	case "x":
		d.examine(args)
	case "watch", "w":
		d.setWatch(args)
	default:
		fmt.Fprintf(d.out, "unknown command: %s\n", cmd)
	}
	return false
}

func (d *Debugger) printHelp() {
	fmt.Fprint(d.out, `commands:
  step [n]          execute n instructions (default 1)
  continue          run until a breakpoint, watchpoint, or halt
  break ADDR        set a breakpoint at ADDR (hex or symbol)
  tbreak ADDR       set a one-shot breakpoint
  delete ID         remove breakpoint ID
  watch x<N>|ADDR   add a watchpoint on a register or memory word
  regs              print general-purpose registers and flags
  x ADDR [n]        dump n words of memory starting at ADDR
  info break|watch  list breakpoints or watchpoints
  quit              leave the debugger
`)
}

func (d *Debugger) step(n int) {
	for i := 0; i < n; i++ {
		cont, err := d.Driver.Step()
		if err != nil {
			fmt.Fprintf(d.out, "fault: %v\n", err)
		}
		if !cont {
			fmt.Fprintf(d.out, "halted at pc=0x%X\n", d.Driver.CPU.PC)
			return
		}
		if wp, hit := d.Watchpoints.CheckWatchpoints(d.Driver.CPU, d.Driver.Memory); hit {
			fmt.Fprintf(d.out, "watchpoint %d triggered: %s -> 0x%X\n", wp.ID, wp.Expression, wp.LastValue)
			return
		}
	}
	fmt.Fprintf(d.out, "pc=0x%X\n", d.Driver.CPU.PC)
}

func (d *Debugger) cont() {
	for {
		cont, err := d.Driver.Step()
		if err != nil {
			fmt.Fprintf(d.out, "fault: %v\n", err)
		}
		if !cont {
			fmt.Fprintf(d.out, "halted at pc=0x%X\n", d.Driver.CPU.PC)
			return
		}
		if wp, hit := d.Watchpoints.CheckWatchpoints(d.Driver.CPU, d.Driver.Memory); hit {
			fmt.Fprintf(d.out, "watchpoint %d triggered: %s -> 0x%X\n", wp.ID, wp.Expression, wp.LastValue)
			return
		}
		if bp := d.Breakpoints.GetBreakpoint(d.Driver.CPU.PC); bp != nil && bp.Enabled {
			hit := d.Breakpoints.ProcessHit(d.Driver.CPU.PC)
			fmt.Fprintf(d.out, "breakpoint %d hit at 0x%X (count %d)\n", hit.ID, hit.Address, hit.HitCount)
			return
		}
	}
}

func (d *Debugger) setBreak(args []string, temporary bool) {
	if len(args) == 0 {
		fmt.Fprintln(d.out, "usage: break ADDR")
		return
	}
	addr, err := d.ResolveAddress(args[0])
	if err != nil {
		fmt.Fprintln(d.out, err)
		return
	}
	bp := d.Breakpoints.AddBreakpoint(addr, temporary, "")
	fmt.Fprintf(d.out, "breakpoint %d at 0x%X\n", bp.ID, bp.Address)
}

func (d *Debugger) deleteBreak(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(d.out, "usage: delete ID")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(d.out, err)
		return
	}
	if err := d.Breakpoints.DeleteBreakpoint(id); err != nil {
		fmt.Fprintln(d.out, err)
	}
}

func (d *Debugger) setWatch(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(d.out, "usage: watch x<N>|ADDR")
		return
	}
	expr := args[0]
	var wp *Watchpoint
	if strings.HasPrefix(expr, "x") || strings.HasPrefix(expr, "X") {
		n, err := strconv.Atoi(expr[1:])
		if err != nil || n < 0 || n > 31 {
			fmt.Fprintf(d.out, "invalid register %q\n", expr)
			return
		}
		wp = d.Watchpoints.AddWatchpoint(WatchReadWrite, expr, 0, true, n)
	} else {
		addr, err := d.ResolveAddress(expr)
		if err != nil {
			fmt.Fprintln(d.out, err)
			return
		}
		wp = d.Watchpoints.AddWatchpoint(WatchReadWrite, expr, addr, false, 0)
	}
	if err := d.Watchpoints.InitializeWatchpoint(wp.ID, d.Driver.CPU, d.Driver.Memory); err != nil {
		fmt.Fprintln(d.out, err)
	}
	fmt.Fprintf(d.out, "watchpoint %d on %s\n", wp.ID, wp.Expression)
}

func (d *Debugger) info(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(d.out, "usage: info break|watch")
		return
	}
	switch args[0] {
	case "break", "b", "breakpoints":
		for _, bp := range d.Breakpoints.GetAllBreakpoints() {
			fmt.Fprintf(d.out, "  %d: 0x%X enabled=%v hits=%d\n", bp.ID, bp.Address, bp.Enabled, bp.HitCount)
		}
	case "watch", "w", "watchpoints":
		for _, wp := range d.Watchpoints.GetAllWatchpoints() {
			fmt.Fprintf(d.out, "  %d: %s enabled=%v hits=%d\n", wp.ID, wp.Expression, wp.Enabled, wp.HitCount)
		}
	default:
		fmt.Fprintf(d.out, "unknown info target: %s\n", args[0])
	}
}

func (d *Debugger) printRegs() {
	cpu := d.Driver.CPU
	for i := 0; i < 31; i += 2 {
		fmt.Fprintf(d.out, "x%-2d=%016X  x%-2d=%016X\n", i, cpu.X[i], i+1, cpu.X[i+1])
	}
	fmt.Fprintf(d.out, "sp =%016X  pc =%016X\n", cpu.SP, cpu.PC)
	fmt.Fprintf(d.out, "nzcv: N=%v Z=%v C=%v V=%v\n", cpu.APSR.N, cpu.APSR.Z, cpu.APSR.C, cpu.APSR.V)
}

func (d *Debugger) examine(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(d.out, "usage: x ADDR [n]")
		return
	}
	addr, err := d.ResolveAddress(args[0])
	if err != nil {
		fmt.Fprintln(d.out, err)
		return
	}
	n := 4
	if len(args) > 1 {
		if v, err := strconv.Atoi(args[1]); err == nil {
			n = v
		}
	}
	for i := 0; i < n; i++ {
		v, err := d.Driver.Memory.ReadUint32(addr + uint64(i*4))
		if err != nil {
			fmt.Fprintf(d.out, "0x%X: <out of range>\n", addr+uint64(i*4))
			return
		}
		fmt.Fprintf(d.out, "0x%X: %08X\n", addr+uint64(i*4), v)
	}
}
