package service

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/aarch64sim/aarch64sim/core"
	"github.com/aarch64sim/aarch64sim/loader"
)

// Session provides a thread-safe interface to one running simulation,
// used by the HTTP API's session manager.
type Session struct {
	mu sync.RWMutex

	driver    *core.Driver
	output    *bytes.Buffer
	lastFault error
}

// New builds a session from a loaded ELF image.
func New(img *loader.Image, maxCycles uint64) *Session {
	mem := core.NewMemory(len(img.Bytes), img.ProgramStart)
	copy(mem.Bytes, img.Bytes)
	mem.Entry = img.Entry
	for _, s := range img.Sections {
		mem.Sections = append(mem.Sections, core.SectionInfo{Name: s.Name, Start: s.Start, Size: s.Size})
	}

	cpu := core.NewCPU()
	cpu.SP = img.ProgramStart + uint64(len(img.Bytes))

	dr := core.NewDriver(cpu, mem)
	out := &bytes.Buffer{}
	dr.Stdout = out

	return &Session{driver: dr, output: out}
}

// Driver returns the underlying core driver for direct debugger attachment.
// Callers that hold a Session should prefer its own methods for anything
// that needs s.mu protection.
func (s *Session) Driver() *core.Driver {
	return s.driver
}

// Start begins execution from the image's entry point.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.driver.Start()
}

// Step executes up to n instructions, stopping early once the core halts.
// The most recent fault, fatal or not, is kept for Status.
func (s *Session) Step(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < n; i++ {
		cont, err := s.driver.Step()
		if err != nil {
			s.lastFault = err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// Run executes until halt, fault, or maxCycles is reached.
func (s *Session) Run(maxCycles uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.driver.Run(maxCycles)
	if err != nil {
		s.lastFault = err
	}
	return err
}

// Status returns a snapshot of the session's run state.
func (s *Session) Status(id string) StatusReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var state State
	switch s.driver.State {
	case core.StateIdle:
		state = StateIdle
	case core.StateRunning:
		state = StateRunning
	case core.StateHalted:
		state = StateHalted
	}

	r := StatusReport{
		SessionID: id,
		State:     state,
		PC:        s.driver.CPU.PC,
		Cycles:    s.driver.CPU.Cycles,
		UpdatedAt: time.Now(),
	}
	if s.lastFault != nil {
		r.Error = s.lastFault.Error()
	}
	return r
}

// Registers returns a snapshot of the register file and flags.
func (s *Session) Registers() RegisterReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cpu := s.driver.CPU
	return RegisterReport{
		X:      cpu.X,
		SP:     cpu.SP,
		PC:     cpu.PC,
		N:      cpu.APSR.N,
		Z:      cpu.APSR.Z,
		C:      cpu.APSR.C,
		V:      cpu.APSR.V,
		Cycles: cpu.Cycles,
	}
}

// ReadMemory returns a copy of n bytes starting at addr.
func (s *Session) ReadMemory(addr uint64, n int) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.driver.Memory.ReadBytes(addr, n)
}

// DrainOutput returns everything the guest program has written to stdout
// since the last call and clears the buffer.
func (s *Session) DrainOutput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.output.String()
	s.output.Reset()
	return out
}

// WriteStdin feeds bytes to the guest program's stdin. The current core
// only supports a one-shot io.Reader, so this must be called before the
// first read syscall executes.
func (s *Session) WriteStdin(r *bytes.Reader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.driver.Stdin = r
}

func (s *Session) String() string {
	return fmt.Sprintf("session{pc=0x%X, cycles=%d}", s.driver.CPU.PC, s.driver.CPU.Cycles)
}
