package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aarch64sim/aarch64sim/api"
	"github.com/aarch64sim/aarch64sim/config"
	"github.com/aarch64sim/aarch64sim/core"
	"github.com/aarch64sim/aarch64sim/debugger"
	"github.com/aarch64sim/aarch64sim/loader"
)

// Version information, overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		debugMode   = flag.Bool("debug", false, "Start in the interactive debugger")
		apiServer   = flag.Bool("api-server", false, "Start HTTP API server mode")
		apiPort     = flag.Int("port", 8088, "API server port (used with -api-server)")
		maxCycles   = flag.Uint64("max-cycles", 0, "Maximum instructions before halt (0: use config default)")
		verboseMode = flag.Bool("verbose", false, "Verbose output")

		enableTrace    = flag.Bool("trace", false, "Enable execution trace")
		traceFile      = flag.String("trace-file", "", "Trace output file (default: stderr)")
		traceFilter    = flag.String("trace-filter", "", "Filter trace by registers (comma-separated, e.g. X0,X1,PC)")
		enableStats    = flag.Bool("stats", false, "Enable performance statistics")
		statsFile      = flag.String("stats-file", "", "Statistics output file (default: stdout, JSON)")
		enableCoverage = flag.Bool("coverage", false, "Enable code coverage tracking")
		coverageFile   = flag.String("coverage-file", "", "Coverage output file (default: stdout, JSON)")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("aarch64sim %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("built: %s\n", Date)
		}
		return
	}

	if *showHelp {
		printHelp()
		return
	}

	if *apiServer {
		runAPIServer(*apiPort)
		return
	}

	if flag.NArg() == 0 {
		printHelp()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: loading config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	cycleLimit := cfg.Execution.MaxCycles
	if *maxCycles > 0 {
		cycleLimit = *maxCycles
	}

	elfPath := flag.Arg(0)
	if *verboseMode {
		fmt.Printf("loading %s\n", elfPath)
	}

	img, err := loader.LoadFile(elfPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *verboseMode {
		fmt.Printf("entry=0x%X program_start=0x%X image_size=%d sections=%d\n",
			img.Entry, img.ProgramStart, len(img.Bytes), len(img.Sections))
	}

	mem := core.NewMemory(len(img.Bytes), img.ProgramStart)
	copy(mem.Bytes, img.Bytes)
	mem.Entry = img.Entry
	for _, s := range img.Sections {
		mem.Sections = append(mem.Sections, core.SectionInfo{Name: s.Name, Start: s.Start, Size: s.Size})
	}

	cpu := core.NewCPU()
	cpu.SP = img.ProgramStart + uint64(len(img.Bytes))

	dr := core.NewDriver(cpu, mem)

	if *enableTrace || cfg.Execution.EnableTrace {
		tw := os.Stderr
		if *traceFile != "" {
			f, err := os.Create(*traceFile) // #nosec G304 -- user-specified trace path
			if err != nil {
				fmt.Fprintf(os.Stderr, "error creating trace file: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()
			dr.Trace = core.NewTrace(f)
		} else {
			dr.Trace = core.NewTrace(tw)
		}
		dr.Trace.Enabled = true
		filter := *traceFilter
		if filter == "" {
			filter = cfg.Trace.FilterRegs
		}
		if filter != "" {
			dr.Trace.SetFilterRegisters(strings.Split(filter, ","))
		}
	}

	if *enableStats || cfg.Execution.EnableStats {
		dr.Stats = core.NewPerformanceStatistics()
		dr.Stats.Enabled = true
	}

	if *enableCoverage || cfg.Execution.EnableCoverage {
		dr.Coverage = core.NewCoverage(img.ProgramStart, img.ProgramStart+uint64(len(img.Bytes)))
		dr.Coverage.Enabled = true
	}

	dr.Start()

	if *debugMode {
		dbg := debugger.New(dr, os.Stdin, os.Stdout)
		if err := dbg.RunREPL(); err != nil {
			fmt.Fprintf(os.Stderr, "debugger error: %v\n", err)
			os.Exit(1)
		}
	} else if err := dr.Run(cycleLimit); err != nil {
		fmt.Fprintf(os.Stderr, "fault: %v\n", err)
		os.Exit(1)
	}

	if dr.Stats != nil {
		writeReport(*statsFile, dr.Stats)
	}
	if dr.Coverage != nil {
		writeReport(*coverageFile, dr.Coverage)
	}
}

type jsonMarshaler interface {
	MarshalJSON() ([]byte, error)
}

func writeReport(path string, m jsonMarshaler) {
	data, err := m.MarshalJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating report: %v\n", err)
		return
	}
	if path == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "error writing report to %s: %v\n", path, err)
	}
}

func runAPIServer(port int) {
	server := api.NewServer(port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var shutdownOnce sync.Once
	performShutdown := func() {
		shutdownOnce.Do(func() {
			fmt.Println("\nshutting down api server...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "error during shutdown: %v\n", err)
				os.Exit(1)
			}
		})
	}

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "api server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-sigChan
	performShutdown()
}

func printHelp() {
	fmt.Print(`aarch64sim - a user-mode AArch64 instruction-set simulator

Usage:
  aarch64sim [flags] <program.elf>
  aarch64sim -api-server [-port N]

Flags:
`)
	b := bufio.NewWriter(os.Stdout)
	flag.CommandLine.SetOutput(b)
	flag.PrintDefaults()
	b.Flush()
}
