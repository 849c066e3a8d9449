// Command minikernel boots the simulated kernel core, attaches the
// controlling terminal as its console, and runs a small built-in shell
// against terminal 0. It exists to drive the whole stack end to end:
// host keystrokes become scancodes, scancodes become interrupts, and
// the shell's blocking reads ride the interrupt gate.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/tinyrange/minikernel/internal/console"
	"github.com/tinyrange/minikernel/internal/machine"
	"github.com/tinyrange/minikernel/internal/terminal"
	"github.com/tinyrange/minikernel/internal/trap"
)

type config struct {
	// Refresh is the console repaint interval, as a duration string.
	Refresh string `yaml:"refresh"`
	Debug   bool   `yaml:"debug"`
	// Banner is printed on terminal 0 before the first prompt.
	Banner string `yaml:"banner"`
}

func loadConfig(path string) (config, error) {
	var cfg config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "minikernel: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to a YAML config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	refresh := flag.Duration("refresh", 0, "Console repaint interval")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Boot the kernel core on the current terminal.\n")
		fmt.Fprintf(os.Stderr, "Ctrl-Q detaches; Ctrl-L clears; type 'help' at the prompt.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	var cfg config
	if *configPath != "" {
		var err error
		cfg, err = loadConfig(*configPath)
		if err != nil {
			return err
		}
	}
	if *debug {
		cfg.Debug = true
	}

	if cfg.Debug {
		// Log lines would tear the rendered screen, so debug output goes
		// to a file beside the process instead of stderr.
		f, err := os.Create("minikernel.log")
		if err != nil {
			return fmt.Errorf("create log file: %w", err)
		}
		defer f.Close()
		slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		})))
	}

	interval := *refresh
	if interval == 0 && cfg.Refresh != "" {
		var err error
		interval, err = time.ParseDuration(cfg.Refresh)
		if err != nil {
			return fmt.Errorf("parse refresh interval: %w", err)
		}
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("stdin is not a terminal")
	}
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("enable raw mode: %w", err)
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	m, err := machine.New(machine.Config{
		Hooks: trap.Hooks{
			Process: &signalLogger{},
			Halt:    &exitHalter{restore: func() { term.Restore(int(os.Stdin.Fd()), oldState) }},
		},
	})
	if err != nil {
		return fmt.Errorf("boot machine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go shell(cancel, m, cfg.Banner)

	c := console.New(m, os.Stdin, os.Stdout, interval)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// shell is the stand-in for a real process: it blocks in Read like user
// code would and answers on the same terminal. It runs against terminal
// 0 regardless of which terminal the display shows.
func shell(quit context.CancelFunc, m *machine.Machine, banner string) {
	t := m.Terminals.Executing()
	if banner != "" {
		t.Write([]byte(banner + "\n"))
	}

	buf := make([]byte, terminal.InputBufSize)
	for {
		t.Write([]byte("minikernel> "))
		n := t.Read(buf)
		line := strings.TrimSpace(string(buf[:n]))

		switch {
		case line == "":
		case line == "help":
			t.Write([]byte("commands: help, clear, echo <text>, exit\n"))
		case line == "clear":
			t.Clear()
		case line == "exit":
			quit()
			return
		case strings.HasPrefix(line, "echo "):
			t.Write([]byte(strings.TrimPrefix(line, "echo ") + "\n"))
		default:
			t.Write([]byte("unknown command: " + line + "\n"))
		}
	}
}

// signalLogger is the smallest possible process hook: there is no
// process subsystem here, so signals are recorded and dropped.
type signalLogger struct{}

func (*signalLogger) ExecutingPID() trap.PID { return 0 }

func (*signalLogger) Raise(pid trap.PID, sig trap.Signal) {
	slog.Warn("signal raised", "pid", pid, "signal", sig)
}

func (*signalLogger) DeliverPending(regs *trap.Registers) {}

// exitHalter restores the host terminal before dying; a fatal kernel
// exception must not leave the user's tty in raw mode.
type exitHalter struct {
	restore func()
}

func (h *exitHalter) Halt() {
	h.restore()
	os.Exit(2)
}
