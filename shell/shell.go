package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/sbdt/file"
	"github.com/opd-ai/sbdt/transport"
)

// ErrUnknownCommand is returned by RunLine for unregistered commands.
var ErrUnknownCommand = errors.New("unknown command")

// Engine is the engine surface the shell drives. *sbdt.Engine implements it.
type Engine interface {
	Init() error
	Deinit() error
	Cancel(fileID uint32, reason transport.RejectReason) error
	Policy() file.Policy
	SetPolicy(p file.Policy) error
	TransferStarted() bool
	TransferStats(fileID uint32) (transport.Stats, error)
	TransferParams(fileID uint32) (transport.Params, []string, error)
	Transfers() []file.TransferRecord
}

// HandlerFunc runs a command with its arguments, excluding the command name.
type HandlerFunc func(sh *Shell, args []string) error

type command struct {
	usage   string
	handler HandlerFunc
}

// Options configures a Shell.
type Options struct {
	In  io.Reader
	Out io.Writer
	// Quit is invoked on "exit".
	Quit func()
	// Dispatch runs fn on the engine's consumer goroutine. Nil runs fn
	// directly.
	Dispatch func(fn func()) error
	// Color enables ANSI colors on status lines.
	Color bool
}

// Shell executes operator commands against an Engine.
type Shell struct {
	engine   Engine
	in       io.Reader
	out      io.Writer
	quit     func()
	dispatch func(fn func()) error
	color    bool
	commands map[string]command
}

// New constructs a shell over engine with the built-in commands registered.
func New(engine Engine, opts Options) *Shell {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Quit == nil {
		opts.Quit = func() {}
	}
	if opts.Dispatch == nil {
		opts.Dispatch = func(fn func()) error {
			fn()
			return nil
		}
	}
	sh := &Shell{
		engine:   engine,
		in:       opts.In,
		out:      opts.Out,
		quit:     opts.Quit,
		dispatch: opts.Dispatch,
		color:    opts.Color,
		commands: make(map[string]command),
	}
	sh.registerBuiltins()
	return sh
}

// Register adds or replaces a command.
func (sh *Shell) Register(name, usage string, handler HandlerFunc) {
	sh.commands[strings.ToLower(name)] = command{usage: usage, handler: handler}
}

// Out returns the output stream for custom commands.
func (sh *Shell) Out() io.Writer {
	return sh.out
}

// Engine returns the engine the shell drives.
func (sh *Shell) Engine() Engine {
	return sh.engine
}

// Dispatch runs fn on the engine's consumer goroutine.
func (sh *Shell) Dispatch(fn func()) error {
	return sh.dispatch(fn)
}

// RunLine executes a single command line. On failure it prints a line
// starting with "ERR" and returns the error. "exit" calls Quit and returns
// io.EOF.
func (sh *Shell) RunLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name := strings.ToLower(fields[0])

	if name == "exit" || name == "quit" {
		sh.quit()
		return io.EOF
	}

	cmd, ok := sh.commands[name]
	if !ok {
		sh.Errorf("unknown command %q, try help", fields[0])
		return fmt.Errorf("%w: %s", ErrUnknownCommand, fields[0])
	}

	if err := cmd.handler(sh, fields[1:]); err != nil {
		sh.Errorf("%v", err)
		logrus.WithFields(logrus.Fields{
			"function": "RunLine",
			"command":  name,
			"error":    err.Error(),
		}).Debug("Shell command failed")
		return err
	}
	return nil
}

// Run reads commands from the input until EOF or "exit".
func (sh *Shell) Run() error {
	if sh.in == nil {
		return errors.New("shell has no input")
	}
	sc := bufio.NewScanner(sh.in)
	for sc.Scan() {
		if err := sh.RunLine(sc.Text()); errors.Is(err, io.EOF) {
			return nil
		}
	}
	return sc.Err()
}

// OK prints a success line.
func (sh *Shell) OK(format string, args ...any) {
	msg := "OK"
	if format != "" {
		msg += " " + fmt.Sprintf(format, args...)
	}
	if sh.color {
		msg = color.New(color.FgGreen).Render(msg)
	}
	fmt.Fprintln(sh.out, msg)
}

// Errorf prints an error line.
func (sh *Shell) Errorf(format string, args ...any) {
	msg := "ERR " + fmt.Sprintf(format, args...)
	if sh.color {
		msg = color.New(color.FgRed).Render(msg)
	}
	fmt.Fprintln(sh.out, msg)
}

// Warnf prints a warning line.
func (sh *Shell) Warnf(format string, args ...any) {
	msg := "WARN " + fmt.Sprintf(format, args...)
	if sh.color {
		msg = color.New(color.FgYellow).Render(msg)
	}
	fmt.Fprintln(sh.out, msg)
}

// Table renders rows under header.
func (sh *Shell) Table(header []string, rows [][]string) {
	table := tablewriter.NewWriter(sh.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
}

func (sh *Shell) help() {
	names := make([]string, 0, len(sh.commands))
	for name := range sh.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names)+1)
	for _, name := range names {
		rows = append(rows, []string{name, sh.commands[name].usage})
	}
	rows = append(rows, []string{"exit", "leave the shell"})
	sh.Table([]string{"COMMAND", "USAGE"}, rows)
}
