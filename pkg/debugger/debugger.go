// Package debugger implements the interactive REPL that steps through a
// workflow run one tool at a time.
package debugger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/hackmate/hackmate/pkg/report"
	"github.com/hackmate/hackmate/pkg/runtime"
)

// Debugger provides an interactive REPL over a started run session.
type Debugger struct {
	session *runtime.Session
	output  io.Writer
	console *report.Console
	rl      *readline.Instance
}

// New creates a debugger positioned before the session's next step.
func New(sess *runtime.Session, out io.Writer) *Debugger {
	if out == nil {
		out = os.Stdout
	}
	return &Debugger{session: sess, output: out, console: report.NewConsole(out)}
}

var commands = []string{"next", "continue", "list", "status", "dump", "help", "quit"}

// Run starts the interactive REPL loop. It returns when the operator quits
// or input ends.
func (d *Debugger) Run(ctx context.Context) error {
	completer := readline.NewPrefixCompleter()
	for _, cmd := range commands {
		completer.Children = append(completer.Children, readline.PcItem(cmd))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          d.buildPrompt(),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	d.rl = rl
	defer rl.Close()

	run := d.session.Run()
	fmt.Fprintf(d.output, "hackmate debugger: %s, %d steps, target=%s\n", run.Workflow, len(d.session.Steps()), run.Target)
	fmt.Fprintf(d.output, "Type 'help' for available commands, 'next' to run the next step.\n\n")

	for {
		rl.SetPrompt(d.buildPrompt())
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if quit := d.dispatch(ctx, line); quit {
			return nil
		}
	}
}

// dispatch runs one command line and reports whether the REPL should exit.
func (d *Debugger) dispatch(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	switch parts[0] {
	case "next", "n":
		d.handleNext(ctx)
	case "continue", "c":
		d.handleContinue(ctx)
	case "list", "l":
		d.handleList()
	case "status", "s":
		d.handleStatus()
	case "dump":
		d.handleDump()
	case "help", "?":
		d.handleHelp()
	case "quit", "q":
		fmt.Fprintf(d.output, "Exiting debugger.\n")
		return true
	default:
		fmt.Fprintf(d.output, "Unknown command: %q. Type 'help' for available commands.\n", parts[0])
	}
	return false
}

// buildPrompt creates the prompt string: hackmate[step N/total | name]>
func (d *Debugger) buildPrompt() string {
	pos := d.session.Position()
	all := d.session.Steps()
	if d.session.Done() || pos >= len(all) {
		return "hackmate[done]> "
	}
	return fmt.Sprintf("hackmate[%d/%d | %s]> ", pos+1, len(all), all[pos].Name)
}
