package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/shlex"

	"codemanager/internal/controller"
)

const helpText = `Commands:
  health                         check the service
  metrics                        show running/waiting/max_concurrent
  cap <n>                        set max concurrent runs
  run [-c] <lang> <file>...      submit files, use the configured pipeline
                                 (-c attaches a stderr classification)
  exec <lang> <command>          run a single shell command, no files
  help                           show this help
  quit                           exit`

// REPL is the interactive shell around a Client.
type REPL struct {
	client *Client
	out    io.Writer
}

// NewREPL creates a REPL writing to out.
func NewREPL(client *Client, out io.Writer) *REPL {
	return &REPL{client: client, out: out}
}

// Run reads and dispatches commands until EOF or quit.
func (r *REPL) Run() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "code-manager> ",
		HistoryFile:     filepath.Join(os.TempDir(), "code_manager_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		if err := r.Dispatch(line); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
	}
}

// Dispatch executes one command line.
func (r *REPL) Dispatch(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if len(args) == 0 {
		return nil
	}

	switch args[0] {
	case "help":
		fmt.Fprintln(r.out, helpText)
		return nil
	case "health":
		banner, err := r.client.Health()
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, banner)
		return nil
	case "metrics":
		snap, err := r.client.Metrics()
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "running=%d waiting=%d max_concurrent=%d\n",
			snap.Running, snap.Waiting, snap.MaxConcurrent)
		return nil
	case "cap":
		if len(args) != 2 {
			return fmt.Errorf("usage: cap <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("cap: %q is not a number", args[1])
		}
		if err := r.client.SetMaxConcurrent(n); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "max_concurrent=%d\n", n)
		return nil
	case "run":
		return r.runFiles(args[1:])
	case "exec":
		return r.execCommand(args[1:])
	default:
		return fmt.Errorf("unknown command %q, try help", args[0])
	}
}

func (r *REPL) runFiles(args []string) error {
	classify := false
	if len(args) > 0 && args[0] == "-c" {
		classify = true
		args = args[1:]
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: run [-c] <lang> <file>...")
	}

	req := controller.RunRequest{Language: args[0], Classify: classify}
	for _, path := range args[1:] {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		req.Files = append(req.Files, controller.FileDTO{
			Name:  filepath.Base(path),
			Bytes: content,
		})
	}

	resp, err := r.client.Run(req)
	if err != nil {
		return err
	}
	r.printResponse(resp)
	return nil
}

func (r *REPL) execCommand(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: exec <lang> <command>")
	}

	resp, err := r.client.Run(controller.RunRequest{
		Language: args[0],
		Commands: []string{strings.Join(args[1:], " ")},
	})
	if err != nil {
		return err
	}
	r.printResponse(resp)
	return nil
}

func (r *REPL) printResponse(resp controller.RunResponse) {
	fmt.Fprintf(r.out, "status=%s total_ms=%d\n", resp.Status, resp.TotalMs)
	for _, res := range resp.Results {
		fmt.Fprintf(r.out, "[%d] exit=%d duration_ms=%d", res.Index, res.Exit, res.DurationMs)
		if res.Truncated {
			fmt.Fprint(r.out, " (output truncated)")
		}
		fmt.Fprintln(r.out)
		if len(res.Stdout) > 0 {
			fmt.Fprintln(r.out, strings.TrimRight(string(res.Stdout), "\n"))
		}
		if len(res.Stderr) > 0 {
			fmt.Fprintln(r.out, strings.TrimRight(string(res.Stderr), "\n"))
		}
	}
	if c := resp.Classification; c != nil {
		fmt.Fprintf(r.out, "language=%s safety=%t segfault=%t exception=%t\n",
			c.Language, c.Safety, c.Segfault, c.Exception)
	}
}
