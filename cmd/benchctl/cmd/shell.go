package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/arloliu/go-testbench/instrument"
	"github.com/arloliu/go-testbench/transfer"
)

const shellHelp = `Commands:
  <command>            send a command, a command with '?' in its header is a query
  !fetch <request>     query typed data in the activated format
  !format <f> [type]   select the transfer format
  !timeout <value>     set the I/O timeout
  !help                show this help
  !quit                leave the shell`

// lineReader is the part of *readline.Instance used by the shell.
type lineReader interface {
	Readline() (string, error)
}

func newShellCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "shell <instrument>",
		Short: "Interactive console to one instrument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.openBench(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			inst, err := env.attach(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          inst.Descriptor().Model + "> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "!quit",
			})
			if err != nil {
				return fmt.Errorf("failed to create readline: %w", err)
			}
			defer rl.Close()

			return runShell(cmd.Context(), inst, rl, rl.Stdout())
		},
	}
}

// runShell executes lines until !quit, end of input or ctx is done. Command
// errors are printed and do not end the shell.
func runShell(ctx context.Context, inst instrument.Instrument, in lineReader, out io.Writer) error {
	fmt.Fprintln(out, inst.Descriptor().String())
	fmt.Fprintln(out, shellHelp)

	for {
		if ctx != nil && ctx.Err() != nil {
			return nil
		}

		line, err := in.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		quit, err := shellLine(inst, line, out)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func shellLine(inst instrument.Instrument, line string, out io.Writer) (bool, error) {
	fields := strings.Fields(line)

	switch strings.ToLower(fields[0]) {
	case "!quit", "!exit":
		return true, nil
	case "!help":
		fmt.Fprintln(out, shellHelp)
		return false, nil
	case "!fetch":
		if len(fields) < 2 {
			return false, errors.New("!fetch needs a request")
		}
		data, err := inst.QueryTypedData(strings.Join(fields[1:], " "), instrument.AutoCount)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, strings.Join(data.ToText(), ","))
		return false, nil
	case "!format":
		if len(fields) < 2 {
			return false, errors.New("!format needs a format")
		}
		dataType := ""
		if len(fields) > 2 {
			dataType = fields[2]
		}
		return false, selectFormat(inst, fields[1], dataType)
	case "!timeout":
		if len(fields) != 2 {
			return false, errors.New("!timeout needs one value")
		}
		d, err := transfer.ParseTimeout(fields[1])
		if err != nil {
			return false, err
		}
		return false, inst.SetTimeout(d)
	}

	if !strings.Contains(fields[0], "?") {
		return false, inst.Send(line)
	}

	reply, err := inst.Query(line)
	if err != nil {
		return false, err
	}
	fmt.Fprintln(out, reply)

	return false, nil
}
