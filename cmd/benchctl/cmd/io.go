package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-testbench/instrument"
	"github.com/arloliu/go-testbench/transfer"
)

func newIdentifyCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "identify <instrument>...",
		Short: "Identify instruments and print their descriptors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.openBench(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			for _, target := range args {
				inst, err := env.attach(cmd.Context(), target)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), inst.Descriptor().String())
			}

			return nil
		},
	}
}

func newSendCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "send <instrument> <command>...",
		Short: "Send commands that have no reply",
		Args:  cobra.MinimumNArgs(2),
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
			for _, command := range args[1:] {
				if err := inst.Send(command); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func newQueryCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "query <instrument> <request>",
		Short: "Send a query and print the reply",
		Args:  cobra.ExactArgs(2),
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
			reply, err := inst.Query(args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)

			return nil
		},
	}
}

type fetchFlags struct {
	count    int
	format   string
	dataType string
}

func newFetchCommand(g *globalFlags) *cobra.Command {
	f := &fetchFlags{}

	cmd := &cobra.Command{
		Use:   "fetch <instrument> <request>",
		Short: "Query typed data and print one value per line",
		Long: `Query typed data in the activated transfer format.

--format selects text or binary before the query. Instruments that negotiate
the format with the device send their format command, others only change the
local transfer configuration.`,
		Args: cobra.ExactArgs(2),
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
			if f.format != "" {
				if err := selectFormat(inst, f.format, f.dataType); err != nil {
					return err
				}
			}

			data, err := inst.QueryTypedData(args[1], f.count)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(data.ToText(), "\n"))

			return nil
		},
	}

	cmd.Flags().IntVarP(&f.count, "count", "n", instrument.AutoCount, "number of binary values, -1 asks the instrument")
	cmd.Flags().StringVar(&f.format, "format", "", "transfer format: text or binary")
	cmd.Flags().StringVar(&f.dataType, "type", "", "binary element type or text converter, e.g. f, d, h or e")

	return cmd
}

// selectFormat activates format, through the instrument when it negotiates formats.
func selectFormat(inst instrument.Instrument, format string, dataType string) error {
	if sel, ok := inst.(instrument.FormatSelector); ok {
		return sel.SetDataTransferFormat(format, dataType)
	}

	f, err := transfer.ParseFormat(format)
	if err != nil {
		return err
	}

	cfg := inst.Config()
	if dataType != "" {
		// the type is a converter for text and an element type for binary
		set := cfg.SetBinaryElementType
		if f == transfer.FormatText {
			set = cfg.SetTextConverter
		}
		if err := set(dataType); err != nil {
			return err
		}
	}

	return cfg.SetActivatedFormat(format)
}
