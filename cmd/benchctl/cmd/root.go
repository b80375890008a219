// Package cmd implements the benchctl command tree.
package cmd

import (
	"github.com/spf13/cobra"

	// drivers register their models with instrument.DefaultRegistry
	_ "github.com/arloliu/go-testbench/drivers/keysight"
	_ "github.com/arloliu/go-testbench/drivers/rigol"
)

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	timeout    string
}

// NewRootCommand creates the benchctl command with all subcommands.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "benchctl",
		Short: "Laboratory bench instrument controller",
		Long: `Discover, identify and control laboratory instruments reachable over
TCP/IP sockets, USBTMC, LXI discovery or simulated devices.

An instrument argument is either a resource address or the name of an
instrument declared in the configuration file.

Examples:
  benchctl list -c bench.yaml                                   # List reachable resources
  benchctl identify TCPIP0::192.168.1.20::INSTR                 # Identify one instrument
  benchctl query -c bench.yaml em ":SENSe:CURRent:RANGe:UPPer?" # Query a named instrument
  benchctl fetch em ":FETCh:ARRay:CURRent?" --format binary --type d
  benchctl shell -c bench.toml scope                            # Interactive console`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "bench configuration file (.yaml, .yml or .toml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level, overrides the configuration file")
	root.PersistentFlags().StringVarP(&g.timeout, "timeout", "t", "", "instrument I/O timeout, e.g. 2s, 500 (milliseconds) or infinite")

	root.AddCommand(
		newListCommand(g),
		newIdentifyCommand(g),
		newSendCommand(g),
		newQueryCommand(g),
		newFetchCommand(g),
		newShellCommand(g),
	)

	return root
}
