// Command benchctl lists, identifies and talks to bench instruments.
package main

import (
	"fmt"
	"os"

	"github.com/arloliu/go-testbench/cmd/benchctl/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
