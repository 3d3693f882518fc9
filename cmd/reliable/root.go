package main

import (
	"github.com/spf13/cobra"
)

// Command returns the root "reliable" command with its listen, send, and
// simulate subcommands attached, mirroring the teacher's
// Command()-returns-*cobra.Command factory convention.
func Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "reliable",
		Short:         "Drive a reliable-datagram endpoint over UDP or a simulated network",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(listenCommand())
	root.AddCommand(sendCommand())
	root.AddCommand(simulateCommand())
	return root
}
