package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "setpollctl",
	Short: "setpoll operator CLI",
	Long: `setpollctl is the operator command-line interface for the setpoll
delivery service.

Generate receiver key pairs, compute credential digests, poll a running
service, and decrypt downloaded bundles from your terminal.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}
