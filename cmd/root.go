package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mylar",
	Short: "Mylar Inter-AS Routing Daemon",
	Long: `Mylar is a simplified BGP-like inter-AS routing daemon.
It exchanges route announcements with its neighbours, maintains a coalesced
forwarding table, and forwards data packets subject to peering policy.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
