package cmd

import (
	"fmt"
	"github.com/ValentinKolb/fbook/cmd/facility"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "fbook",
		Short: "facility booking client",
		Long: fmt.Sprintf(`fBook (v%s)

A client for the facility booking service. Requests are sent as binary
datagrams over UDP with timeouts, retries and optional simulated packet loss.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of fBook",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fBook v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(facility.FacilityCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
