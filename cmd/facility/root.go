package facility

import (
	"github.com/ValentinKolb/fbook/cmd/util"
	"github.com/ValentinKolb/fbook/lib/executor"
	"github.com/ValentinKolb/fbook/rpc/client"
	"github.com/ValentinKolb/fbook/rpc/common"
	"github.com/ValentinKolb/fbook/rpc/transport/udp"
	"github.com/spf13/cobra"
)

var (
	rpcClient    *client.FacilityClient
	udpTransport *udp.ClientTransport
	pool         *executor.Pool
	formatter    util.Formatter
	config       *common.ClientConfig

	// FacilityCommands represents the facility command group
	FacilityCommands = &cobra.Command{
		Use:                "facility",
		Aliases:            []string{"f"},
		Short:              "Query, book and monitor facilities",
		PersistentPreRunE:  setupFacilityClient,
		PersistentPostRunE: teardownFacilityClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the facility command
	util.SetupRPCClientFlags(FacilityCommands)

	// Add subcommands
	FacilityCommands.AddCommand(queryCmd)
	FacilityCommands.AddCommand(bookCmd)
	FacilityCommands.AddCommand(changeCmd)
	FacilityCommands.AddCommand(monitorCmd)
	FacilityCommands.AddCommand(lastCmd)
	FacilityCommands.AddCommand(extendCmd)
	FacilityCommands.AddCommand(perfTestCmd)
}

// setupFacilityClient initializes logging, the transport, the RPC client and the worker pool
func setupFacilityClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config = util.GetClientConfig()
	if err := util.InitLogging(config); err != nil {
		return err
	}
	formatter = util.NewFormatter(util.GetOutputFormat())

	var err error
	udpTransport = util.GetTransport()
	if rpcClient, err = client.NewFacilityClient(*config, udpTransport); err != nil {
		return err
	}

	pool, err = executor.NewPool(config.Workers)
	return err
}

// teardownFacilityClient stops the workers and releases the socket
func teardownFacilityClient(_ *cobra.Command, _ []string) error {
	if pool != nil {
		pool.Close()
	}
	if rpcClient != nil {
		return rpcClient.Close()
	}
	return nil
}
