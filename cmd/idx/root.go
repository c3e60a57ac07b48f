package idx

import (
	"github.com/ValentinKolb/dIdx/cmd/util"
	"github.com/ValentinKolb/dIdx/lib/store"
	"github.com/ValentinKolb/dIdx/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcStore store.IStore

	// IndexCommands represents the index command group
	IndexCommands = &cobra.Command{
		Use:               "idx",
		Short:             "Perform index operations",
		PersistentPreRunE: setupIndexClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the index command
	util.SetupRPCClientFlags(IndexCommands)

	// Set default shard ID for index operations (different from the id default)
	IndexCommands.PersistentFlags().Int("shard", 100, util.WrapString("ID of the shard to connect to"))

	// Add subcommands
	IndexCommands.AddCommand(addCmd)
	IndexCommands.AddCommand(delCmd)
	IndexCommands.AddCommand(hasCmd)
	IndexCommands.AddCommand(lenCmd)
	IndexCommands.AddCommand(rangeCmd)
	IndexCommands.AddCommand(dotCmd)
	IndexCommands.AddCommand(infoCmd)
	IndexCommands.AddCommand(perfTestCmd)
}

// setupIndexClient initializes the RPC store client
func setupIndexClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()
	shardId := util.GetShardID()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the index client
	rpcStore, err = client.NewRPCStore(
		shardId,
		*config,
		t,
		s,
	)

	return err
}
