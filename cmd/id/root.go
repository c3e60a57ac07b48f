package id

import (
	"fmt"

	"github.com/ValentinKolb/dIdx/cmd/util"
	"github.com/ValentinKolb/dIdx/lib/idmgr"
	"github.com/ValentinKolb/dIdx/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcIDMgr idmgr.IIDManager

	// IDCommands represents the id command group
	IDCommands = &cobra.Command{
		Use:               "id",
		Short:             "Perform id operations",
		PersistentPreRunE: setupIDClient,
	}

	// allocCmd represents the alloc command
	allocCmd = &cobra.Command{
		Use:   "alloc",
		Short: "Allocate a random unused id",
		Args:  cobra.NoArgs,
		RunE:  runAlloc,
	}

	// reserveCmd represents the reserve command
	reserveCmd = &cobra.Command{
		Use:   "reserve [id]",
		Short: "Reserve a specific id",
		Long:  "Reserve a specific id. Prints reserved=false if the id is already taken.",
		Args:  cobra.ExactArgs(1),
		RunE:  runReserve,
	}

	// releaseCmd represents the release command
	releaseCmd = &cobra.Command{
		Use:   "release [id]",
		Short: "Release a previously allocated or reserved id",
		Args:  cobra.ExactArgs(1),
		RunE:  runRelease,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add subcommands to id command
	IDCommands.AddCommand(allocCmd)
	IDCommands.AddCommand(reserveCmd)
	IDCommands.AddCommand(releaseCmd)

	// Add common RPC flags to the id command
	util.SetupRPCClientFlags(IDCommands)

	// Set default shard ID for id operations (different from the index default)
	IDCommands.PersistentFlags().Int("shard", 200, util.WrapString("ID of the shard to connect to"))
}

// setupIDClient initializes the id manager client
func setupIDClient(cmd *cobra.Command, _ []string) error {
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

	// Create the id manager client
	rpcIDMgr, err = client.NewRPCIDManager(
		shardId,
		*config,
		t,
		s,
	)

	return err
}

func runAlloc(_ *cobra.Command, _ []string) error {
	id, err := rpcIDMgr.Allocate()
	if err != nil {
		return err
	}
	fmt.Printf("id=%d (0x%x)\n", id, id)
	return nil
}

func runReserve(_ *cobra.Command, args []string) error {
	id, err := util.ParseKey(args[0])
	if err != nil {
		return err
	}
	ok, err := rpcIDMgr.Reserve(id)
	if err != nil {
		return err
	}
	fmt.Printf("id=%d, reserved=%t\n", id, ok)
	return nil
}

func runRelease(_ *cobra.Command, args []string) error {
	id, err := util.ParseKey(args[0])
	if err != nil {
		return err
	}
	ok, err := rpcIDMgr.Release(id)
	if err != nil {
		return err
	}
	fmt.Printf("id=%d, released=%t\n", id, ok)
	return nil
}
