package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dIdx/cmd/id"
	"github.com/ValentinKolb/dIdx/cmd/idx"
	"github.com/ValentinKolb/dIdx/cmd/serve"
	"github.com/ValentinKolb/dIdx/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "didx",
		Short: "persistent distributed index",
		Long: fmt.Sprintf(`dIdx (v%s)

A persistent index of unsigned 64 bit keys, stored in a memory mapped
red-black tree and optionally replicated with RAFT.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dIdx",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dIdx v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(idx.IndexCommands)
	RootCmd.AddCommand(id.IDCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
