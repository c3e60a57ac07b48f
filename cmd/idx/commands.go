package idx

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/ValentinKolb/dIdx/cmd/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	addCmd = &cobra.Command{
		Use:   "add [key...]",
		Short: "Adds one or more keys to the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := parseKeys(args)
			if err != nil {
				return err
			}
			for _, key := range keys {
				if err := rpcStore.Add(key); err != nil {
					return fmt.Errorf("add %d: %w", key, err)
				}
			}
			fmt.Printf("added %d key(s)\n", len(keys))
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key...]",
		Short: "Deletes one or more keys from the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := parseKeys(args)
			if err != nil {
				return err
			}
			for _, key := range keys {
				if err := rpcStore.Delete(key); err != nil {
					return fmt.Errorf("delete %d: %w", key, err)
				}
			}
			fmt.Printf("deleted %d key(s)\n", len(keys))
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := util.ParseKey(args[0])
			if err != nil {
				return err
			}
			found, err := rpcStore.Has(key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%d, found=%t\n", key, found)
			return nil
		},
	}
	lenCmd = &cobra.Command{
		Use:   "len",
		Short: "Prints the number of keys in the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := rpcStore.Len()
			if err != nil {
				return err
			}
			fmt.Printf("len=%d\n", n)
			return nil
		},
	}
	rangeCmd = &cobra.Command{
		Use:   "range [from] [to]",
		Short: "Lists the keys in [from, to] in ascending order",
		Long:  "Lists the keys in [from, to] in ascending order. Both bounds are inclusive and default to the full key space.",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to := uint64(0), uint64(math.MaxUint64)
			var err error
			if len(args) > 0 {
				if from, err = util.ParseKey(args[0]); err != nil {
					return err
				}
			}
			if len(args) > 1 {
				if to, err = util.ParseKey(args[1]); err != nil {
					return err
				}
			}
			keys, err := rpcStore.Range(from, to, viper.GetInt("limit"))
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Println(k)
			}
			return nil
		},
	}
	dotCmd = &cobra.Command{
		Use:   "dot",
		Short: "Prints the tree of the index as a graphviz digraph",
		Long:  "Prints the tree of the index as a graphviz digraph (e.g. didx idx dot | dot -Tsvg > index.svg).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dot, err := rpcStore.Dump()
			if err != nil {
				return err
			}
			if path := viper.GetString("out"); path != "" {
				return os.WriteFile(path, dot, 0o644)
			}
			_, err = os.Stdout.Write(dot)
			return err
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints information about the index of the shard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := rpcStore.GetDBInfo()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
)

func init() {
	rangeCmd.Flags().Int("limit", 0, util.WrapString("Maximum number of keys to list (0 for no limit)"))
	dotCmd.Flags().String("out", "", util.WrapString("Write the digraph to a file instead of stdout"))
}

// parseKeys parses all key arguments, a single argument may hold a comma separated list
func parseKeys(args []string) ([]uint64, error) {
	keys := make([]uint64, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			key, err := util.ParseKey(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}
