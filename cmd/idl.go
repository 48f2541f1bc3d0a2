package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"solana-m/client"
)

var idlCmd = &cobra.Command{
	Use:       "idl <earn|ext>",
	Short:     "Print the interface description of a program as JSON",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"earn", "ext"},
	RunE: func(cmd *cobra.Command, args []string) error {
		idl := client.EarnIDL()
		if args[0] == "ext" {
			idl = client.ExtIDL()
		}
		out, err := json.MarshalIndent(idl, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode IDL: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	// The IDL is static and needs neither config nor ledger.
	idlCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error { return nil }
	idlCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error { return nil }
	rootCmd.AddCommand(idlCmd)
}
