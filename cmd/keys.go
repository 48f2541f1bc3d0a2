package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"solana-m/client"
)

func init() {
	var (
		outfile string
		force   bool
	)
	keygen := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new signer keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := outfile
			if path == "" {
				path = cfg.Keypair
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			wallet, err := client.NewWalletFile(path)
			if err != nil {
				return err
			}
			fmt.Println(titleStyle.Render("🔑 Keypair written to " + path))
			fmt.Println(labelStyle.Render("Public key:") + wallet.PublicKey().String())
			return nil
		},
	}
	keygen.Flags().StringVarP(&outfile, "outfile", "o", "", "keypair path (default: configured keypair)")
	keygen.Flags().BoolVar(&force, "force", false, "overwrite an existing keypair")

	address := &cobra.Command{
		Use:   "address",
		Short: "Print the public key of the configured keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wallet, err := client.LoadWallet(cfg.Keypair)
			if err != nil {
				return err
			}
			fmt.Println(wallet.PublicKey().String())
			return nil
		},
	}

	rootCmd.AddCommand(keygen, address)
}
