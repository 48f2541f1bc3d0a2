package cmd

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"solana-m/client"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Create and move tokens on the ledger",
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	var (
		decimals  uint8
		authority string
		token2022 bool
	)
	createMint := &cobra.Command{
		Use:   "create-mint",
		Short: "Create a new mint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			auth := c.PublicKey()
			if authority != "" {
				if auth, err = parseKey("authority", authority); err != nil {
					return err
				}
			}
			program := solana.TokenProgramID
			if token2022 {
				program = solana.Token2022ProgramID
			}
			mint := solana.NewWallet().PrivateKey
			receipt, err := c.CreateMint(mint, program, decimals, auth)
			if err != nil {
				return err
			}
			printReceipt("Mint created: "+mint.PublicKey().String(), receipt)
			return nil
		},
	}
	createMint.Flags().Uint8Var(&decimals, "decimals", 6, "mint decimals")
	createMint.Flags().StringVar(&authority, "authority", "", "mint authority (default: signer)")
	createMint.Flags().BoolVar(&token2022, "token-2022", false, "create the mint under the Token-2022 program")

	var owner, mint string
	createAccount := &cobra.Command{
		Use:   "create-account",
		Short: "Create the associated token account of an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			ownerKey := c.PublicKey()
			if owner != "" {
				if ownerKey, err = parseKey("owner", owner); err != nil {
					return err
				}
			}
			mintKey, err := parseKey("mint", mint)
			if err != nil {
				return err
			}
			address, receipt, err := c.CreateAssociatedAccount(ownerKey, mintKey)
			if err != nil {
				return err
			}
			printReceipt("Token account created: "+address.String(), receipt)
			return nil
		},
	}
	createAccount.Flags().StringVar(&owner, "owner", "", "account owner (default: signer)")
	createAccount.Flags().StringVar(&mint, "mint", "", "mint address")

	var to string
	var amount uint64
	mintTo := &cobra.Command{
		Use:   "mint",
		Short: "Mint tokens with the signer as mint authority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			mintKey, err := parseKey("mint", mint)
			if err != nil {
				return err
			}
			toKey, err := parseKey("to", to)
			if err != nil {
				return err
			}
			receipt, err := c.MintTo(mintKey, toKey, amount)
			if err != nil {
				return err
			}
			printReceipt(fmt.Sprintf("Minted %d", amount), receipt)
			return nil
		},
	}
	mintTo.Flags().StringVar(&mint, "mint", "", "mint address")
	mintTo.Flags().StringVar(&to, "to", "", "destination token account")
	mintTo.Flags().Uint64Var(&amount, "amount", 0, "amount in base units")

	var from string
	transfer := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer tokens out of an account owned by the signer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			fromKey, err := parseKey("from", from)
			if err != nil {
				return err
			}
			toKey, err := parseKey("to", to)
			if err != nil {
				return err
			}
			if !confirm(fmt.Sprintf("Transfer %d from %s to %s?", amount, fromKey, toKey)) {
				return errCancelled
			}
			receipt, err := c.Transfer(fromKey, toKey, amount)
			if err != nil {
				return err
			}
			printReceipt(fmt.Sprintf("Transferred %d", amount), receipt)
			return nil
		},
	}
	transfer.Flags().StringVar(&from, "from", "", "source token account")
	transfer.Flags().StringVar(&to, "to", "", "destination token account")
	transfer.Flags().Uint64Var(&amount, "amount", 0, "amount in base units")

	var newAuthority string
	setAuthority := &cobra.Command{
		Use:   "set-mint-authority",
		Short: "Hand the mint authority held by the signer to another key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			mintKey, err := parseKey("mint", mint)
			if err != nil {
				return err
			}
			next, err := parseKey("new-authority", newAuthority)
			if err != nil {
				return err
			}
			if !confirm(fmt.Sprintf("Give up mint authority of %s to %s?", mintKey, next)) {
				return errCancelled
			}
			receipt, err := c.SetMintAuthority(mintKey, next)
			if err != nil {
				return err
			}
			printReceipt("Mint authority updated", receipt)
			return nil
		},
	}
	setAuthority.Flags().StringVar(&mint, "mint", "", "mint address")
	setAuthority.Flags().StringVar(&newAuthority, "new-authority", "", "new mint authority")

	show := &cobra.Command{
		Use:   "show <address>",
		Short: "Show a mint or token account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := parseKey("address", args[0])
			if err != nil {
				return err
			}
			c, err := readOnlyClient()
			if err != nil {
				return err
			}
			return showToken(c, address)
		},
	}

	tokenCmd.AddCommand(createMint, createAccount, mintTo, transfer, setAuthority, show)
}

func readOnlyClient() (*client.Client, error) {
	r, err := openRuntime()
	if err != nil {
		return nil, err
	}
	return client.NewReadOnlyClient(r), nil
}

func showToken(c *client.Client, address solana.PublicKey) error {
	if m, err := c.FetchMint(address); err == nil {
		fmt.Println(titleStyle.Render("🪙 Mint " + address.String()))
		fmt.Println(labelStyle.Render("Program:") + m.Program.String())
		fmt.Println(labelStyle.Render("Mint authority:") + m.MintAuthority.String())
		fmt.Println(labelStyle.Render("Supply:") + fmt.Sprint(m.Supply))
		fmt.Println(labelStyle.Render("Decimals:") + fmt.Sprint(m.Decimals))
		return nil
	}
	acc, err := c.FetchTokenAccount(address)
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render("💰 Token account " + address.String()))
	fmt.Println(labelStyle.Render("Mint:") + acc.Mint.String())
	fmt.Println(labelStyle.Render("Owner:") + acc.Owner.String())
	fmt.Println(labelStyle.Render("Amount:") + fmt.Sprint(acc.Amount))
	fmt.Println(labelStyle.Render("Immutable owner:") + fmt.Sprint(acc.ImmutableOwner))
	if !acc.Delegate.IsZero() {
		fmt.Println(labelStyle.Render("Delegate:") + fmt.Sprintf("%s (%d)", acc.Delegate, acc.DelegatedAmount))
	}
	return nil
}
