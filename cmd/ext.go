package cmd

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"solana-m/client"
)

var extCmd = &cobra.Command{
	Use:   "ext",
	Short: "Operate the wrapped M vault",
}

func init() {
	rootCmd.AddCommand(extCmd)

	var (
		mMint, extMint  string
		wrapAuthorities []string
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the vault for an M mint and an ext mint held by the vault mint authority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mKey, err := parseKey("m-mint", mMint)
			if err != nil {
				return err
			}
			extKey, err := parseKey("ext-mint", extMint)
			if err != nil {
				return err
			}
			keys := make([]solana.PublicKey, 0, len(wrapAuthorities))
			for _, a := range wrapAuthorities {
				key, err := parseKey("wrap-authority", a)
				if err != nil {
					return err
				}
				keys = append(keys, key)
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			receipt, err := c.InitializeExt(mKey, extKey, keys)
			if err != nil {
				return err
			}
			printReceipt("Wrap vault initialized", receipt)
			return nil
		},
	}
	initCmd.Flags().StringVar(&mMint, "m-mint", "", "M mint")
	initCmd.Flags().StringVar(&extMint, "ext-mint", "", "wrapped M mint")
	initCmd.Flags().StringSliceVar(&wrapAuthorities, "wrap-authority", nil, "key allowed to wrap and unwrap (repeatable)")

	var from, to string
	var amount uint64
	wrap := &cobra.Command{
		Use:   "wrap",
		Short: "Deposit M and mint the same amount of wrapped M",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return moveCollateral(true, from, to, amount)
		},
	}
	unwrap := &cobra.Command{
		Use:   "unwrap",
		Short: "Burn wrapped M and withdraw the same amount of M",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return moveCollateral(false, from, to, amount)
		},
	}
	for _, c := range []*cobra.Command{wrap, unwrap} {
		c.Flags().StringVar(&from, "from", "", "source token account owned by the signer")
		c.Flags().StringVar(&to, "to", "", "destination token account")
		c.Flags().Uint64Var(&amount, "amount", 0, "amount in base units")
	}

	setMMint := &cobra.Command{
		Use:   "set-m-mint <mint>",
		Short: "Migrate the vault to a new M mint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := parseKey("mint", args[0])
			if err != nil {
				return err
			}
			if !confirm(fmt.Sprintf("Migrate the vault to M mint %s?", next)) {
				return errCancelled
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			receipt, err := c.SetMMint(next)
			if err != nil {
				return err
			}
			printReceipt("M mint updated", receipt)
			return nil
		},
	}

	claimFees := &cobra.Command{
		Use:   "claim-fees <recipient>",
		Short: "Mint the vault's excess M as wrapped M to a recipient token account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipient, err := parseKey("recipient", args[0])
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			receipt, err := c.ClaimFees(recipient)
			if err != nil {
				return err
			}
			printReceipt("Fees claimed", receipt)
			return nil
		},
	}

	var slot uint8
	var key string
	setWrapAuthority := &cobra.Command{
		Use:   "set-wrap-authority",
		Short: "Replace a wrap authority slot; omit --key to clear it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var next solana.PublicKey
			if key != "" {
				var err error
				if next, err = parseKey("key", key); err != nil {
					return err
				}
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			receipt, err := c.UpdateWrapAuthority(slot, next)
			if err != nil {
				return err
			}
			printReceipt(fmt.Sprintf("Wrap authority slot %d updated", slot), receipt)
			return nil
		},
	}
	setWrapAuthority.Flags().Uint8Var(&slot, "index", 0, "slot index")
	setWrapAuthority.Flags().StringVar(&key, "key", "", "new wrap authority")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the vault state and its collateral",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := readOnlyClient()
			if err != nil {
				return err
			}
			return showExtGlobal(c)
		},
	}

	extCmd.AddCommand(initCmd, wrap, unwrap, setMMint, claimFees, setWrapAuthority, show)
}

func moveCollateral(wrap bool, from, to string, amount uint64) error {
	fromKey, err := parseKey("from", from)
	if err != nil {
		return err
	}
	toKey, err := parseKey("to", to)
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	if wrap {
		receipt, err := c.Wrap(fromKey, toKey, amount)
		if err != nil {
			return err
		}
		printReceipt(fmt.Sprintf("Wrapped %d", amount), receipt)
		return nil
	}
	receipt, err := c.Unwrap(fromKey, toKey, amount)
	if err != nil {
		return err
	}
	printReceipt(fmt.Sprintf("Unwrapped %d", amount), receipt)
	return nil
}

func showExtGlobal(c *client.Client) error {
	g, err := c.FetchExtGlobal()
	if err != nil {
		return err
	}
	vault, err := c.VaultBalance()
	if err != nil {
		return err
	}
	extMint, err := c.FetchMint(g.ExtMint)
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render("🏦 Wrap vault"))
	fmt.Println(labelStyle.Render("Admin:") + g.Admin.String())
	fmt.Println(labelStyle.Render("M mint:") + g.MMint.String())
	fmt.Println(labelStyle.Render("Ext mint:") + g.ExtMint.String())
	fmt.Println(labelStyle.Render("Vault balance:") + fmt.Sprint(vault))
	fmt.Println(labelStyle.Render("Ext supply:") + fmt.Sprint(extMint.Supply))
	if vault > extMint.Supply {
		fmt.Println(labelStyle.Render("Claimable fees:") + fmt.Sprint(vault-extMint.Supply))
	}
	for i, slot := range g.WrapAuthorities {
		if slot.Occupied {
			fmt.Println(labelStyle.Render(fmt.Sprintf("Wrap authority %d:", i)) + slot.Key.String())
		}
	}
	return nil
}
