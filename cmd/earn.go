package cmd

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"solana-m/client"
	"solana-m/earn"
	"solana-m/merkle"
	"solana-m/runtime"
)

var earnCmd = &cobra.Command{
	Use:   "earn",
	Short: "Operate the earn registry",
}

func init() {
	rootCmd.AddCommand(earnCmd)

	var (
		mint, earnAuthority, portalAuthority string
		index, cooldown                      uint64
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the registry for a mint whose authority is the registry token authority",
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
			earnKey, err := parseKey("earn-authority", earnAuthority)
			if err != nil {
				return err
			}
			portalKey, err := parseKey("portal-authority", portalAuthority)
			if err != nil {
				return err
			}
			receipt, err := c.InitializeEarn(mintKey, earn.InitializeArgs{
				EarnAuthority:   earnKey,
				PortalAuthority: portalKey,
				InitialIndex:    index,
				ClaimCooldown:   cooldown,
			})
			if err != nil {
				return err
			}
			printReceipt("Earn registry initialized", receipt)
			return nil
		},
	}
	initCmd.Flags().StringVar(&mint, "mint", "", "M mint")
	initCmd.Flags().StringVar(&earnAuthority, "earn-authority", "", "key allowed to run claims")
	initCmd.Flags().StringVar(&portalAuthority, "portal-authority", "", "key allowed to propagate the index")
	initCmd.Flags().Uint64Var(&index, "index", earn.IndexScale, "initial rate index, scaled by 1e12")
	initCmd.Flags().Uint64Var(&cooldown, "cooldown", 0, "minimum seconds between claim cycles")

	var (
		root, earners string
		newIndex      uint64
	)
	propagate := &cobra.Command{
		Use:   "propagate",
		Short: "Push a new index and earner root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var h merkle.Hash
			switch {
			case earners != "":
				tree, err := loadEarnerTree(earners)
				if err != nil {
					return err
				}
				h = tree.Root()
			case root != "":
				parsed, err := merkle.HashFromHex(root)
				if err != nil {
					return fmt.Errorf("invalid root: %w", err)
				}
				h = parsed
			default:
				return fmt.Errorf("one of --root or --earners is required")
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			receipt, err := c.PropagateIndex(newIndex, h)
			if err != nil {
				return err
			}
			printReceipt("Index propagated", receipt)
			return nil
		},
	}
	propagate.Flags().Uint64Var(&newIndex, "index", 0, "new rate index, scaled by 1e12")
	propagate.Flags().StringVar(&root, "root", "", "earner merkle root (hex)")
	propagate.Flags().StringVar(&earners, "earners", "", "earner list file to compute the root from")

	addEarner := &cobra.Command{
		Use:   "add-earner <token-account>",
		Short: "Register an earner listed in the current earner root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseKey("token-account", args[0])
			if err != nil {
				return err
			}
			tree, err := loadEarnerTree(earners)
			if err != nil {
				return err
			}
			proof, err := tree.Proof(earn.EarnerLeaf(account))
			if err != nil {
				return fmt.Errorf("%s is not in the earner list: %w", account, err)
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			receipt, err := c.AddRegistrarEarner(account, proof)
			if err != nil {
				return err
			}
			printReceipt("Earner added", receipt)
			return nil
		},
	}
	addEarner.Flags().StringVar(&earners, "earners", "", "earner list matching the current root")

	removeEarner := &cobra.Command{
		Use:   "remove-earner <token-account>",
		Short: "Deregister an earner absent from the current earner root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseKey("token-account", args[0])
			if err != nil {
				return err
			}
			accounts, err := readEarnerList(earners)
			if err != nil {
				return err
			}
			neighbors, proofs, err := earn.ExclusionProof(accounts, account)
			if err != nil {
				return fmt.Errorf("%s is still in the earner list: %w", account, err)
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			receipt, err := c.RemoveRegistrarEarner(account, neighbors, proofs)
			if err != nil {
				return err
			}
			printReceipt("Earner removed", receipt)
			return nil
		},
	}
	removeEarner.Flags().StringVar(&earners, "earners", "", "earner list matching the current root")

	var balance uint64
	claim := &cobra.Command{
		Use:   "claim <token-account>",
		Short: "Mint the yield owed to an earner for the open cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseKey("token-account", args[0])
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			snapshot := balance
			if !cmd.Flags().Changed("balance") {
				if snapshot, err = c.TokenBalance(account); err != nil {
					return err
				}
			}
			amount, receipt, err := c.ClaimFor(account, snapshot)
			if err != nil {
				return err
			}
			printReceipt(fmt.Sprintf("Claimed %d", amount), receipt)
			return nil
		},
	}
	claim.Flags().Uint64Var(&balance, "balance", 0, "snapshot balance (default: current balance)")

	complete := &cobra.Command{
		Use:   "complete",
		Short: "Close the open claim cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			receipt, err := c.CompleteClaims()
			if err != nil {
				return err
			}
			printReceipt("Claim cycle completed", receipt)
			return nil
		},
	}

	setAuthority := &cobra.Command{
		Use:   "set-earn-authority <key>",
		Short: "Rotate the earn authority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := parseKey("key", args[0])
			if err != nil {
				return err
			}
			if !confirm(fmt.Sprintf("Make %s the earn authority?", next)) {
				return errCancelled
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			receipt, err := c.SetEarnAuthority(next)
			if err != nil {
				return err
			}
			printReceipt("Earn authority updated", receipt)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show [token-account]",
		Short: "Show the registry, or the earner record of a token account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := readOnlyClient()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return showEarnGlobal(c)
			}
			account, err := parseKey("token-account", args[0])
			if err != nil {
				return err
			}
			earner, err := c.FetchEarner(account)
			if err != nil {
				return err
			}
			fmt.Println(titleStyle.Render("🌱 Earner " + account.String()))
			fmt.Println(labelStyle.Render("User:") + earner.User.String())
			fmt.Println(labelStyle.Render("Last claim index:") + fmt.Sprint(earner.LastClaimIndex))
			fmt.Println(labelStyle.Render("Last claim:") + time.Unix(earner.LastClaimTimestamp, 0).UTC().Format(time.RFC3339))
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every registered earner on the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := openRuntime(); err != nil {
				return err
			}
			earners, err := registeredEarners()
			if err != nil {
				return err
			}
			fmt.Println(titleStyle.Render(fmt.Sprintf("🌱 %d earners", len(earners))))
			for _, e := range earners {
				fmt.Println(labelStyle.Render(e.UserTokenAccount.String()) + fmt.Sprintf("  user %s  last index %d", e.User, e.LastClaimIndex))
			}
			return nil
		},
	}

	earnCmd.AddCommand(initCmd, propagate, addEarner, removeEarner, claim, complete, setAuthority, show, list)
}

// registeredEarners scans the ledger for earner records, ordered by token
// account.
func registeredEarners() ([]*earn.Earner, error) {
	owned, err := ledger.AccountsByOwner(earn.ProgramID)
	if err != nil {
		return nil, err
	}
	var out []*earn.Earner
	for _, acc := range owned {
		e, err := earn.DecodeEarner(acc.Data)
		if errors.Is(err, runtime.ErrAccountDiscriminatorMismatch) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UserTokenAccount.String() < out[j].UserTokenAccount.String()
	})
	return out, nil
}

func showEarnGlobal(c *client.Client) error {
	g, err := c.FetchEarnGlobal()
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render("📈 Earn registry"))
	fmt.Println(labelStyle.Render("Mint:") + g.Mint.String())
	fmt.Println(labelStyle.Render("Admin:") + g.Admin.String())
	fmt.Println(labelStyle.Render("Earn authority:") + g.EarnAuthority.String())
	fmt.Println(labelStyle.Render("Portal authority:") + g.PortalAuthority.String())
	fmt.Println(labelStyle.Render("Index:") + fmt.Sprint(g.Index))
	fmt.Println(labelStyle.Render("Index updated:") + time.Unix(g.Timestamp, 0).UTC().Format(time.RFC3339))
	fmt.Println(labelStyle.Render("Earner root:") + g.EarnerMerkleRoot.String())
	fmt.Println(labelStyle.Render("Claim cooldown:") + (time.Duration(g.ClaimCooldown) * time.Second).String())
	fmt.Println(labelStyle.Render("Max yield:") + fmt.Sprint(g.MaxYield))
	fmt.Println(labelStyle.Render("Distributed yield:") + fmt.Sprint(g.DistributedYield))
	fmt.Println(labelStyle.Render("Claims complete:") + fmt.Sprint(g.ClaimComplete))
	return nil
}
