package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"solana-m/earn"
	"solana-m/merkle"
)

// readEarnerList reads one base58 token account per line. Blank lines and
// lines starting with # are skipped.
func readEarnerList(path string) ([]solana.PublicKey, error) {
	if path == "" {
		return nil, fmt.Errorf("--earners is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open earner list: %w", err)
	}
	defer f.Close()

	var out []solana.PublicKey
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, err := solana.PublicKeyFromBase58(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid token account: %w", path, line, err)
		}
		out = append(out, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read earner list: %w", err)
	}
	return out, nil
}

func loadEarnerTree(path string) (*merkle.Tree, error) {
	accounts, err := readEarnerList(path)
	if err != nil {
		return nil, err
	}
	return earn.EarnerTree(accounts), nil
}

type proofOutput struct {
	Account   string                  `json:"account"`
	Root      string                  `json:"root"`
	Proof     []merkle.ProofElement   `json:"proof,omitempty"`
	Neighbors []solana.PublicKey      `json:"neighbors,omitempty"`
	Proofs    [][]merkle.ProofElement `json:"proofs,omitempty"`
}

var merkleCmd = &cobra.Command{
	Use:   "merkle",
	Short: "Build earner merkle roots and proofs from an earner list",
}

func init() {
	rootCmd.AddCommand(merkleCmd)

	root := &cobra.Command{
		Use:   "root <earner-list>",
		Short: "Print the earner root of a list of token accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := loadEarnerTree(args[0])
			if err != nil {
				return err
			}
			fmt.Println(tree.Root().String())
			return nil
		},
	}

	proof := &cobra.Command{
		Use:   "proof <earner-list> <token-account>",
		Short: "Print the inclusion proof of an account, or its exclusion proof if absent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := readEarnerList(args[0])
			if err != nil {
				return err
			}
			account, err := parseKey("token-account", args[1])
			if err != nil {
				return err
			}
			tree := earn.EarnerTree(accounts)
			out := proofOutput{Account: account.String(), Root: tree.Root().String()}
			if out.Proof, err = tree.Proof(earn.EarnerLeaf(account)); err != nil {
				if out.Neighbors, out.Proofs, err = earn.ExclusionProof(accounts, account); err != nil {
					return err
				}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	merkleCmd.AddCommand(root, proof)
}
