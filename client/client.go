package client

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"solana-m/earn"
	"solana-m/ext"
	"solana-m/runtime"
	"solana-m/token"
)

// Client submits signed transactions to a ledger runtime and reads back
// account state.
type Client struct {
	Runtime *runtime.Runtime
	Signer  solana.PrivateKey
	Logger  *zap.Logger
}

// NewClient creates a new Client with a specific signer. The signer pays for
// and signs every transaction.
func NewClient(rt *runtime.Runtime, signer solana.PrivateKey, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		Runtime: rt,
		Signer:  signer,
		Logger:  logger,
	}
}

// NewReadOnlyClient creates a client for read-only operations. It uses a
// throwaway keypair internally.
func NewReadOnlyClient(rt *runtime.Runtime) *Client {
	return NewClient(rt, solana.NewWallet().PrivateKey, nil)
}

// RegisterPrograms deploys the token programs, the earn registry and the
// wrap vault into rt.
func RegisterPrograms(rt *runtime.Runtime) {
	rt.Register(
		token.NewProgram(solana.TokenProgramID),
		token.NewProgram(solana.Token2022ProgramID),
		earn.NewProgram(),
		ext.NewProgram(),
	)
}

// PublicKey returns the signer's address.
func (c *Client) PublicKey() solana.PublicKey {
	return c.Signer.PublicKey()
}

// Send builds a transaction from instructions, signs it with the client
// signer and any cosigners, and executes it.
func (c *Client) Send(cosigners []solana.PrivateKey, instructions ...solana.Instruction) (*runtime.Receipt, error) {
	keys := map[solana.PublicKey]solana.PrivateKey{
		c.Signer.PublicKey(): c.Signer,
	}
	for _, k := range cosigners {
		keys[k.PublicKey()] = k
	}

	tx, err := solana.NewTransaction(
		instructions,
		c.Runtime.LatestBlockhash(),
		solana.TransactionPayer(c.Signer.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if k, ok := keys[key]; ok {
			return &k
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	receipt, err := c.Runtime.Execute(tx)
	if err != nil {
		c.Logger.Debug("transaction rejected", zap.Error(err), zap.Strings("logs", receiptLogs(receipt)))
		return receipt, fmt.Errorf("failed to send transaction: %w", err)
	}
	c.Logger.Debug("transaction confirmed",
		zap.Stringer("signature", receipt.Signature),
		zap.Uint64("slot", receipt.Slot),
	)
	return receipt, nil
}

func receiptLogs(receipt *runtime.Receipt) []string {
	if receipt == nil {
		return nil
	}
	return receipt.Logs
}

// fetch reads the committed account at address, failing when none exists.
func (c *Client) fetch(address solana.PublicKey, what string) (*runtime.Account, error) {
	acc, err := c.Runtime.GetAccount(address)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s account info: %w", what, err)
	}
	if acc == nil {
		return nil, fmt.Errorf("%s account %s not found: %w", what, address, runtime.ErrAccountNotInitialized)
	}
	return acc, nil
}
