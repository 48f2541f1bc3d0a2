package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
)

const (
	defaultConfigDirName = ".config"
	appConfigDirName     = "solana-m"
	walletFileName       = "id.json"
)

// Wallet holds the keypair that signs ledger transactions.
type Wallet struct {
	PrivateKey solana.PrivateKey
}

// PublicKey returns the public key of the wallet.
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.PrivateKey.PublicKey()
}

// LoadOrCreateWallet loads the keypair at path, or creates and saves a new
// one if the file does not exist. An empty path selects DefaultWalletPath.
// created reports whether a new keypair was generated.
func LoadOrCreateWallet(path string) (wallet *Wallet, created bool, err error) {
	if path == "" {
		path, err = DefaultWalletPath()
		if err != nil {
			return nil, false, fmt.Errorf("failed to get wallet path: %w", err)
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		wallet, err := NewWalletFile(path)
		return wallet, err == nil, err
	} else if err != nil {
		return nil, false, fmt.Errorf("failed to check for wallet file: %w", err)
	}

	wallet, err = LoadWallet(path)
	return wallet, false, err
}

// NewWalletFile generates a new keypair and saves it to path.
func NewWalletFile(path string) (*Wallet, error) {
	wallet := &Wallet{PrivateKey: solana.NewWallet().PrivateKey}
	if err := saveWalletToFile(wallet, path); err != nil {
		return nil, fmt.Errorf("failed to save new wallet: %w", err)
	}
	return wallet, nil
}

// LoadWallet reads a keypair file in the solana-keygen format, a JSON array
// of the 64 private key bytes.
func LoadWallet(path string) (*Wallet, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet file: %w", err)
	}

	var privateKeyBytes []byte
	if err := json.Unmarshal(bytes, &privateKeyBytes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet file: %w", err)
	}

	if len(privateKeyBytes) != solana.PrivateKeyLength {
		return nil, fmt.Errorf("invalid private key length: expected %d, got %d", solana.PrivateKeyLength, len(privateKeyBytes))
	}

	return &Wallet{PrivateKey: solana.PrivateKey(privateKeyBytes)}, nil
}

func saveWalletToFile(wallet *Wallet, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create wallet directory: %w", err)
	}

	// Written as numbers, not base64, so solana-keygen can read it back.
	ints := make([]int, len(wallet.PrivateKey))
	for i, b := range wallet.PrivateKey {
		ints[i] = int(b)
	}
	bytes, err := json.Marshal(ints)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	if err := os.WriteFile(path, bytes, 0600); err != nil {
		return fmt.Errorf("failed to write wallet file: %w", err)
	}

	return nil
}

// DefaultWalletPath returns the default absolute path for the wallet file.
// e.g., /home/user/.config/solana-m/id.json
func DefaultWalletPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, defaultConfigDirName, appConfigDirName, walletFileName), nil
}
