package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	figure "github.com/common-nighthawk/go-figure"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"solana-m/client"
	"solana-m/runtime"
	"solana-m/storage"
)

var (
	cfgFile   string
	assumeYes bool

	v      = viper.New()
	cfg    Config
	logger = zap.NewNop()

	ledger *storage.LevelDB
	rt     *runtime.Runtime
)

var rootCmd = &cobra.Command{
	Use:   "solana-m",
	Short: "solana-m runs the M earn registry and wrap vault on a local ledger.",
	Long: `An interactive command-line interface to operate the M earn registry and the
wrapped M vault against a local, persistent ledger.

Run without a subcommand for the interactive menu.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
	RunE:               run,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default $HOME/.config/solana-m/config.yaml)")
	pf.String("ledger-dir", "", "directory holding the ledger database")
	pf.String("keypair", "", "signer keypair file")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("log-format", "", "log format: console or json")
	pf.BoolVarP(&assumeYes, "yes", "y", false, "skip confirmation prompts")

	for key, flag := range map[string]string{
		"ledger_dir": "ledger-dir",
		"keypair":    "keypair",
		"log_level":  "log-level",
		"log_format": "log-format",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func setup(cmd *cobra.Command, args []string) error {
	if err := InitConfig(v, cfgFile); err != nil {
		return err
	}
	cfg = LoadConfig(v)
	l, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	logger = l
	logger.Debug("configuration loaded",
		zap.String("ledger_dir", cfg.LedgerDir),
		zap.String("keypair", cfg.Keypair),
	)
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	_ = logger.Sync()
	if ledger == nil {
		return nil
	}
	err := ledger.Close()
	ledger, rt = nil, nil
	return err
}

// openRuntime opens the ledger database and deploys the programs on first
// use.
func openRuntime() (*runtime.Runtime, error) {
	if rt != nil {
		return rt, nil
	}
	db, err := storage.Open(cfg.LedgerDir)
	if err != nil {
		return nil, err
	}
	ledger = db
	rt = runtime.New(db, runtime.WithLogger(logger))
	client.RegisterPrograms(rt)
	return rt, nil
}

// newClient returns a client signing with the configured keypair.
func newClient() (*client.Client, error) {
	r, err := openRuntime()
	if err != nil {
		return nil, err
	}
	wallet, created, err := client.LoadOrCreateWallet(cfg.Keypair)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair: %w", err)
	}
	if created {
		fmt.Println(promptStyle.Render("No existing keypair found. Created a new one at " + cfg.Keypair))
	}
	return client.NewClient(r, wallet.PrivateKey, logger), nil
}

// run is the main entry point for the interactive CLI.
func run(cmd *cobra.Command, args []string) error {
	myFigure := figure.NewFigure("SOLANA-M", "larry3d", true)
	fmt.Println(titleStyle.Render(myFigure.String()))

	c, err := newClient()
	if err != nil {
		return err
	}
	fmt.Println(promptStyle.Render(fmt.Sprintf("Signer: %s", c.PublicKey())))
	fmt.Println(promptStyle.Render(fmt.Sprintf("Ledger: %s", cfg.LedgerDir)))
	return runInteractive(c)
}

// confirm asks before sending a transaction unless --yes was given.
func confirm(message string) bool {
	if assumeYes {
		return true
	}
	ok := false
	prompt := &survey.Confirm{Message: message, Default: false}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false
	}
	return ok
}

var errCancelled = errors.New("cancelled")

func parseKey(name, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, fmt.Errorf("--%s is required", name)
	}
	key, err := solana.PublicKeyFromBase58(strings.TrimSpace(value))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return key, nil
}

// printReceipt shows the outcome of a transaction and its decoded events.
func printReceipt(title string, receipt *runtime.Receipt) {
	fmt.Println(titleStyle.Render("✅ " + title))
	fmt.Println(labelStyle.Render("Signature:") + receipt.Signature.String())
	fmt.Println(labelStyle.Render("Slot:") + fmt.Sprint(receipt.Slot))

	events, err := client.DecodeEvents(receipt)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("Could not decode events: %v", err)))
		return
	}
	for _, e := range events {
		fmt.Println(infoStyle.Render(fmt.Sprintf("   %s %+v", e.Name, e.Data)))
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("❌ %v", err)))
		os.Exit(1)
	}
}
