package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"solana-m/client"
)

const envPrefix = "SOLANA_M"

// Config is the resolved CLI configuration. Values come from flags, then
// SOLANA_M_* environment variables (a .env file in the working directory is
// loaded first), then the config file, then defaults.
type Config struct {
	LedgerDir string
	Keypair   string
	LogLevel  string
	LogFormat string
}

// InitConfig sets up the viper instance backing Config.
func InitConfig(v *viper.Viper, configFile string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}
	rootDir := filepath.Join(homeDir, ".config", "solana-m")
	walletPath, err := client.DefaultWalletPath()
	if err != nil {
		return err
	}

	v.SetDefault("ledger_dir", filepath.Join(rootDir, "ledger"))
	v.SetDefault("keypair", walletPath)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(rootDir)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("failed to read config: %w", err)
			}
		}
		return nil
	}
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", configFile, err)
	}
	return nil
}

// LoadConfig resolves Config from an initialized viper instance.
func LoadConfig(v *viper.Viper) Config {
	return Config{
		LedgerDir: v.GetString("ledger_dir"),
		Keypair:   v.GetString("keypair"),
		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
	}
}

// NewLogger builds the process logger. Format is "json" or "console".
func NewLogger(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var zc zap.Config
	switch cfg.LogFormat {
	case "json":
		zc = zap.NewProductionConfig()
	case "console", "":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
