package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfig_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	v := viper.New()
	require.NoError(t, InitConfig(v, ""))
	cfg := LoadConfig(v)

	assert.Equal(t, filepath.Join(home, ".config", "solana-m", "ledger"), cfg.LedgerDir)
	assert.Equal(t, filepath.Join(home, ".config", "solana-m", "id.json"), cfg.Keypair)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestInitConfig_FileThenEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ledger_dir: /srv/ledger\nlog_level: debug\n"), 0600))
	t.Setenv("SOLANA_M_LOG_LEVEL", "warn")

	v := viper.New()
	require.NoError(t, InitConfig(v, path))
	cfg := LoadConfig(v)

	assert.Equal(t, "/srv/ledger", cfg.LedgerDir)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestInitConfig_MissingExplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	err := InitConfig(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		logger, err := NewLogger(Config{LogLevel: "debug", LogFormat: format})
		require.NoError(t, err, format)
		assert.True(t, logger.Core().Enabled(-1), format)
	}

	_, err := NewLogger(Config{LogLevel: "loud", LogFormat: "console"})
	assert.Error(t, err)
	_, err = NewLogger(Config{LogLevel: "info", LogFormat: "xml"})
	assert.Error(t, err)
}

func TestReadEarnerList(t *testing.T) {
	a := "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	b := "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	path := filepath.Join(t.TempDir(), "earners.txt")
	require.NoError(t, os.WriteFile(path, []byte("# earners\n"+a+"\n\n  "+b+"  \n"), 0600))

	accounts, err := readEarnerList(path)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, a, accounts[0].String())
	assert.Equal(t, b, accounts[1].String())

	tree, err := loadEarnerTree(path)
	require.NoError(t, err)
	assert.Len(t, tree.Leaves(), 2)

	require.NoError(t, os.WriteFile(path, []byte(a+"\nnot-a-key\n"), 0600))
	_, err = readEarnerList(path)
	assert.ErrorContains(t, err, ":2:")

	_, err = readEarnerList("")
	assert.Error(t, err)
}
