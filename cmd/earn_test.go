package cmd

import (
	"math"
	"strconv"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subcommand(t *testing.T, parent *cobra.Command, name string) *cobra.Command {
	t.Helper()
	for _, c := range parent.Commands() {
		if c.Name() == name {
			return c
		}
	}
	t.Fatalf("no %s subcommand", name)
	return nil
}

func TestEarnClaim_BalanceFlagTakesFullU64(t *testing.T) {
	claim := subcommand(t, earnCmd, "claim")
	flags := claim.Flags()

	assert.False(t, flags.Changed("balance"))

	require.NoError(t, flags.Set("balance", strconv.FormatUint(math.MaxUint64, 10)))
	assert.True(t, flags.Changed("balance"))
	got, err := flags.GetUint64("balance")
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), got)

	assert.Error(t, flags.Set("balance", "-1"))
}

func TestEarnInit_IndexDefaultsToOne(t *testing.T) {
	initCmd := subcommand(t, earnCmd, "init")
	got, err := initCmd.Flags().GetUint64("index")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000_000), got)
}
