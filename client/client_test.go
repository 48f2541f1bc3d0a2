package client

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-m/earn"
	"solana-m/ext"
	"solana-m/runtime"
)

func TestIDL_MatchesDeployedPrograms(t *testing.T) {
	cases := []struct {
		idl          *IDL
		instructions []string
	}{
		{EarnIDL(), []string{"add_registrar_earner", "claim_for", "complete_claims", "initialize", "propagate_index", "remove_registrar_earner", "set_earn_authority"}},
		{ExtIDL(), []string{"claim_fees", "initialize", "set_m_mint", "unwrap", "update_wrap_authority", "wrap"}},
	}
	for _, tc := range cases {
		t.Run(tc.idl.Name, func(t *testing.T) {
			var names []string
			for _, ix := range tc.idl.Instructions {
				names = append(names, ix.Name)
				disc := runtime.InstructionDiscriminator(ix.Name)
				assert.Equal(t, disc[:], ix.Discriminator, ix.Name)
			}
			assert.ElementsMatch(t, tc.instructions, names)
			assert.Len(t, tc.idl.Errors, len(runtime.Errors()))
		})
	}
}

func TestIDL_RoundTripsThroughJSON(t *testing.T) {
	raw, err := json.Marshal(EarnIDL())
	require.NoError(t, err)

	parsed, err := ParseIDL(raw)
	require.NoError(t, err)
	assert.Equal(t, earn.ProgramID.String(), parsed.Address)
	require.Len(t, parsed.Events, len(EarnIDL().Events))
	assert.Equal(t, EarnIDL().Events[0].Discriminator, parsed.Events[0].Discriminator)

	_, err = ParseIDL([]byte("{"))
	assert.Error(t, err)
}

func TestDecodeEvents(t *testing.T) {
	payload, err := runtime.EncodeEvent(ext.EventFeesClaimed, &ext.FeesClaimed{Amount: 42})
	require.NoError(t, err)
	unknown, err := runtime.EncodeEvent("SomethingElse", &ext.FeesClaimed{})
	require.NoError(t, err)

	receipt := &runtime.Receipt{
		Slot: 7,
		Logs: []string{
			"Program " + ext.ProgramID.String() + " invoke [1]",
			"Program " + solana.TokenProgramID.String() + " invoke [2]",
			"Program " + solana.TokenProgramID.String() + " success",
			"Program log: hello",
			"Program data: " + base64.StdEncoding.EncodeToString(unknown),
			"Program data: " + base64.StdEncoding.EncodeToString(payload),
			"Program " + ext.ProgramID.String() + " success",
		},
	}
	events, err := DecodeEvents(receipt)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ext.EventFeesClaimed, events[0].Name)
	assert.Equal(t, ext.ProgramID, events[0].Program)
	assert.EqualValues(t, 7, events[0].Slot)
	assert.EqualValues(t, 42, events[0].Data.(*ext.FeesClaimed).Amount)

	receipt.Logs = []string{"Program data: !!!"}
	_, err = DecodeEvents(receipt)
	assert.Error(t, err)
}

func TestSend_ReportsProgramError(t *testing.T) {
	rt := runtime.New(runtime.NewMemoryStore())
	RegisterPrograms(rt)
	c := NewClient(rt, solana.NewWallet().PrivateKey, nil)

	receipt, err := c.CompleteClaims()
	require.Error(t, err)
	assert.ErrorIs(t, err, runtime.ErrAccountNotInitialized)
	require.NotNil(t, receipt)
	assert.Equal(t, receipt.Err, errors.Unwrap(err))

	_, err = NewReadOnlyClient(rt).FetchEarnGlobal()
	assert.ErrorIs(t, err, runtime.ErrAccountNotInitialized)
}

func TestWallet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "id.json")

	created, isNew, err := LoadOrCreateWallet(path)
	require.NoError(t, err)
	assert.True(t, isNew)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var ints []int
	require.NoError(t, json.Unmarshal(raw, &ints), "keypair must be a JSON number array")
	assert.Len(t, ints, solana.PrivateKeyLength)

	loaded, isNew, err := LoadOrCreateWallet(path)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.PublicKey(), loaded.PublicKey())

	require.NoError(t, os.WriteFile(path, []byte("[1,2,3]"), 0600))
	_, err = LoadWallet(path)
	assert.Error(t, err)
}
