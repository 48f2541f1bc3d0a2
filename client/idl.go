package client

import (
	"encoding/json"
	"fmt"
	"strconv"

	"solana-m/earn"
	"solana-m/ext"
	"solana-m/runtime"
)

type IDL struct {
	Version      string              `json:"version"`
	Name         string              `json:"name"`
	Address      string              `json:"address"`
	Instructions []IDLInstruction    `json:"instructions"`
	Accounts     []IDLTypeDefinition `json:"accounts"`
	Events       []IDLEvent          `json:"events"`
	Types        []IDLTypeDefinition `json:"types"`
	Errors       []IDLError          `json:"errors"`
}

type IDLInstruction struct {
	Name          string       `json:"name"`
	Discriminator []byte       `json:"discriminator"`
	Args          []IDLField   `json:"args"`
	Accounts      []IDLAccount `json:"accounts"`
}

type IDLEvent struct {
	Name          string     `json:"name"`
	Discriminator []byte     `json:"discriminator"`
	Fields        []IDLField `json:"fields"`
}

type IDLField struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

type IDLAccount struct {
	Name     string `json:"name"`
	IsMut    bool   `json:"isMut"`
	IsSigner bool   `json:"isSigner"`
}

type IDLTypeDefinition struct {
	Name string `json:"name"`
	Type struct {
		Kind   string     `json:"kind"`
		Fields []IDLField `json:"fields"`
	} `json:"type"`
}

type IDLError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

func ParseIDL(idlBytes []byte) (*IDL, error) {
	var idl IDL
	err := json.Unmarshal(idlBytes, &idl)
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling IDL JSON: %w", err)
	}
	return &idl, nil
}

const idlVersion = "0.1.0"

// Field types in IDL notation.
var (
	tPubkey    = json.RawMessage(`"pubkey"`)
	tU64       = json.RawMessage(`"u64"`)
	tI64       = json.RawMessage(`"i64"`)
	tU8        = json.RawMessage(`"u8"`)
	tBool      = json.RawMessage(`"bool"`)
	tHash      = json.RawMessage(`{"array":["u8",32]}`)
	tProof     = json.RawMessage(`{"vec":{"defined":"ProofElement"}}`)
	tProofs    = json.RawMessage(`{"vec":{"vec":{"defined":"ProofElement"}}}`)
	tPubkeys   = json.RawMessage(`{"vec":"pubkey"}`)
	tSlots     = json.RawMessage(`{"array":[{"defined":"AuthoritySlot"},` + strconv.Itoa(ext.WrapAuthorityCapacity) + `]}`)
	tYieldConf = json.RawMessage(`{"defined":"YieldConfig"}`)
)

func field(name string, typ json.RawMessage) IDLField {
	return IDLField{Name: name, Type: typ}
}

func acc(name string, isMut, isSigner bool) IDLAccount {
	return IDLAccount{Name: name, IsMut: isMut, IsSigner: isSigner}
}

func instruction(name string, accounts []IDLAccount, args ...IDLField) IDLInstruction {
	disc := runtime.InstructionDiscriminator(name)
	return IDLInstruction{
		Name:          name,
		Discriminator: disc[:],
		Args:          append([]IDLField{}, args...),
		Accounts:      accounts,
	}
}

func event(name string, fields ...IDLField) IDLEvent {
	disc := runtime.EventDiscriminator(name)
	return IDLEvent{Name: name, Discriminator: disc[:], Fields: fields}
}

func structDef(name string, fields ...IDLField) IDLTypeDefinition {
	var def IDLTypeDefinition
	def.Name = name
	def.Type.Kind = "struct"
	def.Type.Fields = fields
	return def
}

func idlErrors() []IDLError {
	all := runtime.Errors()
	out := make([]IDLError, 0, len(all))
	for _, e := range all {
		out = append(out, IDLError{Code: e.Code, Name: e.Name, Msg: e.Msg})
	}
	return out
}

// EarnIDL describes the earn registry interface.
func EarnIDL() *IDL {
	return &IDL{
		Version: idlVersion,
		Name:    "earn",
		Address: earn.ProgramID.String(),
		Instructions: []IDLInstruction{
			instruction("initialize",
				[]IDLAccount{acc("admin", true, true), acc("globalAccount", true, false), acc("mint", false, false)},
				field("earnAuthority", tPubkey),
				field("portalAuthority", tPubkey),
				field("initialIndex", tU64),
				field("claimCooldown", tU64),
			),
			instruction("propagate_index",
				[]IDLAccount{acc("signer", false, true), acc("globalAccount", true, false), acc("mint", false, false)},
				field("index", tU64),
				field("earnerMerkleRoot", tHash),
			),
			instruction("add_registrar_earner",
				[]IDLAccount{acc("signer", true, true), acc("globalAccount", false, false), acc("userTokenAccount", false, false), acc("earnerAccount", true, false)},
				field("proof", tProof),
			),
			instruction("remove_registrar_earner",
				[]IDLAccount{acc("signer", true, true), acc("globalAccount", false, false), acc("userTokenAccount", false, false), acc("earnerAccount", true, false)},
				field("neighbors", tPubkeys),
				field("proofs", tProofs),
			),
			instruction("claim_for",
				[]IDLAccount{
					acc("earnAuthority", false, true), acc("globalAccount", true, false), acc("mint", true, false),
					acc("tokenAuthorityAccount", false, false), acc("userTokenAccount", true, false), acc("earnerAccount", true, false),
				},
				field("snapshotBalance", tU64),
			),
			instruction("complete_claims",
				[]IDLAccount{acc("earnAuthority", false, true), acc("globalAccount", true, false)},
			),
			instruction("set_earn_authority",
				[]IDLAccount{acc("admin", false, true), acc("globalAccount", true, false)},
				field("newEarnAuthority", tPubkey),
			),
		},
		Accounts: []IDLTypeDefinition{
			structDef("EarnGlobal",
				field("admin", tPubkey),
				field("earnAuthority", tPubkey),
				field("portalAuthority", tPubkey),
				field("mint", tPubkey),
				field("earnerMerkleRoot", tHash),
				field("index", tU64),
				field("timestamp", tI64),
				field("claimCooldown", tU64),
				field("maxYield", tU64),
				field("distributedYield", tU64),
				field("claimComplete", tBool),
				field("bump", tU8),
				field("tokenAuthorityBump", tU8),
			),
			structDef("Earner",
				field("user", tPubkey),
				field("userTokenAccount", tPubkey),
				field("lastClaimIndex", tU64),
				field("lastClaimTimestamp", tI64),
				field("bump", tU8),
			),
		},
		Events: []IDLEvent{
			event(earn.EventIndexUpdate, field("index", tU64), field("ts", tI64)),
			event(earn.EventRewardsClaim,
				field("tokenAccount", tPubkey),
				field("recipientTokenAccount", tPubkey),
				field("amount", tU64),
				field("ts", tI64),
				field("index", tU64),
			),
			event(earn.EventEarnerAdded, field("tokenAccount", tPubkey), field("user", tPubkey)),
			event(earn.EventEarnerRemoved, field("tokenAccount", tPubkey)),
			event(earn.EventClaimsComplete, field("index", tU64), field("distributedYield", tU64)),
		},
		Types: []IDLTypeDefinition{
			structDef("ProofElement", field("node", tHash), field("onRight", tBool)),
		},
		Errors: idlErrors(),
	}
}

// ExtIDL describes the wrap vault interface.
func ExtIDL() *IDL {
	wrapAccounts := []IDLAccount{
		acc("signer", false, true), acc("tokenAuthority", false, true), acc("globalAccount", false, false),
		acc("mMint", false, false), acc("extMint", true, false), acc("mVault", false, false),
	}
	return &IDL{
		Version: idlVersion,
		Name:    "ext",
		Address: ext.ProgramID.String(),
		Instructions: []IDLInstruction{
			instruction("initialize",
				[]IDLAccount{
					acc("admin", true, true), acc("globalAccount", true, false), acc("mMint", false, false),
					acc("extMint", false, false), acc("mEarnGlobalAccount", false, false), acc("mVault", false, false),
					acc("vaultMTokenAccount", true, false),
				},
				field("wrapAuthorities", tPubkeys),
			),
			instruction("wrap",
				append(append([]IDLAccount{}, wrapAccounts...),
					acc("extMintAuthority", false, false), acc("fromMTokenAccount", true, false),
					acc("vaultMTokenAccount", true, false), acc("toExtTokenAccount", true, false),
				),
				field("amount", tU64),
			),
			instruction("unwrap",
				append(append([]IDLAccount{}, wrapAccounts...),
					acc("fromExtTokenAccount", true, false), acc("vaultMTokenAccount", true, false),
					acc("toMTokenAccount", true, false),
				),
				field("amount", tU64),
			),
			instruction("set_m_mint",
				[]IDLAccount{
					acc("admin", false, true), acc("globalAccount", true, false), acc("mVault", false, false),
					acc("mMint", false, false), acc("newMMint", false, false), acc("vaultMTokenAccount", false, false),
					acc("newVaultMTokenAccount", false, false), acc("extMint", false, false),
				},
			),
			instruction("claim_fees",
				[]IDLAccount{
					acc("admin", false, true), acc("globalAccount", false, false), acc("mMint", false, false),
					acc("extMint", true, false), acc("mVault", false, false), acc("extMintAuthority", false, false),
					acc("vaultMTokenAccount", false, false), acc("recipientExtTokenAccount", true, false),
				},
			),
			instruction("update_wrap_authority",
				[]IDLAccount{acc("admin", false, true), acc("globalAccount", true, false)},
				field("index", tU8),
				field("newWrapAuthority", tPubkey),
			),
		},
		Accounts: []IDLTypeDefinition{
			structDef("ExtGlobal",
				field("admin", tPubkey),
				field("mMint", tPubkey),
				field("extMint", tPubkey),
				field("mEarnGlobalAccount", tPubkey),
				field("bump", tU8),
				field("mVaultBump", tU8),
				field("extMintAuthorityBump", tU8),
				field("wrapAuthorities", tSlots),
				field("yieldConfig", tYieldConf),
			),
		},
		Events: []IDLEvent{
			event(ext.EventWrapped, field("from", tPubkey), field("to", tPubkey), field("amount", tU64)),
			event(ext.EventUnwrapped, field("from", tPubkey), field("to", tPubkey), field("amount", tU64)),
			event(ext.EventMMintUpdated, field("oldMint", tPubkey), field("newMint", tPubkey), field("backing", tU64)),
			event(ext.EventFeesClaimed, field("recipient", tPubkey), field("amount", tU64)),
			event(ext.EventWrapAuthorityUpdated, field("index", tU8), field("newAuthority", tPubkey)),
		},
		Types: []IDLTypeDefinition{
			structDef("AuthoritySlot", field("occupied", tBool), field("key", tPubkey)),
			structDef("YieldConfig", field("variant", tU8)),
		},
		Errors: idlErrors(),
	}
}
