package ext

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"solana-m/earn"
	"solana-m/runtime"
)

func newInstruction(name string, args interface{}, accounts ...*solana.AccountMeta) (solana.Instruction, error) {
	data, err := runtime.EncodeInstruction(name, args)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, accounts, data), nil
}

// pdas bundles the program addresses every vault instruction references.
type pdas struct {
	global        solana.PublicKey
	mVault        solana.PublicKey
	mintAuthority solana.PublicKey
}

func derivePDAs() (*pdas, error) {
	global, _, err := GetGlobalPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get global PDA: %w", err)
	}
	mVault, _, err := GetMVaultPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get m vault PDA: %w", err)
	}
	mintAuthority, _, err := GetMintAuthorityPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get mint authority PDA: %w", err)
	}
	return &pdas{global: global, mVault: mVault, mintAuthority: mintAuthority}, nil
}

// NewInitializeInstruction creates the vault singleton and the vault token
// account for mMint under tokenProgram.
func NewInitializeInstruction(admin, mMint, extMint, tokenProgram solana.PublicKey, wrapAuthorities []solana.PublicKey) (solana.Instruction, error) {
	p, err := derivePDAs()
	if err != nil {
		return nil, err
	}
	earnGlobal, _, err := earn.GetGlobalPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get earn global PDA: %w", err)
	}
	vaultAccount, err := GetVaultTokenAccount(mMint, tokenProgram)
	if err != nil {
		return nil, err
	}
	return newInstruction("initialize", &InitializeArgs{WrapAuthorities: wrapAuthorities},
		solana.Meta(admin).WRITE().SIGNER(),
		solana.Meta(p.global).WRITE(),
		solana.Meta(mMint),
		solana.Meta(extMint),
		solana.Meta(earnGlobal),
		solana.Meta(p.mVault),
		solana.Meta(vaultAccount).WRITE(),
	)
}

// WrapAccounts names the token accounts of a wrap or unwrap.
type WrapAccounts struct {
	MMint          solana.PublicKey
	ExtMint        solana.PublicKey
	TokenProgram   solana.PublicKey
	From           solana.PublicKey
	To             solana.PublicKey
	TokenAuthority solana.PublicKey
}

func NewWrapInstruction(signer solana.PublicKey, accs WrapAccounts, amount uint64) (solana.Instruction, error) {
	p, err := derivePDAs()
	if err != nil {
		return nil, err
	}
	vaultAccount, err := GetVaultTokenAccount(accs.MMint, accs.TokenProgram)
	if err != nil {
		return nil, err
	}
	return newInstruction("wrap", &AmountArgs{Amount: amount},
		solana.Meta(signer).SIGNER(),
		solana.Meta(accs.TokenAuthority).SIGNER(),
		solana.Meta(p.global),
		solana.Meta(accs.MMint),
		solana.Meta(accs.ExtMint).WRITE(),
		solana.Meta(p.mVault),
		solana.Meta(p.mintAuthority),
		solana.Meta(accs.From).WRITE(),
		solana.Meta(vaultAccount).WRITE(),
		solana.Meta(accs.To).WRITE(),
	)
}

func NewUnwrapInstruction(signer solana.PublicKey, accs WrapAccounts, amount uint64) (solana.Instruction, error) {
	p, err := derivePDAs()
	if err != nil {
		return nil, err
	}
	vaultAccount, err := GetVaultTokenAccount(accs.MMint, accs.TokenProgram)
	if err != nil {
		return nil, err
	}
	return newInstruction("unwrap", &AmountArgs{Amount: amount},
		solana.Meta(signer).SIGNER(),
		solana.Meta(accs.TokenAuthority).SIGNER(),
		solana.Meta(p.global),
		solana.Meta(accs.MMint),
		solana.Meta(accs.ExtMint).WRITE(),
		solana.Meta(p.mVault),
		solana.Meta(accs.From).WRITE(),
		solana.Meta(vaultAccount).WRITE(),
		solana.Meta(accs.To).WRITE(),
	)
}

func NewSetMMintInstruction(admin, oldMint, newMint, extMint, tokenProgram solana.PublicKey) (solana.Instruction, error) {
	p, err := derivePDAs()
	if err != nil {
		return nil, err
	}
	oldVault, err := GetVaultTokenAccount(oldMint, tokenProgram)
	if err != nil {
		return nil, err
	}
	newVault, err := GetVaultTokenAccount(newMint, tokenProgram)
	if err != nil {
		return nil, err
	}
	return newInstruction("set_m_mint", nil,
		solana.Meta(admin).SIGNER(),
		solana.Meta(p.global).WRITE(),
		solana.Meta(p.mVault),
		solana.Meta(oldMint),
		solana.Meta(newMint),
		solana.Meta(oldVault),
		solana.Meta(newVault),
		solana.Meta(extMint),
	)
}

func NewClaimFeesInstruction(admin, mMint, extMint, tokenProgram, recipient solana.PublicKey) (solana.Instruction, error) {
	p, err := derivePDAs()
	if err != nil {
		return nil, err
	}
	vaultAccount, err := GetVaultTokenAccount(mMint, tokenProgram)
	if err != nil {
		return nil, err
	}
	return newInstruction("claim_fees", nil,
		solana.Meta(admin).SIGNER(),
		solana.Meta(p.global),
		solana.Meta(mMint),
		solana.Meta(extMint).WRITE(),
		solana.Meta(p.mVault),
		solana.Meta(p.mintAuthority),
		solana.Meta(vaultAccount),
		solana.Meta(recipient).WRITE(),
	)
}

func NewUpdateWrapAuthorityInstruction(admin solana.PublicKey, index uint8, newAuthority solana.PublicKey) (solana.Instruction, error) {
	p, err := derivePDAs()
	if err != nil {
		return nil, err
	}
	return newInstruction("update_wrap_authority",
		&UpdateWrapAuthorityArgs{Index: index, NewAuthority: newAuthority},
		solana.Meta(admin).SIGNER(),
		solana.Meta(p.global).WRITE(),
	)
}
