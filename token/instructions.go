package token

import (
	"github.com/gagliardetto/solana-go"

	"solana-m/runtime"
)

func newInstruction(tokenProgram solana.PublicKey, name string, args interface{}, accounts ...*solana.AccountMeta) (solana.Instruction, error) {
	data, err := runtime.EncodeInstruction(name, args)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(tokenProgram, accounts, data), nil
}

// NewInitializeMintInstruction creates a mint at the address of the signing
// mint keypair.
func NewInitializeMintInstruction(tokenProgram, mint solana.PublicKey, decimals uint8, authority solana.PublicKey) (solana.Instruction, error) {
	return newInstruction(tokenProgram, "initialize_mint",
		&InitializeMintArgs{Decimals: decimals, MintAuthority: authority},
		solana.Meta(mint).WRITE().SIGNER(),
	)
}

// NewInitializeAccountInstruction creates a token account at the address of
// the signing account keypair.
func NewInitializeAccountInstruction(tokenProgram, account, mint, owner solana.PublicKey, immutableOwner bool) (solana.Instruction, error) {
	return newInstruction(tokenProgram, "initialize_account",
		&InitializeAccountArgs{ImmutableOwner: immutableOwner},
		solana.Meta(account).WRITE().SIGNER(),
		solana.Meta(mint),
		solana.Meta(owner),
	)
}

func NewCreateAssociatedAccountInstruction(tokenProgram, payer, owner, mint solana.PublicKey) (solana.Instruction, error) {
	associated, _, err := AssociatedAddress(owner, mint, tokenProgram)
	if err != nil {
		return nil, err
	}
	return newInstruction(tokenProgram, "create_associated_account", nil,
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(associated).WRITE(),
		solana.Meta(owner),
		solana.Meta(mint),
	)
}

func NewMintToInstruction(tokenProgram, mint, destination, authority solana.PublicKey, amount uint64) (solana.Instruction, error) {
	return newInstruction(tokenProgram, "mint_to", &AmountArgs{Amount: amount},
		solana.Meta(mint).WRITE(),
		solana.Meta(destination).WRITE(),
		solana.Meta(authority).SIGNER(),
	)
}

func NewTransferInstruction(tokenProgram, source, destination, authority solana.PublicKey, amount uint64) (solana.Instruction, error) {
	return newInstruction(tokenProgram, "transfer", &AmountArgs{Amount: amount},
		solana.Meta(source).WRITE(),
		solana.Meta(destination).WRITE(),
		solana.Meta(authority).SIGNER(),
	)
}

func NewBurnInstruction(tokenProgram, source, mint, authority solana.PublicKey, amount uint64) (solana.Instruction, error) {
	return newInstruction(tokenProgram, "burn", &AmountArgs{Amount: amount},
		solana.Meta(source).WRITE(),
		solana.Meta(mint).WRITE(),
		solana.Meta(authority).SIGNER(),
	)
}

func NewApproveInstruction(tokenProgram, account, delegate, owner solana.PublicKey, amount uint64) (solana.Instruction, error) {
	return newInstruction(tokenProgram, "approve", &AmountArgs{Amount: amount},
		solana.Meta(account).WRITE(),
		solana.Meta(delegate),
		solana.Meta(owner).SIGNER(),
	)
}

func NewSetOwnerInstruction(tokenProgram, account, newOwner, owner solana.PublicKey) (solana.Instruction, error) {
	return newInstruction(tokenProgram, "set_owner", nil,
		solana.Meta(account).WRITE(),
		solana.Meta(newOwner),
		solana.Meta(owner).SIGNER(),
	)
}

func NewSetMintAuthorityInstruction(tokenProgram, mint, newAuthority, authority solana.PublicKey) (solana.Instruction, error) {
	return newInstruction(tokenProgram, "set_mint_authority", nil,
		solana.Meta(mint).WRITE(),
		solana.Meta(newAuthority),
		solana.Meta(authority).SIGNER(),
	)
}
