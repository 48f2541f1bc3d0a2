package ext

import (
	"github.com/gagliardetto/solana-go"
)

const (
	EventWrapped              = "Wrapped"
	EventUnwrapped            = "Unwrapped"
	EventMMintUpdated         = "MMintUpdated"
	EventFeesClaimed          = "FeesClaimed"
	EventWrapAuthorityUpdated = "WrapAuthorityUpdated"
)

type Wrapped struct {
	From   solana.PublicKey
	To     solana.PublicKey
	Amount uint64
}

type Unwrapped struct {
	From   solana.PublicKey
	To     solana.PublicKey
	Amount uint64
}

type MMintUpdated struct {
	OldMint solana.PublicKey
	NewMint solana.PublicKey
	Backing uint64
}

type FeesClaimed struct {
	Recipient solana.PublicKey
	Amount    uint64
}

type WrapAuthorityUpdated struct {
	Index        uint8
	NewAuthority solana.PublicKey
}
