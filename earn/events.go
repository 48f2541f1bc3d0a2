package earn

import (
	"github.com/gagliardetto/solana-go"
)

const (
	EventIndexUpdate    = "IndexUpdate"
	EventRewardsClaim   = "RewardsClaim"
	EventEarnerAdded    = "EarnerAdded"
	EventEarnerRemoved  = "EarnerRemoved"
	EventClaimsComplete = "ClaimsComplete"
)

type IndexUpdate struct {
	Index     uint64
	Timestamp int64
}

type RewardsClaim struct {
	TokenAccount   solana.PublicKey
	RecipientToken solana.PublicKey
	Amount         uint64
	Ts             int64
	Index          uint64
}

type EarnerAdded struct {
	TokenAccount solana.PublicKey
	User         solana.PublicKey
}

type EarnerRemoved struct {
	TokenAccount solana.PublicKey
}

type ClaimsComplete struct {
	Index            uint64
	DistributedYield uint64
}
