package storage

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"solana-m/runtime"
)

// A stored record is the 32 byte owner program followed by the raw account
// data.
const ownerLength = solana.PublicKeyLength

func encodeRecord(acc *runtime.Account) []byte {
	out := make([]byte, 0, ownerLength+len(acc.Data))
	out = append(out, acc.Owner[:]...)
	return append(out, acc.Data...)
}

func decodeRecord(value []byte) (*runtime.Account, error) {
	if len(value) < ownerLength {
		return nil, fmt.Errorf("corrupt account record of %d bytes", len(value))
	}
	acc := &runtime.Account{Data: make([]byte, len(value)-ownerLength)}
	copy(acc.Owner[:], value[:ownerLength])
	copy(acc.Data, value[ownerLength:])
	return acc, nil
}
