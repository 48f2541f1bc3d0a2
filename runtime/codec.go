package runtime

import (
	"bytes"
	"fmt"
	"sort"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// DiscriminatorSize is the length of the type prefix carried by accounts,
// instructions and events.
const DiscriminatorSize = 8

const eventNamespace = "event"

func discriminator(namespace, name string) [DiscriminatorSize]byte {
	var out [DiscriminatorSize]byte
	copy(out[:], bin.Sighash(namespace, name))
	return out
}

// InstructionDiscriminator returns the prefix of an instruction, e.g.
// "propagate_index".
func InstructionDiscriminator(name string) [DiscriminatorSize]byte {
	return discriminator(bin.SIGHASH_GLOBAL_NAMESPACE, name)
}

// AccountDiscriminator returns the prefix of an account type, e.g. "Earner".
func AccountDiscriminator(name string) [DiscriminatorSize]byte {
	return discriminator(bin.SIGHASH_ACCOUNT_NAMESPACE, name)
}

// EventDiscriminator returns the prefix of an event, e.g. "IndexUpdate".
func EventDiscriminator(name string) [DiscriminatorSize]byte {
	return discriminator(eventNamespace, name)
}

func encodeWithPrefix(prefix [DiscriminatorSize]byte, v interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(prefix[:])
	if v != nil {
		if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// EncodeInstruction serializes the instruction arguments behind the
// instruction discriminator. args may be nil for instructions without
// arguments.
func EncodeInstruction(name string, args interface{}) ([]byte, error) {
	data, err := encodeWithPrefix(InstructionDiscriminator(name), args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s args: %w", name, err)
	}
	return data, nil
}

// DecodeArgs decodes instruction arguments that follow the discriminator.
func DecodeArgs(data []byte, v interface{}) error {
	if len(data) < DiscriminatorSize {
		return ErrInstructionDidNotDeserialize
	}
	if err := bin.NewBorshDecoder(data[DiscriminatorSize:]).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInstructionDidNotDeserialize, err)
	}
	return nil
}

// MarshalAccount serializes account state behind its discriminator.
func MarshalAccount(name string, v interface{}) ([]byte, error) {
	data, err := encodeWithPrefix(AccountDiscriminator(name), v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s account: %w", name, err)
	}
	return data, nil
}

// UnmarshalAccount checks the discriminator and decodes account state.
func UnmarshalAccount(name string, data []byte, v interface{}) error {
	want := AccountDiscriminator(name)
	if len(data) < DiscriminatorSize || !bytes.Equal(data[:DiscriminatorSize], want[:]) {
		return fmt.Errorf("%w: expected %s", ErrAccountDiscriminatorMismatch, name)
	}
	if err := bin.NewBorshDecoder(data[DiscriminatorSize:]).Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAccountDidNotDeserialize, name, err)
	}
	return nil
}

// EncodeEvent serializes an event behind its discriminator.
func EncodeEvent(name string, v interface{}) ([]byte, error) {
	data, err := encodeWithPrefix(EventDiscriminator(name), v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", name, err)
	}
	return data, nil
}

// Handler processes one instruction. accounts are the instruction's account
// keys in order and data is the full instruction data, discriminator included.
type Handler func(ctx *Context, accounts []solana.PublicKey, data []byte) error

// Program is an on-ledger program addressed by its ID.
type Program interface {
	ID() solana.PublicKey
	Process(ctx *Context, accounts []solana.PublicKey, data []byte) error
}

// Dispatcher routes instruction data to handlers by discriminator.
type Dispatcher struct {
	handlers map[[DiscriminatorSize]byte]Handler
	names    map[[DiscriminatorSize]byte]string
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[[DiscriminatorSize]byte]Handler),
		names:    make(map[[DiscriminatorSize]byte]string),
	}
}

// Handle registers h under the named instruction.
func (d *Dispatcher) Handle(name string, h Handler) {
	disc := InstructionDiscriminator(name)
	d.handlers[disc] = h
	d.names[disc] = name
}

// Names lists the registered instruction names.
func (d *Dispatcher) Names() []string {
	out := make([]string, 0, len(d.names))
	for _, name := range d.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (d *Dispatcher) Dispatch(ctx *Context, accounts []solana.PublicKey, data []byte) error {
	if len(data) < DiscriminatorSize {
		return ErrInstructionFallbackNotFound
	}
	var disc [DiscriminatorSize]byte
	copy(disc[:], data)
	h, ok := d.handlers[disc]
	if !ok {
		return ErrInstructionFallbackNotFound
	}
	ctx.Msg("Instruction: %s", d.names[disc])
	return h(ctx, accounts, data)
}

// RequireAccounts fails with ErrNotEnoughAccountKeys when fewer than n
// accounts were passed.
func RequireAccounts(accounts []solana.PublicKey, n int) error {
	if len(accounts) < n {
		return fmt.Errorf("%w: want %d, got %d", ErrNotEnoughAccountKeys, n, len(accounts))
	}
	return nil
}
